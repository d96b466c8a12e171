package location_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airaware/airaware/internal/airquality"
	"github.com/airaware/airaware/internal/location"
)

type stubGeocoder struct {
	city string
	err  error
}

func (g stubGeocoder) ReverseGeocode(context.Context, float64, float64) (string, error) {
	return g.city, g.err
}

type stubCities struct {
	records map[string]airquality.Record
	err     error
	keys    []string
}

func (c *stubCities) LookupCity(_ context.Context, key string) (airquality.Record, error) {
	c.keys = append(c.keys, key)
	if c.err != nil {
		return airquality.Record{}, c.err
	}
	rec, ok := c.records[key]
	if !ok {
		return airquality.Record{}, fmt.Errorf("%s: %w", key, airquality.ErrCityNotFound)
	}
	return rec, nil
}

func reverseFlow(geocoder location.Geocoder, cities location.CityLookup) (*location.Flow, *airquality.Store, *recordingResolver) {
	resolver := &recordingResolver{rec: mumbai()}
	store := airquality.NewStore(airquality.DefaultRecord(), resolver)
	flow := location.NewFlow(location.FlowConfig{
		Store: store,
		Strategy: &location.ReverseGeocodeStrategy{
			Geocoder: geocoder,
			Cities:   cities,
			Logger:   zerolog.Nop(),
		},
		Logger: zerolog.Nop(),
	})
	return flow, store, resolver
}

func TestReverseGeocode_CityFound(t *testing.T) {
	cities := &stubCities{records: map[string]airquality.Record{
		"navi-mumbai": {AQI: 171, City: "Navi Mumbai, India", Source: airquality.SourceSnapshot},
	}}
	flow, store, resolver := reverseFlow(stubGeocoder{city: "Navi  Mumbai"}, cities)

	require.NoError(t, flow.Start(context.Background(), location.StaticPosition{Latitude: 19, Longitude: 73}))

	assert.Equal(t, location.StateResolved, flow.State())
	assert.Equal(t, location.StrategyReverseGeocode, flow.Strategy())
	assert.Equal(t, []string{"navi-mumbai"}, cities.keys)
	assert.Equal(t, 171, store.Current().AQI)
	assert.Equal(t, airquality.SourceSnapshot, store.Current().Source)
	assert.Equal(t, int32(0), resolver.calls.Load())
}

func TestReverseGeocode_CityMissingInstallsFallback(t *testing.T) {
	cities := &stubCities{records: map[string]airquality.Record{}}
	flow, store, _ := reverseFlow(stubGeocoder{city: "Atlantis"}, cities)

	require.NoError(t, flow.Start(context.Background(), location.StaticPosition{Latitude: 1, Longitude: 1}))

	assert.Equal(t, location.StateResolved, flow.State())
	assert.Equal(t, airquality.FallbackRecord().City, store.Current().City)
	assert.Equal(t, 483, store.Current().AQI)
}

func TestReverseGeocode_SnapshotErrorInstallsFallback(t *testing.T) {
	cities := &stubCities{err: errors.New("store offline")}
	flow, store, _ := reverseFlow(stubGeocoder{city: "Delhi"}, cities)

	require.NoError(t, flow.Start(context.Background(), location.StaticPosition{Latitude: 1, Longitude: 1}))

	assert.Equal(t, 483, store.Current().AQI)
}

func TestReverseGeocode_GeocodeErrorKeepsDefault(t *testing.T) {
	cities := &stubCities{}
	flow, store, _ := reverseFlow(stubGeocoder{err: errors.New("timeout")}, cities)

	require.NoError(t, flow.Start(context.Background(), location.StaticPosition{Latitude: 1, Longitude: 1}))

	assert.Equal(t, location.StateUsingDefault, flow.State())
	assert.Equal(t, 449, store.Current().AQI)
	assert.Empty(t, cities.keys)
}
