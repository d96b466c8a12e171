package location

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/airaware/airaware/internal/airquality"
	"github.com/airaware/airaware/internal/snapshot"
)

// StrategyName selects how a position becomes a record.
type StrategyName string

const (
	// StrategyCoordinates asks the live provider for the nearest station.
	StrategyCoordinates StrategyName = "coordinates"

	// StrategyReverseGeocode resolves the city name and reads the snapshot.
	StrategyReverseGeocode StrategyName = "reverse_geocode"
)

// ParseStrategy maps a configuration value to a strategy name, defaulting
// to StrategyCoordinates.
func ParseStrategy(s string) StrategyName {
	if StrategyName(s) == StrategyReverseGeocode {
		return StrategyReverseGeocode
	}
	return StrategyCoordinates
}

// Strategy installs the record for a position into the store. An error
// means the store was left untouched.
type Strategy interface {
	Name() StrategyName
	Apply(ctx context.Context, store *airquality.Store, pos Position) error
}

// CoordinatesStrategy refetches through the store's resolver.
type CoordinatesStrategy struct{}

// Name returns StrategyCoordinates.
func (CoordinatesStrategy) Name() StrategyName { return StrategyCoordinates }

// Apply refetches the record for pos. The resolver never fails; provider
// errors arrive as the fallback record.
func (CoordinatesStrategy) Apply(ctx context.Context, store *airquality.Store, pos Position) error {
	store.Refetch(ctx, pos.Latitude, pos.Longitude)
	return nil
}

// Geocoder resolves coordinates to a city name.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// CityLookup reads a city from the air data snapshot.
type CityLookup interface {
	LookupCity(ctx context.Context, key string) (airquality.Record, error)
}

// ReverseGeocodeStrategy maps the position to a city and reads its
// snapshot row.
type ReverseGeocodeStrategy struct {
	Geocoder Geocoder
	Cities   CityLookup
	Logger   zerolog.Logger
}

// Name returns StrategyReverseGeocode.
func (s *ReverseGeocodeStrategy) Name() StrategyName { return StrategyReverseGeocode }

// Apply resolves the city for pos. A geocoding failure keeps the current
// record. Once a city name is known, a snapshot miss or read error installs
// the fallback record.
func (s *ReverseGeocodeStrategy) Apply(ctx context.Context, store *airquality.Store, pos Position) error {
	city, err := s.Geocoder.ReverseGeocode(ctx, pos.Latitude, pos.Longitude)
	if err != nil {
		return fmt.Errorf("reverse geocode: %w", err)
	}

	key := snapshot.CityKey(city)
	rec, err := s.Cities.LookupCity(ctx, key)
	if err != nil {
		event := s.Logger.Warn()
		if errors.Is(err, airquality.ErrCityNotFound) {
			event = s.Logger.Info()
		}
		event.Err(err).
			Str("city", city).
			Str("key", key).
			Msg("city not in snapshot, using fallback")
		store.Set(airquality.FallbackRecord())
		return nil
	}

	store.Set(rec)
	return nil
}
