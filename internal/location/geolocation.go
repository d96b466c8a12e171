package location

import (
	"context"
	"errors"
	"math"
	"net/url"
	"strconv"
)

// Geolocation errors.
var (
	ErrPermissionDenied    = errors.New("geolocation permission denied")
	ErrPositionUnavailable = errors.New("geolocation position unavailable")
)

// Position is a device position in decimal degrees.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Geolocator acquires the device position.
type Geolocator interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

// StaticPosition is a Geolocator that always reports the same position.
type StaticPosition Position

// CurrentPosition returns the fixed position.
func (p StaticPosition) CurrentPosition(ctx context.Context) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	return Position(p), nil
}

// DeniedPosition is a Geolocator for a user who refused the prompt.
type DeniedPosition struct{}

// CurrentPosition always fails with ErrPermissionDenied.
func (DeniedPosition) CurrentPosition(context.Context) (Position, error) {
	return Position{}, ErrPermissionDenied
}

// GeolocatorFunc adapts a function to the Geolocator interface.
type GeolocatorFunc func(ctx context.Context) (Position, error)

// CurrentPosition calls f.
func (f GeolocatorFunc) CurrentPosition(ctx context.Context) (Position, error) {
	return f(ctx)
}

// FromQuery builds a Geolocator from the page's query string. The inline
// script reloads the page with lat/lon after the browser prompt succeeds, or
// with geo=denied after it fails. It returns nil when the browser has not
// answered yet.
func FromQuery(q url.Values) Geolocator {
	if q.Get("geo") == "denied" {
		return DeniedPosition{}
	}

	latStr, lonStr := q.Get("lat"), q.Get("lon")
	if latStr == "" || lonStr == "" {
		return nil
	}

	lat, ok := parseDegrees(latStr, 90)
	if !ok {
		return GeolocatorFunc(unavailable)
	}
	lon, ok := parseDegrees(lonStr, 180)
	if !ok {
		return GeolocatorFunc(unavailable)
	}
	return StaticPosition{Latitude: lat, Longitude: lon}
}

// parseDegrees accepts a finite value within [-limit, limit].
func parseDegrees(s string, limit float64) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < -limit || v > limit {
		return 0, false
	}
	return v, true
}

func unavailable(context.Context) (Position, error) {
	return Position{}, ErrPositionUnavailable
}
