package airquality

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Provider defines the interface for live air quality providers.
type Provider interface {
	// Name identifies the provider in logs, metrics and health reports.
	Name() string

	// FetchByCoordinates returns the nearest station's reading.
	// Coordinates (0, 0) ask the provider to locate the caller itself.
	FetchByCoordinates(ctx context.Context, lat, lon float64) (Record, error)
}

// MetricsRecorder records provider call outcomes.
type MetricsRecorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
}

// HealthRecorder tracks provider health for the status endpoint.
type HealthRecorder interface {
	Record(name string, err error)
}

// ServiceConfig holds configuration for the air quality service.
type ServiceConfig struct {
	// Provider is the live data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics is optional.
	Metrics MetricsRecorder

	// Health is optional.
	Health HealthRecorder
}

// Service resolves coordinates into a Record with a single provider call.
// There is no caching and no retry: every lookup is a fresh request.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	metrics  MetricsRecorder
	health   HealthRecorder
}

// NewService creates a new air quality service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		health:   cfg.Health,
	}
}

// Lookup fetches the record for the given coordinates and returns any
// provider error unchanged.
func (s *Service) Lookup(ctx context.Context, lat, lon float64) (Record, error) {
	start := time.Now()
	rec, err := s.provider.FetchByCoordinates(ctx, lat, lon)
	duration := time.Since(start)

	if s.metrics != nil {
		s.metrics.RecordRequest(s.provider.Name(), "feed", duration, err)
	}

	if s.health != nil {
		s.health.Record(s.provider.Name(), err)
	}
	if err != nil {
		return Record{}, err
	}

	s.logger.Debug().
		Str("city", rec.City).
		Int("aqi", rec.AQI).
		Dur("duration", duration).
		Msg("air quality resolved")

	return rec, nil
}

// Resolve fetches the record for the given coordinates. On any failure the
// error is logged and FallbackRecord is returned instead.
func (s *Service) Resolve(ctx context.Context, lat, lon float64) Record {
	rec, err := s.Lookup(ctx, lat, lon)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("position", positionKind(lat, lon)).
			Msg("air quality lookup failed, using fallback")
		return FallbackRecord()
	}
	return rec
}

// positionKind names the kind of lookup without recording the coordinates.
func positionKind(lat, lon float64) string {
	if lat == 0 && lon == 0 {
		return "here"
	}
	return "coordinates"
}
