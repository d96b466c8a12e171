package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/airaware/airaware/internal/airquality"
)

// CacheMetrics records cache hits and misses.
type CacheMetrics interface {
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
}

// ServiceConfig holds configuration for the snapshot service.
type ServiceConfig struct {
	// Store holds the published documents.
	Store Store

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long a loaded document is served from memory (default: 5 minutes).
	CacheTTL time.Duration

	// StaleIfErrorTTL allows serving stale documents on store errors (default: 30 minutes).
	StaleIfErrorTTL time.Duration

	// Metrics is optional.
	Metrics CacheMetrics
}

// Service reads and publishes snapshot documents, caching decoded
// documents in memory.
type Service struct {
	store           Store
	logger          zerolog.Logger
	cacheTTL        time.Duration
	staleIfErrorTTL time.Duration
	metrics         CacheMetrics

	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	value     any
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new snapshot service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 30 * time.Minute
	}

	return &Service{
		store:           cfg.Store,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		staleIfErrorTTL: staleIfErrorTTL,
		metrics:         cfg.Metrics,
		entries:         make(map[string]*cacheEntry),
	}
}

// AirData returns the air-data.json document.
func (s *Service) AirData(ctx context.Context) (*AirData, error) {
	return load[*AirData](ctx, s, AirDataName)
}

// Table returns the air-table.json document.
func (s *Service) Table(ctx context.Context) (map[string]TableRow, error) {
	return load[map[string]TableRow](ctx, s, AirTableName)
}

// Plants returns the coal-plants.json document.
func (s *Service) Plants(ctx context.Context) (*PlantsReport, error) {
	return load[*PlantsReport](ctx, s, CoalPlantsName)
}

// Ranking returns one page of the city ranking table.
func (s *Service) Ranking(ctx context.Context, page int) (Page, error) {
	table, err := s.Table(ctx)
	if err != nil {
		return Page{}, err
	}
	return Paginate(RankTable(table), page, DefaultPageSize), nil
}

// LookupCity returns the stored reading for a city key.
func (s *Service) LookupCity(ctx context.Context, key string) (airquality.Record, error) {
	data, err := s.AirData(ctx)
	if err != nil {
		return airquality.Record{}, err
	}

	city, ok := data.Lookup(key)
	if !ok {
		return airquality.Record{}, fmt.Errorf("%s: %w", key, airquality.ErrCityNotFound)
	}
	return city.ToRecord(), nil
}

// PublishAirData writes air-data.json and then the derived air-table.json.
// The table is never written when the air data could not be stored.
func (s *Service) PublishAirData(ctx context.Context, data *AirData) error {
	var dataBody, tableBody []byte
	var g errgroup.Group
	g.Go(func() (err error) {
		if dataBody, err = json.MarshalIndent(data, "", "  "); err != nil {
			return fmt.Errorf("encode %s: %w", AirDataName, err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if tableBody, err = json.MarshalIndent(BuildTable(data), "", "  "); err != nil {
			return fmt.Errorf("encode %s: %w", AirTableName, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.store.Put(ctx, AirDataName, dataBody); err != nil {
		return err
	}
	s.invalidate(AirDataName)

	if err := s.store.Put(ctx, AirTableName, tableBody); err != nil {
		s.logger.Error().Err(err).Msg("air data published but table write failed")
		return err
	}
	s.invalidate(AirTableName)

	s.logger.Info().Int("cities", len(data.Cities)).Msg("air quality snapshot published")
	return nil
}

// PublishPlants writes coal-plants.json.
func (s *Service) PublishPlants(ctx context.Context, report *PlantsReport) error {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", CoalPlantsName, err)
	}
	if err := s.store.Put(ctx, CoalPlantsName, body); err != nil {
		return err
	}

	s.invalidate(CoalPlantsName)
	s.logger.Info().Int("stations", report.Metadata.TotalStations).Msg("coal plants snapshot published")
	return nil
}

// InvalidateCache drops every cached document.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*cacheEntry)
}

func (s *Service) invalidate(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range names {
		delete(s.entries, n)
	}
}

// CacheStatus represents the cache state of one document.
type CacheStatus struct {
	Name      string
	HasData   bool
	FetchedAt time.Time
	ExpiresAt time.Time
	IsExpired bool
	IsStale   bool
}

// CacheStatus reports the cache state of every known document.
func (s *Service) CacheStatus() []CacheStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	names := []string{AirDataName, AirTableName, CoalPlantsName}
	out := make([]CacheStatus, 0, len(names))
	for _, name := range names {
		e, ok := s.entries[name]
		if !ok {
			out = append(out, CacheStatus{Name: name})
			continue
		}
		out = append(out, CacheStatus{
			Name:      name,
			HasData:   true,
			FetchedAt: e.fetchedAt,
			ExpiresAt: e.expiresAt,
			IsExpired: now.After(e.expiresAt),
			IsStale:   now.After(e.fetchedAt.Add(s.staleIfErrorTTL)),
		})
	}
	return out
}

func load[T any](ctx context.Context, s *Service, name string) (T, error) {
	// Check for fresh cache
	s.mu.RLock()
	if e, ok := s.entries[name]; ok && time.Now().Before(e.expiresAt) {
		v := e.value.(T)
		s.mu.RUnlock()
		s.recordHit(name)
		return v, nil
	}
	s.mu.RUnlock()

	s.recordMiss(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check: another goroutine might have loaded while we waited
	if e, ok := s.entries[name]; ok && time.Now().Before(e.expiresAt) {
		return e.value.(T), nil
	}

	var zero T
	value, err := decode[T](ctx, s.store, name)
	if err != nil {
		if e, ok := s.entries[name]; ok && time.Now().Before(e.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Err(err).
				Str("document", name).
				Time("fetched_at", e.fetchedAt).
				Msg("serving stale snapshot due to store error")
			return e.value.(T), nil
		}
		if errors.Is(err, ErrNotFound) {
			return zero, ErrNotFound
		}
		s.logger.Error().Err(err).Str("document", name).Msg("failed to load snapshot")
		return zero, err
	}

	now := time.Now()
	s.entries[name] = &cacheEntry{value: value, fetchedAt: now, expiresAt: now.Add(s.cacheTTL)}

	s.logger.Debug().Str("document", name).Msg("snapshot loaded")
	return value, nil
}

func decode[T any](ctx context.Context, store Store, name string) (T, error) {
	var v T
	body, err := store.Get(ctx, name)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", name, err)
	}
	return v, nil
}

func (s *Service) recordHit(name string) {
	if s.metrics != nil {
		s.metrics.RecordCacheHit("snapshot", name)
	}
}

func (s *Service) recordMiss(name string) {
	if s.metrics != nil {
		s.metrics.RecordCacheMiss("snapshot", name)
	}
}
