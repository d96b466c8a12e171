package featureflags

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is how long a loaded flag set is served before the
// repository is asked again.
const DefaultCacheTTL = time.Minute

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger
	CacheTTL   time.Duration

	// Defaults answer for keys the repository does not hold. Nil selects
	// DefaultFlags.
	Defaults map[string]*Flag
}

// Service evaluates flags. Every request of the page asks several flags,
// so the whole set is loaded at once and cached for CacheTTL. When the
// repository fails the last loaded set keeps being served, or the defaults
// if nothing was ever loaded.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	ttl      time.Duration
	defaults map[string]*Flag

	loads singleflight.Group

	mu       sync.RWMutex
	cached   map[string]*Flag
	loadedAt time.Time
}

// NewService creates a new feature flag service.
func NewService(cfg ServiceConfig) *Service {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	defaults := cfg.Defaults
	if defaults == nil {
		defaults = DefaultFlags()
	}
	return &Service{
		repo:     cfg.Repository,
		logger:   cfg.Logger,
		ttl:      ttl,
		defaults: defaults,
	}
}

func (s *Service) fresh() (map[string]*Flag, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cached == nil || time.Since(s.loadedAt) > s.ttl {
		return s.cached, false
	}
	return s.cached, true
}

// current returns the merged flag set. Concurrent misses share one
// repository read.
func (s *Service) current(ctx context.Context) map[string]*Flag {
	cached, ok := s.fresh()
	if ok {
		return cached
	}

	v, _, _ := s.loads.Do("flags", func() (any, error) {
		stored, err := s.repo.GetAllFlags(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Bool("stale", cached != nil).Msg("load feature flags")
			if cached != nil {
				return cached, nil
			}
			return s.defaults, nil
		}

		merged := maps.Clone(s.defaults)
		for key, f := range stored {
			if d, known := Lookup(key); known && f.Description == "" {
				f.Description = d.Description
			}
			merged[key] = f
		}

		s.mu.Lock()
		s.cached = merged
		s.loadedAt = time.Now()
		s.mu.Unlock()
		return merged, nil
	})
	return v.(map[string]*Flag)
}

// GetFlag returns a copy of the flag, or nil for a key that is neither
// stored nor defaulted.
func (s *Service) GetFlag(ctx context.Context, key string) *Flag {
	f, ok := s.current(ctx)[key]
	if !ok {
		return nil
	}
	cp := *f
	return &cp
}

// GetAllFlags returns copies of every stored or defaulted flag.
func (s *Service) GetAllFlags(ctx context.Context) map[string]*Flag {
	all := s.current(ctx)
	out := make(map[string]*Flag, len(all))
	for key, f := range all {
		cp := *f
		out[key] = &cp
	}
	return out
}

// SetFlag stores one flag.
func (s *Service) SetFlag(ctx context.Context, flag *Flag) error {
	return s.SetFlags(ctx, []*Flag{flag})
}

// SetFlags stores flags in one repository call and drops the cache, so the
// next read on this instance sees the change. Other instances see it after
// their CacheTTL.
func (s *Service) SetFlags(ctx context.Context, flags []*Flag) error {
	now := time.Now()
	for _, f := range flags {
		f.UpdatedAt = now
	}
	if err := s.repo.SetFlags(ctx, flags); err != nil {
		return fmt.Errorf("store %d feature flags: %w", len(flags), err)
	}
	s.InvalidateCache()
	return nil
}

// InvalidateCache forces the next read to go to the repository.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
	s.loadedAt = time.Time{}
}

// IsEnabled reads a boolean flag. An unreadable value falls back to the
// flag's definition default.
func (s *Service) IsEnabled(ctx context.Context, key string) bool {
	d, _ := Lookup(key)
	return s.GetFlag(ctx, key).BoolValue(d.Default)
}

// IsLocationSearchEnabled reports whether search by place name is offered.
func (s *Service) IsLocationSearchEnabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagEnableLocationSearch)
}

// UseReverseGeocode reports whether positions resolve through the city snapshot.
func (s *Service) UseReverseGeocode(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagUseReverseGeocode)
}

func (s *Service) IsCityTableEnabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagEnableCityTable)
}

func (s *Service) IsCoalMapEnabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagEnableCoalMap)
}

// IsLiveLookupDisabled reports whether live WAQI calls are switched off.
func (s *Service) IsLiveLookupDisabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagDisableLiveLookup)
}
