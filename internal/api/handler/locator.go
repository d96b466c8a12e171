package handler

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/airaware/airaware/internal/airquality"
	"github.com/airaware/airaware/internal/featureflags"
	"github.com/airaware/airaware/internal/location"
)

// LocatorConfig holds configuration for a Locator.
type LocatorConfig struct {
	// Resolver performs live lookups by coordinates.
	Resolver airquality.Resolver

	// Geocoder and Cities back the reverse geocode strategy. Both are
	// optional; without them only coordinate lookups are possible.
	Geocoder location.Geocoder
	Cities   location.CityLookup

	// Flags can switch strategy at runtime. Optional.
	Flags *featureflags.Service

	// Strategy is the configured default.
	Strategy location.StrategyName

	Logger zerolog.Logger
}

// Locator runs one location flow per request against a fresh Store.
type Locator struct {
	resolver airquality.Resolver
	geocoder location.Geocoder
	cities   location.CityLookup
	flags    *featureflags.Service
	strategy location.StrategyName
	logger   zerolog.Logger
}

// NewLocator creates a new Locator.
func NewLocator(cfg LocatorConfig) *Locator {
	return &Locator{
		resolver: cfg.Resolver,
		geocoder: cfg.Geocoder,
		cities:   cfg.Cities,
		flags:    cfg.Flags,
		strategy: location.ParseStrategy(string(cfg.Strategy)),
		logger:   cfg.Logger,
	}
}

// Located is the outcome of one flow.
type Located struct {
	Record   airquality.Record
	State    location.State
	Strategy location.StrategyName
}

func (l *Locator) liveDisabled(ctx context.Context) bool {
	return l.flags != nil && l.flags.IsLiveLookupDisabled(ctx)
}

func (l *Locator) canReverseGeocode() bool {
	return l.geocoder != nil && l.cities != nil
}

// pick returns the strategy for this request, or nil when every strategy
// would need a live WAQI call that the flags forbid.
func (l *Locator) pick(ctx context.Context) location.Strategy {
	reverse := l.strategy == location.StrategyReverseGeocode
	if l.flags != nil && l.flags.UseReverseGeocode(ctx) {
		reverse = true
	}
	if l.liveDisabled(ctx) {
		reverse = true
	}

	if reverse && l.canReverseGeocode() {
		return &location.ReverseGeocodeStrategy{
			Geocoder: l.geocoder,
			Cities:   l.cities,
			Logger:   l.logger,
		}
	}
	if l.liveDisabled(ctx) {
		return nil
	}
	return location.CoordinatesStrategy{}
}

func (l *Locator) newStore() *airquality.Store {
	return airquality.NewStore(airquality.DefaultRecord(), l.resolver)
}

// Locate runs the flow for geo. A nil geo means the browser has not
// answered yet and the default record is returned in StateUnknown.
func (l *Locator) Locate(ctx context.Context, geo location.Geolocator) Located {
	store := l.newStore()
	if geo == nil {
		return Located{Record: store.Current(), State: location.StateUnknown, Strategy: l.strategy}
	}

	strategy := l.pick(ctx)
	if strategy == nil {
		l.logger.Info().Msg("live lookups disabled and no reverse geocoder, keeping default record")
		return Located{Record: store.Current(), State: location.StateUsingDefault, Strategy: l.strategy}
	}

	flow := location.NewFlow(location.FlowConfig{Store: store, Strategy: strategy, Logger: l.logger})
	if err := flow.Start(ctx, geo); err != nil {
		// A fresh flow is never started twice; keep the default record.
		l.logger.Error().Err(err).Msg("location flow refused to start")
	}
	return Located{Record: store.Current(), State: flow.State(), Strategy: flow.Strategy()}
}

// Select installs the record for a chosen search result. It always uses a
// live coordinate lookup.
func (l *Locator) Select(ctx context.Context, pos location.Position) Located {
	store := l.newStore()
	flow := location.NewFlow(location.FlowConfig{Store: store, Logger: l.logger})
	if err := flow.Select(ctx, pos); err != nil {
		l.logger.Error().Err(err).Msg("location flow refused selection")
	}
	return Located{Record: store.Current(), State: flow.State(), Strategy: location.StrategyCoordinates}
}

// Here resolves the caller's own position, which the provider derives
// from the request IP. It reports false when live lookups are switched off
// or no resolver is configured.
func (l *Locator) Here(ctx context.Context) (Located, bool) {
	if l.resolver == nil || l.liveDisabled(ctx) {
		return Located{}, false
	}
	store := l.newStore()
	store.Refetch(ctx, 0, 0)
	return Located{Record: store.Current(), State: location.StateResolved, Strategy: location.StrategyCoordinates}, true
}

// LiveDisabled reports whether live WAQI calls are switched off.
func (l *Locator) LiveDisabled(ctx context.Context) bool {
	return l.liveDisabled(ctx)
}
