// Package location drives the acquisition of the visitor's position and
// the record that follows from it.
package location

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/airaware/airaware/internal/airquality"
)

// State is the flow's position in the acquisition sequence.
type State string

const (
	StateUnknown      State = "unknown"
	StateFetching     State = "fetching"
	StateResolved     State = "resolved"
	StateUsingDefault State = "using_default"
)

// Flow errors.
var (
	ErrAlreadyStarted  = errors.New("location flow already started")
	ErrRetryNotAllowed = errors.New("retry is only allowed while using the default record")
	ErrBusy            = errors.New("location flow is busy")
)

// FlowConfig holds configuration for a Flow.
type FlowConfig struct {
	Store    *airquality.Store
	Strategy Strategy
	Logger   zerolog.Logger
}

// Flow moves a page from the default record to a located one. A flow makes
// at most one strategy call per Start or Retry.
type Flow struct {
	store    *airquality.Store
	strategy Strategy
	logger   zerolog.Logger

	mu    sync.Mutex
	state State
	busy  bool
}

// NewFlow creates a flow in StateUnknown. A nil strategy selects
// CoordinatesStrategy.
func NewFlow(cfg FlowConfig) *Flow {
	strategy := cfg.Strategy
	if strategy == nil {
		strategy = CoordinatesStrategy{}
	}
	return &Flow{
		store:    cfg.Store,
		strategy: strategy,
		logger:   cfg.Logger.With().Str("component", "location").Logger(),
		state:    StateUnknown,
	}
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Strategy returns the name of the strategy in use.
func (f *Flow) Strategy() StrategyName {
	return f.strategy.Name()
}

// Start acquires the position and installs the matching record. It is
// valid only once, from StateUnknown.
func (f *Flow) Start(ctx context.Context, geo Geolocator) error {
	if err := f.acquire(StateUnknown, ErrAlreadyStarted); err != nil {
		return err
	}
	defer f.release()

	f.run(ctx, geo)
	return nil
}

// Retry repeats the acquisition after the visitor pressed the "use current
// location" button. It is valid only from StateUsingDefault.
func (f *Flow) Retry(ctx context.Context, geo Geolocator) error {
	if err := f.acquire(StateUsingDefault, ErrRetryNotAllowed); err != nil {
		return err
	}
	defer f.release()

	f.run(ctx, geo)
	return nil
}

// Select installs the record for a location chosen from search results.
// It always refetches by coordinates, whatever the strategy.
func (f *Flow) Select(ctx context.Context, pos Position) error {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return ErrBusy
	}
	f.busy = true
	f.mu.Unlock()
	defer f.release()

	f.transition(StateFetching)
	_ = CoordinatesStrategy{}.Apply(ctx, f.store, pos)
	f.transition(StateResolved)
	return nil
}

func (f *Flow) acquire(from State, notAllowed error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.busy {
		return ErrBusy
	}
	if f.state != from {
		return notAllowed
	}
	f.busy = true
	return nil
}

func (f *Flow) release() {
	f.mu.Lock()
	f.busy = false
	f.mu.Unlock()
}

func (f *Flow) run(ctx context.Context, geo Geolocator) {
	if geo == nil {
		geo = GeolocatorFunc(unavailable)
	}

	pos, err := geo.CurrentPosition(ctx)
	if err != nil {
		f.logger.Info().Err(err).Msg("position unavailable, keeping current record")
		f.transition(StateUsingDefault)
		return
	}

	f.transition(StateFetching)
	if err := f.strategy.Apply(ctx, f.store, pos); err != nil {
		f.logger.Warn().
			Err(err).
			Str("strategy", string(f.strategy.Name())).
			Msg("location lookup failed, keeping current record")
		f.transition(StateUsingDefault)
		return
	}
	f.transition(StateResolved)
}

func (f *Flow) transition(to State) {
	f.mu.Lock()
	from := f.state
	f.state = to
	f.mu.Unlock()

	f.logger.Debug().
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("location state changed")
}
