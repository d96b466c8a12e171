// Package resilience guards the outbound calls to WAQI and BigDataCloud with
// a circuit breaker and optional retries, and keeps a health record per
// provider for the status endpoints.
package resilience

import (
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

const (
	defaultTripAfter    = 5
	defaultMinRequests  = 10
	defaultFailureRatio = 0.6
	defaultCooldown     = 30 * time.Second
	defaultWindow       = time.Minute
)

// BreakerConfig tunes the circuit breaker in front of one provider.
type BreakerConfig struct {
	Name string

	// TripAfter consecutive failures open the breaker. WAQI tends to fail
	// in runs when a token is throttled.
	TripAfter uint32

	// MinRequests and FailureRatio open the breaker on a sustained error
	// rate even when the odd call succeeds.
	MinRequests  uint32
	FailureRatio float64

	// Cooldown is how long the breaker stays open before one probe is let
	// through.
	Cooldown time.Duration

	// Window clears the counts while closed. Zero keeps them until the
	// next state change.
	Window time.Duration

	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig returns the breaker used for live lookups.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		TripAfter:    defaultTripAfter,
		MinRequests:  defaultMinRequests,
		FailureRatio: defaultFailureRatio,
		Cooldown:     defaultCooldown,
		Window:       defaultWindow,
	}
}

// ShouldTrip reports whether counts warrant opening the breaker.
func (c BreakerConfig) ShouldTrip(counts gobreaker.Counts) bool {
	if c.TripAfter > 0 && counts.ConsecutiveFailures >= c.TripAfter {
		return true
	}
	if counts.Requests == 0 || counts.Requests < c.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatio
}

func newBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{ //nolint:bodyclose // type param, not response
		Name:          cfg.Name,
		MaxRequests:   1,
		Interval:      cfg.Window,
		Timeout:       cfg.Cooldown,
		ReadyToTrip:   cfg.ShouldTrip,
		OnStateChange: cfg.OnStateChange,
	})
}
