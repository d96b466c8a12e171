// Package worker provides the offline jobs that build the page's snapshots.
package worker

import (
	"time"

	"github.com/airaware/airaware/internal/snapshot"
)

// HealthCheckCity is fetched by the health_check job.
const HealthCheckCity = "delhi"

// RefreshConfig holds configuration for the snapshot refresh job.
type RefreshConfig struct {
	// Cities are the WAQI city keys to fetch.
	// If empty, uses snapshot.DefaultCities.
	Cities []string

	// Concurrency is the number of concurrent fetch workers.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each city request.
	// Default: 30 seconds
	Timeout time.Duration

	// RequestInterval is the minimum spacing between two requests across
	// all workers. Zero disables spacing.
	// Default: 1 second
	RequestInterval time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Cities:          snapshot.DefaultCities(),
		Concurrency:     3,
		Timeout:         30 * time.Second,
		RequestInterval: time.Second,
	}
}

// withDefaults fills unset fields from DefaultRefreshConfig.
func (c RefreshConfig) withDefaults() RefreshConfig {
	def := DefaultRefreshConfig()
	if len(c.Cities) == 0 {
		c.Cities = def.Cities
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.RequestInterval < 0 {
		c.RequestInterval = 0
	}
	return c
}

// TotalCities returns the number of distinct cities to refresh.
func (c RefreshConfig) TotalCities() int {
	return len(snapshot.Dedupe(c.Cities))
}
