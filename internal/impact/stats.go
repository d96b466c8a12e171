package impact

import (
	"context"
	"math"
	"strconv"
	"time"
)

const (
	// BreathsPerMinute is the average adult breathing rate.
	BreathsPerMinute = 14

	// AnnualDeaths is the yearly air pollution death toll used by the counter.
	AnnualDeaths = 2_100_000

	// TickInterval is how often the counter refreshes.
	TickInterval = 100 * time.Millisecond
)

var deathsPerSecond = float64(AnnualDeaths) / (365 * 24 * 60 * 60)

// Stats is the "damage since you arrived" counter.
type Stats struct {
	Seconds    int     `json:"seconds"`
	Breaths    int     `json:"breaths"`
	Deaths     float64 `json:"deaths"`
	DeathsText string  `json:"deathsText"`
	Skulls     int     `json:"skulls"`
}

// StatsAt computes the counter after elapsed time on the page.
func StatsAt(elapsed time.Duration) Stats {
	if elapsed < 0 {
		elapsed = 0
	}
	s := elapsed.Seconds()
	deaths := deathsPerSecond * s

	return Stats{
		Seconds:    int(s),
		Breaths:    int(math.Floor(s * BreathsPerMinute / 60)),
		Deaths:     deaths,
		DeathsText: strconv.FormatFloat(deaths, 'f', 1, 64),
		Skulls:     int(math.Floor(deaths)),
	}
}

// RunCounter calls fn with fresh stats every interval until ctx is done.
// The counter is cosmetic; it stops with the page and keeps no state.
func RunCounter(ctx context.Context, start time.Time, interval time.Duration, fn func(Stats)) {
	if interval <= 0 {
		interval = TickInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			fn(StatsAt(now.Sub(start)))
		}
	}
}
