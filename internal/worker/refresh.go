package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/airaware/airaware/internal/airquality"
	"github.com/airaware/airaware/internal/snapshot"
)

// Job errors.
var (
	ErrNothingToPublish = errors.New("refresh produced no cities")
	ErrNoPublisher      = errors.New("no snapshot publisher configured")
)

// FeedFetcher fetches the WAQI feed for a target.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, target string) (airquality.Record, error)
}

// SnapshotPublisher writes the generated documents.
type SnapshotPublisher interface {
	PublishAirData(ctx context.Context, data *snapshot.AirData) error
	PublishPlants(ctx context.Context, report *snapshot.PlantsReport) error
}

// RefreshJob fetches every configured city and builds air-data.json.
type RefreshJob struct {
	config    RefreshConfig
	logger    zerolog.Logger
	fetcher   FeedFetcher
	publisher SnapshotPublisher
	limiter   *rate.Limiter

	// Metrics
	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRefreshes    int64
	SuccessfulFetches int64
	FailedFetches     int64
	Publishes         int64
	FailedPublishes   int64

	// Timings
	LastRefreshAt       time.Time
	LastRefreshDuration time.Duration
	TotalDuration       time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config    RefreshConfig
	Logger    zerolog.Logger
	Fetcher   FeedFetcher
	Publisher SnapshotPublisher
}

// NewRefreshJob creates a new refresh job. All workers of the job share
// one limiter, so requests are spaced by RequestInterval overall.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	config := cfg.Config.withDefaults()

	limit := rate.Inf
	if config.RequestInterval > 0 {
		limit = rate.Every(config.RequestInterval)
	}

	return &RefreshJob{
		config:    config,
		logger:    cfg.Logger,
		fetcher:   cfg.Fetcher,
		publisher: cfg.Publisher,
		limiter:   rate.NewLimiter(limit, 1),
		metrics:   &RefreshMetrics{},
	}
}

// RefreshResult contains the result of a refresh operation.
type RefreshResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalCities int
	Successful  int
	Failed      int
	Errors      []RefreshError
	AirData     *snapshot.AirData
}

// RefreshError represents a city that could not be fetched.
type RefreshError struct {
	City  string
	Error string
}

// Run fetches every configured city. Cities that fail are left out of the
// result, matching what the page expects from air-data.json.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	startTime := time.Now()
	cities := snapshot.Dedupe(j.config.Cities)
	result := &RefreshResult{
		StartTime:   startTime,
		TotalCities: len(cities),
		AirData:     snapshot.NewAirData(),
	}

	j.logger.Info().
		Int("total_cities", result.TotalCities).
		Int("concurrency", j.config.Concurrency).
		Dur("request_interval", j.config.RequestInterval).
		Msg("starting snapshot refresh job")

	citiesChan := make(chan string, len(cities))
	resultsChan := make(chan cityResult, len(cities))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			j.refreshWorker(ctx, workerID, citiesChan, resultsChan)
		}(i)
	}

	for _, c := range cities {
		citiesChan <- c
	}
	close(citiesChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for cr := range resultsChan {
		if cr.err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RefreshError{City: cr.city, Error: cr.err.Error()})
			continue
		}
		result.Successful++
		result.AirData.Cities[cr.city] = cr.record
	}

	// Cities never picked up before cancellation count as failed.
	if missing := result.TotalCities - result.Successful - result.Failed; missing > 0 {
		result.Failed += missing
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("snapshot refresh job completed")

	return result
}

type cityResult struct {
	city   string
	record snapshot.CityRecord
	err    error
}

func (j *RefreshJob) refreshWorker(ctx context.Context, _ int, cities <-chan string, results chan<- cityResult) {
	for city := range cities {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.refreshCity(ctx, city)
		}
	}
}

func (j *RefreshJob) refreshCity(ctx context.Context, city string) cityResult {
	if err := j.limiter.Wait(ctx); err != nil {
		return cityResult{city: city, err: fmt.Errorf("waiting for rate limiter: %w", err)}
	}

	cityCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	if j.fetcher == nil {
		return cityResult{city: city, err: airquality.ErrProviderUnavailable}
	}

	rec, err := j.fetcher.FetchFeed(cityCtx, city)
	if err != nil {
		j.logger.Warn().Err(err).Str("city", city).Msg("failed to fetch city")
		return cityResult{city: city, err: err}
	}

	return cityResult{city: city, record: snapshot.FromRecord(rec)}
}

// Publish writes the result's air data and the derived table. A result
// without a single city is refused so a provider outage cannot blank the
// published snapshot.
func (j *RefreshJob) Publish(ctx context.Context, result *RefreshResult) error {
	if result == nil || result.AirData == nil || len(result.AirData.Cities) == 0 {
		j.recordPublish(false)
		return ErrNothingToPublish
	}
	if j.publisher == nil {
		j.recordPublish(false)
		return ErrNoPublisher
	}

	if err := j.publisher.PublishAirData(ctx, result.AirData); err != nil {
		j.recordPublish(false)
		return fmt.Errorf("publishing air data: %w", err)
	}

	j.recordPublish(true)
	j.logger.Info().
		Int("cities", len(result.AirData.Cities)).
		Msg("published air data snapshot")
	return nil
}

func (j *RefreshJob) recordPublish(ok bool) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()
	if ok {
		j.metrics.Publishes++
	} else {
		j.metrics.FailedPublishes++
	}
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRefreshes++
	j.metrics.SuccessfulFetches += int64(result.Successful)
	j.metrics.FailedFetches += int64(result.Failed)
	j.metrics.LastRefreshAt = result.EndTime
	j.metrics.LastRefreshDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRefreshes:      j.metrics.TotalRefreshes,
		SuccessfulFetches:   j.metrics.SuccessfulFetches,
		FailedFetches:       j.metrics.FailedFetches,
		Publishes:           j.metrics.Publishes,
		FailedPublishes:     j.metrics.FailedPublishes,
		LastRefreshAt:       j.metrics.LastRefreshAt,
		LastRefreshDuration: j.metrics.LastRefreshDuration,
		TotalDuration:       j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_refreshes":       m.TotalRefreshes,
		"successful_fetches":    m.SuccessfulFetches,
		"failed_fetches":        m.FailedFetches,
		"publishes":             m.Publishes,
		"failed_publishes":      m.FailedPublishes,
		"last_refresh_at":       m.LastRefreshAt,
		"last_refresh_duration": m.LastRefreshDuration.String(),
		"total_duration":        m.TotalDuration.String(),
	}
}
