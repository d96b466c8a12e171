package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Job types accepted on the worker subscription.
const (
	JobSnapshotRefresh = "snapshot_refresh"
	JobPlantsRefresh   = "plants_refresh"
	JobHealthCheck     = "health_check"
)

// ErrUnknownJobType is returned by Dispatch for an unrecognised job type.
var ErrUnknownJobType = errors.New("unknown job type")

// JobMessage is the body of a worker Pub/Sub message.
type JobMessage struct {
	JobType string `json:"job_type"`

	// Cities overrides the configured city list for snapshot_refresh.
	Cities []string `json:"cities,omitempty"`

	// CheckOnly runs snapshot_refresh without publishing.
	CheckOnly bool `json:"check_only,omitempty"`

	// Source is the plants input file for plants_refresh.
	Source string `json:"source,omitempty"`
	HTML   bool   `json:"html,omitempty"`
}

// Dispatcher runs jobs by type.
type Dispatcher struct {
	config  RefreshConfig
	fetcher FeedFetcher
	refresh *RefreshJob
	plants  *PlantsJob
	logger  zerolog.Logger
}

// DispatcherConfig holds configuration for a Dispatcher.
type DispatcherConfig struct {
	RefreshConfig RefreshConfig
	Fetcher       FeedFetcher
	Publisher     SnapshotPublisher
	Logger        zerolog.Logger
}

// NewDispatcher creates a dispatcher with its own refresh and plants jobs.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		config:  cfg.RefreshConfig,
		fetcher: cfg.Fetcher,
		refresh: NewRefreshJob(RefreshJobConfig{
			Config:    cfg.RefreshConfig,
			Logger:    cfg.Logger,
			Fetcher:   cfg.Fetcher,
			Publisher: cfg.Publisher,
		}),
		plants: NewPlantsJob(PlantsJobConfig{
			Publisher: cfg.Publisher,
			Logger:    cfg.Logger,
		}),
		logger: cfg.Logger,
	}
}

// RefreshJob returns the dispatcher's refresh job.
func (d *Dispatcher) RefreshJob() *RefreshJob {
	return d.refresh
}

// Dispatch runs the job named by msg.
func (d *Dispatcher) Dispatch(ctx context.Context, msg JobMessage) error {
	switch msg.JobType {
	case JobSnapshotRefresh:
		return d.snapshotRefresh(ctx, msg)
	case JobPlantsRefresh:
		_, err := d.plants.Run(ctx, PlantsSource{Path: msg.Source, HTML: msg.HTML})
		return err
	case JobHealthCheck:
		return d.healthCheck(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJobType, msg.JobType)
	}
}

func (d *Dispatcher) snapshotRefresh(ctx context.Context, msg JobMessage) error {
	job := d.refresh
	if len(msg.Cities) > 0 {
		cfg := d.config
		cfg.Cities = msg.Cities
		job = NewRefreshJob(RefreshJobConfig{
			Config:    cfg,
			Logger:    d.logger,
			Fetcher:   d.fetcher,
			Publisher: d.refresh.publisher,
		})
	}

	result := job.Run(ctx)

	// Consider it successful if at least half succeeded.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many refresh failures: %d/%d", result.Failed, result.TotalCities)
	}
	if msg.CheckOnly {
		return nil
	}
	return job.Publish(ctx, result)
}

func (d *Dispatcher) healthCheck(ctx context.Context) error {
	d.logger.Debug().Msg("running health check")

	job := NewRefreshJob(RefreshJobConfig{
		Config: RefreshConfig{
			Cities:      []string{HealthCheckCity},
			Concurrency: 1,
			Timeout:     10 * time.Second,
		},
		Logger:  d.logger,
		Fetcher: d.fetcher,
	})

	result := job.Run(ctx)
	if result.Failed > 0 {
		if len(result.Errors) > 0 {
			return fmt.Errorf("health check failed: %s", result.Errors[0].Error)
		}
		return fmt.Errorf("health check failed: %d errors", result.Failed)
	}

	d.logger.Debug().Msg("health check passed")
	return nil
}
