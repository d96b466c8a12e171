package main

import (
	"context"
	"fmt"

	"github.com/airaware/airaware/internal/airquality/waqi"
	"github.com/airaware/airaware/internal/config"
	"github.com/airaware/airaware/internal/database"
	"github.com/airaware/airaware/internal/provider/resilience"
	"github.com/airaware/airaware/internal/snapshot"
	"github.com/airaware/airaware/internal/worker"
)

// openSnapshots returns the snapshot service for the configured driver and
// a function that releases it.
func openSnapshots(ctx context.Context) (*snapshot.Service, func(), error) {
	if cfg.Snapshot.Driver != config.SnapshotDriverPostgres {
		svc := snapshot.NewService(snapshot.ServiceConfig{
			Store:  snapshot.NewFileStore(cfg.Snapshot.Dir),
			Logger: logger,
		})
		return svc, func() {}, nil
	}

	pool, err := database.Connect(ctx, cfg.Database(serviceName))
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	svc := snapshot.NewService(snapshot.ServiceConfig{
		Store:  snapshot.NewPostgresStore(pool),
		Logger: logger,
	})
	return svc, pool.Close, nil
}

func newWAQIClient(registry *resilience.Registry) *waqi.Client {
	if cfg.WAQI.APIToken == "" {
		logger.Warn().Msg("WAQI_API_TOKEN is not set - every city will fail")
	}
	return waqi.NewClient(waqi.ClientConfig{
		BaseURL:  cfg.WAQI.BaseURL,
		Token:    cfg.WAQI.APIToken,
		Timeout:  cfg.Worker.Timeout,
		Registry: registry,
	})
}

func refreshConfig(cities []string) worker.RefreshConfig {
	return worker.RefreshConfig{
		Cities:          cities,
		Concurrency:     cfg.Worker.Concurrency,
		Timeout:         cfg.Worker.Timeout,
		RequestInterval: cfg.Worker.RequestInterval,
	}
}
