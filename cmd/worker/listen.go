package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/airaware/airaware/internal/api/middleware"
	"github.com/airaware/airaware/internal/api/response"
	"github.com/airaware/airaware/internal/provider/resilience"
	"github.com/airaware/airaware/internal/worker"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Run jobs from the Pub/Sub subscription",
	Long: "Receives snapshot_refresh, plants_refresh and health_check jobs from Pub/Sub and serves " +
		"a health endpoint for Cloud Run.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.PubSub.ProjectID == "" {
			return errors.New("PUBSUB_PROJECT_ID must be set to listen")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		snapshots, closeFn, err := openSnapshots(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		registry := resilience.NewRegistry()
		dispatcher := worker.NewDispatcher(worker.DispatcherConfig{
			RefreshConfig: refreshConfig(nil),
			Fetcher:       newWAQIClient(registry),
			Publisher:     snapshots,
			Logger:        logger,
		})

		listener, err := worker.NewListener(ctx, worker.ListenerConfig{
			ProjectID:    cfg.PubSub.ProjectID,
			Subscription: cfg.PubSub.Subscription,
			Dispatcher:   dispatcher,
			Logger:       logger,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := listener.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close pubsub client")
			}
		}()

		server := &http.Server{
			Addr:         ":" + strconv.Itoa(cfg.App.Port),
			Handler:      healthRouter(dispatcher, registry),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return listener.Run(gctx)
		})
		g.Go(func() error {
			logger.Info().Str("addr", server.Addr).Msg("health server listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})

		err = g.Wait()
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		logger.Info().Msg("worker stopped")
		return err
	},
}

// healthRouter serves the worker's liveness endpoint with its refresh
// counters and provider state.
func healthRouter(d *worker.Dispatcher, registry *resilience.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		providers := map[string]string{}
		for _, h := range registry.All() {
			providers[h.Name] = string(h.Condition())
		}
		response.JSON(w, r, http.StatusOK, map[string]interface{}{
			"status":    "healthy",
			"version":   Version,
			"refresh":   d.RefreshJob().MetricsSnapshot(),
			"providers": providers,
		})
	})
	return r
}

func init() {
	rootCmd.AddCommand(listenCmd)
}
