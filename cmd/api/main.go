// Package main provides the entrypoint for the AirAware page and API server.
package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/airaware/airaware/internal/airquality"
	"github.com/airaware/airaware/internal/airquality/waqi"
	"github.com/airaware/airaware/internal/api"
	"github.com/airaware/airaware/internal/api/handler"
	"github.com/airaware/airaware/internal/api/middleware"
	"github.com/airaware/airaware/internal/auth"
	"github.com/airaware/airaware/internal/config"
	"github.com/airaware/airaware/internal/database"
	"github.com/airaware/airaware/internal/featureflags"
	"github.com/airaware/airaware/internal/geocode/bigdatacloud"
	"github.com/airaware/airaware/internal/location"
	"github.com/airaware/airaware/internal/provider/resilience"
	"github.com/airaware/airaware/internal/snapshot"
	"github.com/airaware/airaware/internal/telemetry"
	"github.com/airaware/airaware/internal/views"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "airaware-api"

// bootstrapLogger is used until the configured logger exists.
func bootstrapLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Str("service", serviceName).Logger()
}

func main() {
	boot := bootstrapLogger(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	log, err := config.NewLogger(cfg.Log, serviceName, Version)
	if err != nil {
		boot.Fatal().Err(err).Msg("failed to build logger")
	}

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.App.Env).
		Msg("starting AirAware API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.App.Env,
		OTLPEndpoint:   cfg.OTel.OTLPEndpoint,
		Enabled:        cfg.OTel.Enabled,
		SampleRatio:    cfg.OTel.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.OTel.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTel.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}
	upstream, err := middleware.NewUpstreamMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize upstream metrics")
	}

	if err := views.LoadTemplates(); err != nil {
		log.Fatal().Err(err).Msg("failed to load page templates")
	}

	// The pool is only opened for the postgres snapshot driver. Flags live
	// next to the snapshots, or in memory when snapshots are files.
	var (
		pool          *pgxpool.Pool
		snapshotStore snapshot.Store
		flagRepo      featureflags.Repository
	)
	switch cfg.Snapshot.Driver {
	case config.SnapshotDriverPostgres:
		pool, err = database.Connect(ctx, cfg.Database(serviceName))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure schema")
		}
		log.Info().
			Str("host", cfg.DB.Host).
			Int("port", cfg.DB.Port).
			Str("database", cfg.DB.Name).
			Msg("database connected")

		snapshotStore = snapshot.NewPostgresStore(pool)
		flagRepo = featureflags.NewPostgresRepository(pool)
	default:
		snapshotStore = snapshot.NewFileStore(cfg.Snapshot.Dir)
		flagRepo = featureflags.NewMemoryRepository()
		log.Info().Str("dir", cfg.Snapshot.Dir).Msg("serving snapshots from disk")
	}

	snapshots := snapshot.NewService(snapshot.ServiceConfig{
		Store:    snapshotStore,
		Logger:   log,
		CacheTTL: cfg.Snapshot.CacheTTL,
		Metrics:  upstream,
	})

	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: flagRepo,
		Logger:     log,
		CacheTTL:   1 * time.Minute,
	})
	log.Info().Msg("feature flags service initialized")

	registry := resilience.NewRegistry()

	if cfg.WAQI.APIToken == "" {
		log.Warn().Msg("WAQI_API_TOKEN is not set - live lookups will fail and fall back")
	}
	waqiClient := waqi.NewClient(waqi.ClientConfig{
		BaseURL:  cfg.WAQI.BaseURL,
		Token:    cfg.WAQI.APIToken,
		Timeout:  cfg.WAQI.Timeout,
		Registry: registry,
	})
	aqService := airquality.NewService(airquality.ServiceConfig{
		Provider: waqiClient,
		Logger:   log,
		Metrics:  upstream,
	})
	geocoder := bigdatacloud.NewClient(bigdatacloud.ClientConfig{
		BaseURL:  cfg.Geocode.BaseURL,
		Timeout:  cfg.Geocode.Timeout,
		Registry: registry,
	})

	locator := handler.NewLocator(handler.LocatorConfig{
		Resolver: aqService,
		Geocoder: geocoder,
		Cities:   snapshots,
		Flags:    flags,
		Strategy: location.StrategyName(cfg.Location.Strategy),
		Logger:   log,
	})

	signingKey := cfg.JWT.SigningKey
	if signingKey == "" {
		signingKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: signingKey,
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
	})

	routerCfg := api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            metrics,
		RequireTLS:         cfg.App.RequireTLS,
		BaseURL:            cfg.App.BaseURL,
		Tokens:             jwtService,
		FeatureFlagService: flags,
		Snapshots:          snapshots,
		Registry:           registry,
		Locator:            locator,
		Searcher:           waqiClient,
	}
	if pool != nil {
		routerCfg.Database = pool
	}
	router := api.NewRouter(routerCfg)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("strategy", cfg.Location.Strategy).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}
