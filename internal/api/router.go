// Package api provides the HTTP API and page server for AirAware.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/airaware/airaware/internal/api/handler"
	"github.com/airaware/airaware/internal/api/middleware"
	"github.com/airaware/airaware/internal/featureflags"
	"github.com/airaware/airaware/internal/provider/resilience"
	"github.com/airaware/airaware/internal/snapshot"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	// BaseURL is the public page address used in share messages.
	BaseURL string

	Tokens             middleware.TokenValidator
	FeatureFlagService *featureflags.Service
	Snapshots          *snapshot.Service
	Registry           *resilience.Registry
	Database           handler.Pinger

	Locator  *handler.Locator
	Searcher handler.LocationSearcher
}

// NewRouter creates a new chi router with the page and all API routes.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "airaware-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement

	pageHandler := handler.NewPageHandler(handler.PageHandlerConfig{
		Locator:   cfg.Locator,
		Searcher:  cfg.Searcher,
		Snapshots: cfg.Snapshots,
		Flags:     cfg.FeatureFlagService,
		BaseURL:   cfg.BaseURL,
		Logger:    cfg.Logger,
	})
	airQualityHandler := handler.NewAirQualityHandler(handler.AirQualityHandlerConfig{
		Locator:  cfg.Locator,
		Searcher: cfg.Searcher,
		Flags:    cfg.FeatureFlagService,
		Logger:   cfg.Logger,
	})
	snapshotHandler := handler.NewSnapshotHandler(handler.SnapshotHandlerConfig{
		Snapshots: cfg.Snapshots,
		Flags:     cfg.FeatureFlagService,
		Logger:    cfg.Logger,
	})
	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Registry:  cfg.Registry,
		Snapshots: cfg.Snapshots,
		Flags:     cfg.FeatureFlagService,
		Database:  cfg.Database,
		Logger:    cfg.Logger,
	})
	impactHandler := handler.NewImpactHandler(cfg.BaseURL)
	featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.FeatureFlagService, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.Tokens)

	lookupRateLimit := middleware.RateLimitByIP(middleware.LookupRateLimit)
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)
	adminRateLimit := middleware.RateLimitBySubject(middleware.AdminRateLimit)

	// The page and its fragments render HTML.
	r.Group(func(r chi.Router) {
		r.Use(middleware.PageSecurityHeaders)
		r.Use(lookupRateLimit)
		r.Get("/", pageHandler.Page)
		r.Get("/fragments/cities", pageHandler.CityTable)
	})

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.ContentTypeJSON)

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Live lookups hit WAQI, so they get the tighter limit.
		r.Group(func(r chi.Router) {
			r.Use(lookupRateLimit)
			r.Get("/air-quality", airQualityHandler.GetAirQuality)
			r.Get("/air-quality/here", airQualityHandler.GetHere)
			r.Get("/locations/search", airQualityHandler.SearchLocations)
		})

		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/cities", snapshotHandler.ListCities)
			r.Get("/cities/{key}", snapshotHandler.GetCity)
			r.Get("/coal-plants", snapshotHandler.ListCoalPlants)
			r.Get("/coal-plants/states", snapshotHandler.ListCoalStates)
			r.Get("/impact", impactHandler.GetImpact)
			r.Get("/stats", impactHandler.GetStats)
			r.Get("/share", impactHandler.GetShare)
		})

		// Admin endpoints (authenticated) - for internal operations
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(adminRateLimit)

			r.Route("/feature-flags", func(r chi.Router) {
				r.Get("/", featureFlagsHandler.ListFeatureFlags)
				r.With(middleware.RequireJSON).Put("/", featureFlagsHandler.UpsertFeatureFlags)
				r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
			})
			r.Post("/snapshots/reload", snapshotHandler.ReloadSnapshots)
		})
	})

	return r
}
