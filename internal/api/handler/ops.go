package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/airaware/airaware/internal/api/models"
	"github.com/airaware/airaware/internal/api/response"
	"github.com/airaware/airaware/internal/featureflags"
	"github.com/airaware/airaware/internal/provider/resilience"
	"github.com/airaware/airaware/internal/snapshot"
)

// Pinger checks a backing service such as the database pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// degradationFlags are reported in the status response when set.
var degradationFlags = []string{
	featureflags.FlagDisableLiveLookup,
	featureflags.FlagUseReverseGeocode,
}

// OpsHandlerConfig holds configuration for OpsHandler.
type OpsHandlerConfig struct {
	Version   string
	BuildTime string
	Registry  *resilience.Registry
	Snapshots *snapshot.Service
	Flags     *featureflags.Service
	// Database is nil when snapshots live on the filesystem.
	Database Pinger
	Logger   zerolog.Logger
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	snapshots *snapshot.Service
	flags     *featureflags.Service
	db        Pinger
	logger    zerolog.Logger
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		registry:  cfg.Registry,
		snapshots: cfg.Snapshots,
		flags:     cfg.Flags,
		db:        cfg.Database,
		logger:    cfg.Logger,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(time.Now()),
		Version:   h.version,
		BuildTime: h.buildTime,
	})
}

// ReadinessCheck handles GET /v1/ops/ready. The service is ready when the
// database answers and the snapshot store can be read. A snapshot that was
// never published only degrades: the page still renders the default record.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	subsystems := h.checkSubsystems(ctx)
	status := overallStatus(subsystems)

	health := models.Health{
		Status:     status,
		Time:       models.Timestamp(time.Now()),
		Subsystems: subsystems,
	}
	code := http.StatusOK
	if status == models.HealthStatusFail {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	subsystems := h.checkSubsystems(ctx)
	providers := h.providerStatuses()

	status := overallStatus(subsystems)
	for _, p := range providers {
		if p.Status != models.HealthStatusOK && status == models.HealthStatusOK {
			status = models.HealthStatusDegraded
		}
	}

	var active []string
	if h.flags != nil {
		for _, key := range degradationFlags {
			if h.flags.IsEnabled(ctx, key) {
				active = append(active, key)
			}
		}
	}
	if len(active) > 0 && status == models.HealthStatusOK {
		status = models.HealthStatusDegraded
	}

	response.JSON(w, r, http.StatusOK, models.SystemStatus{
		Status:                 status,
		Time:                   models.Timestamp(time.Now()),
		Subsystems:             subsystems,
		Providers:              providers,
		Documents:              snapshotDocuments(h.snapshots),
		ActiveDegradationFlags: active,
	})
}

func (h *OpsHandler) checkSubsystems(ctx context.Context) []models.SubsystemStatus {
	subsystems := []models.SubsystemStatus{}

	if h.db != nil {
		s := models.SubsystemStatus{Name: "postgres", Status: models.HealthStatusOK}
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn().Err(err).Msg("database ping failed")
			s.Status = models.HealthStatusFail
			s.Detail = strPtr(err.Error())
		}
		subsystems = append(subsystems, s)
	}

	if h.snapshots != nil {
		s := models.SubsystemStatus{Name: "snapshots", Status: models.HealthStatusOK}
		if _, err := h.snapshots.AirData(ctx); err != nil {
			if errors.Is(err, snapshot.ErrNotFound) {
				s.Status = models.HealthStatusDegraded
				s.Detail = strPtr(snapshot.AirDataName + " has not been published yet")
			} else {
				h.logger.Warn().Err(err).Msg("snapshot store check failed")
				s.Status = models.HealthStatusFail
				s.Detail = strPtr(err.Error())
			}
		}
		subsystems = append(subsystems, s)
	}

	return subsystems
}

func (h *OpsHandler) providerStatuses() []models.ProviderStatus {
	providers := []models.ProviderStatus{}
	if h.registry == nil {
		return providers
	}

	for _, ph := range h.registry.All() {
		p := models.ProviderStatus{Provider: ph.Name, Status: models.HealthStatusOK, Trips: ph.Trips}
		switch ph.Condition() {
		case resilience.ConditionUnhealthy:
			p.Status = models.HealthStatusFail
		case resilience.ConditionDegraded:
			p.Status = models.HealthStatusDegraded
		}
		if ph.LastSuccessAt != nil {
			p.LastSuccessAt = models.TimestampOf(*ph.LastSuccessAt)
		}
		if ph.LastFailureAt != nil {
			p.LastFailureAt = models.TimestampOf(*ph.LastFailureAt)
		}
		if ph.LastError != "" {
			p.Message = strPtr(ph.LastError)
		}
		providers = append(providers, p)
	}
	return providers
}

func overallStatus(subsystems []models.SubsystemStatus) models.HealthStatus {
	status := models.HealthStatusOK
	for _, s := range subsystems {
		switch s.Status {
		case models.HealthStatusFail:
			return models.HealthStatusFail
		case models.HealthStatusDegraded:
			status = models.HealthStatusDegraded
		}
	}
	return status
}

func strPtr(s string) *string {
	return &s
}
