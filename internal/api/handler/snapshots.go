package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/airaware/airaware/internal/airquality"
	"github.com/airaware/airaware/internal/api/models"
	"github.com/airaware/airaware/internal/api/response"
	"github.com/airaware/airaware/internal/featureflags"
	"github.com/airaware/airaware/internal/location"
	"github.com/airaware/airaware/internal/snapshot"
)

// SnapshotHandlerConfig holds configuration for SnapshotHandler.
type SnapshotHandlerConfig struct {
	Snapshots *snapshot.Service
	Flags     *featureflags.Service
	Logger    zerolog.Logger
}

// SnapshotHandler serves the published city and coal plant documents.
type SnapshotHandler struct {
	snapshots *snapshot.Service
	flags     *featureflags.Service
	logger    zerolog.Logger
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(cfg SnapshotHandlerConfig) *SnapshotHandler {
	return &SnapshotHandler{
		snapshots: cfg.Snapshots,
		flags:     cfg.Flags,
		logger:    cfg.Logger,
	}
}

func (h *SnapshotHandler) writeSnapshotError(w http.ResponseWriter, r *http.Request, name string, err error) {
	if errors.Is(err, snapshot.ErrNotFound) {
		response.ServiceUnavailable(w, r, name+" has not been published yet")
		return
	}
	h.logger.Error().Err(err).Str("document", name).Msg("snapshot read failed")
	response.ServiceUnavailable(w, r, "snapshot store is unavailable")
}

func parsePage(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, true
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, false
	}
	return page, true
}

// ListCities handles GET /v1/cities - one page of the AQI ranking.
func (h *SnapshotHandler) ListCities(w http.ResponseWriter, r *http.Request) {
	if h.flags != nil && !h.flags.IsCityTableEnabled(r.Context()) {
		response.NotFound(w, r, "city table is not enabled")
		return
	}

	page, ok := parsePage(r)
	if !ok {
		response.BadRequest(w, r, "invalid page", []models.FieldError{
			{Field: "page", Message: "must be a positive integer", Code: "min"},
		})
		return
	}

	ranking, err := h.snapshots.Ranking(r.Context(), page)
	if err != nil {
		h.writeSnapshotError(w, r, snapshot.AirTableName, err)
		return
	}
	response.JSON(w, r, http.StatusOK, ranking)
}

// GetCity handles GET /v1/cities/{key} - the stored reading for one city.
func (h *SnapshotHandler) GetCity(w http.ResponseWriter, r *http.Request) {
	key := snapshot.CityKey(chi.URLParam(r, "key"))

	rec, err := h.snapshots.LookupCity(r.Context(), key)
	if err != nil {
		if errors.Is(err, airquality.ErrCityNotFound) {
			response.NotFound(w, r, "no reading for city "+key)
			return
		}
		h.writeSnapshotError(w, r, snapshot.AirDataName, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewAirQuality(
		rec, string(location.StateResolved), string(location.StrategyReverseGeocode),
	))
}

// ListCoalPlants handles GET /v1/coal-plants - the full coal plant report.
func (h *SnapshotHandler) ListCoalPlants(w http.ResponseWriter, r *http.Request) {
	if h.flags != nil && !h.flags.IsCoalMapEnabled(r.Context()) {
		response.NotFound(w, r, "coal map is not enabled")
		return
	}

	report, err := h.snapshots.Plants(r.Context())
	if err != nil {
		h.writeSnapshotError(w, r, snapshot.CoalPlantsName, err)
		return
	}
	response.JSON(w, r, http.StatusOK, report)
}

// ListCoalStates handles GET /v1/coal-plants/states - plants grouped by state.
func (h *SnapshotHandler) ListCoalStates(w http.ResponseWriter, r *http.Request) {
	if h.flags != nil && !h.flags.IsCoalMapEnabled(r.Context()) {
		response.NotFound(w, r, "coal map is not enabled")
		return
	}

	report, err := h.snapshots.Plants(r.Context())
	if err != nil {
		h.writeSnapshotError(w, r, snapshot.CoalPlantsName, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]interface{}{
		"states":   snapshot.GroupByState(report.PowerStations),
		"metadata": report.Metadata,
	})
}

// ReloadSnapshots handles POST /v1/admin/snapshots/reload - drop cached
// documents so the next read goes to the store.
func (h *SnapshotHandler) ReloadSnapshots(w http.ResponseWriter, r *http.Request) {
	h.snapshots.InvalidateCache()
	log := adminLogger(h.logger, r)
	log.Info().Msg("snapshot cache invalidated")

	response.JSON(w, r, http.StatusOK, models.SnapshotReload{Documents: snapshotDocuments(h.snapshots)})
}

func snapshotDocuments(snapshots *snapshot.Service) []models.SnapshotDocument {
	docs := []models.SnapshotDocument{}
	if snapshots == nil {
		return docs
	}
	for _, s := range snapshots.CacheStatus() {
		doc := models.SnapshotDocument{Name: s.Name, Cached: s.HasData, Expired: s.IsExpired}
		if s.HasData {
			doc.FetchedAt = models.TimestampOf(s.FetchedAt)
		}
		docs = append(docs, doc)
	}
	return docs
}
