package handler

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/airaware/airaware/internal/api/models"
	"github.com/airaware/airaware/internal/api/response"
	"github.com/airaware/airaware/internal/featureflags"
)

// FeatureFlagsHandler handles feature flag endpoints.
type FeatureFlagsHandler struct {
	service *featureflags.Service
	logger  zerolog.Logger
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service *featureflags.Service, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service, logger: logger}
}

// ListFeatureFlags handles GET /v1/admin/feature-flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	all := h.service.GetAllFlags(r.Context())

	list := featureflags.FlagList{Items: make([]featureflags.Flag, 0, len(all))}
	for _, f := range all {
		list.Items = append(list.Items, *f)
	}
	sort.Slice(list.Items, func(i, j int) bool { return list.Items[i].Key < list.Items[j].Key })

	response.JSON(w, r, http.StatusOK, list)
}

// UpsertFeatureFlags handles PUT /v1/admin/feature-flags. Only known flags with boolean values are accepted.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var req featureflags.FlagUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "request body is not valid JSON", nil)
		return
	}

	var fieldErrors []models.FieldError
	if len(req.Updates) == 0 {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "updates", Message: "at least one update is required", Code: "required"})
	}
	if strings.TrimSpace(req.Reason) == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "reason", Message: "reason is required", Code: "required"})
	}
	for i, u := range req.Updates {
		field := "updates[" + strconv.Itoa(i) + "]"
		switch _, known := featureflags.Lookup(u.Key); {
		case strings.TrimSpace(u.Key) == "":
			fieldErrors = append(fieldErrors, models.FieldError{Field: field + ".key", Message: "key is required", Code: "required"})
		case !known:
			fieldErrors = append(fieldErrors, models.FieldError{Field: field + ".key", Message: "unknown flag " + u.Key, Code: "unknown_flag"})
		}
		switch u.Value.(type) {
		case nil:
			fieldErrors = append(fieldErrors, models.FieldError{Field: field + ".value", Message: "value is required", Code: "required"})
		case bool:
		default:
			fieldErrors = append(fieldErrors, models.FieldError{Field: field + ".value", Message: "value must be true or false", Code: "type"})
		}
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid flag update", fieldErrors)
		return
	}

	flags := make([]*featureflags.Flag, 0, len(req.Updates))
	for _, u := range req.Updates {
		flags = append(flags, &featureflags.Flag{Key: u.Key, Value: u.Value})
	}
	if err := h.service.SetFlags(r.Context(), flags); err != nil {
		h.logger.Error().Err(err).Msg("update feature flags")
		response.InternalError(w, r, "failed to update feature flags")
		return
	}

	log := adminLogger(h.logger, r)
	log.Info().
		Str("reason", req.Reason).
		Int("count", len(flags)).
		Msg("feature flags updated")
	response.NoContent(w, r)
}

// InvalidateCache handles POST /v1/admin/feature-flags/invalidate.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	log := adminLogger(h.logger, r)
	log.Info().Msg("feature flag cache invalidated")
	response.NoContent(w, r)
}
