// Package handler provides HTTP handlers for the AirAware API.
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/airaware/airaware/internal/airquality/waqi"
	"github.com/airaware/airaware/internal/api/models"
	"github.com/airaware/airaware/internal/api/response"
	"github.com/airaware/airaware/internal/featureflags"
	"github.com/airaware/airaware/internal/location"
)

// MinSearchQueryLength is the shortest query sent to the provider. Shorter
// queries return an empty result list.
const MinSearchQueryLength = 3

// LocationSearcher finds stations by name.
type LocationSearcher interface {
	Search(ctx context.Context, keyword string) ([]waqi.Location, error)
}

// AirQualityHandlerConfig holds configuration for AirQualityHandler.
type AirQualityHandlerConfig struct {
	Locator  *Locator
	Searcher LocationSearcher
	Flags    *featureflags.Service
	Logger   zerolog.Logger
}

// AirQualityHandler handles the live air quality endpoints.
type AirQualityHandler struct {
	locator  *Locator
	searcher LocationSearcher
	flags    *featureflags.Service
	logger   zerolog.Logger
}

// NewAirQualityHandler creates a new AirQualityHandler.
func NewAirQualityHandler(cfg AirQualityHandlerConfig) *AirQualityHandler {
	return &AirQualityHandler{
		locator:  cfg.Locator,
		searcher: cfg.Searcher,
		flags:    cfg.Flags,
		logger:   cfg.Logger,
	}
}

// GetAirQuality handles GET /v1/air-quality - run the location flow for the
// position in the query string.
func (h *AirQualityHandler) GetAirQuality(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("geo") == "" && (q.Get("lat") == "") != (q.Get("lon") == "") {
		response.BadRequest(w, r, "lat and lon must be given together", []models.FieldError{
			{Field: "lat", Message: "required with lon", Code: "required_with"},
			{Field: "lon", Message: "required with lat", Code: "required_with"},
		})
		return
	}

	located := h.locator.Locate(r.Context(), location.FromQuery(q))
	response.JSON(w, r, http.StatusOK, models.NewAirQuality(
		located.Record, string(located.State), string(located.Strategy),
	))
}

// GetHere handles GET /v1/air-quality/here - locate the caller by IP.
func (h *AirQualityHandler) GetHere(w http.ResponseWriter, r *http.Request) {
	located, ok := h.locator.Here(r.Context())
	if !ok {
		response.ServiceUnavailable(w, r, "live air quality lookups are disabled")
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewAirQuality(
		located.Record, string(located.State), string(located.Strategy),
	))
}

// SearchLocations handles GET /v1/locations/search - find stations by name.
func (h *AirQualityHandler) SearchLocations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.flags != nil && !h.flags.IsLocationSearchEnabled(ctx) {
		response.NotFound(w, r, "location search is not enabled")
		return
	}
	if h.locator.LiveDisabled(ctx) || h.searcher == nil {
		response.ServiceUnavailable(w, r, "live air quality lookups are disabled")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	results, err := searchStations(ctx, h.searcher, query)
	if err != nil {
		h.logger.Warn().Err(err).Str("query", query).Msg("location search failed")
		response.ServiceUnavailable(w, r, "location search is temporarily unavailable")
		return
	}

	response.JSON(w, r, http.StatusOK, models.SearchResults{Query: query, Results: results})
}

func searchStations(ctx context.Context, searcher LocationSearcher, query string) ([]models.SearchResult, error) {
	results := []models.SearchResult{}
	if len([]rune(query)) < MinSearchQueryLength {
		return results, nil
	}

	locations, err := searcher.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	for _, loc := range locations {
		results = append(results, models.SearchResult{
			Name:  loc.Name,
			Point: models.Point{Lat: loc.Lat, Lon: loc.Lon},
		})
	}
	return results, nil
}
