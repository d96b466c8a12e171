package handler

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/airaware/airaware/internal/api/models"
	"github.com/airaware/airaware/internal/api/response"
	"github.com/airaware/airaware/internal/featureflags"
	"github.com/airaware/airaware/internal/impact"
	"github.com/airaware/airaware/internal/location"
	"github.com/airaware/airaware/internal/snapshot"
	"github.com/airaware/airaware/internal/views"
)

// PageHandlerConfig holds configuration for PageHandler.
type PageHandlerConfig struct {
	Locator   *Locator
	Searcher  LocationSearcher
	Snapshots *snapshot.Service
	Flags     *featureflags.Service
	BaseURL   string
	Logger    zerolog.Logger
}

// PageHandler renders the awareness page.
type PageHandler struct {
	locator   *Locator
	searcher  LocationSearcher
	snapshots *snapshot.Service
	flags     *featureflags.Service
	baseURL   string
	logger    zerolog.Logger
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(cfg PageHandlerConfig) *PageHandler {
	return &PageHandler{
		locator:   cfg.Locator,
		searcher:  cfg.Searcher,
		snapshots: cfg.Snapshots,
		flags:     cfg.Flags,
		baseURL:   cfg.BaseURL,
		logger:    cfg.Logger,
	}
}

func (h *PageHandler) enabled(ctx context.Context, check func(*featureflags.Service, context.Context) bool) bool {
	if h.flags == nil {
		return true
	}
	return check(h.flags, ctx)
}

func (h *PageHandler) searchEnabled(ctx context.Context) bool {
	return h.searcher != nil &&
		h.enabled(ctx, (*featureflags.Service).IsLocationSearchEnabled) &&
		!h.locator.LiveDisabled(ctx)
}

// locate resolves the record for the page. A search query wins over the
// browser position; the first matching station is selected.
func (h *PageHandler) locate(ctx context.Context, r *http.Request) Located {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))

	if query != "" && h.searchEnabled(ctx) {
		results, err := searchStations(ctx, h.searcher, query)
		switch {
		case err != nil:
			h.logger.Warn().Err(err).Str("query", query).Msg("page search failed")
		case len(results) == 0:
			h.logger.Debug().Str("query", query).Msg("page search had no results")
		default:
			return h.locator.Select(ctx, location.Position{
				Latitude:  results[0].Point.Lat,
				Longitude: results[0].Point.Lon,
			})
		}
	}

	return h.locator.Locate(ctx, location.FromQuery(q))
}

// Page handles GET / - render the page for the position in the query.
func (h *PageHandler) Page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	located := h.locate(ctx, r)
	in := views.PageInput{
		Record:   located.Record,
		State:    located.State,
		Strategy: located.Strategy,
		BaseURL:  h.baseURL,
		Age:      impact.ParseAgeGroup(q.Get("age")),
		Query:    q,
		Search:   h.searchEnabled(ctx),
	}

	if h.snapshots != nil && h.enabled(ctx, (*featureflags.Service).IsCityTableEnabled) {
		page, _ := parsePage(r)
		ranking, err := h.snapshots.Ranking(ctx, page)
		if err != nil {
			h.logger.Warn().Err(err).Msg("city ranking unavailable, hiding table")
		} else {
			in.Cities = &ranking
		}
	}

	if h.snapshots != nil && h.enabled(ctx, (*featureflags.Service).IsCoalMapEnabled) {
		report, err := h.snapshots.Plants(ctx)
		if err != nil {
			h.logger.Warn().Err(err).Msg("coal plants unavailable, hiding map")
		} else {
			in.Plants = report
		}
	}

	var buf bytes.Buffer
	if err := views.RenderPage(&buf, views.BuildPage(in)); err != nil {
		h.logger.Error().Err(err).Msg("render page")
		response.InternalError(w, r, "failed to render page")
		return
	}

	response.HTML(w, r, http.StatusOK, buf.Bytes())
}

// CityTable handles GET /fragments/cities - the ranking table alone, for
// paging without reloading the page.
func (h *PageHandler) CityTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.snapshots == nil || !h.enabled(ctx, (*featureflags.Service).IsCityTableEnabled) {
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

	ranking, err := h.snapshots.Ranking(ctx, page)
	if err != nil {
		h.logger.Warn().Err(err).Msg("city ranking unavailable")
		response.ServiceUnavailable(w, r, "city ranking is unavailable")
		return
	}

	data := views.BuildPage(views.PageInput{Cities: &ranking, Query: r.URL.Query()})
	var buf bytes.Buffer
	if err := views.RenderCityTable(&buf, data.Cities); err != nil {
		h.logger.Error().Err(err).Msg("render city table")
		response.InternalError(w, r, "failed to render city table")
		return
	}

	response.HTML(w, r, http.StatusOK, buf.Bytes())
}
