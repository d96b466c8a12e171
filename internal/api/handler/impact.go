package handler

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/airaware/airaware/internal/api/models"
	"github.com/airaware/airaware/internal/api/response"
	"github.com/airaware/airaware/internal/impact"
	"github.com/airaware/airaware/internal/share"
)

// ImpactHandler serves the widget figures as JSON.
type ImpactHandler struct {
	baseURL string
}

// NewImpactHandler creates a new ImpactHandler. baseURL is the page address
// used in share messages.
func NewImpactHandler(baseURL string) *ImpactHandler {
	return &ImpactHandler{baseURL: baseURL}
}

// GetImpact handles GET /v1/impact?aqi=&age=.
func (h *ImpactHandler) GetImpact(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	aqi := 0
	if raw := q.Get("aqi"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			response.BadRequest(w, r, "invalid aqi", []models.FieldError{
				{Field: "aqi", Message: "must be a non-negative integer", Code: "min"},
			})
			return
		}
		aqi = v
	}

	out := models.Impact{
		AQI:        aqi,
		Comparison: impact.LungComparison(),
		AgeGroups:  impact.AgeGroups(),
	}

	daily, ok := impact.DailyImpact(aqi)
	if !ok {
		out.Loading = true
		response.JSON(w, r, http.StatusOK, out)
		return
	}
	out.Daily = &daily

	if age, ok := impact.AgeImpacts(impact.ParseAgeGroup(q.Get("age")), aqi); ok {
		out.Age = &age
	}
	if lung, ok := impact.Lungs(aqi); ok {
		out.Lungs = &lung
	}

	response.JSON(w, r, http.StatusOK, out)
}

// GetStats handles GET /v1/stats?elapsed=. elapsed is a Go duration such as
// "90s" or a plain number of seconds.
func (h *ImpactHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	elapsed, ok := parseElapsed(r.URL.Query().Get("elapsed"))
	if !ok {
		response.BadRequest(w, r, "invalid elapsed", []models.FieldError{
			{Field: "elapsed", Message: "must be a duration or a number of seconds", Code: "format"},
		})
		return
	}
	response.JSON(w, r, http.StatusOK, impact.StatsAt(elapsed))
}

func parseElapsed(raw string) (time.Duration, bool) {
	if raw == "" {
		return 0, true
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		if secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
			return 0, false
		}
		return time.Duration(secs * float64(time.Second)), true
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

// GetShare handles GET /v1/share?label= - the payload behind a share button.
func (h *ImpactHandler) GetShare(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, share.NewPayload(h.baseURL, r.URL.Query().Get("label")))
}
