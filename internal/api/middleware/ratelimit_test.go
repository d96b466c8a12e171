package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airaware/airaware/internal/api/middleware"
	"github.com/airaware/airaware/internal/api/models"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(h http.Handler, path, remoteAddr string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	req.RemoteAddr = remoteAddr
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitByIP_BudgetPerVisitor(t *testing.T) {
	handler := middleware.RateLimitByIP(middleware.RateLimitConfig{RequestLimit: 3, WindowLength: time.Minute})(okHandler())

	for i := range 3 {
		assert.Equal(t, http.StatusOK, hit(handler, "/", "10.0.0.1:5000", nil).Code, "request %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(handler, "/", "10.0.0.1:5000", nil).Code)
	assert.Equal(t, http.StatusOK, hit(handler, "/", "10.0.0.2:5000", nil).Code, "another visitor has its own budget")
}

func TestRateLimitByIP_ProblemBody(t *testing.T) {
	handler := middleware.RequestID(
		middleware.RateLimitByIP(middleware.RateLimitConfig{RequestLimit: 1, WindowLength: 30 * time.Second})(okHandler()),
	)

	hit(handler, "/v1/air-quality", "203.0.113.1:1234", nil)
	rec := hit(handler, "/v1/air-quality", "203.0.113.1:1234", nil)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	var problem models.Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, models.ProblemTypeTooManyRequests, problem.Type)
	assert.Equal(t, "Rate limit of 1 requests per 30s exceeded", problem.Detail)
	assert.Equal(t, "/v1/air-quality", problem.Instance)
	assert.NotEmpty(t, problem.TraceID)
}

func TestRateLimitBySubject_FallsBackToIP(t *testing.T) {
	handler := middleware.RateLimitBySubject(middleware.RateLimitConfig{RequestLimit: 1, WindowLength: time.Minute})(okHandler())

	assert.Equal(t, http.StatusOK, hit(handler, "/v1/admin/feature-flags", "192.168.1.1:1", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(handler, "/v1/admin/feature-flags", "192.168.1.1:1", nil).Code)
	assert.Equal(t, http.StatusOK, hit(handler, "/v1/admin/feature-flags", "192.168.1.2:1", nil).Code)
}

func TestRateLimitBySubject_KeysOnTokenSubject(t *testing.T) {
	tokens := newAdminTokens(t, "admin-signing-key")
	header := http.Header{"Authorization": {"Bearer " + mintToken(t, tokens, "ops@air.nmn.gl", time.Hour)}}

	handler := middleware.Auth(tokens)(
		middleware.RateLimitBySubject(middleware.RateLimitConfig{RequestLimit: 1, WindowLength: time.Minute})(okHandler()),
	)

	assert.Equal(t, http.StatusOK, hit(handler, "/v1/admin/feature-flags", "10.0.0.1:1000", header).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(handler, "/v1/admin/feature-flags", "10.0.0.2:1000", header).Code,
		"a new IP does not reset the subject's budget")
}

func TestRateLimitPresets(t *testing.T) {
	tests := []struct {
		name  string
		cfg   middleware.RateLimitConfig
		limit int
	}{
		{"admin", middleware.AdminRateLimit, 10},
		{"lookup", middleware.LookupRateLimit, 30},
		{"standard", middleware.StandardRateLimit, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.limit, tt.cfg.RequestLimit)
			assert.Equal(t, time.Minute, tt.cfg.WindowLength)
		})
	}
}
