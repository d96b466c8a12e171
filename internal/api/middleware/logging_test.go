package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airaware/airaware/internal/api/middleware"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_RequestFields(t *testing.T) {
	var buf bytes.Buffer
	handler := middleware.Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html></html>"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/?lat=28.61&lon=77.20", http.NoBody)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entry := logLine(t, &buf)
	assert.Equal(t, "request completed", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "/", entry["path"])
	assert.Equal(t, "coordinates", entry["position"])
	assert.Equal(t, float64(200), entry["status"], "a handler that never calls WriteHeader is a 200")
	assert.Equal(t, float64(13), entry["bytes"])
	assert.Equal(t, "Mozilla/5.0", entry["user_agent"])
	assert.NotContains(t, buf.String(), "28.61", "coordinates stay out of the log")
	assert.NotContains(t, entry, "subject")
	assert.NotContains(t, entry, "trace_id")
}

func TestLogger_LevelByStatus(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		level  string
	}{
		{"page", "/", http.StatusOK, "info"},
		{"bad query", "/v1/air-quality", http.StatusBadRequest, "warn"},
		{"rate limited", "/v1/locations/search", http.StatusTooManyRequests, "warn"},
		{"snapshot missing", "/v1/cities", http.StatusServiceUnavailable, "error"},
		{"health probe", "/v1/ops/health", http.StatusOK, "debug"},
		{"failing readiness probe", "/v1/ops/ready", http.StatusServiceUnavailable, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := middleware.Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))

			entry := logLine(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, float64(tt.status), entry["status"])
		})
	}
}

func TestLogger_RequestIDAndTrace(t *testing.T) {
	setupTestTracer(t)

	var buf bytes.Buffer
	handler := middleware.RequestID(
		middleware.Tracing("airaware-test")(
			middleware.Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})),
		),
	)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/stats", http.NoBody))

	entry := logLine(t, &buf)
	assert.Contains(t, entry["request_id"], "req_")
	assert.Len(t, entry["trace_id"], 32)
	assert.Len(t, entry["span_id"], 16)
}

func TestLogger_AdminSubject(t *testing.T) {
	tokens := newAdminTokens(t, "admin-signing-key")

	var buf bytes.Buffer
	handler := middleware.Auth(tokens)(
		middleware.Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})),
	)

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/snapshots/reload", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, tokens, "ops@air.nmn.gl", time.Hour))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "ops@air.nmn.gl", logLine(t, &buf)["subject"])
}
