package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airaware/airaware/internal/api/handler"
	"github.com/airaware/airaware/internal/featureflags"
)

func TestUpsertFeatureFlags_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "{"},
		{name: "no updates", body: `{"updates":[],"reason":"x"}`},
		{name: "no reason", body: `{"updates":[{"key":"enable_coal_map","value":false}]}`},
		{name: "missing value", body: `{"updates":[{"key":"enable_coal_map"}],"reason":"x"}`},
		{name: "missing key", body: `{"updates":[{"value":true}],"reason":"x"}`},
		{name: "unknown key", body: `{"updates":[{"key":"enable_everything","value":true}],"reason":"x"}`},
		{name: "string value", body: `{"updates":[{"key":"enable_coal_map","value":"off"}],"reason":"x"}`},
		{name: "one bad update rejects all", body: `{"updates":[{"key":"enable_coal_map","value":false},{"key":"nope","value":true}],"reason":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFlags(t, nil)
			h := handler.NewFeatureFlagsHandler(svc, zerolog.Nop())

			w := httptest.NewRecorder()
			h.UpsertFeatureFlags(w, httptest.NewRequest(http.MethodPut, "/v1/admin/feature-flags", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.True(t, svc.IsCoalMapEnabled(t.Context()), "flags untouched")
		})
	}
}

func TestUpsertFeatureFlags(t *testing.T) {
	svc := newFlags(t, nil)
	h := handler.NewFeatureFlagsHandler(svc, zerolog.Nop())

	body := `{"updates":[{"key":"enable_coal_map","value":false},{"key":"use_reverse_geocode","value":true}],"reason":"provider outage"}`
	w := httptest.NewRecorder()
	h.UpsertFeatureFlags(w, httptest.NewRequest(http.MethodPut, "/v1/admin/feature-flags", strings.NewReader(body)))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, svc.IsCoalMapEnabled(t.Context()))
	assert.True(t, svc.UseReverseGeocode(t.Context()))
	assert.True(t, svc.IsEnabled(t.Context(), featureflags.FlagUseReverseGeocode))
}

func TestListFeatureFlags(t *testing.T) {
	h := handler.NewFeatureFlagsHandler(newFlags(t, map[string]interface{}{featureflags.FlagEnableCoalMap: false}), zerolog.Nop())

	w := httptest.NewRecorder()
	h.ListFeatureFlags(w, httptest.NewRequest(http.MethodGet, "/v1/admin/feature-flags", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	var list featureflags.FlagList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Items, len(featureflags.Definitions()))
	for i, d := range featureflags.Definitions() {
		assert.Equal(t, d.Key, list.Items[i].Key)
		assert.NotEmpty(t, list.Items[i].Description)
	}
	assert.Equal(t, false, list.Items[2].Value, "enable_coal_map override is listed")
}

func TestInvalidateFlagCache(t *testing.T) {
	h := handler.NewFeatureFlagsHandler(newFlags(t, nil), zerolog.Nop())

	w := httptest.NewRecorder()
	h.InvalidateCache(w, httptest.NewRequest(http.MethodPost, "/v1/admin/feature-flags/invalidate", http.NoBody))

	assert.Equal(t, http.StatusNoContent, w.Code)
}
