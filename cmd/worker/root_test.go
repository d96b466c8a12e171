package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airaware/airaware/internal/provider/resilience"
	"github.com/airaware/airaware/internal/worker"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"fetch-aqi", "parse-plants", "listen", "token"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "airaware-worker", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestParsePlantsCommand_Flags(t *testing.T) {
	input := parsePlantsCmd.Flags().Lookup("input")
	require.NotNil(t, input)
	assert.Equal(t, "", input.DefValue)

	html := parsePlantsCmd.Flags().Lookup("html")
	require.NotNil(t, html)
	assert.Equal(t, "false", html.DefValue)
}

func TestTokenCommand_SubjectRequired(t *testing.T) {
	flag := tokenCmd.Flags().Lookup("subject")
	require.NotNil(t, flag)
	assert.Contains(t, flag.Annotations, "cobra_annotation_bash_completion_one_required_flag")

	ttl := tokenCmd.Flags().Lookup("ttl")
	require.NotNil(t, ttl)
	assert.Equal(t, "12h0m0s", ttl.DefValue)
}

func TestFetchAQICommand_Flags(t *testing.T) {
	require.NotNil(t, fetchAQICmd.Flags().Lookup("cities"))
	require.NotNil(t, fetchAQICmd.Flags().Lookup("check-only"))
}

func TestHealthRouter(t *testing.T) {
	logger = zerolog.New(io.Discard)
	d := worker.NewDispatcher(worker.DispatcherConfig{Logger: logger})

	w := httptest.NewRecorder()
	healthRouter(d, resilience.NewRegistry()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
	assert.Contains(t, w.Body.String(), `"refresh"`)
}
