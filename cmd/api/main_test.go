package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapLogger(t *testing.T) {
	var buf bytes.Buffer
	boot := bootstrapLogger(&buf)

	boot.Error().Str("reason", "missing token").Msg("failed to load config")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, serviceName, entry["service"])
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "failed to load config", entry["message"])
	assert.Contains(t, entry, "time")
}
