package resilience_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airaware/airaware/internal/provider/resilience"
)

func register(registry *resilience.Registry, names ...string) {
	for _, name := range names {
		cfg := resilience.DefaultClientConfig(name)
		cfg.Registry = registry
		resilience.NewClient(cfg)
	}
}

func TestRegistry_NewClientRegisters(t *testing.T) {
	registry := resilience.NewRegistry()
	register(registry, "waqi")

	health, ok := registry.Health("waqi")
	require.True(t, ok)
	assert.Equal(t, "waqi", health.Name)
	assert.Equal(t, gobreaker.StateClosed, health.State)
	assert.Equal(t, resilience.ConditionHealthy, health.Condition())
	assert.Zero(t, health.Trips)
	assert.Nil(t, health.LastSuccessAt)
}

func TestRegistry_Record(t *testing.T) {
	registry := resilience.NewRegistry()
	register(registry, "bigdatacloud")

	registry.Record("bigdatacloud", nil)
	health, _ := registry.Health("bigdatacloud")
	require.NotNil(t, health.LastSuccessAt)
	assert.WithinDuration(t, time.Now(), *health.LastSuccessAt, time.Second)
	assert.Empty(t, health.LastError)

	registry.Record("bigdatacloud", errors.New("geocoder timeout"))
	health, _ = registry.Health("bigdatacloud")
	require.NotNil(t, health.LastFailureAt)
	assert.Equal(t, "geocoder timeout", health.LastError)
	assert.NotNil(t, health.LastSuccessAt, "a failure keeps the last success")
}

func TestRegistry_UnknownProviderIgnored(t *testing.T) {
	registry := resilience.NewRegistry()

	registry.Record("openaq", errors.New("boom"))

	_, ok := registry.Health("openaq")
	assert.False(t, ok)
	assert.Empty(t, registry.All())
}

func TestRegistry_AllSortedByName(t *testing.T) {
	registry := resilience.NewRegistry()
	register(registry, "waqi", "bigdatacloud", "waqi-worker")

	all := registry.All()
	require.Len(t, all, 3)
	assert.Equal(t, "bigdatacloud", all[0].Name)
	assert.Equal(t, "waqi", all[1].Name)
	assert.Equal(t, "waqi-worker", all[2].Name)
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	registry := resilience.NewRegistry()
	register(registry, "waqi", "waqi")

	assert.Len(t, registry.All(), 1)
}

func TestHealth_Condition(t *testing.T) {
	tests := []struct {
		state gobreaker.State
		want  resilience.Condition
	}{
		{gobreaker.StateClosed, resilience.ConditionHealthy},
		{gobreaker.StateHalfOpen, resilience.ConditionDegraded},
		{gobreaker.StateOpen, resilience.ConditionUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, resilience.Health{State: tt.state}.Condition())
		})
	}
}
