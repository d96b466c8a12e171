package snapshot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/airaware/airaware/internal/snapshot"
)

func TestDefaultCities(t *testing.T) {
	cities := snapshot.DefaultCities()

	assert.Len(t, cities, 59)
	assert.Equal(t, "delhi", cities[0])
	assert.Equal(t, "jodhpur", cities[len(cities)-1])

	seen := make(map[string]bool)
	for _, c := range cities {
		assert.False(t, seen[c], "duplicate city %s", c)
		seen[c] = true
	}
	assert.True(t, seen["ranchi"])
}

func TestCityKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Delhi", "delhi"},
		{"New Delhi", "new-delhi"},
		{"Navi  Mumbai", "navi-mumbai"},
		{"Pimpri\tChinchwad", "pimpri-chinchwad"},
		{" Pune ", "pune"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, snapshot.CityKey(tt.in))
		})
	}
}
