package models

import (
	"github.com/airaware/airaware/internal/airquality"
	"github.com/airaware/airaware/internal/impact"
)

// AirQuality is the response for the air quality lookups.
type AirQuality struct {
	Record   airquality.Record `json:"record"`
	State    string            `json:"state"`
	Strategy string            `json:"strategy"`
	Category string            `json:"category,omitempty"`
	Danger   string            `json:"danger,omitempty"`
}

// NewAirQuality wraps a record with its gauge color and AQI band.
func NewAirQuality(rec airquality.Record, state, strategy string) AirQuality {
	out := AirQuality{Record: rec, State: state, Strategy: strategy}
	out.Category, _ = impact.Category(rec.AQI)
	out.Danger, _ = impact.Danger(rec.AQI)
	return out
}

// SearchResult is one station matched by name.
type SearchResult struct {
	Name  string `json:"name"`
	Point Point  `json:"point"`
}

// SearchResults is the response for the location search.
type SearchResults struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}
