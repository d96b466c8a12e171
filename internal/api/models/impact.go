package models

import "github.com/airaware/airaware/internal/impact"

// Impact bundles the widget figures for one AQI. Loading is set when the
// AQI is not known yet and every figure is omitted.
type Impact struct {
	AQI        int               `json:"aqi"`
	Loading    bool              `json:"loading"`
	Daily      *impact.Daily     `json:"daily,omitempty"`
	Age        *impact.AgeImpact `json:"age,omitempty"`
	Lungs      *impact.Lung      `json:"lungs,omitempty"`
	Comparison []impact.Lung     `json:"comparison"`
	AgeGroups  []impact.AgeGroup `json:"ageGroups"`
}
