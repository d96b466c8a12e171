package impact

import (
	"strconv"
	"time"

	"github.com/airaware/airaware/internal/airquality"
)

// PollutantRow is one line of the pollutants table.
type PollutantRow struct {
	Key    airquality.Pollutant `json:"key"`
	Name   string               `json:"name"`
	Value  float64              `json:"value"`
	Unit   string               `json:"unit"`
	Advice string               `json:"advice"`
}

// Display renders the value with its unit, or "-" for a zero reading.
func (r PollutantRow) Display() string {
	if r.Value == 0 {
		return "-"
	}
	return strconv.FormatFloat(r.Value, 'f', -1, 64) + " " + r.Unit
}

var pollutantTable = []PollutantRow{
	{Key: airquality.PollutantPM25, Name: "PM2.5", Unit: "μg/m³", Advice: "Fine particles - use air purifiers indoors"},
	{Key: airquality.PollutantPM10, Name: "PM10", Unit: "μg/m³", Advice: "Larger particles - wear masks outdoors"},
	{Key: airquality.PollutantCO, Name: "CO", Unit: "mg/m³", Advice: "Carbon monoxide - ensure good ventilation"},
	{Key: airquality.PollutantNO2, Name: "NO₂", Unit: "ppb", Advice: "Vehicle emissions - avoid high-traffic areas"},
	{Key: airquality.PollutantSO2, Name: "SO₂", Unit: "ppb", Advice: "Industrial emissions - check daily forecasts"},
}

// PollutantRows returns the table rows for the measured pollutants, in
// fixed order. Nil measurements mean the detail has not loaded and yield nil.
func PollutantRows(measurements map[airquality.Pollutant]float64) []PollutantRow {
	if measurements == nil {
		return nil
	}

	rows := make([]PollutantRow, 0, len(pollutantTable))
	for _, p := range pollutantTable {
		v, ok := measurements[p.Key]
		if !ok {
			continue
		}
		row := p
		row.Value = v
		rows = append(rows, row)
	}
	return rows
}

// ForecastPoint is one day on the PM2.5 forecast chart.
type ForecastPoint struct {
	Label string  `json:"label"`
	Day   string  `json:"day"`
	Avg   float64 `json:"avg"`
}

// ForecastSeries returns the daily PM2.5 forecast labelled by short
// weekday. It returns nil when the record carries no PM2.5 forecast.
func ForecastSeries(rec airquality.Record) []ForecastPoint {
	days, ok := rec.Forecast[airquality.PollutantPM25]
	if !ok {
		return nil
	}

	points := make([]ForecastPoint, 0, len(days))
	for _, d := range days {
		label := d.Day
		if t, err := time.Parse("2006-01-02", d.Day); err == nil {
			label = t.Format("Mon")
		}
		points = append(points, ForecastPoint{Label: label, Day: d.Day, Avg: d.Avg})
	}
	return points
}
