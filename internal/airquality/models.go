// Package airquality provides the normalized air quality record and the
// state container shared by the page's widgets.
package airquality

import (
	"errors"
	"time"
)

// Provider errors.
var (
	ErrProviderUnavailable = errors.New("air quality provider unavailable")
	ErrMalformedResponse   = errors.New("malformed air quality response")
	ErrCityNotFound        = errors.New("city not found")
)

// Pollutant is a measurement key as reported by the provider (pm25, no2, t, ...).
type Pollutant string

const (
	PollutantPM25 Pollutant = "pm25"
	PollutantPM10 Pollutant = "pm10"
	PollutantCO   Pollutant = "co"
	PollutantNO2  Pollutant = "no2"
	PollutantSO2  Pollutant = "so2"
	PollutantO3   Pollutant = "o3"
)

// Source identifies where a record came from.
type Source string

const (
	SourceDefault  Source = "default"
	SourceWAQI     Source = "waqi"
	SourceSnapshot Source = "snapshot"
	SourceFallback Source = "fallback"
)

const (
	DefaultCity = "Delhi"
	DefaultAQI  = 449

	FallbackCity = "Delhi US Embassy, India (दिल्ली अमेरिकी दूतावास)"
	FallbackAQI  = 483
)

// Coordinates is a WGS84 position.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Attribution credits a data source.
type Attribution struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// ForecastDay is one day of a pollutant forecast.
type ForecastDay struct {
	Day string  `json:"day"`
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Record is the normalized air quality reading consumed by every widget.
// AQI 0 means the index is not known yet.
type Record struct {
	AQI               int                         `json:"aqi"`
	City              string                      `json:"city"`
	StationName       string                      `json:"stationName,omitempty"`
	StationURL        string                      `json:"stationUrl,omitempty"`
	DominantPollutant Pollutant                   `json:"dominantPollutant,omitempty"`
	Measurements      map[Pollutant]float64       `json:"measurements,omitempty"`
	Forecast          map[Pollutant][]ForecastDay `json:"forecast,omitempty"`
	ObservedAt        *time.Time                  `json:"observedAt,omitempty"`
	ObservedText      string                      `json:"observedText,omitempty"`
	Attributions      []Attribution               `json:"attributions,omitempty"`
	Coordinates       *Coordinates                `json:"coordinates,omitempty"`
	Source            Source                      `json:"source"`
}

// DefaultRecord is the record shown before any location is known.
func DefaultRecord() Record {
	return Record{City: DefaultCity, AQI: DefaultAQI, Source: SourceDefault}
}

// FallbackRecord is substituted whenever a live lookup fails.
func FallbackRecord() Record {
	return Record{City: FallbackCity, AQI: FallbackAQI, Source: SourceFallback}
}

// Loaded reports whether detailed measurements are present.
func (r Record) Loaded() bool {
	return r.Measurements != nil
}

// Measurement returns a single pollutant value.
func (r Record) Measurement(p Pollutant) (float64, bool) {
	v, ok := r.Measurements[p]
	return v, ok
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := r

	if r.Measurements != nil {
		out.Measurements = make(map[Pollutant]float64, len(r.Measurements))
		for k, v := range r.Measurements {
			out.Measurements[k] = v
		}
	}

	if r.Forecast != nil {
		out.Forecast = make(map[Pollutant][]ForecastDay, len(r.Forecast))
		for k, days := range r.Forecast {
			out.Forecast[k] = append([]ForecastDay(nil), days...)
		}
	}

	if r.ObservedAt != nil {
		t := *r.ObservedAt
		out.ObservedAt = &t
	}

	if r.Attributions != nil {
		out.Attributions = append([]Attribution(nil), r.Attributions...)
	}

	if r.Coordinates != nil {
		c := *r.Coordinates
		out.Coordinates = &c
	}

	return out
}
