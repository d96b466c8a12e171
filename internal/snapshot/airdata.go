package snapshot

import (
	"sort"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/airaware/airaware/internal/airquality"
	"github.com/airaware/airaware/internal/impact"
)

// Reading is a single iaqi value as stored in air-data.json.
type Reading struct {
	V float64 `json:"v"`
}

// CityLocation is the station name and position for a city entry.
type CityLocation struct {
	Name        string    `json:"name"`
	Coordinates []float64 `json:"coordinates"`
}

// CityRecord is one city in air-data.json. A nil AQI means the station
// reported no index.
type CityRecord struct {
	AQI          *int               `json:"aqi"`
	Location     CityLocation       `json:"location"`
	Measurements map[string]Reading `json:"measurements"`
	Timestamp    string             `json:"timestamp"`
}

// AirData is the air-data.json document.
type AirData struct {
	Cities map[string]CityRecord `json:"cities"`
}

// NewAirData returns an empty document.
func NewAirData() *AirData {
	return &AirData{Cities: make(map[string]CityRecord)}
}

// FromRecord converts a live record into the stored city shape.
func FromRecord(rec airquality.Record) CityRecord {
	out := CityRecord{
		Location: CityLocation{Name: rec.City},
	}

	if rec.AQI > 0 {
		aqi := rec.AQI
		out.AQI = &aqi
	}

	if rec.Coordinates != nil {
		out.Location.Coordinates = []float64{rec.Coordinates.Latitude, rec.Coordinates.Longitude}
	}

	out.Measurements = make(map[string]Reading, len(rec.Measurements))
	for k, v := range rec.Measurements {
		out.Measurements[string(k)] = Reading{V: v}
	}

	if rec.ObservedAt != nil {
		out.Timestamp = rec.ObservedAt.Format(time.RFC3339)
	}

	return out
}

// ToRecord converts a stored city into a Record with Source snapshot.
func (c CityRecord) ToRecord() airquality.Record {
	rec := airquality.Record{
		City:   c.Location.Name,
		Source: airquality.SourceSnapshot,
	}

	if c.AQI != nil && *c.AQI > 0 {
		rec.AQI = *c.AQI
	}

	if c.Measurements != nil {
		rec.Measurements = make(map[airquality.Pollutant]float64, len(c.Measurements))
		for k, r := range c.Measurements {
			rec.Measurements[airquality.Pollutant(k)] = r.V
		}
	}

	if len(c.Location.Coordinates) >= 2 {
		rec.Coordinates = &airquality.Coordinates{
			Latitude:  c.Location.Coordinates[0],
			Longitude: c.Location.Coordinates[1],
		}
	}

	if c.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339, c.Timestamp); err == nil {
			rec.ObservedAt = &t
		}
	}

	return rec
}

// Lookup finds a city by key.
func (d *AirData) Lookup(key string) (CityRecord, bool) {
	if d == nil {
		return CityRecord{}, false
	}
	rec, ok := d.Cities[key]
	return rec, ok
}

// TableRow is one city in air-table.json. Readings that are missing or
// zero are null.
type TableRow struct {
	AQI       *int     `json:"aqi"`
	Name      string   `json:"name"`
	PM25      *float64 `json:"pm25"`
	PM10      *float64 `json:"pm10"`
	CO        *float64 `json:"co"`
	NO2       *float64 `json:"no2"`
	SO2       *float64 `json:"so2"`
	O3        *float64 `json:"o3"`
	Timestamp string   `json:"timestamp"`
}

// BuildTable derives air-table.json from air-data.json.
func BuildTable(data *AirData) map[string]TableRow {
	table := make(map[string]TableRow, len(data.Cities))
	for key, city := range data.Cities {
		table[key] = TableRow{
			AQI:       city.AQI,
			Name:      city.Location.Name,
			PM25:      reading(city.Measurements, "pm25"),
			PM10:      reading(city.Measurements, "pm10"),
			CO:        reading(city.Measurements, "co"),
			NO2:       reading(city.Measurements, "no2"),
			SO2:       reading(city.Measurements, "so2"),
			O3:        reading(city.Measurements, "o3"),
			Timestamp: city.Timestamp,
		}
	}
	return table
}

func reading(m map[string]Reading, key string) *float64 {
	r, ok := m[key]
	if !ok || r.V == 0 {
		return nil
	}
	v := r.V
	return &v
}

// RankedRow is a city prepared for the ranking table.
type RankedRow struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	StationName string   `json:"stationName"`
	AQI         int      `json:"aqi"`
	Color       string   `json:"color"`
	PM25        *float64 `json:"pm25"`
	Timestamp   string   `json:"timestamp,omitempty"`
}

// RankTable keeps rows with a numeric AQI and sorts them worst first.
// Ties are broken by key so the order is stable.
func RankTable(table map[string]TableRow) []RankedRow {
	rows := make([]RankedRow, 0, len(table))
	for key, row := range table {
		if row.AQI == nil {
			continue
		}
		rows = append(rows, RankedRow{
			Key:         key,
			Name:        capitalize(key),
			StationName: row.Name,
			AQI:         *row.AQI,
			Color:       impact.TableColor(*row.AQI),
			PM25:        row.PM25,
			Timestamp:   row.Timestamp,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AQI != rows[j].AQI {
			return rows[i].AQI > rows[j].AQI
		}
		return rows[i].Key < rows[j].Key
	})
	return rows
}

// DefaultPageSize is the number of rows per ranking table page.
const DefaultPageSize = 5

// Page is one page of the ranking table.
type Page struct {
	Rows       []RankedRow `json:"rows"`
	Page       int         `json:"page"`
	TotalPages int         `json:"totalPages"`
	Total      int         `json:"total"`
}

// Paginate returns the 1-based page of rows. Out of range pages are clamped.
func Paginate(rows []RankedRow, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}

	totalPages := (len(rows) + size - 1) / size
	if totalPages == 0 {
		return Page{Rows: []RankedRow{}, Page: 1, TotalPages: 0, Total: 0}
	}

	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * size
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}

	return Page{
		Rows:       rows[start:end],
		Page:       page,
		TotalPages: totalPages,
		Total:      len(rows),
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
