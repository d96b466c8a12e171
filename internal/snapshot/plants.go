package snapshot

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

//go:embed data/thermal_stations.tsv
var thermalStationsTSV string

// EmbeddedPlantsTSV returns the bundled station table.
func EmbeddedPlantsTSV() io.Reader {
	return strings.NewReader(thermalStationsTSV)
}

// Emission model inputs.
const (
	HoursPerYear    = 8760
	PlantLoadFactor = 0.70

	CO2FactorKgPerKWh = 0.82
	SOxFactorGPerKWh  = 6.5
	NOxFactorGPerKWh  = 2.5
	PMFactorGPerKWh   = 1.0
)

// Column positions in the station table.
const (
	colName = iota
	colCity
	colDistrict
	colState
	colRegion
	colCoordinates
	colUnitCapacities
	colCapacity
	colOperator
	colSector
)

// StationCoordinates is a decimal-degree position.
type StationCoordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// StationLocation describes where a plant is.
type StationLocation struct {
	City        string              `json:"city"`
	District    string              `json:"district"`
	State       string              `json:"state"`
	Region      string              `json:"region"`
	Coordinates *StationCoordinates `json:"coordinates"`
}

// StationTechnical holds capacity and ownership.
type StationTechnical struct {
	UnitCapacities string  `json:"unitCapacities"`
	CapacityMW     float64 `json:"capacityMW"`
	Operator       string  `json:"operator"`
	Sector         string  `json:"sector"`
}

// EmissionValues holds one figure per pollutant.
type EmissionValues struct {
	CO2 float64 `json:"co2"`
	SOx float64 `json:"sox"`
	NOx float64 `json:"nox"`
	PM  float64 `json:"pm"`
}

// Emissions are annual totals in metric tons and intensities in g/kWh.
type Emissions struct {
	Annual    EmissionValues `json:"annual"`
	Intensity EmissionValues `json:"intensity"`
}

// PowerStation is one coal plant in coal-plants.json.
type PowerStation struct {
	Name      string           `json:"name"`
	Location  StationLocation  `json:"location"`
	Technical StationTechnical `json:"technical"`
	Emissions Emissions        `json:"emissions"`
}

// EmissionUnits labels the emission figures.
type EmissionUnits struct {
	Annual    map[string]string `json:"annual"`
	Intensity map[string]string `json:"intensity"`
}

// CalculationAssumptions records the inputs of CalculateEmissions.
type CalculationAssumptions struct {
	PlantLoadFactor float64           `json:"plantLoadFactor"`
	EmissionFactors map[string]string `json:"emissionFactors"`
}

// PlantsMetadata describes a PlantsReport.
type PlantsMetadata struct {
	TotalStations          int                    `json:"totalStations"`
	Regions                []string               `json:"regions"`
	EmissionsDisclaimer    string                 `json:"emissionsDisclaimer"`
	EmissionsUnits         EmissionUnits          `json:"emissionsUnits"`
	CalculationAssumptions CalculationAssumptions `json:"calculationAssumptions"`
	LastUpdated            string                 `json:"lastUpdated"`
	Excludes               string                 `json:"excludes"`
}

// PlantsReport is the coal-plants.json document.
type PlantsReport struct {
	PowerStations []PowerStation `json:"powerStations"`
	Metadata      PlantsMetadata `json:"metadata"`
}

var coordinatePattern = regexp.MustCompile(`(\d+)°(\d+)′(\d+)″([NS])\s+(\d+)°(\d+)′(\d+)″([EW])`)

// ParseCoordinates converts "24°05′53″N 82°40′18″E" into decimal degrees
// rounded to six places. Anything that does not match returns nil.
func ParseCoordinates(s string) *StationCoordinates {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	m := coordinatePattern.FindStringSubmatch(s)
	if m == nil {
		return nil
	}

	lat := dms(m[1], m[2], m[3])
	if m[4] == "S" {
		lat = -lat
	}
	lon := dms(m[5], m[6], m[7])
	if m[8] == "W" {
		lon = -lon
	}

	return &StationCoordinates{Latitude: round6(lat), Longitude: round6(lon)}
}

func dms(d, m, s string) float64 {
	deg, _ := strconv.Atoi(d)
	minutes, _ := strconv.Atoi(m)
	sec, _ := strconv.Atoi(s)
	return float64(deg) + float64(minutes)/60 + float64(sec)/3600
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// CalculateEmissions estimates annual emissions for a plant of the given
// nameplate capacity.
func CalculateEmissions(capacityMW float64) Emissions {
	kWhPerYear := capacityMW * 1000 * HoursPerYear * PlantLoadFactor

	return Emissions{
		Annual: EmissionValues{
			CO2: math.Round(kWhPerYear * CO2FactorKgPerKWh / 1000),
			SOx: math.Round(kWhPerYear * SOxFactorGPerKWh / 1e6),
			NOx: math.Round(kWhPerYear * NOxFactorGPerKWh / 1e6),
			PM:  math.Round(kWhPerYear * PMFactorGPerKWh / 1e6),
		},
		Intensity: EmissionValues{
			CO2: CO2FactorKgPerKWh * 1000,
			SOx: SOxFactorGPerKWh,
			NOx: NOxFactorGPerKWh,
			PM:  PMFactorGPerKWh,
		},
	}
}

var (
	leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
	footnote      = regexp.MustCompile(`\[\d+\]`)
)

// ParseCapacity reads the leading number of a capacity cell such as
// "1,200[22]". Cells without a number parse as 0.
func ParseCapacity(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	m := leadingNumber.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

// PlantsBuilder accumulates stations row by row. Both the TSV and HTML
// parsers feed it.
type PlantsBuilder struct {
	headers  int
	stations []PowerStation
	regions  []string
	seen     map[string]struct{}
}

// NewPlantsBuilder starts a report with the given header count. Rows with
// fewer cells are ignored.
func NewPlantsBuilder(headers int) *PlantsBuilder {
	return &PlantsBuilder{headers: headers, seen: make(map[string]struct{})}
}

// Add processes one row of trimmed cells and reports whether it was kept.
// Rows that are too short, or whose unit capacities are marked with "$"
// (retired or scrapped), are skipped.
func (b *PlantsBuilder) Add(values []string) bool {
	if len(values) < b.headers || len(values) <= colCapacity {
		return false
	}
	if strings.Contains(values[colUnitCapacities], "$") {
		return false
	}

	capacity := ParseCapacity(values[colCapacity])

	if region := values[colRegion]; region != "" {
		if _, ok := b.seen[region]; !ok {
			b.seen[region] = struct{}{}
			b.regions = append(b.regions, region)
		}
	}

	b.stations = append(b.stations, PowerStation{
		Name: strings.TrimSpace(footnote.ReplaceAllString(values[colName], "")),
		Location: StationLocation{
			City:        values[colCity],
			District:    values[colDistrict],
			State:       values[colState],
			Region:      values[colRegion],
			Coordinates: ParseCoordinates(values[colCoordinates]),
		},
		Technical: StationTechnical{
			UnitCapacities: values[colUnitCapacities],
			CapacityMW:     capacity,
			Operator:       cell(values, colOperator),
			Sector:         cell(values, colSector),
		},
		Emissions: CalculateEmissions(capacity),
	})
	return true
}

func cell(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

// Report builds the final document. lastUpdated is formatted as a date.
func (b *PlantsBuilder) Report(lastUpdated time.Time) *PlantsReport {
	stations := b.stations
	if stations == nil {
		stations = []PowerStation{}
	}
	regions := b.regions
	if regions == nil {
		regions = []string{}
	}

	return &PlantsReport{
		PowerStations: stations,
		Metadata: PlantsMetadata{
			TotalStations:       len(stations),
			Regions:             regions,
			EmissionsDisclaimer: "Emissions are estimated based on standard factors and may vary from actual emissions",
			EmissionsUnits: EmissionUnits{
				Annual: map[string]string{
					"co2": "metric tons/year",
					"sox": "metric tons/year",
					"nox": "metric tons/year",
					"pm":  "metric tons/year",
				},
				Intensity: map[string]string{
					"co2": "g/kWh",
					"sox": "g/kWh",
					"nox": "g/kWh",
					"pm":  "g/kWh",
				},
			},
			CalculationAssumptions: CalculationAssumptions{
				PlantLoadFactor: PlantLoadFactor,
				EmissionFactors: map[string]string{
					"co2": "0.82 kg/kWh",
					"sox": "6.5 g/kWh",
					"nox": "2.5 g/kWh",
					"pm":  "1.0 g/kWh",
				},
			},
			LastUpdated: lastUpdated.UTC().Format("2006-01-02"),
			Excludes:    "Retired/scrapped stations (marked with $)",
		},
	}
}

// ParsePlantsTSV parses the tab-separated station table. The first
// non-empty line holds the headers.
func ParsePlantsTSV(r io.Reader, lastUpdated time.Time) (*PlantsReport, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var builder *PlantsBuilder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		values := splitCells(line)
		if builder == nil {
			builder = NewPlantsBuilder(len(values))
			continue
		}
		builder.Add(values)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read plants table: %w", err)
	}
	if builder == nil {
		return nil, fmt.Errorf("plants table has no header row")
	}

	return builder.Report(lastUpdated), nil
}

func splitCells(line string) []string {
	parts := strings.Split(line, "\t")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// StateGroup aggregates the plants of one state for the coal map.
type StateGroup struct {
	State         string         `json:"state"`
	Plants        []PowerStation `json:"plants"`
	TotalCapacity float64        `json:"totalCapacity"`
}

// GroupByState aggregates stations per state, ordered by total capacity
// descending.
func GroupByState(stations []PowerStation) []StateGroup {
	index := make(map[string]int)
	var groups []StateGroup

	for _, s := range stations {
		i, ok := index[s.Location.State]
		if !ok {
			i = len(groups)
			index[s.Location.State] = i
			groups = append(groups, StateGroup{State: s.Location.State})
		}
		groups[i].Plants = append(groups[i].Plants, s)
		groups[i].TotalCapacity += s.Technical.CapacityMW
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].TotalCapacity > groups[j].TotalCapacity
	})
	return groups
}
