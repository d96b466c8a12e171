package views

import (
	"net/url"
	"strconv"

	"github.com/airaware/airaware/internal/airquality"
	"github.com/airaware/airaware/internal/impact"
	"github.com/airaware/airaware/internal/location"
	"github.com/airaware/airaware/internal/share"
	"github.com/airaware/airaware/internal/snapshot"
)

// PageInput is everything the handler resolved for one page view.
type PageInput struct {
	Record   airquality.Record
	State    location.State
	BaseURL  string
	Age      impact.AgeGroup
	Query    url.Values
	Cities   *snapshot.Page
	Plants   *snapshot.PlantsReport
	Search   bool
	Strategy location.StrategyName
}

// AgeOption is one tab of the age impact selector.
type AgeOption struct {
	Group    impact.AgeGroup
	Label    string
	URL      string
	Selected bool
}

// PageLink is one entry of the city table pagination bar.
type PageLink struct {
	Page    int
	URL     string
	Current bool
}

// CityTable is the view model for the ranking table.
type CityTable struct {
	Rows   []snapshot.RankedRow
	Links  []PageLink
	Page   int
	Total  int
	Offset int
}

// CoalSummary is the view model for the coal plant section.
type CoalSummary struct {
	States        []snapshot.StateGroup
	TotalStations int
	TotalCapacity float64
	LastUpdated   string
	Disclaimer    string
}

// PageData is the view model for page.html.
type PageData struct {
	Title    string
	Record   airquality.Record
	State    location.State
	Strategy location.StrategyName

	// AskLocation is set while no position has been tried. The page script
	// then requests the browser position and reloads with it.
	AskLocation bool
	// OfferRetry is set after the position was denied or unavailable.
	OfferRetry bool

	Loading    bool
	Daily      impact.Daily
	Age        impact.AgeImpact
	AgeOptions []AgeOption
	Lung       impact.Lung
	Comparison []impact.Lung
	Pollutants []impact.PollutantRow
	Forecast   []impact.ForecastPoint
	Stats      impact.Stats

	Share   share.Payload
	Buttons []share.Payload

	Search bool
	Cities *CityTable
	Coal   *CoalSummary
}

var ageLabels = map[impact.AgeGroup]string{
	impact.AgeYoung:  "18-24",
	impact.AgeAdult:  "25-44",
	impact.AgeMiddle: "45-64",
	impact.AgeSenior: "65+",
}

// BuildPage derives every widget from the resolved record. Widgets whose
// figure is not known yet are left zero and Loading is set.
func BuildPage(in PageInput) *PageData {
	data := &PageData{
		Title:       share.Title,
		Record:      in.Record,
		State:       in.State,
		Strategy:    in.Strategy,
		AskLocation: in.State == location.StateUnknown,
		OfferRetry:  in.State == location.StateUsingDefault,
		Comparison:  impact.LungComparison(),
		Pollutants:  impact.PollutantRows(in.Record.Measurements),
		Forecast:    impact.ForecastSeries(in.Record),
		Stats:       impact.StatsAt(0),
		Share:       share.NewPayload(in.BaseURL, ""),
		Search:      in.Search,
	}

	aqi := in.Record.AQI
	daily, ok := impact.DailyImpact(aqi)
	data.Loading = !ok
	data.Daily = daily
	data.Age, _ = impact.AgeImpacts(in.Age, aqi)
	data.Lung, _ = impact.Lungs(aqi)

	selected := impact.ParseAgeGroup(string(in.Age))
	for _, g := range impact.AgeGroups() {
		data.AgeOptions = append(data.AgeOptions, AgeOption{
			Group:    g,
			Label:    ageLabels[g],
			URL:      withParam(in.Query, "age", string(g)),
			Selected: g == selected,
		})
	}

	for _, label := range share.Labels() {
		data.Buttons = append(data.Buttons, share.NewPayload(in.BaseURL, label))
	}

	if in.Cities != nil {
		table := &CityTable{
			Rows:   in.Cities.Rows,
			Page:   in.Cities.Page,
			Total:  in.Cities.Total,
			Offset: (in.Cities.Page - 1) * snapshot.DefaultPageSize,
		}
		for p := 1; p <= in.Cities.TotalPages; p++ {
			table.Links = append(table.Links, PageLink{
				Page:    p,
				URL:     withParam(in.Query, "page", strconv.Itoa(p)),
				Current: p == in.Cities.Page,
			})
		}
		data.Cities = table
	}

	if in.Plants != nil {
		coal := &CoalSummary{
			States:        snapshot.GroupByState(in.Plants.PowerStations),
			TotalStations: in.Plants.Metadata.TotalStations,
			LastUpdated:   in.Plants.Metadata.LastUpdated,
			Disclaimer:    in.Plants.Metadata.EmissionsDisclaimer,
		}
		for _, s := range coal.States {
			coal.TotalCapacity += s.TotalCapacity
		}
		data.Coal = coal
	}

	return data
}

// withParam returns a relative link to the page with one query value replaced.
func withParam(q url.Values, key, value string) string {
	next := url.Values{}
	for k, vs := range q {
		next[k] = append([]string(nil), vs...)
	}
	next.Set(key, value)
	return "?" + next.Encode()
}
