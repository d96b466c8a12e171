package impact

import (
	"fmt"
	"math"
)

// AgeGroup selects an audience for the age impact widget.
type AgeGroup string

const (
	AgeYoung  AgeGroup = "young"
	AgeAdult  AgeGroup = "adult"
	AgeMiddle AgeGroup = "middle"
	AgeSenior AgeGroup = "senior"
)

// DefaultAgeGroup is selected when the page first renders.
const DefaultAgeGroup = AgeAdult

// AgeGroups lists the groups in display order.
func AgeGroups() []AgeGroup {
	return []AgeGroup{AgeYoung, AgeAdult, AgeMiddle, AgeSenior}
}

// ParseAgeGroup maps a query value to a group, defaulting to adults.
func ParseAgeGroup(s string) AgeGroup {
	switch AgeGroup(s) {
	case AgeYoung, AgeAdult, AgeMiddle, AgeSenior:
		return AgeGroup(s)
	default:
		return DefaultAgeGroup
	}
}

// AgeImpact is the content for one age group.
type AgeImpact struct {
	Group     AgeGroup `json:"group"`
	Title     string   `json:"title"`
	Impacts   []string `json:"impacts"`
	Emotional string   `json:"emotional"`
}

func pct(aqi, divisor int) string {
	return fmt.Sprintf("%.0f", math.Round(float64(aqi)/float64(divisor)))
}

// AgeImpacts returns the lines shown for the group at this AQI.
func AgeImpacts(group AgeGroup, aqi int) (AgeImpact, bool) {
	if aqi <= 0 {
		return AgeImpact{}, false
	}

	switch ParseAgeGroup(string(group)) {
	case AgeYoung:
		return AgeImpact{
			Group: AgeYoung,
			Title: "Young Adults (18-24)",
			Impacts: []string{
				pct(aqi, 10) + "% increased risk of respiratory infections",
				pct(aqi, 12) + "% higher risk of depression and anxiety",
				"Each day in toxic air reduces life expectancy by 2-4 hours",
			},
			Emotional: "Your future health depends on air quality today. Take action to protect yourself.",
		}, true
	case AgeMiddle:
		return AgeImpact{
			Group: AgeMiddle,
			Title: "Middle Age (45-64)",
			Impacts: []string{
				pct(aqi, 4) + "% higher risk of heart attack and stroke",
				"Accelerated memory loss equivalent to aging 3 extra years",
				"Each month reduces your healthy retirement years by 2 months",
			},
			Emotional: "You have worked hard all your life. Do not let toxic air rob you of your golden years.",
		}, true
	case AgeSenior:
		return AgeImpact{
			Group: AgeSenior,
			Title: "Seniors (65+)",
			Impacts: []string{
				"3x higher risk of hospitalization during pollution spikes",
				"Each day in this air can trigger irreversible health decline",
				pct(aqi, 3) + "% increased risk of requiring emergency care",
			},
			Emotional: "Your wisdom and presence is precious to your family. This air threatens every moment you have with them.",
		}, true
	default:
		return AgeImpact{
			Group: AgeAdult,
			Title: "Adults (25-44)",
			Impacts: []string{
				pct(aqi, 8) + "% reduced cognitive performance on high pollution days",
				pct(aqi, 7) + "% increased risk of cardiovascular issues",
				"Each year in polluted air accelerates aging by 1.8-2.2 years",
			},
			Emotional: "Protect your health and productivity by being aware of air quality.",
		}, true
	}
}
