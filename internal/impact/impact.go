// Package impact turns an AQI reading into the figures shown by the page's
// widgets. Every function that takes an AQI reports ok=false for a reading
// that is not known yet (aqi <= 0) so callers render a loading state.
package impact

// Divisors for the daily impact widget.
const (
	AQIPerCigarette = 22
	AQIPerHourLost  = 180
)

// Cigarettes returns the cigarette equivalent of a day in this air.
func Cigarettes(aqi int) (int, bool) {
	if aqi <= 0 {
		return 0, false
	}
	return aqi / AQIPerCigarette, true
}

// HoursLost returns the hours of life expectancy lost per day.
func HoursLost(aqi int) (int, bool) {
	if aqi <= 0 {
		return 0, false
	}
	return aqi / AQIPerHourLost, true
}

// Colors used by the gauges and tables.
const (
	ColorRed    = "red"
	ColorOrange = "orange"
	ColorYellow = "yellow"
	ColorGreen  = "green"
)

// Danger returns the toxicity gauge color. The gauge never shows green.
func Danger(aqi int) (string, bool) {
	if aqi <= 0 {
		return "", false
	}
	switch {
	case aqi > 300:
		return ColorRed, true
	case aqi > 200:
		return ColorOrange, true
	default:
		return ColorYellow, true
	}
}

// TableColor returns the ranking table color for an AQI.
func TableColor(aqi int) string {
	switch {
	case aqi > 300:
		return ColorRed
	case aqi > 200:
		return ColorOrange
	case aqi > 100:
		return ColorYellow
	default:
		return ColorGreen
	}
}

// Category returns the US EPA band name for an AQI.
func Category(aqi int) (string, bool) {
	if aqi <= 0 {
		return "", false
	}
	switch {
	case aqi <= 50:
		return "Good", true
	case aqi <= 100:
		return "Moderate", true
	case aqi <= 150:
		return "Unhealthy for Sensitive Groups", true
	case aqi <= 200:
		return "Unhealthy", true
	case aqi <= 300:
		return "Very Unhealthy", true
	default:
		return "Hazardous", true
	}
}

// Daily is the daily impact widget.
type Daily struct {
	AQI        int    `json:"aqi"`
	Cigarettes int    `json:"cigarettes"`
	HoursLost  int    `json:"hoursLost"`
	Danger     string `json:"danger"`
	Category   string `json:"category"`
}

// DailyImpact bundles the per-day figures for an AQI.
func DailyImpact(aqi int) (Daily, bool) {
	if aqi <= 0 {
		return Daily{}, false
	}
	cigs, _ := Cigarettes(aqi)
	hours, _ := HoursLost(aqi)
	danger, _ := Danger(aqi)
	category, _ := Category(aqi)
	return Daily{
		AQI:        aqi,
		Cigarettes: cigs,
		HoursLost:  hours,
		Danger:     danger,
		Category:   category,
	}, true
}
