package impact

// Reference readings for the lung comparison.
const (
	ProtectedAQI = 10
	ExposedAQI   = 400
)

// Lung describes one lung drawing.
type Lung struct {
	AQI         int     `json:"aqi"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
	Particles   int     `json:"particles"`
	Clean       bool    `json:"clean"`
	BaseOpacity float64 `json:"baseOpacity"`
	Severe      bool    `json:"severe"`
}

// NewLung computes the drawing parameters for an AQI.
func NewLung(aqi int, label, description string) Lung {
	opacity := 0.7
	if aqi == ProtectedAQI {
		opacity = 0.3
	}
	return Lung{
		AQI:         aqi,
		Label:       label,
		Description: description,
		Particles:   aqi * 3 / 2,
		Clean:       aqi <= ProtectedAQI,
		BaseOpacity: opacity,
		Severe:      aqi > 200,
	}
}

// LungComparison returns the protected and exposed lungs.
func LungComparison() []Lung {
	return []Lung{
		NewLung(ProtectedAQI, "Protected", "With protection"),
		NewLung(ExposedAQI, "Exposed", "Without protection"),
	}
}

// Lungs returns the drawing for the current reading.
func Lungs(aqi int) (Lung, bool) {
	if aqi <= 0 {
		return Lung{}, false
	}
	return NewLung(aqi, "Your lungs today", "At the current air quality"), true
}
