package models

// Health is the body of the liveness and readiness probes.
type Health struct {
	Status     HealthStatus      `json:"status"`
	Time       Timestamp         `json:"time"`
	Version    string            `json:"version,omitempty"`
	BuildTime  string            `json:"buildTime,omitempty"`
	Subsystems []SubsystemStatus `json:"subsystems,omitempty"`
}

// SystemStatus is the operator view: subsystems, upstream providers, the
// snapshot cache and any degradation flags in force.
type SystemStatus struct {
	Status                 HealthStatus       `json:"status"`
	Time                   Timestamp          `json:"time"`
	Subsystems             []SubsystemStatus  `json:"subsystems"`
	Providers              []ProviderStatus   `json:"providers"`
	Documents              []SnapshotDocument `json:"documents"`
	ActiveDegradationFlags []string           `json:"activeDegradationFlags,omitempty"`
}

// SubsystemStatus is the state of the database or the snapshot store.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// ProviderStatus is the state of WAQI or BigDataCloud.
type ProviderStatus struct {
	Provider      string       `json:"provider"`
	Status        HealthStatus `json:"status"`
	Trips         int          `json:"trips"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	Message       *string      `json:"message,omitempty"`
}
