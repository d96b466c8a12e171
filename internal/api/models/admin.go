package models

// SnapshotReload is the response for the snapshot reload endpoint.
type SnapshotReload struct {
	Documents []SnapshotDocument `json:"documents"`
}

// SnapshotDocument is the cache state of one snapshot document.
type SnapshotDocument struct {
	Name      string     `json:"name"`
	Cached    bool       `json:"cached"`
	FetchedAt *Timestamp `json:"fetchedAt,omitempty"`
	Expired   bool       `json:"expired"`
}
