// Package featureflags switches page sections and the location strategy at
// runtime without a redeploy.
package featureflags

import (
	"strconv"
	"time"
)

// Flag keys.
const (
	FlagEnableLocationSearch = "enable_location_search"
	FlagUseReverseGeocode    = "use_reverse_geocode"
	FlagEnableCityTable      = "enable_city_table"
	FlagEnableCoalMap        = "enable_coal_map"

	// FlagDisableLiveLookup stops every live WAQI call from the API. The
	// page then resolves positions through the city snapshot only.
	FlagDisableLiveLookup = "disable_live_lookup"
)

// Definition describes a flag the service understands. All flags are
// boolean.
type Definition struct {
	Key         string
	Description string
	Default     bool
}

var definitions = []Definition{
	{FlagDisableLiveLookup, "Stop live WAQI lookups and serve positions from the city snapshot", false},
	{FlagEnableCityTable, "Show the ranked city table", true},
	{FlagEnableCoalMap, "Show the coal plant section", true},
	{FlagEnableLocationSearch, "Offer search by place name", true},
	{FlagUseReverseGeocode, "Resolve positions through the geocoder and the city snapshot", false},
}

// Definitions returns every known flag ordered by key.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup returns the definition for key.
func Lookup(key string) (Definition, bool) {
	for _, d := range definitions {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}

// Flag is a stored flag value. Value holds whatever JSON decoded, so reads
// go through BoolValue.
type Flag struct {
	Key         string    `json:"key"`
	Value       any       `json:"value"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FlagList is the admin listing.
type FlagList struct {
	Items []Flag `json:"items"`
}

// FlagUpdate sets one flag.
type FlagUpdate struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// FlagUpdateRequest is the body of the admin update. Reason is required
// and ends up in the audit log.
type FlagUpdateRequest struct {
	Updates []FlagUpdate `json:"updates"`
	Reason  string       `json:"reason"`
}

// BoolValue reads the flag as a boolean. Numbers are true when non-zero and
// strings are parsed with strconv.ParseBool; anything else, or a nil flag,
// yields fallback.
func (f *Flag) BoolValue(fallback bool) bool {
	if f == nil {
		return fallback
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// DefaultFlags returns a fresh map of every flag at its default.
func DefaultFlags() map[string]*Flag {
	now := time.Now()
	out := make(map[string]*Flag, len(definitions))
	for _, d := range definitions {
		out[d.Key] = &Flag{Key: d.Key, Value: d.Default, Description: d.Description, UpdatedAt: now}
	}
	return out
}
