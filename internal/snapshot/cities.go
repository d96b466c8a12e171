// Package snapshot builds and serves the precomputed city air quality and
// coal power plant documents.
package snapshot

import (
	"regexp"
	"strings"
)

// Document names as written to the public directory or the snapshots table.
const (
	AirDataName    = "air-data.json"
	AirTableName   = "air-table.json"
	CoalPlantsName = "coal-plants.json"
)

var cityList = []string{
	// Metros
	"delhi", "mumbai", "bangalore", "chennai", "kolkata", "hyderabad", "pune", "ahmedabad",

	// State capitals
	"lucknow", "jaipur", "bhopal", "patna", "raipur", "bhubaneswar", "gandhinagar",
	"chandigarh", "thiruvananthapuram", "ranchi", "guwahati", "itanagar", "dispur",
	"imphal", "shillong", "aizawl", "kohima", "gangtok", "agartala", "dehradun",
	"shimla", "panaji",

	// Other major cities
	"surat", "kanpur", "nagpur", "indore", "thane", "visakhapatnam", "pimpri-chinchwad",
	"vadodara", "ludhiana", "agra", "nashik", "faridabad", "meerut", "rajkot",
	"kalyan-dombivali", "vasai-virar", "varanasi", "srinagar", "aurangabad", "dhanbad",
	"amritsar", "navi-mumbai", "allahabad", "ranchi", "howrah", "coimbatore",
	"jabalpur", "gwalior", "vijayawada", "jodhpur",
}

// DefaultCities returns the cities fetched by the snapshot job, in order
// and without duplicates.
func DefaultCities() []string {
	return Dedupe(cityList)
}

// Dedupe removes repeated keys, keeping the first occurrence.
func Dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// CityKey turns a display name such as "New Delhi" into "new-delhi".
func CityKey(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}
