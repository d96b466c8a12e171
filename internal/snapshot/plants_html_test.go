package snapshot_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airaware/airaware/internal/snapshot"
)

const samplePlantsHTML = `<!DOCTYPE html>
<html><body>
<table class="infobox"><tr><th>Ignore</th></tr><tr><td>me</td></tr></table>
<table class="wikitable sortable">
<tbody>
<tr>
  <th>Name</th><th>Location</th><th>District</th><th>State</th><th>Region</th>
  <th>Coordinates</th><th>Unit capacities</th><th>Capacity<br/>(MW)</th><th>Operator</th><th>Sector</th>
</tr>
<tr>
  <td><a href="/wiki/Talcher">Talcher Super Thermal Power Station</a><sup>[7]</sup></td>
  <td>Kaniha</td><td>Angul</td><td>Odisha</td><td>Eastern</td>
  <td><span>20°54′02″N 85°12′34″E</span></td>
  <td>6 x 500</td><td>3,000</td><td>NTPC</td><td>Central</td>
</tr>
<tr>
  <td>Old Plant</td><td>X</td><td>Y</td><td>Delhi</td><td>Northern</td><td></td>
  <td>2 x 100$</td><td>200</td><td>IPGCL</td><td>State</td>
</tr>
</tbody>
</table>
</body></html>`

func TestParsePlantsHTML(t *testing.T) {
	report, err := snapshot.ParsePlantsHTML(strings.NewReader(samplePlantsHTML), updated)
	require.NoError(t, err)

	require.Len(t, report.PowerStations, 1)
	station := report.PowerStations[0]
	assert.Equal(t, "Talcher Super Thermal Power Station", station.Name)
	assert.Equal(t, "Angul", station.Location.District)
	require.NotNil(t, station.Location.Coordinates)
	assert.InDelta(t, 20.900556, station.Location.Coordinates.Latitude, 1e-9)
	assert.InDelta(t, 3000, station.Technical.CapacityMW, 1e-9)
	assert.Equal(t, []string{"Eastern"}, report.Metadata.Regions)
}

func TestParsePlantsHTML_NoTable(t *testing.T) {
	_, err := snapshot.ParsePlantsHTML(strings.NewReader("<html><body><p>nothing</p></body></html>"), updated)
	assert.Error(t, err)
}
