package worker_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airaware/airaware/internal/worker"
)

func newDispatcher(fetcher worker.FeedFetcher, publisher worker.SnapshotPublisher) *worker.Dispatcher {
	return worker.NewDispatcher(worker.DispatcherConfig{
		RefreshConfig: worker.RefreshConfig{
			Cities:      []string{"delhi", "mumbai"},
			Concurrency: 2,
			Timeout:     time.Second,
		},
		Fetcher:   fetcher,
		Publisher: publisher,
		Logger:    zerolog.Nop(),
	})
}

func TestDispatch_SnapshotRefresh(t *testing.T) {
	fetcher := &mockFetcher{}
	publisher := &mockPublisher{}
	d := newDispatcher(fetcher, publisher)

	err := d.Dispatch(context.Background(), worker.JobMessage{JobType: worker.JobSnapshotRefresh})
	require.NoError(t, err)

	require.Len(t, publisher.airData, 1)
	assert.Len(t, publisher.airData[0].Cities, 2)
	assert.Equal(t, int64(1), d.RefreshJob().GetMetrics().Publishes)
}

func TestDispatch_SnapshotRefreshCityOverride(t *testing.T) {
	fetcher := &mockFetcher{}
	publisher := &mockPublisher{}
	d := newDispatcher(fetcher, publisher)

	err := d.Dispatch(context.Background(), worker.JobMessage{
		JobType: worker.JobSnapshotRefresh,
		Cities:  []string{"kanpur"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"kanpur"}, fetcher.targets)
	require.Len(t, publisher.airData, 1)
	_, ok := publisher.airData[0].Lookup("kanpur")
	assert.True(t, ok)
}

func TestDispatch_SnapshotRefreshCheckOnly(t *testing.T) {
	publisher := &mockPublisher{}
	d := newDispatcher(&mockFetcher{}, publisher)

	err := d.Dispatch(context.Background(), worker.JobMessage{JobType: worker.JobSnapshotRefresh, CheckOnly: true})
	require.NoError(t, err)
	assert.Empty(t, publisher.airData)
}

func TestDispatch_SnapshotRefreshTooManyFailures(t *testing.T) {
	fetcher := &mockFetcher{failFor: map[string]error{
		"delhi":  errors.New("boom"),
		"mumbai": errors.New("boom"),
	}}
	publisher := &mockPublisher{}
	d := newDispatcher(fetcher, publisher)

	err := d.Dispatch(context.Background(), worker.JobMessage{JobType: worker.JobSnapshotRefresh})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many refresh failures")
	assert.Empty(t, publisher.airData)
}

func TestDispatch_PlantsRefreshEmbedded(t *testing.T) {
	publisher := &mockPublisher{}
	d := newDispatcher(&mockFetcher{}, publisher)

	err := d.Dispatch(context.Background(), worker.JobMessage{JobType: worker.JobPlantsRefresh})
	require.NoError(t, err)

	require.Len(t, publisher.plants, 1)
	assert.Equal(t, 108, publisher.plants[0].Metadata.TotalStations)
}

func TestDispatch_HealthCheck(t *testing.T) {
	fetcher := &mockFetcher{}
	d := newDispatcher(fetcher, &mockPublisher{})

	require.NoError(t, d.Dispatch(context.Background(), worker.JobMessage{JobType: worker.JobHealthCheck}))
	assert.Equal(t, []string{worker.HealthCheckCity}, fetcher.targets)

	failing := newDispatcher(&mockFetcher{failFor: map[string]error{"delhi": errors.New("down")}}, nil)
	err := failing.Dispatch(context.Background(), worker.JobMessage{JobType: worker.JobHealthCheck})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
}

func TestDispatch_UnknownJob(t *testing.T) {
	d := newDispatcher(&mockFetcher{}, &mockPublisher{})

	err := d.Dispatch(context.Background(), worker.JobMessage{JobType: "alert_evaluation"})
	assert.ErrorIs(t, err, worker.ErrUnknownJobType)
}

func TestHandle(t *testing.T) {
	publisher := &mockPublisher{}
	d := newDispatcher(&mockFetcher{}, publisher)
	failing := newDispatcher(&mockFetcher{}, &mockPublisher{err: errors.New("disk full")})
	ctx := context.Background()

	tests := []struct {
		name  string
		d     *worker.Dispatcher
		data  string
		attrs map[string]string
		want  worker.Outcome
	}{
		{"refresh from body", d, `{"job_type":"snapshot_refresh"}`, nil, worker.Ack},
		{"type from attribute", d, ``, map[string]string{"job_type": "health_check"}, worker.Ack},
		{"body wins over attribute", d, `{"job_type":"health_check"}`, map[string]string{"job_type": "nope"}, worker.Ack},
		{"unknown type", d, `{"job_type":"something_else"}`, nil, worker.Ack},
		{"undecodable body", d, `not json`, nil, worker.Ack},
		{"failed job", failing, `{"job_type":"plants_refresh"}`, nil, worker.Nack},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, worker.Handle(ctx, tt.d, []byte(tt.data), tt.attrs, zerolog.Nop()))
		})
	}
	assert.Len(t, publisher.airData, 1, "only the first case publishes")
	assert.Equal(t, "nack", worker.Nack.String())
}

const plantsHTML = `<html><body><table class="wikitable">
<tr><th>Name</th><th>Location</th><th>District</th><th>State</th><th>Region</th><th>Coordinates</th><th>Unit capacities</th><th>Capacity (MW)</th><th>Operator</th><th>Sector</th></tr>
<tr><td>Talcher Super Thermal Power Station</td><td>Kaniha</td><td>Angul</td><td>Odisha</td><td>Eastern</td><td>20°54′02″N 85°12′34″E</td><td>6 x 500</td><td>3,000</td><td>NTPC</td><td>Central</td></tr>
</table></body></html>`

func TestPlantsJob_RunFromHTMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.html")
	require.NoError(t, os.WriteFile(path, []byte(plantsHTML), 0o600))

	publisher := &mockPublisher{}
	job := worker.NewPlantsJob(worker.PlantsJobConfig{
		Publisher: publisher,
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return time.Date(2024, 11, 18, 0, 0, 0, 0, time.UTC) },
	})

	report, err := job.Run(context.Background(), worker.PlantsSource{Path: path, HTML: true})
	require.NoError(t, err)

	require.Len(t, report.PowerStations, 1)
	assert.Equal(t, "Odisha", report.PowerStations[0].Location.State)
	assert.Equal(t, "2024-11-18", report.Metadata.LastUpdated)
	assert.Len(t, publisher.plants, 1)
}

func TestPlantsJob_MissingFile(t *testing.T) {
	job := worker.NewPlantsJob(worker.PlantsJobConfig{Publisher: &mockPublisher{}, Logger: zerolog.Nop()})

	_, err := job.Run(context.Background(), worker.PlantsSource{Path: filepath.Join(t.TempDir(), "missing.tsv")})
	assert.Error(t, err)
}

func TestPlantsJob_NoPublisher(t *testing.T) {
	job := worker.NewPlantsJob(worker.PlantsJobConfig{Logger: zerolog.Nop()})

	_, err := job.Run(context.Background(), worker.PlantsSource{})
	assert.ErrorIs(t, err, worker.ErrNoPublisher)
}

func TestPlantsSource_String(t *testing.T) {
	assert.Equal(t, "embedded", worker.PlantsSource{}.String())
	assert.Equal(t, "tsv:a.tsv", worker.PlantsSource{Path: "a.tsv"}.String())
	assert.Equal(t, "html:a.html", worker.PlantsSource{Path: "a.html", HTML: true}.String())
}
