package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/airaware/airaware/internal/snapshot"
)

// PlantsSource selects the input of a PlantsJob run. The zero value reads
// the embedded station table.
type PlantsSource struct {
	// Path is a TSV or HTML file. Empty means the embedded table.
	Path string

	// HTML parses Path as the scraped wiki page instead of TSV.
	HTML bool
}

func (s PlantsSource) String() string {
	switch {
	case s.Path == "":
		return "embedded"
	case s.HTML:
		return "html:" + s.Path
	default:
		return "tsv:" + s.Path
	}
}

// PlantsJobConfig holds configuration for creating a PlantsJob.
type PlantsJobConfig struct {
	Publisher SnapshotPublisher
	Logger    zerolog.Logger

	// Now stamps the report's lastUpdated. Defaults to time.Now.
	Now func() time.Time
}

// PlantsJob parses the thermal station table and writes coal-plants.json.
type PlantsJob struct {
	publisher SnapshotPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewPlantsJob creates a new plants job.
func NewPlantsJob(cfg PlantsJobConfig) *PlantsJob {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &PlantsJob{
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		now:       now,
	}
}

// Parse reads the source into a report without publishing it.
func (j *PlantsJob) Parse(src PlantsSource) (*snapshot.PlantsReport, error) {
	var r io.Reader
	if src.Path == "" {
		r = snapshot.EmbeddedPlantsTSV()
	} else {
		f, err := os.Open(src.Path)
		if err != nil {
			return nil, fmt.Errorf("opening plants source: %w", err)
		}
		defer f.Close()
		r = f
	}

	lastUpdated := j.now()
	if src.HTML {
		return snapshot.ParsePlantsHTML(r, lastUpdated)
	}
	return snapshot.ParsePlantsTSV(r, lastUpdated)
}

// Run parses the source and publishes the report.
func (j *PlantsJob) Run(ctx context.Context, src PlantsSource) (*snapshot.PlantsReport, error) {
	report, err := j.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parsing plants (%s): %w", src, err)
	}

	if j.publisher == nil {
		return nil, ErrNoPublisher
	}
	if err := j.publisher.PublishPlants(ctx, report); err != nil {
		return nil, fmt.Errorf("publishing plants: %w", err)
	}

	j.logger.Info().
		Str("source", src.String()).
		Int("stations", report.Metadata.TotalStations).
		Int("regions", len(report.Metadata.Regions)).
		Msg("published coal plants snapshot")

	return report, nil
}
