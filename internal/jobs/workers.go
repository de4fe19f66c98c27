package jobs

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"
	"github.com/rs/zerolog"

	"github.com/bmlt-enabled/tomato/internal/config"
	"github.com/bmlt-enabled/tomato/internal/geoindex"
	"github.com/bmlt-enabled/tomato/internal/importer"
	"github.com/bmlt-enabled/tomato/internal/metrics"
	"github.com/bmlt-enabled/tomato/internal/store/postgres"
)

// ImportAllArgs triggers a full federation import run (spec C12).
type ImportAllArgs struct{}

func (ImportAllArgs) Kind() string { return JobKindImportAll }

// ImportAllWorker runs the importer's RunAll against every configured
// root server and rebuilds the geospatial index from the result, the
// same two steps cmd/server/cmd's standalone "import" command runs
// directly.
type ImportAllWorker struct {
	river.WorkerDefaults[ImportAllArgs]
	Repo    *postgres.Repository
	GeoIdx  *geoindex.Index
	Fetcher importer.Fetcher
	Config  config.ImportConfig
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

func (ImportAllWorker) Kind() string { return JobKindImportAll }

func (w ImportAllWorker) Work(ctx context.Context, job *river.Job[ImportAllArgs]) error {
	if w.Repo == nil {
		return fmt.Errorf("repository not configured")
	}

	logger := w.Logger
	logger.Info().Int("attempt", job.Attempt).Msg("starting federation import")

	orch := importer.NewOrchestrator(w.Fetcher, w.Config, logger).WithMetrics(w.Metrics)
	if err := orch.RunAll(ctx, w.Repo, w.GeoIdx); err != nil {
		logger.Error().Err(err).Msg("federation import failed")
		return fmt.Errorf("run import: %w", err)
	}

	logger.Info().Msg("federation import completed")
	return nil
}

// NewWorkers registers every river worker Tomato runs.
func NewWorkers(repo *postgres.Repository, geoIdx *geoindex.Index, fetcher importer.Fetcher, cfg config.ImportConfig, logger zerolog.Logger, m *metrics.Metrics) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker[ImportAllArgs](workers, ImportAllWorker{
		Repo:    repo,
		GeoIdx:  geoIdx,
		Fetcher: fetcher,
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
	})
	return workers
}
