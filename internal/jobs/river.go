// Package jobs schedules the periodic federation import (spec C12)
// through river, following the teacher's queue/retry-policy shape in
// internal/jobs.
package jobs

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

const JobKindImportAll = "import_all"

const ImportMaxAttempts = 3

// NewClientConfig builds the river client configuration: the default
// queue with one worker, since the importer serializes its own
// per-root work and a second concurrent run would race the same root
// server rows (spec §4.4: "per root, in one transaction").
func NewClientConfig(workers *river.Workers, logger *slog.Logger, periodicJobs []*river.PeriodicJob) *river.Config {
	cfg := &river.Config{
		Workers:      workers,
		MaxAttempts:  ImportMaxAttempts,
		PeriodicJobs: periodicJobs,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 1},
		},
	}
	if logger != nil {
		cfg.Logger = logger
	}
	return cfg
}

// NewClient creates a river client using pgx v5, mirroring the teacher's
// riverpgxv5-backed construction.
func NewClient(pool *pgxpool.Pool, workers *river.Workers, logger *slog.Logger, periodicJobs []*river.PeriodicJob) (*river.Client[pgx.Tx], error) {
	return river.NewClient(riverpgxv5.New(pool), NewClientConfig(workers, logger, periodicJobs))
}

// NewPeriodicJobs schedules ImportAllArgs on the configured import
// interval (spec C12, §6.2: "runs on a configurable interval").
func NewPeriodicJobs(interval time.Duration) []*river.PeriodicJob {
	if interval <= 0 {
		interval = time.Hour
	}
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return ImportAllArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}
