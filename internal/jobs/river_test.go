package jobs

import (
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/stretchr/testify/require"
)

func TestNewClientConfigUsesSingleWorkerImportQueue(t *testing.T) {
	workers := river.NewWorkers()
	cfg := NewClientConfig(workers, nil, nil)

	require.Equal(t, ImportMaxAttempts, cfg.MaxAttempts)
	require.Equal(t, 1, cfg.Queues[river.QueueDefault].MaxWorkers)
}

func TestNewPeriodicJobsDefaultsNonPositiveIntervalToOneHour(t *testing.T) {
	jobs := NewPeriodicJobs(0)
	require.Len(t, jobs, 1)

	jobs = NewPeriodicJobs(-5 * time.Minute)
	require.Len(t, jobs, 1)
}

func TestNewPeriodicJobsSchedulesImportAllArgs(t *testing.T) {
	jobs := NewPeriodicJobs(30 * time.Minute)
	require.Len(t, jobs, 1)
}
