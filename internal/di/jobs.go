// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/aristath/stockledger/internal/clientdata"
	"github.com/aristath/stockledger/internal/config"
	"github.com/aristath/stockledger/internal/scheduler"
	"github.com/rs/zerolog"
)

// walCheckpointSchedule runs the WAL check every hour at minute 30
const walCheckpointSchedule = "0 30 * * * *"

// RegisterJobs creates the scheduler and registers maintenance jobs.
// Returns JobInstances for manual triggering via API.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	container.Scheduler = scheduler.New(log)
	instances := &JobInstances{
		CacheCleanup:  clientdata.NewCleanupJob(container.CacheRepo, log),
		WALCheckpoint: scheduler.NewWALCheckpointJob(log, container.CacheDB),
	}

	if err := container.Scheduler.AddJob(cfg.CacheCleanupSchedule, instances.CacheCleanup); err != nil {
		return nil, fmt.Errorf("failed to register cache cleanup job: %w", err)
	}
	if err := container.Scheduler.AddJob(walCheckpointSchedule, instances.WALCheckpoint); err != nil {
		return nil, fmt.Errorf("failed to register WAL checkpoint job: %w", err)
	}

	log.Info().Strs("jobs", container.Scheduler.Jobs()).Msg("Jobs registered")

	return instances, nil
}
