package clientdata

import (
	"github.com/rs/zerolog"
)

// CleanupJob removes expired entries from all cache tables.
// It is scheduled daily and can be triggered over HTTP.
type CleanupJob struct {
	repo *Repository
	log  zerolog.Logger
}

// NewCleanupJob creates a new cache cleanup job.
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo: repo,
		log:  log.With().Str("job", "market_cache_cleanup").Logger(),
	}
}

// Run removes all expired entries and logs per-table counts.
func (j *CleanupJob) Run() error {
	_, err := j.Cleanup()
	return err
}

// Cleanup is Run returning the per-table deletion counts.
func (j *CleanupJob) Cleanup() (map[string]int64, error) {
	results, err := j.repo.DeleteAllExpired()
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired cache entries")
		return nil, err
	}

	var totalDeleted int64
	for table, count := range results {
		if count > 0 {
			j.log.Debug().
				Str("table", table).
				Int64("deleted", count).
				Msg("Cleaned up expired cache entries")
			totalDeleted += count
		}
	}

	j.log.Info().
		Int64("total_deleted", totalDeleted).
		Msg("Market cache cleanup completed")

	return results, nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "market_cache_cleanup"
}
