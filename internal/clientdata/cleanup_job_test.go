package clientdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJobName(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	assert.Equal(t, "market_cache_cleanup", job.Name())
}

func TestCleanupJobRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, zerolog.Nop())

	require.NoError(t, repo.Store(TableQuotes, "A", 1, time.Hour))
	require.NoError(t, repo.Store(TableQuotes, "B", 1, -time.Hour))
	require.NoError(t, repo.Store(TableCloses, "A|2024-01-02", 1.5, -time.Hour))

	require.NoError(t, job.Run())

	counts, err := repo.Counts()
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[TableQuotes])
	assert.Equal(t, int64(0), counts[TableCloses])
}

func TestCleanupJobCleanupReportsCounts(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(TablePriceHistory, "A|1y", 1, -time.Hour))

	results, err := NewCleanupJob(repo, zerolog.Nop()).Cleanup()
	require.NoError(t, err)
	assert.Equal(t, int64(1), results[TablePriceHistory])
	assert.Equal(t, int64(0), results[TableQuotes])
}

func TestCleanupJobRunEmptyTables(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	require.NoError(t, NewCleanupJob(NewRepository(db), zerolog.Nop()).Run())
}

func TestCleanupJobRunMissingTables(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.Exec("DROP TABLE closes")
	require.NoError(t, err)

	assert.Error(t, NewCleanupJob(NewRepository(db), zerolog.Nop()).Run())
}
