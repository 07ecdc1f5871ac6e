package scheduler

import (
	"testing"

	testingpkg "github.com/aristath/stockledger/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWALCheckpointJob_Name(t *testing.T) {
	job := NewWALCheckpointJob(zerolog.Nop())
	assert.Equal(t, "wal_checkpoint", job.Name())
}

func TestWALCheckpointJob_Run_NoDatabases(t *testing.T) {
	job := NewWALCheckpointJob(zerolog.Nop(), nil, nil)
	assert.NoError(t, job.Run())
}

func TestWALCheckpointJob_Run(t *testing.T) {
	db := testingpkg.NewTestDB(t, "cache")

	for i := 0; i < 20; i++ {
		_, err := db.Conn().Exec(
			"INSERT OR REPLACE INTO quotes (key, data, expires_at) VALUES (?, ?, ?)",
			"k", []byte{byte(i)}, 0,
		)
		require.NoError(t, err)
	}

	job := NewWALCheckpointJob(zerolog.Nop(), db, nil)
	assert.NoError(t, job.Run())

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM quotes").Scan(&count))
	assert.Equal(t, 1, count)
}
