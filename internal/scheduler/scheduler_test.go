package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name   string
	runs   atomic.Int32
	err    error
	panics bool
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	if j.panics {
		panic("boom")
	}
	return j.err
}

func TestAddJob(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("0 */15 * * * *", &countingJob{name: "cleanup"}))
	require.NoError(t, s.AddJob("@hourly", &countingJob{name: "checkpoint"}))
	assert.Equal(t, []string{"checkpoint", "cleanup"}, s.Jobs())
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("not a schedule", &countingJob{name: "cleanup"})
	assert.Error(t, err)
	assert.Empty(t, s.Jobs())
}

func TestAddJob_Duplicate(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob("@hourly", &countingJob{name: "cleanup"}))
	assert.Error(t, s.AddJob("@daily", &countingJob{name: "cleanup"}))
}

func TestRunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "cleanup"}
	require.NoError(t, s.AddJob("@daily", job))

	require.NoError(t, s.RunNow("cleanup"))
	assert.Equal(t, int32(1), job.runs.Load())
}

func TestRunNow_PropagatesError(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob("@daily", &countingJob{name: "cleanup", err: errors.New("disk full")}))

	assert.EqualError(t, s.RunNow("cleanup"), "disk full")
}

func TestRunNow_UnknownJob(t *testing.T) {
	s := New(zerolog.Nop())
	assert.Error(t, s.RunNow("missing"))
}

func TestScheduledExecution(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "ticker"}
	panicking := &countingJob{name: "panicking", panics: true}

	require.NoError(t, s.AddJob("@every 1s", job))
	require.NoError(t, s.AddJob("@every 1s", panicking))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return job.runs.Load() >= 1 && panicking.runs.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)
}
