package scheduler

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketintel/internal/database"
)

type countingJob struct {
	mu    sync.Mutex
	runs  int
	err   error
	block chan struct{}
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run() error {
	j.mu.Lock()
	j.runs++
	j.mu.Unlock()
	if j.block != nil {
		<-j.block
	}
	return j.err
}

func (j *countingJob) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

func TestAddJob_AcceptsFiveAndSixFieldSchedules(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}

	assert.NoError(t, s.AddJob("0 30 6 * * MON-FRI", job))
	assert.NoError(t, s.AddJob("0 3 * * *", job))
	assert.NoError(t, s.AddJob("@every 1h", job))
	assert.Error(t, s.AddJob("not a schedule", job))
	assert.Len(t, s.cron.Entries(), 3)
}

func TestRunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("boom")}

	assert.EqualError(t, s.RunNow(job), "boom")
	assert.Equal(t, 1, job.count())
}

func TestScheduledJob_SkipsOverlappingRuns(t *testing.T) {
	var buf bytes.Buffer
	s := New(zerolog.New(&buf))
	job := &countingJob{block: make(chan struct{})}
	require.NoError(t, s.AddJob("@every 1h", job))

	entries := s.cron.Entries()
	require.Len(t, entries, 1)
	tick := entries[0].WrappedJob

	done := make(chan struct{})
	go func() {
		tick.Run()
		close(done)
	}()
	require.Eventually(t, func() bool { return job.count() == 1 }, time.Second, 5*time.Millisecond)

	tick.Run()
	assert.Equal(t, 1, job.count(), "second tick is skipped while the first is running")
	assert.Contains(t, buf.String(), `"message":"skip"`)
	assert.Contains(t, buf.String(), `"component":"scheduler"`)

	close(job.block)
	<-done

	job.block = nil
	tick.Run()
	assert.Equal(t, 2, job.count())
}

type panickingJob struct {
	runs int
}

func (j *panickingJob) Name() string { return "panicking" }

func (j *panickingJob) Run() error {
	j.runs++
	panic("boom")
}

func TestScheduledJob_RecoversFromPanic(t *testing.T) {
	var buf bytes.Buffer
	s := New(zerolog.New(&buf))
	job := &panickingJob{}
	require.NoError(t, s.AddJob("@every 1h", job))
	tick := s.cron.Entries()[0].WrappedJob

	assert.NotPanics(t, tick.Run)
	assert.NotPanics(t, tick.Run)
	assert.Equal(t, 2, job.runs, "a panicking run does not block later ticks")
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestStartStop(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	require.Eventually(t, func() bool { return job.count() > 0 }, 3*time.Second, 5*time.Millisecond)
	s.Stop()
}

type failingChecker struct{}

func (failingChecker) HealthCheck(context.Context) error { return errors.New("disk I/O error") }
func (failingChecker) Name() string                      { return "broken" }

func TestHealthCheckJob(t *testing.T) {
	db, err := database.New(database.Config{
		URL:  "sqlite://" + filepath.Join(t.TempDir(), "intel.db"),
		Name: "intel",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	job := NewHealthCheckJob(zerolog.Nop(), db)
	assert.Equal(t, "health_check", job.Name())
	assert.NoError(t, job.Run())

	job = NewHealthCheckJob(zerolog.Nop(), db, failingChecker{})
	err = job.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database broken is unhealthy")
}
