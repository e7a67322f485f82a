package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time      { return c.t }
func (c *clock) add(d time.Duration) { c.t = c.t.Add(d) }

func newTestScheduler() (*Scheduler, *clock) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := New(time.Millisecond)
	s.now = c.now
	return s, c
}

func TestRunDue(t *testing.T) {
	s, c := newTestScheduler()
	ctx := context.Background()

	var backups, sweeps int
	s.Every("backup", time.Hour, func(context.Context) error { backups++; return nil })
	s.Every("sweep", time.Minute, func(context.Context) error { sweeps++; return nil })

	assert.Empty(t, s.RunDue(ctx))

	c.add(time.Minute)
	assert.Equal(t, []string{"sweep"}, s.RunDue(ctx))
	assert.Empty(t, s.RunDue(ctx))

	c.add(59 * time.Minute)
	assert.Equal(t, []string{"backup", "sweep"}, s.RunDue(ctx))
	assert.Equal(t, 1, backups)
	assert.Equal(t, 2, sweeps)
}

func TestReschedule(t *testing.T) {
	s, c := newTestScheduler()
	ctx := context.Background()

	var runs int
	s.Every("backup", 0, func(context.Context) error { runs++; return nil })

	c.add(24 * time.Hour)
	assert.Empty(t, s.RunDue(ctx))

	require.NoError(t, s.Reschedule("backup", 30*time.Minute))
	d, ok := s.Interval("backup")
	require.True(t, ok)
	assert.Equal(t, 30*time.Minute, d)

	c.add(30 * time.Minute)
	s.RunDue(ctx)
	assert.Equal(t, 1, runs)

	require.NoError(t, s.Reschedule("backup", 0))
	c.add(time.Hour)
	s.RunDue(ctx)
	assert.Equal(t, 1, runs)

	assert.Error(t, s.Reschedule("missing", time.Minute))
}

func TestFailingJobsDoNotStopOthers(t *testing.T) {
	s, c := newTestScheduler()
	ctx := context.Background()

	var ok int
	s.Every("panics", time.Minute, func(context.Context) error { panic("boom") })
	s.Every("fails", time.Minute, func(context.Context) error { return errors.New("nope") })
	s.Every("ok", time.Minute, func(context.Context) error { ok++; return nil })

	c.add(time.Minute)
	assert.Len(t, s.RunDue(ctx), 3)
	assert.Equal(t, 1, ok)

	c.add(time.Minute)
	s.RunDue(ctx)
	assert.Equal(t, 2, ok)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(time.Millisecond)
	var runs atomic.Int32
	s.Every("fast", time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
