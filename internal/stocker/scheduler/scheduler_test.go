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

func TestParseSchedule(t *testing.T) {
	base := time.Date(2024, 3, 5, 7, 30, 0, 0, time.UTC)

	s, err := ParseSchedule("6h")
	require.NoError(t, err)
	assert.Equal(t, base.Add(6*time.Hour), s.Next(base))

	s, err = ParseSchedule("@every 30m")
	require.NoError(t, err)
	assert.Equal(t, base.Add(30*time.Minute), s.Next(base))

	s, err = ParseSchedule("CRON_TZ=UTC 0 8 * * *")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC), s.Next(base))

	s, err = ParseSchedule("CRON_TZ=UTC @daily")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), s.Next(base))

	for _, bad := range []string{"", "-1h", "0s", "not a schedule", "61 * * * *"} {
		_, err := ParseSchedule(bad)
		assert.Error(t, err, bad)
	}

	_, err = ParseSchedule("0 0 30 2 *")
	assert.ErrorIs(t, err, ErrNoActivation)
}

type never struct{}

func (never) Next(time.Time) time.Time { return time.Time{} }

func TestStart_ScheduleWithoutActivationEnds(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32
	s.Add(Job{Name: "search", Fn: func(context.Context) error {
		runs.Add(1)
		return nil
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := s.Start(ctx, never{})
	require.ErrorIs(t, err, ErrNoActivation)
	assert.Equal(t, int32(1), runs.Load())
	assert.NoError(t, ctx.Err())
}

func TestRunOnce_StopsAtFirstError(t *testing.T) {
	s := NewScheduler()
	var calls []string
	s.Add(Job{Name: "a", Fn: func(context.Context) error { calls = append(calls, "a"); return nil }})
	s.Add(Job{Name: "b", Fn: func(context.Context) error { calls = append(calls, "b"); return errors.New("boom") }})
	s.Add(Job{Name: "c", Fn: func(context.Context) error { calls = append(calls, "c"); return nil }})

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job b")
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestStart_RunsRepeatedlyUntilStopped(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32
	s.Add(Job{Name: "tick", Fn: func(context.Context) error {
		runs.Add(1)
		return nil
	}})

	done := make(chan struct{})
	go func() {
		s.Start(context.Background(), Every(10*time.Millisecond))
		close(done)
	}()

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestStart_ContextCancel(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32
	s.Add(Job{Name: "once", Fn: func(context.Context) error {
		runs.Add(1)
		return errors.New("failing jobs keep the loop alive")
	}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx, Every(time.Hour))
		close(done)
	}()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
}
