// Package scheduler runs stocker jobs repeatedly on an interval or cron
// schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrNoActivation is returned for schedules that never fire, such as
// "0 0 30 2 *".
var ErrNoActivation = errors.New("schedule has no upcoming activation")

// Job represents a scheduled task.
type Job struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Schedule yields the next activation time after t. cron.Schedule
// implements it.
type Schedule interface {
	Next(t time.Time) time.Time
}

type every time.Duration

func (e every) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

// Every returns a fixed-interval schedule.
func Every(d time.Duration) Schedule {
	return every(d)
}

// ParseSchedule accepts a Go duration ("6h"), "@every 6h", a descriptor such
// as "@daily", or a five-field cron expression ("0 8 * * 1-5").
func ParseSchedule(expr string) (Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty schedule")
	}
	if d, err := time.ParseDuration(expr); err == nil {
		if d <= 0 {
			return nil, fmt.Errorf("schedule interval must be positive: %s", expr)
		}
		return Every(d), nil
	}
	s, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	if s.Next(time.Now()).IsZero() {
		return nil, fmt.Errorf("%w: %q", ErrNoActivation, expr)
	}
	return s, nil
}

// Scheduler runs jobs at specified times.
type Scheduler struct {
	jobs   []Job
	logger *slog.Logger
	now    func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a new scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		logger: slog.Default(),
		now:    time.Now,
		done:   make(chan struct{}),
	}
}

// WithLogger replaces the scheduler's logger.
func (s *Scheduler) WithLogger(l *slog.Logger) *Scheduler {
	s.logger = l
	return s
}

// Add registers a job with the scheduler.
func (s *Scheduler) Add(job Job) {
	s.jobs = append(s.jobs, job)
}

// RunOnce executes all registered jobs once, in order. It stops at the first
// failing job.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	for _, job := range s.jobs {
		s.logger.Info("running job", "name", job.Name)
		start := time.Now()
		if err := job.Fn(ctx); err != nil {
			s.logger.Error("job failed", "name", job.Name, "error", err, "duration", time.Since(start))
			return fmt.Errorf("job %s: %w", job.Name, err)
		}
		s.logger.Info("job completed", "name", job.Name, "duration", time.Since(start))
	}
	return nil
}

// Start runs the jobs once immediately and then at every activation of sched
// until ctx is done or Stop is called, returning nil. Job failures are logged
// and do not end the loop. A schedule with no further activation ends it with
// ErrNoActivation.
func (s *Scheduler) Start(ctx context.Context, sched Schedule) error {
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
	_ = s.RunOnce(ctx)

	for {
		now := s.now()
		next := sched.Next(now)
		if next.IsZero() {
			s.logger.Error("schedule has no upcoming activation, stopping")
			return ErrNoActivation
		}
		wait := next.Sub(now)
		if wait < 0 {
			wait = 0
		}
		s.logger.Info("next run scheduled", "at", next.Format(time.RFC3339), "in", wait.Round(time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopped")
			return nil
		case <-s.done:
			timer.Stop()
			s.logger.Info("scheduler stopped")
			return nil
		case <-timer.C:
			_ = s.RunOnce(ctx)
		}
	}
}

// Stop stops the scheduler. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}
