package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"git.home.luguber.info/inful/bridgewatch/internal/logfields"
)

// Scheduler wraps a gocron scheduler and runs the one-shot jobs the
// connection supervisor asks for.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start(_ context.Context) {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop shuts the scheduler down. Pending jobs never fire afterwards.
func (s *Scheduler) Stop(_ context.Context) error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleOnce runs fn once after delay and returns the job ID.
func (s *Scheduler) ScheduleOnce(name string, delay time.Duration, fn func()) (string, error) {
	start := gocron.OneTimeJobStartImmediately()
	if delay > 0 {
		start = gocron.OneTimeJobStartDateTime(time.Now().Add(delay))
	}
	job, err := s.scheduler.NewJob(
		gocron.OneTimeJob(start),
		gocron.NewTask(fn),
		gocron.WithName(name),
	)
	if err != nil {
		return "", fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	slog.Debug("Scheduled one-shot job",
		logfields.JobID(job.ID().String()), slog.String("name", name), logfields.Duration(delay))
	return job.ID().String(), nil
}

// Cancel removes a job. Jobs that already ran are gone and are ignored.
func (s *Scheduler) Cancel(jobID string) {
	id, err := uuid.Parse(jobID)
	if err != nil {
		slog.Warn("Ignoring cancel for malformed job ID", logfields.JobID(jobID), logfields.Error(err))
		return
	}
	if err := s.scheduler.RemoveJob(id); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		slog.Warn("Failed to cancel job", logfields.JobID(jobID), logfields.Error(err))
	}
}

// Pending reports how many jobs are scheduled.
func (s *Scheduler) Pending() int {
	return len(s.scheduler.Jobs())
}
