// Package scheduler runs the periodic housekeeping jobs: evicting idle
// sessions from memory and deleting expired session snapshots.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/smith3v/memory-pairs/pkg/logger"
)

const (
	sweepJobName   = "sweep-idle-sessions"
	cleanupJobName = "cleanup-expired-snapshots"
	cleanupTimeout = 30 * time.Second
)

// SessionSweeper evicts idle in-memory sessions.
type SessionSweeper interface {
	Sweep(now time.Time) int
}

// SnapshotCleaner deletes expired persisted snapshots.
type SnapshotCleaner interface {
	CleanupExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type Scheduler struct {
	cron      gocron.Scheduler
	sessions  SessionSweeper
	snapshots SnapshotCleaner
	now       func() time.Time
}

// New registers both jobs at the given interval. snapshots may be nil when
// sessions are not persisted.
func New(sessions SessionSweeper, snapshots SnapshotCleaner, interval time.Duration) (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	s := &Scheduler{
		cron:      cron,
		sessions:  sessions,
		snapshots: snapshots,
		now:       func() time.Time { return time.Now().UTC() },
	}

	if _, err := cron.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.SweepSessions),
		gocron.WithName(sweepJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, fmt.Errorf("schedule %s: %w", sweepJobName, err)
	}
	if snapshots != nil {
		if _, err := cron.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(s.CleanupSnapshots),
			gocron.WithName(cleanupJobName),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return nil, fmt.Errorf("schedule %s: %w", cleanupJobName, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("scheduler started", "jobs", len(s.cron.Jobs()))
}

func (s *Scheduler) Shutdown() error {
	return s.cron.Shutdown()
}

// Jobs lists the registered job names.
func (s *Scheduler) Jobs() []string {
	jobs := s.cron.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}

// RunNow triggers every job immediately on the running scheduler.
func (s *Scheduler) RunNow() error {
	for _, j := range s.cron.Jobs() {
		if err := j.RunNow(); err != nil {
			return fmt.Errorf("run %s: %w", j.Name(), err)
		}
	}
	return nil
}

func (s *Scheduler) SweepSessions() {
	if s.sessions == nil {
		return
	}
	if removed := s.sessions.Sweep(s.now()); removed > 0 {
		logger.Info("evicted idle sessions", "count", removed)
	}
}

func (s *Scheduler) CleanupSnapshots() {
	if s.snapshots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	deleted, err := s.snapshots.CleanupExpiredSessions(ctx, s.now())
	if err != nil {
		logger.Error("failed to cleanup expired session snapshots", "error", err)
		return
	}
	if deleted > 0 {
		logger.Info("deleted expired session snapshots", "count", deleted)
	}
}
