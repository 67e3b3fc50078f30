package scheduler

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

type fakeSweeper struct {
	calls chan time.Time
}

func (f *fakeSweeper) Sweep(now time.Time) int {
	f.calls <- now
	return 2
}

type fakeCleaner struct {
	calls chan time.Time
	err   error
}

func (f *fakeCleaner) CleanupExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	f.calls <- now
	return 1, f.err
}

func TestNewRegistersJobs(t *testing.T) {
	s, err := New(&fakeSweeper{calls: make(chan time.Time, 1)}, &fakeCleaner{calls: make(chan time.Time, 1)}, time.Minute)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { _ = s.Shutdown() })

	names := s.Jobs()
	sort.Strings(names)
	if len(names) != 2 || names[0] != cleanupJobName || names[1] != sweepJobName {
		t.Fatalf("unexpected jobs: %v", names)
	}
}

func TestNewWithoutSnapshotsSchedulesSweepOnly(t *testing.T) {
	s, err := New(&fakeSweeper{calls: make(chan time.Time, 1)}, nil, time.Minute)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { _ = s.Shutdown() })
	if names := s.Jobs(); len(names) != 1 || names[0] != sweepJobName {
		t.Fatalf("unexpected jobs: %v", names)
	}
}

func TestRunNowExecutesJobs(t *testing.T) {
	sweeper := &fakeSweeper{calls: make(chan time.Time, 4)}
	cleaner := &fakeCleaner{calls: make(chan time.Time, 4), err: errors.New("db down")}
	s, err := New(sweeper, cleaner, time.Hour)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	s.Start()
	t.Cleanup(func() { _ = s.Shutdown() })

	if err := s.RunNow(); err != nil {
		t.Fatalf("RunNow returned error: %v", err)
	}
	for name, ch := range map[string]chan time.Time{"sweep": sweeper.calls, "cleanup": cleaner.calls} {
		select {
		case now := <-ch:
			if now.Location() != time.UTC {
				t.Fatalf("%s job expected UTC time, got %s", name, now.Location())
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s job did not run", name)
		}
	}
}

func TestSweepSessionsDirect(t *testing.T) {
	sweeper := &fakeSweeper{calls: make(chan time.Time, 1)}
	fixed := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	s := &Scheduler{sessions: sweeper, now: func() time.Time { return fixed }}
	s.SweepSessions()
	if got := <-sweeper.calls; !got.Equal(fixed) {
		t.Fatalf("expected sweep at %s, got %s", fixed, got)
	}
	s.CleanupSnapshots()
}
