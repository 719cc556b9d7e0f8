package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/efs-sdk/accessmanager/internal/logging"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestManager_Scheduled(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	var runs atomic.Int32
	m.Register("sweep", 10*time.Millisecond, func(ctx context.Context, logger logging.InternalLogger) error {
		runs.Add(1)
		return nil
	})

	waitFor(t, func() bool { return runs.Load() >= 2 })
}

func TestManager_StopEndsSchedule(t *testing.T) {
	m := NewManager()

	var runs atomic.Int32
	m.Register("sweep", 5*time.Millisecond, func(ctx context.Context, logger logging.InternalLogger) error {
		runs.Add(1)
		return nil
	})
	waitFor(t, func() bool { return runs.Load() >= 1 })
	m.Stop()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	if got := runs.Load(); got != after {
		t.Errorf("runs after Stop() = %d, want %d", got, after)
	}
}

func TestManager_TriggerAndLogs(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	m.Register("manual", 0, func(ctx context.Context, logger logging.InternalLogger) error {
		logger.Info("removed %d entries", 3)
		return errors.New("boom")
	})

	if err := m.Trigger("manual"); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}

	waitFor(t, func() bool {
		status := m.ListStatus()
		return len(status) == 1 && !status[0].LastRun.IsZero()
	})

	status := m.ListStatus()
	if got, want := status[0].LastResult, "failed: boom"; got != want {
		t.Errorf("LastResult = %q, want %q", got, want)
	}
	if status[0].Runs != 1 || status[0].Failures != 1 {
		t.Errorf("Runs, Failures = %d, %d, want 1, 1", status[0].Runs, status[0].Failures)
	}
	if !status[0].NextRun.IsZero() {
		t.Errorf("NextRun = %v, want zero for an unscheduled task", status[0].NextRun)
	}

	logs, err := m.GetLogs("manual")
	if err != nil {
		t.Fatalf("GetLogs() error = %v", err)
	}
	found := false
	for _, l := range logs {
		if l.Message == "removed 3 entries" {
			found = true
		}
	}
	if !found {
		t.Errorf("GetLogs() = %v, want an entry with the handler output", logs)
	}
}

func TestManager_UnknownTask(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	var notFound TaskNotFoundError
	if err := m.Trigger("missing"); !errors.As(err, &notFound) {
		t.Errorf("Trigger() error = %v, want TaskNotFoundError", err)
	}
	if _, err := m.GetLogs("missing"); !errors.As(err, &notFound) {
		t.Errorf("GetLogs() error = %v, want TaskNotFoundError", err)
	}
}
