package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/efs-sdk/accessmanager/internal/metrics"
)

// RunnableTask is a registered task together with the state of its runs.
type RunnableTask struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Handler  TaskFunc

	registeredAt time.Time

	mu           sync.RWMutex
	running      bool
	lastRun      time.Time
	lastResult   string
	lastDuration time.Duration
	runs         int
	failures     int
	logs         []LogEntry
}

// begin marks the task as running and resets the log of the previous run.
// It reports false if a run is still in progress.
func (t *RunnableTask) begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return false
	}
	t.running = true
	t.logs = t.logs[:0]
	return true
}

func (t *RunnableTask) finish(started time.Time, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.running = false
	t.lastRun = started
	t.lastDuration = time.Since(started)
	t.runs++

	result := "success"
	if err != nil {
		t.failures++
		t.lastResult = fmt.Sprintf("failed: %v", err)
		result = "failed"
	} else {
		t.lastResult = "success"
	}
	metrics.TaskRuns.WithLabelValues(t.Name, result).Inc()
}

// Run executes the handler unless a previous run is still in progress.
// The run ends when parent is cancelled or the task's timeout passes.
func (t *RunnableTask) Run(parent context.Context) {
	l := log.With().Str("task", t.Name).Logger()
	if !t.begin() {
		l.Warn().Msg("task is already running, skipping execution")
		return
	}

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	logger := NewCompositeLogger(t, l)
	logger.Debug("starting task execution")

	started := time.Now()
	err := t.Handler(ctx, logger)
	t.finish(started, err)

	if err != nil {
		logger.Error("task failed after %s: %v", time.Since(started), err)
		return
	}
	logger.Debug("task completed in %s", time.Since(started))
}

func (t *RunnableTask) Status() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var next time.Time
	if t.Interval > 0 {
		next = t.registeredAt.Add(t.Interval)
		if !t.lastRun.IsZero() {
			next = t.lastRun.Add(t.Interval)
		}
	}

	return TaskStatus{
		Name:         t.Name,
		Interval:     t.Interval.String(),
		Running:      t.running,
		Runs:         t.runs,
		Failures:     t.failures,
		LastRun:      t.lastRun,
		LastResult:   t.lastResult,
		LastDuration: t.lastDuration.String(),
		NextRun:      next,
	}
}

func (t *RunnableTask) GetLogs() []LogEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cpy := make([]LogEntry, len(t.logs))
	copy(cpy, t.logs)
	return cpy
}

// AppendLog keeps at most MaxLogsPerTask lines of the current run.
func (t *RunnableTask) AppendLog(level, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.logs) >= MaxLogsPerTask {
		t.logs = append(t.logs[:0], t.logs[1:]...)
	}
	t.logs = append(t.logs, LogEntry{
		Time:    time.Now(),
		Level:   level,
		Message: msg,
	})
}
