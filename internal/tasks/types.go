package tasks

import (
	"context"
	"time"

	"github.com/efs-sdk/accessmanager/internal/logging"
)

// TaskFunc is the unit of work. Whatever it logs through logger is kept
// with the task and served by the admin api.
type TaskFunc func(ctx context.Context, logger logging.InternalLogger) error

type TaskStatus struct {
	Name         string    `json:"name,omitempty"`
	Interval     string    `json:"interval,omitempty"`
	Running      bool      `json:"running,omitempty"`
	Runs         int       `json:"runs"`
	Failures     int       `json:"failures"`
	LastRun      time.Time `json:"last_run"`
	LastResult   string    `json:"last_result,omitempty"`
	LastDuration string    `json:"last_duration,omitempty"`
	NextRun      time.Time `json:"next_run"`
}

type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level,omitempty"`
	Message string    `json:"message,omitempty"`
}
