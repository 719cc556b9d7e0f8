package tasks

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/efs-sdk/accessmanager/internal/logging"
)

var _ logging.InternalLogger = taskLog{}

// taskLog appends every line to the log of the task's current run.
type taskLog struct {
	task *RunnableTask
}

func (t taskLog) logf(level, format string, args ...any) {
	t.task.AppendLog(level, fmt.Sprintf(format, args...))
}

func (t taskLog) Debug(format string, args ...any) { t.logf("debug", format, args...) }
func (t taskLog) Info(format string, args ...any)  { t.logf("info", format, args...) }
func (t taskLog) Warn(format string, args ...any)  { t.logf("warn", format, args...) }
func (t taskLog) Error(format string, args ...any) { t.logf("error", format, args...) }

// NewCompositeLogger logs to zerolog and to the task's own log.
func NewCompositeLogger(task *RunnableTask, zlog zerolog.Logger) logging.MultiLogger {
	return logging.NewMultiLogger(
		logging.NewZLogger(zlog),
		taskLog{task: task},
	)
}
