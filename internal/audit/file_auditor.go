package audit

import (
	"encoding/json"
	"fmt"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/efs-sdk/accessmanager/internal/core"
)

// FileAuditor writes audit entries as JSON lines to a size-rotated file.
type FileAuditor struct {
	mu      sync.Mutex
	out     *lumberjack.Logger
	encoder *json.Encoder
}

func NewFileAuditor(filePath string, maxSizeMB, maxBackups int) (*FileAuditor, error) {
	if filePath == "" {
		return nil, fmt.Errorf("audit log file path is empty")
	}
	out := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   true,
	}
	return &FileAuditor{
		out:     out,
		encoder: json.NewEncoder(out),
	}, nil
}

func (f *FileAuditor) Log(entry core.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.encoder.Encode(entry); err != nil {
		return fmt.Errorf("writing audit log entry: %w", err)
	}
	return nil
}

func (f *FileAuditor) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out.Close()
}
