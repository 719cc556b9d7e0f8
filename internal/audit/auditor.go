package audit

import (
	"fmt"

	"github.com/efs-sdk/accessmanager/internal/config"
	"github.com/efs-sdk/accessmanager/internal/core"
)

// DefaultMemoryEntries bounds the in-memory audit trail.
const DefaultMemoryEntries = 10000

// New builds the auditor selected by the configuration.
func New(cfg config.AuditConfig) (core.Auditor, error) {
	if !cfg.Enabled {
		return NoopAuditor{}, nil
	}
	switch cfg.Type {
	case "memory":
		return NewInMemoryAuditor(DefaultMemoryEntries), nil
	case "file":
		return NewFileAuditor(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups)
	default:
		return nil, fmt.Errorf("unknown audit type '%s'", cfg.Type)
	}
}

// NoopAuditor discards every entry.
type NoopAuditor struct{}

func (NoopAuditor) Log(core.AuditEntry) error { return nil }

func (NoopAuditor) Close() error { return nil }
