package core

import "time"

type AuditEntry struct {
	// ID is the unique request ID (X-Correlation-ID)
	ID string `json:"id"`

	// Time is the timestamp of the event
	Time time.Time `json:"time"`

	// Action describing what happened (e.g. "token.issue", "commit")
	Action string `json:"action"`

	// Principal identifies who made the request
	Principal *Principal `json:"principal"`

	Class        OperationClass `json:"class,omitempty"`
	Organization string         `json:"organization,omitempty"`
	Space        string         `json:"space,omitempty"`

	Granted bool   `json:"granted"`
	Cached  bool   `json:"cached,omitempty"`
	Error   string `json:"error,omitempty"`

	// TokenFingerprint identifies the issued token without storing it.
	TokenFingerprint string `json:"token_fingerprint,omitempty"`
}

type Auditor interface {
	Log(entry AuditEntry) error
	Close() error
}

// AuditQuerier is implemented by auditors that keep entries around.
type AuditQuerier interface {
	GetRecent(limit int) ([]AuditEntry, error)
	Find(filter func(AuditEntry) bool, limit int) ([]AuditEntry, error)
}
