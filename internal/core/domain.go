package core

import (
	"context"
	"time"
)

// Principal represents the authenticated identity of the caller.
// It is produced by an Issuer after verifying the bearer token.
type Principal struct {
	// ID is the subject identifier (sub claim).
	ID string `json:"id"`
	// Username is taken from the preferred_username claim and ends up in commits.
	Username string `json:"username,omitempty"`
	// Issuer is the name of the trusted issuer that verified this principal.
	Issuer string `json:"issuer,omitempty"`
	// Attributes are the claims extracted from the token.
	Attributes map[string]any `json:"attributes,omitempty"`
	// Token is the raw bearer token, forwarded to the organization manager.
	Token string `json:"-"`
}

// DisplayName returns the username if known, the subject otherwise.
func (p *Principal) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.Username != "" {
		return p.Username
	}
	return p.ID
}

// StorageAccount is the storage account backing one organization.
type StorageAccount struct {
	Name          string `json:"name"`
	ID            string `json:"id,omitempty"`
	ResourceGroup string `json:"resource_group,omitempty"`
}

// CommitDescriptor is published when a caller finishes an upload into the loading zone.
type CommitDescriptor struct {
	Organization  string `json:"organization"`
	TargetStorage string `json:"targetStorage"`
	SourceStorage string `json:"sourceStorage"`
	User          string `json:"user"`
	RootDir       string `json:"rootDir"`
}

// CacheEntry describes a cached token without exposing its value.
type CacheEntry struct {
	Class        OperationClass `json:"class"`
	Organization string         `json:"organization"`
	Space        string         `json:"space"`
	ExpiresAt    time.Time      `json:"expires_at"`
	Fingerprint  string         `json:"fingerprint"`
	Valid        bool           `json:"valid"`
}

type (
	principalKey     struct{}
	correlationIDKey struct{}
)

// WithCorrelationID stores the request correlation id in the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID returns the id stored by WithCorrelationID or an empty string.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// WithPrincipal stores the authenticated principal in the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal, if any.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

// Fingerprinter derives a non-reversible identifier from a token value.
type Fingerprinter func(token string) string
