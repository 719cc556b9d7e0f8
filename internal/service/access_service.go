package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/efs-sdk/accessmanager/internal/audit"
	"github.com/efs-sdk/accessmanager/internal/core"
	"github.com/efs-sdk/accessmanager/internal/logging"
	"github.com/efs-sdk/accessmanager/internal/metrics"
	"github.com/efs-sdk/accessmanager/internal/store"
)

// AccessService hands out storage tokens and records upload commits.
// Callers pass in whether the permission check succeeded; the service owns
// the denial handling so that every denial is logged and audited the same way.
type AccessService struct {
	resolver    core.AccountResolver
	signer      core.TokenSigner
	cache       *store.TokenCache
	publisher   core.Publisher
	auditor     core.Auditor
	commitTopic string
}

func NewAccessService(
	resolver core.AccountResolver,
	signer core.TokenSigner,
	cache *store.TokenCache,
	publisher core.Publisher,
	auditor core.Auditor,
	commitTopic string,
) *AccessService {
	return &AccessService{
		resolver:    resolver,
		signer:      signer,
		cache:       cache,
		publisher:   publisher,
		auditor:     auditor,
		commitTopic: commitTopic,
	}
}

func (s *AccessService) IssueReadToken(ctx context.Context, organization, space string, authorized bool) (string, error) {
	return s.issue(ctx, core.ClassRead, organization, space, authorized)
}

func (s *AccessService) IssueWriteToken(ctx context.Context, organization, space string, authorized bool) (string, error) {
	return s.issue(ctx, core.ClassWrite, organization, space, authorized)
}

func (s *AccessService) IssueDeleteToken(ctx context.Context, organization, space string, authorized bool) (string, error) {
	return s.issue(ctx, core.ClassDelete, organization, space, authorized)
}

func (s *AccessService) issue(ctx context.Context, class core.OperationClass, organization, space string, authorized bool) (token string, err error) {
	logger := log.Ctx(ctx)
	logger.Info().Msgf("requesting a %s token for space %s in organization %s", class, space, organization)

	entry := s.newAuditEntry(ctx, "token.issue", organization, space)
	entry.Class = class
	defer func() {
		entry.Granted = err == nil
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.TokenFingerprint = audit.Fingerprint(token)
		}
		s.audit(ctx, entry)
	}()

	if !authorized {
		metrics.AccessDenied.WithLabelValues(class.String()).Inc()
		logger.Warn().
			Str("organization", organization).
			Str("space", space).
			Str("class", class.String()).
			Msg("token request denied")
		return "", core.DeniedError(class)
	}

	cached, ok, err := s.cache.Get(class, organization, space)
	if err != nil {
		logger.Error().Err(err).Msg("token cache holds a malformed token")
		return "", err
	}
	if ok {
		entry.Cached = true
		metrics.TokensIssued.WithLabelValues(class.String(), "cache").Inc()
		return cached, nil
	}

	account, err := s.resolver.Resolve(ctx, organization)
	if err != nil {
		return "", err
	}
	target := core.StorageTarget{Organization: organization, Space: space}
	issued, err := s.signer.Sign(ctx, account, target, class)
	if err != nil {
		return "", err
	}
	if _, err := issued.ExpiresAt(); err != nil {
		// never cache a token the sweep would trip over
		logger.Error().Err(err).Msg("signer returned a token without a readable expiry")
		return "", fmt.Errorf("issued %s token for %s: %w", class, target, err)
	}

	s.cache.Put(*issued)
	metrics.TokensIssued.WithLabelValues(class.String(), "signer").Inc()
	return issued.Token, nil
}

// Commit announces that an upload into stagingArea is complete and should be
// moved into mainArea. It returns as soon as the message is queued.
func (s *AccessService) Commit(ctx context.Context, organization, stagingArea, mainArea, user string, canWrite bool, rootDir string) (err error) {
	logger := log.Ctx(ctx)
	logger.Info().Msgf("user %s commits the upload in %s/%s into %s", user, organization, stagingArea, mainArea)

	entry := s.newAuditEntry(ctx, "commit", organization, mainArea)
	entry.Class = core.ClassWrite
	defer func() {
		entry.Granted = err == nil
		if err != nil {
			entry.Error = err.Error()
		}
		s.audit(ctx, entry)
	}()

	if !canWrite {
		metrics.AccessDenied.WithLabelValues(core.ClassWrite.String()).Inc()
		logger.Warn().
			Str("organization", organization).
			Str("space", mainArea).
			Msg("commit denied")
		return core.ErrSaveAccessDenied
	}

	payload, err := json.Marshal(core.CommitDescriptor{
		Organization:  organization,
		TargetStorage: mainArea,
		SourceStorage: stagingArea,
		User:          user,
		RootDir:       rootDir,
	})
	if err != nil {
		return core.ErrUnableCommitTransaction.Wrap(err)
	}

	s.publisher.Publish(ctx, s.commitTopic, payload)
	return nil
}

// ListFiles lists the blobs of a space. See core.TokenSigner.ListFiles.
func (s *AccessService) ListFiles(ctx context.Context, organization, space, pattern, rootDir string, authorized bool) ([]string, error) {
	if !authorized {
		metrics.AccessDenied.WithLabelValues(core.ClassRead.String()).Inc()
		entry := s.newAuditEntry(ctx, "files.list", organization, space)
		entry.Class = core.ClassRead
		entry.Error = core.ErrReadAccessDenied.Error()
		s.audit(ctx, entry)
		return nil, core.ErrReadAccessDenied
	}
	if pattern == "" {
		pattern = ".*"
	}

	account, err := s.resolver.Resolve(ctx, organization)
	if err != nil {
		return nil, err
	}
	return s.signer.ListFiles(ctx, account, core.StorageTarget{Organization: organization, Space: space}, pattern, rootDir)
}

// CacheEntries describes the cached tokens by fingerprint.
func (s *AccessService) CacheEntries() []core.CacheEntry {
	return s.cache.List(audit.Fingerprint)
}

// SweepCache is run periodically by the task manager.
func (s *AccessService) SweepCache(_ context.Context, logger logging.InternalLogger) error {
	removed, err := s.cache.Sweep()
	metrics.CacheSwept.Add(float64(removed))
	metrics.CacheEntries.Set(float64(s.cache.Len()))

	if removed > 0 {
		logger.Info("removed %d stale tokens from the cache", removed)
	} else {
		logger.Debug("no stale tokens in the cache")
	}
	if err != nil {
		return fmt.Errorf("dropped malformed cache entries: %w", err)
	}
	return nil
}

func (s *AccessService) newAuditEntry(ctx context.Context, action, organization, space string) core.AuditEntry {
	return core.AuditEntry{
		ID:           core.CorrelationID(ctx),
		Time:         time.Now(),
		Action:       action,
		Principal:    core.PrincipalFromContext(ctx),
		Organization: organization,
		Space:        space,
	}
}

func (s *AccessService) audit(ctx context.Context, entry core.AuditEntry) {
	if err := s.auditor.Log(entry); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("action", entry.Action).Msg("failed to write audit log entry")
	}
}

// IsDenied reports whether err is one of the access denied errors.
func IsDenied(err error) bool {
	return errors.Is(err, core.ErrReadAccessDenied) ||
		errors.Is(err, core.ErrSaveAccessDenied) ||
		errors.Is(err, core.ErrDeleteAccessDenied)
}
