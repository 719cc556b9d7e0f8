package api

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/efs-sdk/accessmanager/internal/api/presenter"
	"github.com/efs-sdk/accessmanager/internal/core"
)

const defaultAuditLimit = 50

// handleAdminAudit processes requests to retrieve audit log entries.
func (s *Server) handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	if s.audits == nil {
		presenter.Error(w, r, "the configured audit log cannot be queried", http.StatusNotImplemented)
		return
	}

	// filters
	q := r.URL.Query()
	limitStr := q.Get("limit")

	filterCorrelationID := q.Get("correlation_id")
	filterPrincipalID := q.Get("principal_id")
	filterFingerprint := q.Get("fingerprint")
	filterOrganization := q.Get("organization")

	limit := defaultAuditLimit
	if limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v <= 0 {
			logger.Warn().Str("limit", limitStr).Msg("invalid limit parameter")
			presenter.Error(w, r, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = v
	}

	var entries []core.AuditEntry
	var err error

	if filterCorrelationID != "" || filterFingerprint != "" || filterPrincipalID != "" || filterOrganization != "" {
		entries, err = s.audits.Find(func(entry core.AuditEntry) bool {
			if filterCorrelationID != "" && entry.ID != filterCorrelationID {
				return false
			}
			if filterFingerprint != "" && entry.TokenFingerprint != filterFingerprint {
				return false
			}
			if filterPrincipalID != "" && (entry.Principal == nil || entry.Principal.ID != filterPrincipalID) {
				return false
			}
			if filterOrganization != "" && entry.Organization != filterOrganization {
				return false
			}
			return true
		}, limit)
	} else {
		entries, err = s.audits.GetRecent(limit)
	}

	if err != nil {
		logger.Error().Err(err).Msg("failed to retrieve audit logs")
		presenter.Error(w, r, "failed to retrieve audit logs", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []core.AuditEntry{}
	}

	presenter.JSON(w, r, entries, http.StatusOK)
}

// handleAdminTokens lists the cached storage tokens by fingerprint.
func (s *Server) handleAdminTokens(w http.ResponseWriter, r *http.Request) {
	entries := s.service.CacheEntries()
	if entries == nil {
		entries = []core.CacheEntry{}
	}
	presenter.JSON(w, r, entries, http.StatusOK)
}
