package api

import (
	"context"
	"net/http"

	"github.com/efs-sdk/accessmanager/internal/api/middleware"
	"github.com/efs-sdk/accessmanager/internal/core"
	"github.com/efs-sdk/accessmanager/internal/metrics"
	"github.com/efs-sdk/accessmanager/internal/service"
	"github.com/efs-sdk/accessmanager/internal/tasks"
)

// PermissionChecker answers whether a caller holds a permission on a space.
type PermissionChecker interface {
	Check(ctx context.Context, caller *core.Principal, organization, space string, permission core.OperationClass) (bool, error)
	CheckAnyAccess(ctx context.Context, caller *core.Principal, organization string, permission core.OperationClass) (bool, error)
}

type Server struct {
	service     *service.AccessService
	permissions PermissionChecker
	verifier    middleware.Verifier
	taskManager *tasks.Manager
	audits      core.AuditQuerier
	limiter     *middleware.RateLimiter
	signingKey  []byte
}

type Option func(*Server)

// WithAuditQuerier exposes the audit log on the admin api.
func WithAuditQuerier(q core.AuditQuerier) Option {
	return func(s *Server) { s.audits = q }
}

// WithRateLimiter limits requests per client ip.
func WithRateLimiter(l *middleware.RateLimiter) Option {
	return func(s *Server) { s.limiter = l }
}

// WithAdminSigningKey enables the admin api. Without a key it answers 404.
func WithAdminSigningKey(key []byte) Option {
	return func(s *Server) { s.signingKey = key }
}

func NewServer(
	svc *service.AccessService,
	permissions PermissionChecker,
	verifier middleware.Verifier,
	taskManager *tasks.Manager,
	opts ...Option,
) *Server {
	s := &Server{
		service:     svc,
		permissions: permissions,
		verifier:    verifier,
		taskManager: taskManager,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+AboutRoute, s.handleAbout)
	mux.Handle("GET "+MetricsRoute, metrics.Handler())

	// storage access routes
	accessMux := http.NewServeMux()
	accessMux.HandleFunc("POST "+ReadRoute, s.handleRead)
	accessMux.HandleFunc("POST "+UploadRoute, s.handleUpload)
	accessMux.HandleFunc("POST "+UploadMainRoute, s.handleUploadMain)
	accessMux.HandleFunc("POST "+DeleteRoute, s.handleDelete)
	accessMux.HandleFunc("POST "+CommitRoute, s.handleCommit)
	accessMux.HandleFunc("GET "+ListFilesRoute, s.handleListFiles)
	mux.Handle(AccessParent, middleware.Authenticate(s.verifier)(accessMux))

	// admin routes
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("GET "+ListActiveTokensRoute, s.handleAdminTokens)
	adminMux.HandleFunc("GET "+ListAuditsRoute, s.handleAdminAudit)
	adminMux.HandleFunc("GET "+ListTasksRoute, s.handleListTasks)
	adminMux.HandleFunc("POST "+TriggerTaskRoute, s.handleTriggerTask)
	adminMux.HandleFunc("GET "+LogsForTaskRoute, s.handleLogsForTask)
	admin := middleware.AdminAuth(s.signingKey)(adminMux)
	mux.Handle(AdminParent, admin)
	mux.Handle(TaskParent, admin)

	routeOf := func(r *http.Request) string {
		for _, m := range []*http.ServeMux{accessMux, adminMux, mux} {
			if _, pattern := m.Handler(r); pattern != "" {
				return pattern
			}
		}
		return ""
	}

	mws := []middleware.Middleware{
		middleware.RecoverMiddleware,
		middleware.CorrelationIDMiddleware,
		middleware.LoggingMiddleware,
		func(next http.Handler) http.Handler { return metrics.Instrument(next, routeOf) },
	}
	if s.limiter != nil {
		mws = append(mws, s.limiter.Middleware)
	}
	return middleware.Chain(mux, mws...)
}
