package api

import (
	"net/http"
	"strings"

	"github.com/efs-sdk/accessmanager/internal/api/presenter"
	"github.com/efs-sdk/accessmanager/internal/authz"
	"github.com/efs-sdk/accessmanager/internal/core"
)

// defaultRootDir is sent with a commit when the client names no directory.
const defaultRootDir = "none"

type accessRequest struct {
	caller       *core.Principal
	organization string
	space        string
}

// parseAccessRequest reads the target space from the query. It writes the
// error response itself and reports whether the handler may continue.
func parseAccessRequest(w http.ResponseWriter, r *http.Request) (accessRequest, bool) {
	q := r.URL.Query()
	req := accessRequest{
		caller:       core.PrincipalFromContext(r.Context()),
		organization: q.Get(OrganizationParam),
		space:        q.Get(SpaceParam),
	}
	if req.caller == nil {
		presenter.Error(w, r, "missing principal", http.StatusUnauthorized)
		return req, false
	}
	for _, p := range [][2]string{{OrganizationParam, req.organization}, {SpaceParam, req.space}} {
		if p[1] == "" {
			presenter.Err(w, r, core.ErrInvalidParameter.WithDetail("missing query parameter %q", p[0]))
			return req, false
		}
	}
	return req, true
}

func (s *Server) check(r *http.Request, req accessRequest, permission core.OperationClass) (bool, error) {
	return s.permissions.Check(r.Context(), req.caller, req.organization, req.space, permission)
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	req, ok := parseAccessRequest(w, r)
	if !ok {
		return
	}
	allowed, err := s.check(r, req, core.ClassRead)
	if err != nil {
		presenter.Err(w, r, err)
		return
	}
	token, err := s.service.IssueReadToken(r.Context(), req.organization, req.space, allowed)
	if err != nil {
		presenter.Err(w, r, err)
		return
	}
	presenter.Text(w, r, token, http.StatusOK)
}

// handleUpload hands out a write token for the loading zone. The caller needs
// write access on the space the upload is meant for.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	req, ok := parseAccessRequest(w, r)
	if !ok {
		return
	}
	allowed, err := s.check(r, req, core.ClassWrite)
	if err != nil {
		presenter.Err(w, r, err)
		return
	}
	token, err := s.service.IssueWriteToken(r.Context(), req.organization, authz.LoadingZone, allowed)
	if err != nil {
		presenter.Err(w, r, err)
		return
	}
	presenter.Text(w, r, token, http.StatusOK)
}

// handleUploadMain hands out a write token for the space itself.
func (s *Server) handleUploadMain(w http.ResponseWriter, r *http.Request) {
	req, ok := parseAccessRequest(w, r)
	if !ok {
		return
	}
	allowed, err := s.check(r, req, core.ClassWrite)
	if err != nil {
		presenter.Err(w, r, err)
		return
	}
	token, err := s.service.IssueWriteToken(r.Context(), req.organization, req.space, allowed)
	if err != nil {
		presenter.Err(w, r, err)
		return
	}
	presenter.Text(w, r, token, http.StatusOK)
}

// handleDelete allows deleting from the loading zone to anyone who may write
// somewhere in the organization.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	req, ok := parseAccessRequest(w, r)
	if !ok {
		return
	}
	allowed, err := s.check(r, req, core.ClassDelete)
	if err != nil {
		presenter.Err(w, r, err)
		return
	}
	if !allowed && strings.EqualFold(req.space, authz.LoadingZone) {
		allowed, err = s.permissions.CheckAnyAccess(r.Context(), req.caller, req.organization, core.ClassWrite)
		if err != nil {
			presenter.Err(w, r, err)
			return
		}
	}
	token, err := s.service.IssueDeleteToken(r.Context(), req.organization, req.space, allowed)
	if err != nil {
		presenter.Err(w, r, err)
		return
	}
	presenter.Text(w, r, token, http.StatusOK)
}

// handleCommit announces that the loading zone upload for the space is complete.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	req, ok := parseAccessRequest(w, r)
	if !ok {
		return
	}
	rootDir := r.URL.Query().Get(RootDirParam)
	if rootDir == "" {
		rootDir = defaultRootDir
	}
	allowed, err := s.check(r, req, core.ClassWrite)
	if err != nil {
		presenter.Err(w, r, err)
		return
	}
	err = s.service.Commit(r.Context(), req.organization, authz.LoadingZone, req.space, req.caller.DisplayName(), allowed, rootDir)
	if err != nil {
		presenter.Err(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	req, ok := parseAccessRequest(w, r)
	if !ok {
		return
	}
	allowed, err := s.check(r, req, core.ClassRead)
	if err != nil {
		presenter.Err(w, r, err)
		return
	}
	q := r.URL.Query()
	files, err := s.service.ListFiles(r.Context(), req.organization, req.space, q.Get(PatternParam), q.Get(RootDirParam), allowed)
	if err != nil {
		presenter.Err(w, r, err)
		return
	}
	if files == nil {
		files = []string{}
	}
	presenter.JSON(w, r, files, http.StatusOK)
}
