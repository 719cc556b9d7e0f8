package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efs-sdk/accessmanager/internal/api/middleware"
	"github.com/efs-sdk/accessmanager/internal/api/presenter"
	"github.com/efs-sdk/accessmanager/internal/audit"
	"github.com/efs-sdk/accessmanager/internal/core"
	"github.com/efs-sdk/accessmanager/internal/providers/azure"
	"github.com/efs-sdk/accessmanager/internal/providers/stub"
	"github.com/efs-sdk/accessmanager/internal/service"
	"github.com/efs-sdk/accessmanager/internal/store"
	"github.com/efs-sdk/accessmanager/internal/tasks"
)

const (
	testBearer     = "valid-bearer"
	testSigningKey = "0123456789abcdef0123456789abcdef"
)

type fakeVerifier struct{}

func (fakeVerifier) Verify(_ context.Context, token string) (*core.Principal, error) {
	if token != testBearer {
		return nil, errors.New("unknown token")
	}
	return &core.Principal{ID: "sub-1", Username: "jane"}, nil
}

type fakePermissions struct {
	granted  map[string]bool // "space/PERMISSION"
	anyWrite bool
	err      error
}

func (f *fakePermissions) Check(_ context.Context, _ *core.Principal, _, space string, permission core.OperationClass) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.granted[space+"/"+permission.String()], nil
}

func (f *fakePermissions) CheckAnyAccess(_ context.Context, _ *core.Principal, _ string, _ core.OperationClass) (bool, error) {
	return f.anyWrite, f.err
}

type capturePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (c *capturePublisher) Publish(_ context.Context, _ string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
}

type testServer struct {
	handler     http.Handler
	permissions *fakePermissions
	publisher   *capturePublisher
	auditor     *audit.InMemoryAuditor
	service     *service.AccessService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	backend, err := stub.New(map[string][]string{
		"acme": {"loadingzone", "raw"},
	}, azure.Lifetimes{Read: time.Hour, Write: time.Hour, Delete: time.Hour})
	require.NoError(t, err)
	backend.AddBlob("acme", "raw", "data/a.csv")
	backend.AddBlob("acme", "raw", "data/b.csv")
	backend.AddBlob("acme", "raw", "other/c.csv")

	ts := &testServer{
		permissions: &fakePermissions{granted: map[string]bool{}},
		publisher:   &capturePublisher{},
		auditor:     audit.NewInMemoryAuditor(100),
	}
	ts.service = service.NewAccessService(backend, backend, store.NewTokenCache(time.Minute), ts.publisher, ts.auditor, "upload-complete")

	taskManager := tasks.NewManager()
	t.Cleanup(taskManager.Stop)

	srv := NewServer(ts.service, ts.permissions, fakeVerifier{}, taskManager,
		WithAuditQuerier(ts.auditor),
		WithAdminSigningKey([]byte(testSigningKey)),
		WithRateLimiter(middleware.NewRateLimiter(1000, 1000)),
	)
	ts.handler = srv.Routes()
	return ts
}

func (ts *testServer) do(method, target, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) presenter.ErrorResponse {
	t.Helper()
	var body presenter.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func adminToken(t *testing.T, roles ...string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "ops",
		"roles": roles,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSigningKey))
	require.NoError(t, err)
	return signed
}

func TestHealthAndCorrelation(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, HealthCheckRoute, nil)
	req.Header.Set(middleware.CorrelationIDHeader, "corr-42")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Equal(t, "corr-42", rec.Header().Get(middleware.CorrelationIDHeader))
}

func TestRead(t *testing.T) {
	ts := newTestServer(t)
	ts.permissions.granted["raw/READ"] = true

	first := ts.do(http.MethodPost, ReadRoute+"?organization=acme&space=raw", testBearer)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.Equal(t, "no-store", first.Header().Get("Cache-Control"))
	assert.Contains(t, first.Body.String(), "se=")

	second := ts.do(http.MethodPost, ReadRoute+"?organization=acme&space=raw", testBearer)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String(), "second request should be served from the cache")
}

func TestRead_Denied(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, ReadRoute+"?organization=acme&space=raw", testBearer)
	require.Equal(t, http.StatusForbidden, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, core.ErrReadAccessDenied.Code, body.ErrorCode)
	assert.Equal(t, "READ_ACCESS_DENIED", body.Error)
	assert.NotEmpty(t, body.CorrelationID)
}

func TestAccess_RequestValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		target string
		bearer string
		status int
	}{
		{"no bearer", ReadRoute + "?organization=acme&space=raw", "", http.StatusUnauthorized},
		{"unknown bearer", ReadRoute + "?organization=acme&space=raw", "nope", http.StatusUnauthorized},
		{"missing space", ReadRoute + "?organization=acme", testBearer, http.StatusBadRequest},
		{"missing organization", ReadRoute + "?space=raw", testBearer, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, tt.target, tt.bearer)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestAccess_MissingParametersReportedInOrder(t *testing.T) {
	ts := newTestServer(t)

	for i := 0; i < 10; i++ {
		rec := ts.do(http.MethodPost, ReadRoute, testBearer)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec).Message, `"`+OrganizationParam+`"`)
	}
}

func TestAccess_OrganizationManagerFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.permissions.err = core.ErrOrganizationManagerError.WithDetail("boom")

	rec := ts.do(http.MethodPost, ReadRoute+"?organization=acme&space=raw", testBearer)
	assert.Equal(t, core.ErrOrganizationManagerError.Status, rec.Code)
	assert.Equal(t, core.ErrOrganizationManagerError.Code, decodeError(t, rec).ErrorCode)
}

func TestUpload_TargetsLoadingZone(t *testing.T) {
	ts := newTestServer(t)
	ts.permissions.granted["raw/WRITE"] = true

	rec := ts.do(http.MethodPost, UploadRoute+"?organization=acme&space=raw", testBearer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	entries := ts.service.CacheEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "loadingzone", entries[0].Space)
	assert.Equal(t, core.ClassWrite, entries[0].Class)
}

func TestUploadMain_TargetsSpace(t *testing.T) {
	ts := newTestServer(t)
	ts.permissions.granted["raw/WRITE"] = true

	rec := ts.do(http.MethodPost, UploadMainRoute+"?organization=acme&space=raw", testBearer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	entries := ts.service.CacheEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "raw", entries[0].Space)
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name     string
		space    string
		granted  map[string]bool
		anyWrite bool
		status   int
	}{
		{"delete permission", "raw", map[string]bool{"raw/DELETE": true}, false, http.StatusOK},
		{"no permission", "raw", nil, true, http.StatusForbidden},
		{"loading zone with write somewhere", "loadingzone", nil, true, http.StatusOK},
		{"loading zone without write", "loadingzone", nil, false, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			if tt.granted != nil {
				ts.permissions.granted = tt.granted
			}
			ts.permissions.anyWrite = tt.anyWrite

			rec := ts.do(http.MethodPost, DeleteRoute+"?organization=acme&space="+tt.space, testBearer)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status == http.StatusForbidden {
				assert.Equal(t, core.ErrDeleteAccessDenied.Code, decodeError(t, rec).ErrorCode)
			}
		})
	}
}

func TestCommit(t *testing.T) {
	ts := newTestServer(t)
	ts.permissions.granted["raw/WRITE"] = true

	rec := ts.do(http.MethodPost, CommitRoute+"?organization=acme&space=raw", testBearer)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	require.Len(t, ts.publisher.payloads, 1)
	var got core.CommitDescriptor
	require.NoError(t, json.Unmarshal(ts.publisher.payloads[0], &got))
	assert.Equal(t, core.CommitDescriptor{
		Organization:  "acme",
		TargetStorage: "raw",
		SourceStorage: "loadingzone",
		User:          "jane",
		RootDir:       "none",
	}, got)
}

func TestCommit_Denied(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, CommitRoute+"?organization=acme&space=raw&rootDir=batch-1", testBearer)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, core.ErrSaveAccessDenied.Code, decodeError(t, rec).ErrorCode)
	assert.Empty(t, ts.publisher.payloads)
}

func TestListFiles(t *testing.T) {
	ts := newTestServer(t)
	ts.permissions.granted["raw/READ"] = true

	rec := ts.do(http.MethodGet, ListFilesRoute+"?organization=acme&space=raw&rootDir=data", testBearer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var files []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	assert.Equal(t, []string{"data/a.csv", "data/b.csv"}, files)

	rec = ts.do(http.MethodGet, ListFilesRoute+"?organization=acme&space=raw&pattern=(", testBearer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin(t *testing.T) {
	ts := newTestServer(t)
	ts.permissions.granted["raw/READ"] = true
	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, ReadRoute+"?organization=acme&space=raw", testBearer).Code)

	t.Run("requires login", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, ListActiveTokensRoute, "").Code)
	})

	t.Run("requires admin role", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, ts.do(http.MethodGet, ListActiveTokensRoute, adminToken(t, "viewer")).Code)
	})

	t.Run("tokens show fingerprints only", func(t *testing.T) {
		rec := ts.do(http.MethodGet, ListActiveTokensRoute, adminToken(t, "admin"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "sig=")

		var entries []core.CacheEntry
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
		require.Len(t, entries, 1)
		assert.NotEmpty(t, entries[0].Fingerprint)
	})

	t.Run("audits", func(t *testing.T) {
		rec := ts.do(http.MethodGet, ListAuditsRoute+"?organization=acme", adminToken(t, "admin"))
		require.Equal(t, http.StatusOK, rec.Code)

		var entries []core.AuditEntry
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
		require.NotEmpty(t, entries)
		assert.Equal(t, "token.issue", entries[0].Action)
	})

	t.Run("unknown task", func(t *testing.T) {
		rec := ts.do(http.MethodPost, strings.Replace(TriggerTaskRoute, "{name}", "nope", 1), adminToken(t, "admin"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAdmin_DisabledWithoutKey(t *testing.T) {
	backend, err := stub.New(nil, azure.Lifetimes{Read: time.Hour})
	require.NoError(t, err)
	svc := service.NewAccessService(backend, backend, store.NewTokenCache(0), &capturePublisher{}, audit.NoopAuditor{}, "upload-complete")

	taskManager := tasks.NewManager()
	defer taskManager.Stop()
	handler := NewServer(svc, &fakePermissions{}, fakeVerifier{}, taskManager).Routes()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, ListTasksRoute, nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "admin"))
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
