package authz

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

	"github.com/efs-sdk/accessmanager/internal/core"
	"github.com/efs-sdk/accessmanager/internal/orgmanager"
)

// fakeOrgManager serves the two organization manager endpoints.
type fakeOrgManager struct {
	orgStatus   int
	spaceStatus int
	spaces      map[string][]string // permission -> space names
	body        string

	mu          sync.Mutex
	permissions []string
	bearers     []string
}

func (f *fakeOrgManager) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /organization/name/{name}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.bearers = append(f.bearers, r.Header.Get("Authorization"))
		f.mu.Unlock()
		if f.orgStatus != 0 && f.orgStatus != http.StatusOK {
			w.WriteHeader(f.orgStatus)
			_, _ = w.Write([]byte(f.body))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 42, "name": r.PathValue("name")})
	})
	mux.HandleFunc("GET /space/{id}", func(w http.ResponseWriter, r *http.Request) {
		perm := r.URL.Query().Get("permissions")
		f.mu.Lock()
		f.permissions = append(f.permissions, perm)
		f.mu.Unlock()
		if r.PathValue("id") != "42" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if f.spaceStatus != 0 && f.spaceStatus != http.StatusOK {
			w.WriteHeader(f.spaceStatus)
			_, _ = w.Write([]byte(f.body))
			return
		}
		var out []map[string]any
		for i, name := range f.spaces[perm] {
			out = append(out, map[string]any{"id": i + 1, "name": name})
		}
		if out == nil {
			out = []map[string]any{}
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	return mux
}

func newGateway(t *testing.T, f *fakeOrgManager) *Gateway {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	client := orgmanager.New(srv.URL+"/organization", srv.URL+"/space", 5*time.Second)
	return NewGateway(client)
}

var caller = &core.Principal{ID: "sub-1", Username: "jane", Token: "bearer-token"}

func TestGateway_Check(t *testing.T) {
	tests := []struct {
		name       string
		fake       *fakeOrgManager
		space      string
		permission core.OperationClass
		want       bool
		wantErr    error
		wantPerm   string
	}{
		{
			name:       "space listed",
			fake:       &fakeOrgManager{spaces: map[string][]string{"READ": {"raw", "Curated"}}},
			space:      "curated",
			permission: core.ClassRead,
			want:       true,
			wantPerm:   "READ",
		},
		{
			name:       "space not listed",
			fake:       &fakeOrgManager{spaces: map[string][]string{"WRITE": {"raw"}}},
			space:      "curated",
			permission: core.ClassWrite,
			want:       false,
			wantPerm:   "WRITE",
		},
		{
			name:       "loadingzone read falls back to any write access",
			fake:       &fakeOrgManager{spaces: map[string][]string{"WRITE": {"raw"}}},
			space:      "loadingzone",
			permission: core.ClassRead,
			want:       true,
			wantPerm:   "WRITE",
		},
		{
			name:       "loadingzone read without any write access",
			fake:       &fakeOrgManager{spaces: map[string][]string{"READ": {"loadingzone"}}},
			space:      "LoadingZone",
			permission: core.ClassRead,
			want:       false,
			wantPerm:   "WRITE",
		},
		{
			name:       "organization forbidden",
			fake:       &fakeOrgManager{orgStatus: http.StatusForbidden},
			space:      "raw",
			permission: core.ClassRead,
			want:       false,
		},
		{
			name:       "spaces forbidden",
			fake:       &fakeOrgManager{spaceStatus: http.StatusForbidden},
			space:      "raw",
			permission: core.ClassDelete,
			want:       false,
			wantPerm:   "DELETE",
		},
		{
			name:       "organization not found",
			fake:       &fakeOrgManager{orgStatus: http.StatusNotFound},
			space:      "raw",
			permission: core.ClassRead,
			wantErr:    core.ErrOrganizationNotFound,
		},
		{
			name:       "upstream failure",
			fake:       &fakeOrgManager{spaceStatus: http.StatusInternalServerError, body: "db down"},
			space:      "raw",
			permission: core.ClassRead,
			wantErr:    core.ErrOrganizationManagerError,
			wantPerm:   "READ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGateway(t, tt.fake)

			got, err := g.Check(context.Background(), caller, "acme", tt.space, tt.permission)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Check() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Check() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Check() = %v, want %v", got, tt.want)
			}
			if tt.wantPerm != "" {
				if len(tt.fake.permissions) != 1 || tt.fake.permissions[0] != tt.wantPerm {
					t.Errorf("queried permissions = %v, want [%s]", tt.fake.permissions, tt.wantPerm)
				}
			}
			for _, b := range tt.fake.bearers {
				if b != "Bearer bearer-token" {
					t.Errorf("Authorization = %q, want forwarded bearer", b)
				}
			}
		})
	}
}

func TestGateway_UpstreamDetail(t *testing.T) {
	g := newGateway(t, &fakeOrgManager{orgStatus: http.StatusBadGateway, body: "upstream exploded"})

	_, err := g.Check(context.Background(), caller, "acme", "raw", core.ClassWrite)
	var domainErr *core.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("Check() error = %v, want *core.Error", err)
	}
	if !strings.Contains(domainErr.Detail, "upstream exploded") {
		t.Errorf("Detail = %q, want upstream body", domainErr.Detail)
	}
}

func TestGateway_CheckAnyAccess(t *testing.T) {
	g := newGateway(t, &fakeOrgManager{spaces: map[string][]string{"WRITE": {"raw"}}})

	ok, err := g.CheckAnyAccess(context.Background(), caller, "acme", core.ClassWrite)
	if err != nil || !ok {
		t.Errorf("CheckAnyAccess(WRITE) = %v, %v, want true, nil", ok, err)
	}

	ok, err = g.CheckAnyAccess(context.Background(), caller, "acme", core.ClassDelete)
	if err != nil || ok {
		t.Errorf("CheckAnyAccess(DELETE) = %v, %v, want false, nil", ok, err)
	}
}

func TestGateway_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name": "acme"}`))
	}))
	defer srv.Close()

	g := NewGateway(orgmanager.New(srv.URL, srv.URL, time.Second))
	_, err := g.Check(context.Background(), caller, "acme", "raw", core.ClassRead)
	if !errors.Is(err, core.ErrMalformedResponse) {
		t.Errorf("Check() error = %v, want ErrMalformedResponse", err)
	}
}
