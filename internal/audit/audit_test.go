package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/efs-sdk/accessmanager/internal/config"
	"github.com/efs-sdk/accessmanager/internal/core"
)

func TestInMemoryAuditor_Bounded(t *testing.T) {
	a := NewInMemoryAuditor(3)
	for _, id := range []string{"a", "b", "c", "d"} {
		if err := a.Log(core.AuditEntry{ID: id}); err != nil {
			t.Fatalf("Log(%s) unexpected error: %v", id, err)
		}
	}

	recent, err := a.GetRecent(10)
	if err != nil {
		t.Fatalf("GetRecent() unexpected error: %v", err)
	}
	var ids []string
	for _, e := range recent {
		ids = append(ids, e.ID)
	}
	if diff := cmp.Diff([]string{"b", "c", "d"}, ids); diff != "" {
		t.Errorf("GetRecent() mismatch (-want +got):\n%s", diff)
	}

	found, err := a.Find(func(e core.AuditEntry) bool { return e.ID != "c" }, 1)
	if err != nil {
		t.Fatalf("Find() unexpected error: %v", err)
	}
	if len(found) != 1 || found[0].ID != "d" {
		t.Errorf("Find() = %+v, want the newest match d", found)
	}
}

func TestFileAuditor_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	a, err := NewFileAuditor(path, 1, 1)
	if err != nil {
		t.Fatalf("NewFileAuditor() unexpected error: %v", err)
	}

	for _, e := range []core.AuditEntry{
		{ID: "one", Action: "token.issue", Granted: true},
		{ID: "two", Action: "commit"},
	} {
		if err := a.Log(e); err != nil {
			t.Fatalf("Log() unexpected error: %v", err)
		}
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() unexpected error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e core.AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("line %q is not JSON: %v", scanner.Text(), err)
		}
		ids = append(ids, e.ID)
	}
	if diff := cmp.Diff([]string{"one", "two"}, ids); diff != "" {
		t.Errorf("logged entries mismatch (-want +got):\n%s", diff)
	}
}

func TestNew(t *testing.T) {
	a, err := New(config.AuditConfig{Enabled: false})
	if err != nil {
		t.Fatalf("New(disabled) unexpected error: %v", err)
	}
	if _, ok := a.(NoopAuditor); !ok {
		t.Errorf("New(disabled) = %T, want NoopAuditor", a)
	}

	a, err = New(config.AuditConfig{Enabled: true, Type: "memory"})
	if err != nil {
		t.Fatalf("New(memory) unexpected error: %v", err)
	}
	if _, ok := a.(*InMemoryAuditor); !ok {
		t.Errorf("New(memory) = %T, want *InMemoryAuditor", a)
	}

	if _, err = New(config.AuditConfig{Enabled: true, Type: "syslog"}); err == nil {
		t.Error("New(syslog) expected error, got nil")
	}
}

func TestFingerprint(t *testing.T) {
	if got := Fingerprint(""); got != "" {
		t.Errorf("Fingerprint(\"\") = %q, want empty", got)
	}
	a, b := Fingerprint("sv=1&sig=a"), Fingerprint("sv=1&sig=b")
	if a != Fingerprint("sv=1&sig=a") {
		t.Error("Fingerprint() is not stable")
	}
	if a == b {
		t.Error("different tokens share a fingerprint")
	}
	if strings.Contains(a, "sig") {
		t.Errorf("Fingerprint() = %q leaks the token", a)
	}
}
