package store

import (
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/efs-sdk/accessmanager/internal/core"
)

func tokenExpiringIn(class core.OperationClass, org, space string, d time.Duration) core.AccessToken {
	se := time.Now().Add(d).UTC().Format(time.RFC3339)
	return core.AccessToken{
		Class:        class,
		Organization: org,
		Space:        space,
		Token:        "sv=2021-08-06&se=" + url.QueryEscape(se) + "&sr=c&sp=rl&sig=x",
	}
}

func TestTokenCache_GetMiss(t *testing.T) {
	c := NewTokenCache(0)

	tok, ok, err := c.Get(core.ClassRead, "org", "space")
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if ok || tok != "" {
		t.Errorf("Get() = %q, %v, want miss", tok, ok)
	}
}

func TestTokenCache_GetHit(t *testing.T) {
	c := NewTokenCache(0)
	want := tokenExpiringIn(core.ClassRead, "org", "space", time.Hour)
	c.Put(want)

	got, ok, err := c.Get(core.ClassRead, "org", "space")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v, want hit", ok, err)
	}
	if got != want.Token {
		t.Errorf("Get() = %q, want %q", got, want.Token)
	}

	// the class is part of the key
	if _, ok, _ = c.Get(core.ClassWrite, "org", "space"); ok {
		t.Error("Get(WRITE) hit a READ token")
	}
}

func TestTokenCache_CaseInsensitive(t *testing.T) {
	c := NewTokenCache(0)
	c.Put(tokenExpiringIn(core.ClassWrite, "MyOrg", "LoadingZone", time.Hour))

	if _, ok, err := c.Get(core.ClassWrite, "myorg", "loadingzone"); err != nil || !ok {
		t.Errorf("Get() = %v, %v, want hit", ok, err)
	}
}

func TestTokenCache_Buffer(t *testing.T) {
	tests := []struct {
		name     string
		buffer   time.Duration
		lifetime time.Duration
		want     bool
	}{
		{"no buffer, valid", 0, time.Hour, true},
		{"no buffer, expired", 0, -time.Second, false},
		{"inside buffer", 10 * time.Minute, 5 * time.Minute, false},
		{"outside buffer", 10 * time.Minute, 30 * time.Minute, true},
		{"huge buffer", 100000 * time.Minute, 24 * time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewTokenCache(tt.buffer)
			c.Put(tokenExpiringIn(core.ClassRead, "org", "space", tt.lifetime))

			_, ok, err := c.Get(core.ClassRead, "org", "space")
			if err != nil {
				t.Fatalf("Get() unexpected error: %v", err)
			}
			if ok != tt.want {
				t.Errorf("Get() hit = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestTokenCache_FirstMatchWins(t *testing.T) {
	c := NewTokenCache(0)
	c.Put(tokenExpiringIn(core.ClassRead, "org", "space", -time.Minute))
	c.Put(tokenExpiringIn(core.ClassRead, "org", "space", time.Hour))

	if _, ok, err := c.Get(core.ClassRead, "org", "space"); err != nil || ok {
		t.Fatalf("Get() = %v, %v, want a miss on the stale first match", ok, err)
	}

	removed, err := c.Sweep()
	if err != nil {
		t.Fatalf("Sweep() unexpected error: %v", err)
	}
	if removed != 1 {
		t.Errorf("Sweep() removed %d, want 1", removed)
	}

	if _, ok, err := c.Get(core.ClassRead, "org", "space"); err != nil || !ok {
		t.Errorf("Get() after sweep = %v, %v, want hit", ok, err)
	}
}

func TestTokenCache_Malformed(t *testing.T) {
	c := NewTokenCache(0)
	c.Put(core.AccessToken{Class: core.ClassRead, Organization: "org", Space: "space", Token: "not-a-sas"})

	_, ok, err := c.Get(core.ClassRead, "org", "space")
	if !errors.Is(err, core.ErrMalformedToken) || ok {
		t.Errorf("Get() = %v, %v, want ErrMalformedToken", ok, err)
	}

	removed, err := c.Sweep()
	if !errors.Is(err, core.ErrMalformedToken) {
		t.Errorf("Sweep() error = %v, want ErrMalformedToken", err)
	}
	if removed != 1 || c.Len() != 0 {
		t.Errorf("Sweep() removed %d, Len() = %d, want 1 and 0", removed, c.Len())
	}
}

func TestTokenCache_SweepIdempotent(t *testing.T) {
	c := NewTokenCache(0)
	c.Put(tokenExpiringIn(core.ClassRead, "a", "x", time.Hour))
	c.Put(tokenExpiringIn(core.ClassWrite, "a", "x", -time.Hour))
	c.Put(tokenExpiringIn(core.ClassDelete, "b", "y", -time.Minute))

	for i, want := range []int{2, 0} {
		removed, err := c.Sweep()
		if err != nil {
			t.Fatalf("Sweep() #%d unexpected error: %v", i+1, err)
		}
		if removed != want {
			t.Errorf("Sweep() #%d removed %d, want %d", i+1, removed, want)
		}
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestTokenCache_List(t *testing.T) {
	c := NewTokenCache(0)
	c.Put(tokenExpiringIn(core.ClassRead, "org", "space", time.Hour))

	entries := c.List(func(token string) string { return "fp" })
	if len(entries) != 1 {
		t.Fatalf("List() returned %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Fingerprint != "fp" || !e.Valid || e.Class != core.ClassRead {
		t.Errorf("List()[0] = %+v, want valid READ entry with fingerprint fp", e)
	}
}

func TestTokenCache_Concurrent(t *testing.T) {
	c := NewTokenCache(0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			c.Put(tokenExpiringIn(core.ClassRead, "org", "space", time.Hour))
		}()
		go func() {
			defer wg.Done()
			_, _, _ = c.Get(core.ClassRead, "org", "space")
		}()
		go func() {
			defer wg.Done()
			_, _ = c.Sweep()
		}()
	}
	wg.Wait()

	if c.Len() != 20 {
		t.Errorf("Len() = %d, want 20", c.Len())
	}
}
