package issuers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/efs-sdk/accessmanager/internal/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return tok
}

func newHMAC(t *testing.T) *HMACIssuer {
	t.Helper()
	iss, err := NewHMACIssuer(config.IssuerConfig{
		Name: "dev",
		Type: "hmac",
		Config: map[string]any{
			"secret": testSecret,
			"issuer": "https://dev.local",
		},
	})
	if err != nil {
		t.Fatalf("NewHMACIssuer() error = %v", err)
	}
	return iss
}

func TestHMACIssuer_Verify(t *testing.T) {
	iss := newHMAC(t)
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name     string
		token    string
		wantUser string
		wantErr  bool
	}{
		{
			name: "valid",
			token: signHS256(t, testSecret, jwt.MapClaims{
				"sub": "u-1", "preferred_username": "jane", "iss": "https://dev.local", "exp": exp,
			}),
			wantUser: "jane",
		},
		{
			name:    "wrong secret",
			token:   signHS256(t, "ffffffffffffffffffffffffffffffff", jwt.MapClaims{"sub": "u-1", "iss": "https://dev.local", "exp": exp}),
			wantErr: true,
		},
		{
			name:    "expired",
			token:   signHS256(t, testSecret, jwt.MapClaims{"sub": "u-1", "iss": "https://dev.local", "exp": time.Now().Add(-time.Hour).Unix()}),
			wantErr: true,
		},
		{
			name:    "wrong issuer",
			token:   signHS256(t, testSecret, jwt.MapClaims{"sub": "u-1", "iss": "https://evil", "exp": exp}),
			wantErr: true,
		},
		{
			name:    "missing subject",
			token:   signHS256(t, testSecret, jwt.MapClaims{"iss": "https://dev.local", "exp": exp}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := iss.Verify(context.Background(), tt.token)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Verify() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify() unexpected error: %v", err)
			}
			if p.Username != tt.wantUser {
				t.Errorf("Username = %q, want %q", p.Username, tt.wantUser)
			}
			if p.Token != tt.token {
				t.Errorf("Token is not kept for forwarding")
			}
		})
	}
}

func TestNewHMACIssuer_ShortSecret(t *testing.T) {
	_, err := NewHMACIssuer(config.IssuerConfig{Name: "dev", Config: map[string]any{"secret": "short"}})
	if err == nil {
		t.Error("NewHMACIssuer() expected error for short secret")
	}
}

func TestRegistry_Verify(t *testing.T) {
	static, err := NewStatic(config.IssuerConfig{
		Name: "local",
		Config: map[string]any{
			"tokens": map[string]any{
				"dev-token": map[string]any{"sub": "u-2", "preferred_username": "joe"},
			},
		},
	})
	if err != nil {
		t.Fatalf("NewStatic() error = %v", err)
	}
	reg := NewRegistry(static, newHMAC(t))

	p, err := reg.Verify(context.Background(), "dev-token")
	if err != nil {
		t.Fatalf("Verify(static) error = %v", err)
	}
	if p.Username != "joe" || p.Issuer != "local" {
		t.Errorf("Verify(static) = %+v, want joe from local", p)
	}

	jwtToken := signHS256(t, testSecret, jwt.MapClaims{
		"sub": "u-1", "iss": "https://dev.local/", "exp": time.Now().Add(time.Hour).Unix(),
	})
	// trailing slash differs from the configured issuer, which the parser rejects
	if _, err := reg.Verify(context.Background(), jwtToken); err == nil {
		t.Error("Verify() expected issuer mismatch error")
	}

	jwtToken = signHS256(t, testSecret, jwt.MapClaims{
		"sub": "u-1", "iss": "https://dev.local", "exp": time.Now().Add(time.Hour).Unix(),
	})
	p, err = reg.Verify(context.Background(), jwtToken)
	if err != nil {
		t.Fatalf("Verify(hmac) error = %v", err)
	}
	if p.Issuer != "dev" {
		t.Errorf("Issuer = %q, want dev", p.Issuer)
	}

	if _, err := reg.Verify(context.Background(), "nope"); !errors.Is(err, ErrNoIssuer) {
		t.Errorf("Verify() error = %v, want ErrNoIssuer", err)
	}
}

func TestBuildRegistry_UnknownType(t *testing.T) {
	_, err := BuildRegistry(context.Background(), []config.IssuerConfig{{Name: "x", Type: "saml"}})
	if err == nil {
		t.Error("BuildRegistry() expected error")
	}
}
