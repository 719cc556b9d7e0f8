package providers

import (
	"context"
	"testing"
	"time"

	"github.com/efs-sdk/accessmanager/internal/config"
	"github.com/efs-sdk/accessmanager/internal/core"
	"github.com/efs-sdk/accessmanager/internal/providers/azure"
)

func stubConfig() (config.StorageConfig, config.TokenConfig) {
	storage := config.StorageConfig{
		Type: "stub",
		Stub: config.StubStorageConfig{Containers: map[string][]string{"acme": {"raw"}}},
	}
	var tokens config.TokenConfig
	tokens.Expiration.Read = 60
	tokens.Expiration.Write = 60
	tokens.Expiration.Delete = 60
	return storage, tokens
}

func TestBuild_Stub(t *testing.T) {
	storage, tokens := stubConfig()

	b, err := Build(storage, tokens)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if b.Type != "stub" {
		t.Errorf("Type = %q, want stub", b.Type)
	}

	account, err := b.Resolver.Resolve(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	tok, err := b.Signer.Sign(context.Background(), account, core.StorageTarget{Organization: "acme", Space: "raw"}, core.ClassWrite)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if _, err := tok.ExpiresAt(); err != nil {
		t.Errorf("ExpiresAt() error = %v", err)
	}
}

func TestBuild_ResolutionCache(t *testing.T) {
	storage, tokens := stubConfig()
	storage.AccountCacheTTL = time.Minute
	storage.AccountCacheSize = 4

	b, err := Build(storage, tokens)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if _, ok := b.Resolver.(*azure.CachingResolver); !ok {
		t.Errorf("Resolver = %T, want *azure.CachingResolver", b.Resolver)
	}
}

func TestBuild_Unknown(t *testing.T) {
	_, tokens := stubConfig()
	if _, err := Build(config.StorageConfig{Type: "s3"}, tokens); err == nil {
		t.Error("Build() expected error for unknown type")
	}
}
