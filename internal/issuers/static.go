package issuers

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/efs-sdk/accessmanager/internal/config"
	"github.com/efs-sdk/accessmanager/internal/core"
)

type staticIdentity struct {
	Subject  string `mapstructure:"sub"`
	Username string `mapstructure:"preferred_username"`
}

type staticSettings struct {
	Tokens map[string]staticIdentity `mapstructure:"tokens"`
}

// StaticIssuer maps fixed bearer tokens to identities. Meant for local setups.
type StaticIssuer struct {
	name   string
	tokens map[string]staticIdentity
}

func NewStatic(cfg config.IssuerConfig) (*StaticIssuer, error) {
	var s staticSettings
	if err := decodeSettings(cfg, &s); err != nil {
		return nil, err
	}
	for token, id := range s.Tokens {
		if id.Subject == "" {
			return nil, fmt.Errorf("static token '%.4s...' has no 'sub'", token)
		}
	}
	return &StaticIssuer{
		name:   cfg.Name,
		tokens: s.Tokens,
	}, nil
}

func (s *StaticIssuer) Name() string {
	return s.name
}

func (s *StaticIssuer) Verify(_ context.Context, token string) (*core.Principal, error) {
	for known, id := range s.tokens {
		if subtle.ConstantTimeCompare([]byte(known), []byte(token)) == 1 {
			return &core.Principal{
				ID:       id.Subject,
				Username: id.Username,
				Issuer:   s.name,
				Token:    token,
			}, nil
		}
	}
	return nil, fmt.Errorf("unknown static token")
}
