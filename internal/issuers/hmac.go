package issuers

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/efs-sdk/accessmanager/internal/config"
	"github.com/efs-sdk/accessmanager/internal/core"
)

type hmacSettings struct {
	Secret   string `mapstructure:"secret"`
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`
}

// HMACIssuer verifies HS256/384/512 signed JWTs with a shared secret.
type HMACIssuer struct {
	name     string
	secret   []byte
	issuer   string
	audience string
}

func NewHMACIssuer(cfg config.IssuerConfig) (*HMACIssuer, error) {
	var s hmacSettings
	if err := decodeSettings(cfg, &s); err != nil {
		return nil, err
	}
	if len(s.Secret) < 32 {
		return nil, fmt.Errorf("hmac issuer '%s' needs a 'secret' of at least 32 bytes", cfg.Name)
	}
	return &HMACIssuer{
		name:     cfg.Name,
		secret:   []byte(s.Secret),
		issuer:   s.Issuer,
		audience: s.Audience,
	}, nil
}

func (h *HMACIssuer) Name() string {
	return h.name
}

func (h *HMACIssuer) IssuerURL() string {
	return h.issuer
}

func (h *HMACIssuer) Verify(_ context.Context, token string) (*core.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if h.issuer != "" {
		opts = append(opts, jwt.WithIssuer(h.issuer))
	}
	if h.audience != "" {
		opts = append(opts, jwt.WithAudience(h.audience))
	}

	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return h.secret, nil
	}, opts...); err != nil {
		return nil, fmt.Errorf("hmac verification failed: %w", err)
	}
	return principalFromClaims(h.name, token, claims)
}
