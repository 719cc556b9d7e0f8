package issuers

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	"github.com/efs-sdk/accessmanager/internal/config"
	"github.com/efs-sdk/accessmanager/internal/core"
)

type oidcSettings struct {
	IssuerURL string `mapstructure:"issuer_url"`
	// ClientID is the expected audience. Keycloak access tokens carry "account"
	// as audience by default, so the check can be switched off.
	ClientID          string `mapstructure:"client_id"`
	SkipClientIDCheck bool   `mapstructure:"skip_client_id_check"`
}

type OIDCIssuer struct {
	name      string
	issuerURL string
	verifier  *oidc.IDTokenVerifier
}

func NewOIDCIssuer(ctx context.Context, cfg config.IssuerConfig) (*OIDCIssuer, error) {
	var s oidcSettings
	if err := decodeSettings(cfg, &s); err != nil {
		return nil, err
	}
	if s.IssuerURL == "" {
		return nil, fmt.Errorf("oidc issuer '%s' missing 'issuer_url'", cfg.Name)
	}
	if s.ClientID == "" && !s.SkipClientIDCheck {
		return nil, fmt.Errorf("oidc issuer '%s' missing 'client_id'", cfg.Name)
	}

	provider, err := oidc.NewProvider(ctx, s.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("creating oidc provider for issuer '%s': %w", cfg.Name, err)
	}

	return &OIDCIssuer{
		name:      cfg.Name,
		issuerURL: s.IssuerURL,
		verifier: provider.Verifier(&oidc.Config{
			ClientID:          s.ClientID,
			SkipClientIDCheck: s.SkipClientIDCheck,
		}),
	}, nil
}

func (o *OIDCIssuer) Name() string {
	return o.name
}

func (o *OIDCIssuer) IssuerURL() string {
	return o.issuerURL
}

func (o *OIDCIssuer) Verify(ctx context.Context, token string) (*core.Principal, error) {
	idToken, err := o.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("oidc verification failed: %w", err)
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("extracting oidc claims: %w", err)
	}
	return principalFromClaims(o.name, token, claims)
}

// ExtractIssuerURL extracts the 'iss' claim from a JWT token string without verifying it.
func ExtractIssuerURL(tokenString string) (string, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	iss, err := claims.GetIssuer()
	if err != nil {
		return "", fmt.Errorf("invalid 'iss' claim: %w", err)
	}
	if iss == "" {
		return "", fmt.Errorf("token missing 'iss' claim")
	}
	return iss, nil
}
