package issuers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/efs-sdk/accessmanager/internal/config"
	"github.com/efs-sdk/accessmanager/internal/core"
)

var ErrNoIssuer = errors.New("no issuer accepts this token")

// urlIssuer is implemented by issuers that can be matched on the iss claim.
type urlIssuer interface {
	core.Issuer
	IssuerURL() string
}

// Registry holds the configured issuers in configuration order.
type Registry struct {
	issuers []core.Issuer
	byName  map[string]core.Issuer
}

func NewRegistry(issuers ...core.Issuer) *Registry {
	r := &Registry{byName: make(map[string]core.Issuer)}
	for _, iss := range issuers {
		r.issuers = append(r.issuers, iss)
		r.byName[iss.Name()] = iss
	}
	return r
}

func BuildRegistry(ctx context.Context, cfgs []config.IssuerConfig) (*Registry, error) {
	var list []core.Issuer
	for _, cfg := range cfgs {
		var (
			iss core.Issuer
			err error
		)
		switch cfg.Type {
		case "oidc":
			iss, err = NewOIDCIssuer(ctx, cfg)
		case "hmac":
			iss, err = NewHMACIssuer(cfg)
		case "static":
			iss, err = NewStatic(cfg)
		default:
			return nil, fmt.Errorf("unknown issuer type %q for issuer %q", cfg.Type, cfg.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("building %s issuer %q: %w", cfg.Type, cfg.Name, err)
		}
		list = append(list, iss)
	}
	return NewRegistry(list...), nil
}

func (r *Registry) Get(name string) (core.Issuer, bool) {
	iss, ok := r.byName[name]
	return iss, ok
}

func (r *Registry) Len() int {
	return len(r.issuers)
}

// Verify picks the issuer by the token's iss claim if possible and otherwise
// tries every issuer in order.
func (r *Registry) Verify(ctx context.Context, token string) (*core.Principal, error) {
	if issURL, err := ExtractIssuerURL(token); err == nil {
		for _, iss := range r.issuers {
			u, ok := iss.(urlIssuer)
			if ok && strings.TrimRight(u.IssuerURL(), "/") == strings.TrimRight(issURL, "/") {
				return iss.Verify(ctx, token)
			}
		}
	}

	var errs []error
	for _, iss := range r.issuers {
		p, err := iss.Verify(ctx, token)
		if err == nil {
			return p, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", iss.Name(), err))
	}
	return nil, errors.Join(append([]error{ErrNoIssuer}, errs...)...)
}

func decodeSettings(cfg config.IssuerConfig, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	raw := make(map[string]any, len(cfg.Config))
	for k, v := range cfg.Config {
		if k == "name" || k == "type" {
			continue
		}
		raw[k] = v
	}
	return dec.Decode(raw)
}

// principalFromClaims maps the common JWT claims onto a principal.
func principalFromClaims(issuer, token string, claims map[string]any) (*core.Principal, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("token has no 'sub' claim")
	}
	username, _ := claims["preferred_username"].(string)
	return &core.Principal{
		ID:         sub,
		Username:   username,
		Issuer:     issuer,
		Attributes: claims,
		Token:      token,
	}, nil
}
