package middleware

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/efs-sdk/accessmanager/internal/api/presenter"
	"github.com/efs-sdk/accessmanager/internal/core"
)

const adminRole = "admin"

// Verifier turns a bearer token into a principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (*core.Principal, error)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}

// Authenticate verifies the bearer token and stores the principal in the
// request context. The principal's subject is added to the request logger.
func Authenticate(verifier Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := log.Ctx(ctx)

			token := bearerToken(r)
			if token == "" {
				presenter.Error(w, r, "missing bearer token", http.StatusUnauthorized)
				return
			}

			principal, err := verifier.Verify(ctx, token)
			if err != nil {
				logger.Warn().Err(err).Msg("bearer token verification failed")
				presenter.Error(w, r, "invalid bearer token", http.StatusUnauthorized)
				return
			}

			logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("sub", principal.ID)
			})
			next.ServeHTTP(w, r.WithContext(core.WithPrincipal(ctx, principal)))
		})
	}
}

// AdminAuth only lets through HMAC signed JWTs carrying the admin role.
func AdminAuth(signingKey []byte) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(signingKey) == 0 {
				presenter.Error(w, r, "admin api is disabled", http.StatusNotFound)
				return
			}

			tokenStr := bearerToken(r)
			if tokenStr == "" {
				presenter.Error(w, r, "login required", http.StatusUnauthorized)
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method")
				}
				return signingKey, nil
			})
			if err != nil || !token.Valid {
				presenter.Error(w, r, "invalid session token", http.StatusUnauthorized)
				return
			}

			if !slices.Contains(roles(claims), adminRole) {
				presenter.Error(w, r, "insufficient privileges", http.StatusForbidden)
				return
			}

			sub, _ := claims.GetSubject()
			ctx := core.WithPrincipal(r.Context(), &core.Principal{ID: sub, Issuer: "admin"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func roles(claims jwt.MapClaims) []string {
	raw, ok := claims["roles"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
