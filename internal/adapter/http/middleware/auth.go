package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/infrastructure/auth"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	scopeContextKey ContextKey = "scope"
	roleContextKey  ContextKey = "role"
)

// Headers that carry the scope when token auth is disabled.
const (
	OrganizationHeader = "X-Organization-ID"
	ActorHeader        = "X-Actor-ID"
	RoleHeader         = "X-Actor-Role"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Authenticate resolves the tenant scope and role of each request. With a
// verifier the bearer token is authoritative; without one the scope comes
// from the organization and actor headers and the role defaults to admin.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				scope domain.Scope
				role  domain.Role
			)

			if verifier != nil {
				claims, err := bearerClaims(verifier, r)
				if err != nil {
					writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
					return
				}
				scope, role = claims.Scope(), claims.Role
			} else {
				scope = domain.Scope{
					OrganizationID: strings.TrimSpace(r.Header.Get(OrganizationHeader)),
					ActorID:        strings.TrimSpace(r.Header.Get(ActorHeader)),
				}
				role = domain.RoleAdmin
				if h := r.Header.Get(RoleHeader); h != "" {
					role = domain.Role(h)
				}
			}

			if err := scope.Validate(); err != nil {
				writeError(w, http.StatusBadRequest, "bad_request", err.Error())
				return
			}
			if !role.IsValid() {
				writeError(w, http.StatusForbidden, "forbidden", domain.ErrInsufficientRole.Error())
				return
			}

			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("org_id", scope.OrganizationID).Str("actor_id", scope.ActorID)
			})

			ctx := WithScope(r.Context(), scope, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerClaims(verifier TokenVerifier, r *http.Request) (*auth.Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, domain.ErrUnauthorized
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, domain.ErrInvalidToken
	}

	claims, err := verifier.Verify(parts[1])
	if err != nil {
		if errors.Is(err, domain.ErrExpiredToken) {
			return nil, domain.ErrExpiredToken
		}
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

// RequireRole rejects requests whose role ranks below min.
func RequireRole(min domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", domain.ErrUnauthorized.Error())
				return
			}
			if !role.Allows(min) {
				writeError(w, http.StatusForbidden, "forbidden", domain.ErrInsufficientRole.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithScope stores the request scope and role in ctx.
func WithScope(ctx context.Context, scope domain.Scope, role domain.Role) context.Context {
	ctx = context.WithValue(ctx, scopeContextKey, scope)
	return context.WithValue(ctx, roleContextKey, role)
}

// ScopeFromContext returns the scope set by Authenticate.
func ScopeFromContext(ctx context.Context) (domain.Scope, bool) {
	scope, ok := ctx.Value(scopeContextKey).(domain.Scope)
	return scope, ok
}

// RoleFromContext returns the role set by Authenticate.
func RoleFromContext(ctx context.Context) (domain.Role, bool) {
	role, ok := ctx.Value(roleContextKey).(domain.Role)
	return role, ok
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}
