// Package auth provides bearer-token authentication and role-based access
// control for admin endpoints.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/openvenue/mailroom/internal/pkg/httputil"
)

// Role is the closed set of admin access levels.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// ParseRole maps a configured role string to a Role. Unknown strings and
// the empty string default to editor; the permissive default keeps small
// single-operator deployments working without role configuration.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "viewer":
		return RoleViewer
	case "admin":
		return RoleAdmin
	default:
		return RoleEditor
	}
}

// Level orders roles for comparison: viewer < editor < admin.
func (r Role) Level() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleEditor:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// Allows reports whether the role meets the minimum required level.
func (r Role) Allows(min Role) bool {
	return r.Level() >= min.Level()
}

type contextKey struct{}

// RoleFromContext returns the authenticated role, if any.
func RoleFromContext(ctx context.Context) (Role, bool) {
	r, ok := ctx.Value(contextKey{}).(Role)
	return r, ok
}

// Middleware authenticates requests against a token→role map from config.
type Middleware struct {
	tokens map[string]Role
}

// NewMiddleware builds the middleware from configured token/role pairs.
func NewMiddleware(tokens map[string]string) *Middleware {
	m := &Middleware{tokens: make(map[string]Role, len(tokens))}
	for token, role := range tokens {
		m.tokens[token] = ParseRole(role)
	}
	return m
}

// Authenticate rejects requests without a known bearer token and stores the
// token's role in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httputil.Unauthorized(w, "missing bearer token")
			return
		}
		role, ok := m.tokens[token]
		if !ok {
			httputil.Unauthorized(w, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), contextKey{}, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole guards a subtree with a minimum role. It assumes Authenticate
// ran earlier in the chain.
func RequireRole(min Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFromContext(r.Context())
			if !ok {
				httputil.Unauthorized(w, "not authenticated")
				return
			}
			if !role.Allows(min) {
				httputil.Error(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
