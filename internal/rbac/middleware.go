package rbac

import (
	"log/slog"
	"net/http"

	"github.com/carreirahub/carreirahub/internal/platform/httpx"
)

// RoleFunc extracts the role of the current request. It returns the empty
// Role when nobody is authenticated.
type RoleFunc func(r *http.Request) Role

// Middleware wires RBAC authorization helpers for API handlers.
type Middleware struct {
	Resolver *Resolver
	Role     RoleFunc
	Logger   *slog.Logger
}

// RequireAny ensures the current role holds at least one of the permissions.
func (m Middleware) RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.require(normalized, func(role Role) bool {
		return m.Resolver.HasAnyPermission(role, normalized...)
	})
}

// RequireAll ensures the current role holds every permission.
func (m Middleware) RequireAll(perms ...Permission) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.require(normalized, func(role Role) bool {
		for _, p := range normalized {
			if !m.Resolver.HasPermission(role, p) {
				return false
			}
		}
		return true
	})
}

func (m Middleware) require(perms []Permission, granted func(Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			role := m.currentRole(r)
			if role == "" {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			if granted(role) {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Info("rbac permission denied",
					slog.String("role", string(role)),
					slog.String("path", r.URL.Path),
					slog.Any("required", perms))
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
		})
	}
}

func (m Middleware) currentRole(r *http.Request) Role {
	if m.Role == nil {
		return ""
	}
	return m.Role(r)
}

func normalizePermissions(perms []Permission) []Permission {
	normalized := make([]Permission, 0, len(perms))
	for _, p := range perms {
		p = ParsePermission(string(p))
		if p == "" {
			continue
		}
		seen := false
		for _, existing := range normalized {
			if existing == p {
				seen = true
				break
			}
		}
		if !seen {
			normalized = append(normalized, p)
		}
	}
	return normalized
}
