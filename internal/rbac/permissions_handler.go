package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carreirahub/carreirahub/internal/platform/httpx"
)

// PermissionsHandler exposes the static role tables to administrators.
type PermissionsHandler struct {
	resolver *Resolver
	rbac     Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(resolver *Resolver, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{resolver: resolver, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(PermManageUsers))
		r.Get("/", h.listRoles)
		r.Get("/routes", h.listRoutes)
	})
}

type roleView struct {
	Role        Role         `json:"role"`
	Label       string       `json:"label"`
	Home        string       `json:"home"`
	Permissions []Permission `json:"permissions"`
}

func (h *PermissionsHandler) listRoles(w http.ResponseWriter, r *http.Request) {
	reg := h.resolver.Registry()
	roles := reg.Roles()
	out := make([]roleView, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleView{
			Role:        role,
			Label:       Label(role),
			Home:        h.resolver.HomeRoute(role),
			Permissions: reg.PermissionsFor(role),
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *PermissionsHandler) listRoutes(w http.ResponseWriter, r *http.Request) {
	reg := h.resolver.Registry()
	httpx.JSON(w, http.StatusOK, map[string]any{
		"unlisted": reg.UnlistedPolicy(),
		"rules":    reg.Rules(),
	})
}
