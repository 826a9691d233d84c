package portal

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/carreirahub/carreirahub/internal/auth"
	"github.com/carreirahub/carreirahub/internal/platform/httpx"
	"github.com/carreirahub/carreirahub/internal/profile"
	"github.com/carreirahub/carreirahub/internal/rbac"
	"github.com/carreirahub/carreirahub/internal/session"
)

type patchRequest struct {
	Name       *string         `json:"name" validate:"omitnil,min=1,max=120"`
	Email      *string         `json:"email" validate:"omitnil,email,max=254"`
	Role       *rbac.Role      `json:"role"`
	Attributes json.RawMessage `json:"attributes"`
}

type updateResponse struct {
	Profile  profile.Profile   `json:"profile"`
	Changed  bool              `json:"changed"`
	Warnings []session.Warning `json:"warnings,omitempty"`
}

type accessResponse struct {
	Role        rbac.Role           `json:"role"`
	Label       string              `json:"label"`
	Home        string              `json:"home"`
	Permissions []rbac.Permission   `json:"permissions"`
	Routes      []string            `json:"routes"`
	Unlisted    rbac.UnlistedPolicy `json:"unlisted"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	p := currentProfile(r)
	if p == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) patchMe(w http.ResponseWriter, r *http.Request) {
	store := session.FromContext(r.Context())
	if !store.IsAuthenticated() {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}

	var req patchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be a JSON patch")
		return
	}
	if req.Name != nil {
		req.Name = profile.String(strings.TrimSpace(*req.Name))
	}
	if req.Email != nil {
		req.Email = profile.String(strings.ToLower(strings.TrimSpace(*req.Email)))
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.update(r.Context(), store, profile.Patch{
		Name:       req.Name,
		Email:      req.Email,
		Role:       req.Role,
		Attributes: req.Attributes,
	})
	switch {
	case err == nil:
	case errors.Is(err, session.ErrAnonymous):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	case errors.Is(err, auth.ErrEmailTaken):
		httpx.Problem(w, http.StatusConflict, "Conflict", "e-mail already in use")
		return
	case errors.Is(err, profile.ErrInvalidAttributes), errors.Is(err, profile.ErrUnsupportedRole):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	default:
		h.logger.Error("patch profile", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, updateResponse{
		Profile:  result.Profile,
		Changed:  result.Changed,
		Warnings: result.Warnings,
	})
}

func (h *Handler) access(w http.ResponseWriter, r *http.Request) {
	p := currentProfile(r)
	if p == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	reg := h.resolver.Registry()
	routes := h.resolver.AccessibleRoutes(p.Role)
	if routes == nil {
		routes = []string{}
	}
	httpx.JSON(w, http.StatusOK, accessResponse{
		Role:        p.Role,
		Label:       rbac.Label(p.Role),
		Home:        h.resolver.HomeRoute(p.Role),
		Permissions: reg.PermissionsFor(p.Role),
		Routes:      routes,
		Unlisted:    reg.UnlistedPolicy(),
	})
}
