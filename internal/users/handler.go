package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/carreirahub/carreirahub/internal/platform/httpx"
	"github.com/carreirahub/carreirahub/internal/rbac"
	"github.com/carreirahub/carreirahub/internal/session"
	"github.com/carreirahub/carreirahub/internal/shared"
)

// PageRenderer draws a page inside the portal layout.
type PageRenderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any)
}

// HandlerConfig groups the dependencies of Handler.
type HandlerConfig struct {
	Logger   *slog.Logger
	Service  *Service
	Pages    PageRenderer
	Protect  func(http.Handler) http.Handler
	Resolver *rbac.Resolver
}

// Handler manages the admin account endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	pages   PageRenderer
	protect func(http.Handler) http.Handler
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:  logger,
		service: cfg.Service,
		pages:   cfg.Pages,
		protect: cfg.Protect,
		rbac:    rbac.Middleware{Resolver: cfg.Resolver, Role: session.RoleFromRequest, Logger: logger},
	}
}

// MountRoutes registers account routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/admin/users", func(r chi.Router) {
		if h.protect != nil {
			r.Use(h.protect)
		}
		r.Use(h.rbac.RequireAny(rbac.PermManageUsers))
		r.Get("/", h.listAccounts)
		r.Post("/{id}/status", h.setStatus)
	})
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	listing, err := h.service.List(r.Context(), ListFilter{
		Role:    rbac.Role(q.Get("role")),
		Query:   q.Get("q"),
		Page:    page,
		PerPage: perPage,
	})
	if errors.Is(err, ErrInvalidFilter) {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "unknown role")
		return
	}
	if err != nil {
		h.logger.Error("list accounts failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if httpx.WantsJSON(r) || h.pages == nil {
		httpx.JSON(w, http.StatusOK, listing)
		return
	}
	h.pages.Render(w, r, http.StatusOK, "pages/accounts.html", "Contas", listing)
}

type statusRequest struct {
	Active bool `json:"active"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	asJSON := httpx.WantsJSON(r)
	var req statusRequest
	if asJSON {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "expected {\"active\": bool}")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		req.Active = strings.EqualFold(r.PostFormValue("active"), "true")
	}

	var actorID string
	if p := session.FromContext(r.Context()).Current(); p != nil {
		actorID = p.ID
	}
	err := h.service.SetActive(r.Context(), actorID, chi.URLParam(r, "id"), req.Active)
	switch {
	case err == nil:
	case errors.Is(err, ErrSelfDeactivation):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
		return
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "account not found")
		return
	default:
		h.logger.Error("set account status", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if asJSON {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}
