package portal

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carreirahub/carreirahub/internal/auth"
	"github.com/carreirahub/carreirahub/internal/guard"
	"github.com/carreirahub/carreirahub/internal/profile"
	"github.com/carreirahub/carreirahub/internal/rbac"
	"github.com/carreirahub/carreirahub/internal/session"
	"github.com/carreirahub/carreirahub/internal/shared"
	"github.com/carreirahub/carreirahub/internal/view"
)

// Recorder counts guard decisions and rejected role changes.
type Recorder interface {
	guard.DecisionRecorder
	ObserveRoleChangeRejected()
}

// AccountWriter stores profile edits on the account record.
type AccountWriter interface {
	UpdateProfile(ctx context.Context, p profile.Profile) error
}

// HandlerConfig groups the dependencies of Handler. Accounts may be nil, in
// which case edits only reach the session.
type HandlerConfig struct {
	Logger    *slog.Logger
	Templates *view.Engine
	Resolver  *rbac.Resolver
	Guard     *guard.Guard
	Audit     shared.AuditRecorder
	Metrics   Recorder
	Accounts  AccountWriter
}

// Handler serves the role-aware pages and the /api/me endpoints.
type Handler struct {
	logger    *slog.Logger
	templates *view.Engine
	resolver  *rbac.Resolver
	guard     guard.Middleware
	rbac      rbac.Middleware
	audit     shared.AuditRecorder
	metrics   Recorder
	accounts  AccountWriter
	validator *validator.Validate
}

// NewHandler constructs a Handler. Pages are protected by cfg.Guard and render
// the access denied view themselves.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:    logger,
		templates: cfg.Templates,
		resolver:  cfg.Resolver,
		audit:     cfg.Audit,
		metrics:   cfg.Metrics,
		accounts:  cfg.Accounts,
		validator: validator.New(),
		rbac: rbac.Middleware{
			Resolver: cfg.Resolver,
			Role:     session.RoleFromRequest,
			Logger:   logger,
		},
	}
	h.guard = guard.Middleware{
		Guard:   cfg.Guard,
		Profile: currentProfile,
		Denied:  h,
		Logger:  logger,
	}
	if cfg.Metrics != nil {
		h.guard.Metrics = cfg.Metrics
	}
	return h
}

// MountRoutes registers the pages and the profile API.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.root)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect)
		for _, s := range sections {
			r.Get(s.Path, h.section(s))
		}
		r.Get("/profile", h.showProfile)
		r.Post("/profile", h.submitProfile)
	})
	r.Route("/api/me", func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermEditProfile))
		r.Get("/", h.me)
		r.Patch("/", h.patchMe)
		r.Get("/access", h.access)
	})
}

// Protect exposes the page guard for routes mounted elsewhere.
func (h *Handler) Protect(next http.Handler) http.Handler {
	return h.guard.Protect(next)
}

func currentProfile(r *http.Request) *profile.Profile {
	return session.FromContext(r.Context()).Current()
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	p := currentProfile(r)
	if p == nil {
		http.Redirect(w, r, guard.DefaultEntryRoute, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, h.resolver.HomeRoute(p.Role), http.StatusSeeOther)
}

type sectionPageData struct {
	Heading     string
	Description string
	Actions     []Action
}

func (h *Handler) section(s Section) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := currentProfile(r)
		var role rbac.Role
		if p != nil {
			role = p.Role
		}
		data := sectionPageData{
			Heading:     s.Title,
			Description: s.Description,
			Actions:     VisibleActions(h.resolver, role, s),
		}
		h.Render(w, r, http.StatusOK, "pages/section.html", s.Title, data)
	}
}

type profilePageData struct {
	Fields   []Field
	Editable bool
	Name     string
	Email    string
	Error    string
}

func (h *Handler) showProfile(w http.ResponseWriter, r *http.Request) {
	p := currentProfile(r)
	if p == nil {
		http.Redirect(w, r, guard.DefaultEntryRoute, http.StatusSeeOther)
		return
	}
	h.Render(w, r, http.StatusOK, "pages/profile.html", "Meu perfil", h.profilePage(*p, ""))
}

func (h *Handler) profilePage(p profile.Profile, errMsg string) profilePageData {
	return profilePageData{
		Fields:   ProfileFields(p),
		Editable: h.resolver.HasPermission(p.Role, rbac.PermEditProfile),
		Name:     p.Name,
		Email:    p.Email,
		Error:    errMsg,
	}
}

type profileForm struct {
	Name  string `validate:"required,max=120"`
	Email string `validate:"required,email,max=254"`
}

func (h *Handler) submitProfile(w http.ResponseWriter, r *http.Request) {
	store := session.FromContext(r.Context())
	p := store.Current()
	if p == nil {
		http.Redirect(w, r, guard.DefaultEntryRoute, http.StatusSeeOther)
		return
	}
	if !h.resolver.HasPermission(p.Role, rbac.PermEditProfile) {
		h.RenderDenied(w, r, guard.Decision{Outcome: guard.Deny, Role: p.Role, Path: r.URL.Path})
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := profileForm{
		Name:  strings.TrimSpace(r.PostFormValue("name")),
		Email: strings.ToLower(strings.TrimSpace(r.PostFormValue("email"))),
	}
	if err := h.validator.Struct(form); err != nil {
		h.Render(w, r, http.StatusBadRequest, "pages/profile.html", "Meu perfil",
			h.profilePage(*p, "Verifique o nome e o e-mail informados"))
		return
	}
	patch := profile.Patch{Name: profile.String(form.Name), Email: profile.String(form.Email)}
	if _, err := h.update(r.Context(), store, patch); err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			h.Render(w, r, http.StatusConflict, "pages/profile.html", "Meu perfil",
				h.profilePage(*p, "Este e-mail já está em uso"))
			return
		}
		h.logger.Error("update profile", slog.Any("error", err))
		h.Render(w, r, http.StatusInternalServerError, "pages/profile.html", "Meu perfil",
			h.profilePage(*p, "Não foi possível salvar agora"))
		return
	}
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

// update applies patch to the account and the session, and records an
// attempted role change.
func (h *Handler) update(ctx context.Context, store *session.Store, patch profile.Patch) (session.UpdateResult, error) {
	var requested rbac.Role
	if patch.Role != nil {
		requested = *patch.Role
	}
	var write session.ProfileWriter
	if h.accounts != nil {
		write = h.accounts.UpdateProfile
	}
	result, err := store.UpdateWith(ctx, patch, write)
	if err != nil {
		return result, err
	}
	if result.RoleRejected() {
		if h.metrics != nil {
			h.metrics.ObserveRoleChangeRejected()
		}
		if h.audit != nil {
			err := h.audit.Record(ctx, shared.AuditLog{
				ActorID:  result.Profile.ID,
				Action:   shared.AuditRoleChangeRejected,
				Entity:   "profile",
				EntityID: result.Profile.ID,
				Meta: map[string]any{
					"role":      string(result.Profile.Role),
					"requested": string(requested),
					"session":   store.ID(),
				},
			})
			if err != nil {
				h.logger.Warn("audit role change", slog.Any("error", err))
			}
		}
	}
	return result, nil
}

// RenderDenied implements guard.DeniedRenderer.
func (h *Handler) RenderDenied(w http.ResponseWriter, r *http.Request, d guard.Decision) error {
	data := h.baseData(r, "Acesso negado", nil)
	data.CurrentPath = d.Path
	data.Home = d.Location
	return h.templates.RenderStatus(w, http.StatusForbidden, "pages/denied.html", data)
}

// Render draws a page inside the portal layout with the role-filtered
// navigation.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	if err := h.templates.RenderStatus(w, status, name, h.baseData(r, title, data)); err != nil {
		h.logger.Error("render page", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) baseData(r *http.Request, title string, data any) view.TemplateData {
	td := view.TemplateData{
		Title:       title,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	p := currentProfile(r)
	if p == nil {
		return td
	}
	td.Profile = p
	td.Home = h.resolver.HomeRoute(p.Role)
	td.Nav = h.navigation(p.Role, td.Home, r.URL.Path)
	return td
}

// navigation lists the menu entries role may open, landing route first.
func (h *Handler) navigation(role rbac.Role, home, current string) []view.NavItem {
	var items []view.NavItem
	add := func(path, label string) {
		items = append(items, view.NavItem{
			Path:   path,
			Label:  label,
			Active: current == path || strings.HasPrefix(current, path+"/"),
		})
	}
	if s, ok := sectionByPath[home]; ok && s.Nav != "" && h.resolver.CanAccessRoute(role, home) {
		add(home, s.Nav)
	}
	for _, path := range h.resolver.AccessibleRoutes(role) {
		s, ok := sectionByPath[path]
		if !ok || s.Nav == "" || path == home {
			continue
		}
		add(path, s.Nav)
	}
	if h.resolver.CanAccessRoute(role, "/profile") {
		add("/profile", "Meu perfil")
	}
	return items
}
