package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/carreirahub/carreirahub/internal/platform/httpx"
	"github.com/carreirahub/carreirahub/internal/profile"
	"github.com/carreirahub/carreirahub/internal/rbac"
	"github.com/carreirahub/carreirahub/internal/session"
	"github.com/carreirahub/carreirahub/internal/shared"
	"github.com/carreirahub/carreirahub/internal/view"
)

// LoginRecorder counts login attempts.
type LoginRecorder interface {
	ObserveLogin(result string)
}

// HandlerConfig groups the dependencies of Handler.
type HandlerConfig struct {
	Logger    *slog.Logger
	Service   *Service
	Templates *view.Engine
	Resolver  *rbac.Resolver
	Audit     shared.AuditRecorder
	Metrics   LoginRecorder
	// LoginLimit requests per LoginWindow per client IP on POST /auth/login.
	LoginLimit  int
	LoginWindow time.Duration
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	templates   *view.Engine
	resolver    *rbac.Resolver
	audit       shared.AuditRecorder
	metrics     LoginRecorder
	validator   *validator.Validate
	loginLimit  int
	loginWindow time.Duration
}

// NewHandler constructs a Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit, window := cfg.LoginLimit, cfg.LoginWindow
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Handler{
		logger:      logger,
		service:     cfg.Service,
		templates:   cfg.Templates,
		resolver:    cfg.Resolver,
		audit:       cfg.Audit,
		metrics:     cfg.Metrics,
		validator:   validator.New(),
		loginLimit:  limit,
		loginWindow: window,
	}
}

// MountRoutes registers the entry page and the /auth endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Route("/auth", func(r chi.Router) {
		r.With(httprate.LimitByIP(h.loginLimit, h.loginWindow)).Post("/login", h.handleLogin)
		r.Post("/register", h.handleRegister)
		r.Post("/logout", h.handleLogout)
	})
}

type loginPageData struct {
	Email  string
	Errors map[string]string
}

type authResponse struct {
	Profile       *profile.Profile `json:"profile,omitempty"`
	Home          string           `json:"home,omitempty"`
	Authenticated bool             `json:"authenticated"`
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if store := session.FromContext(r.Context()); store != nil && store.IsAuthenticated() {
		http.Redirect(w, r, h.resolver.HomeRoute(store.Role()), http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, loginPageData{})
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data loginPageData) {
	viewData := view.TemplateData{
		Title:       "Entrar",
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	store := session.FromContext(r.Context())
	if store == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	asJSON := httpx.WantsJSON(r)

	var creds Credentials
	if asJSON {
		if err := httpx.DecodeJSON(r, &creds); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON credentials")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		creds = Credentials{Email: r.PostFormValue("email"), Password: r.PostFormValue("password")}
	}
	creds.Email = strings.TrimSpace(creds.Email)

	if err := h.validator.Struct(creds); err != nil {
		h.observe("invalid_input")
		if asJSON {
			httpx.JSON(w, http.StatusBadRequest, validationProblem(err))
			return
		}
		h.renderLogin(w, r, http.StatusBadRequest, loginPageData{Email: creds.Email, Errors: formErrors(err)})
		return
	}

	p, err := store.Authenticate(r.Context(), func(ctx context.Context) (profile.Data, error) {
		return h.service.Authenticate(ctx, creds.Email, creds.Password)
	})
	if err != nil {
		h.loginFailed(w, r, store, creds.Email, asJSON, err)
		return
	}

	h.observe("success")
	h.record(r.Context(), shared.AuditLog{
		ActorID:  p.ID,
		Action:   shared.AuditLogin,
		Entity:   "session",
		EntityID: store.ID(),
		Meta:     map[string]any{"role": string(p.Role), "ip": r.RemoteAddr},
	})

	home := h.resolver.HomeRoute(p.Role)
	if asJSON {
		httpx.JSON(w, http.StatusOK, authResponse{Profile: &p, Home: home, Authenticated: true})
		return
	}
	http.Redirect(w, r, home, http.StatusSeeOther)
}

func (h *Handler) loginFailed(w http.ResponseWriter, r *http.Request, store *session.Store, email string, asJSON bool, err error) {
	switch {
	case errors.Is(err, session.ErrAlreadyAuthenticated):
		if asJSON {
			httpx.Problem(w, http.StatusConflict, "Already Authenticated", "log out before logging in again")
			return
		}
		http.Redirect(w, r, h.resolver.HomeRoute(store.Role()), http.StatusSeeOther)
	case errors.Is(err, session.ErrLoginPending), errors.Is(err, session.ErrLoginAborted):
		httpx.Problem(w, http.StatusConflict, "Login In Progress", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		h.observe("invalid_credentials")
		if asJSON {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
			return
		}
		h.renderLogin(w, r, http.StatusBadRequest, loginPageData{
			Email:  email,
			Errors: map[string]string{"general": "E-mail ou senha inválidos"},
		})
	case errors.Is(err, session.ErrInvalidRole),
		errors.Is(err, profile.ErrInvalidAttributes),
		errors.Is(err, profile.ErrUnsupportedRole):
		h.observe("invalid_profile")
		h.logger.Error("account profile rejected", slog.String("email", email), slog.Any("error", err))
		if asJSON {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "account cannot access the portal")
			return
		}
		h.renderLogin(w, r, http.StatusForbidden, loginPageData{
			Email:  email,
			Errors: map[string]string{"general": "Sua conta não pode acessar o portal"},
		})
	default:
		h.observe("error")
		h.logger.Error("login", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	store := session.FromContext(r.Context())
	if store == nil {
		h.logger.Error("session missing during registration")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if store.IsAuthenticated() {
		httpx.Problem(w, http.StatusConflict, "Already Authenticated", "log out before registering a new account")
		return
	}

	var in RegisterInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be a JSON registration")
		return
	}
	data, err := h.service.Register(r.Context(), in)
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidInput):
		httpx.JSON(w, http.StatusBadRequest, validationProblem(err))
		return
	case errors.Is(err, ErrRoleNotSelfService):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
		return
	case errors.Is(err, profile.ErrInvalidAttributes), errors.Is(err, profile.ErrUnsupportedRole):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	case errors.Is(err, ErrEmailTaken):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
		return
	default:
		h.logger.Error("register", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	p, err := store.Login(r.Context(), data)
	if err != nil {
		h.logger.Warn("login after registration", slog.String("account", data.ID), slog.Any("error", err))
		httpx.JSON(w, http.StatusCreated, authResponse{Authenticated: false})
		return
	}
	h.record(r.Context(), shared.AuditLog{
		ActorID:  p.ID,
		Action:   shared.AuditLogin,
		Entity:   "session",
		EntityID: store.ID(),
		Meta:     map[string]any{"role": string(p.Role), "registration": true},
	})
	httpx.JSON(w, http.StatusCreated, authResponse{Profile: &p, Home: h.resolver.HomeRoute(p.Role), Authenticated: true})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	store := session.FromContext(r.Context())
	if store != nil {
		current := store.Current()
		if err := store.Logout(r.Context()); err != nil {
			h.logger.Warn("logout", slog.String("session", store.ID()), slog.Any("error", err))
		}
		if current != nil {
			h.record(r.Context(), shared.AuditLog{
				ActorID:  current.ID,
				Action:   shared.AuditLogout,
				Entity:   "session",
				EntityID: store.ID(),
			})
		}
	}
	if httpx.WantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) observe(result string) {
	if h.metrics != nil {
		h.metrics.ObserveLogin(result)
	}
}

func (h *Handler) record(ctx context.Context, log shared.AuditLog) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Record(ctx, log); err != nil {
		h.logger.Warn("audit", slog.String("action", log.Action), slog.Any("error", err))
	}
}

type fieldProblem struct {
	httpx.ProblemDetail
	Fields map[string]string `json:"fields,omitempty"`
}

func validationProblem(err error) fieldProblem {
	return fieldProblem{
		ProblemDetail: httpx.ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: "one or more fields are invalid",
		},
		Fields: fieldErrors(err),
	}
}

func fieldErrors(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fieldErr := range verrs {
			out[fieldErr.Field()] = fieldErr.Tag()
		}
		return out
	}
	out["general"] = err.Error()
	return out
}

var formMessages = map[string]string{
	"required": "Campo obrigatório",
	"email":    "Informe um e-mail válido",
	"min":      "Valor muito curto",
	"max":      "Valor muito longo",
}

// formErrors is fieldErrors with messages for the login page.
func formErrors(err error) map[string]string {
	out := fieldErrors(err)
	for field, tag := range out {
		if msg, ok := formMessages[tag]; ok {
			out[field] = msg
		}
	}
	return out
}
