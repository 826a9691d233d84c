package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/carreirahub/carreirahub/internal/audit/http"
	"github.com/carreirahub/carreirahub/internal/auth"
	"github.com/carreirahub/carreirahub/internal/observability"
	"github.com/carreirahub/carreirahub/internal/portal"
	"github.com/carreirahub/carreirahub/internal/rbac"
	"github.com/carreirahub/carreirahub/internal/session"
	"github.com/carreirahub/carreirahub/internal/users"
	"github.com/carreirahub/carreirahub/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Sessions           *session.Manager
	AuthHandler        *auth.Handler
	PortalHandler      *portal.Handler
	PermissionsHandler *rbac.PermissionsHandler
	UsersHandler       *users.Handler
	AuditHandler       *audithttp.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with CarreiraHub defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/healthz/jobs", params.JobHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:   params.Logger,
			Config:   params.Config,
			Sessions: params.Sessions,
			Metrics:  params.Metrics,
		}) {
			r.Use(mw)
		}
		r.Use(chimw.Logger)

		params.AuthHandler.MountRoutes(r)
		params.PortalHandler.MountRoutes(r)
		if params.UsersHandler != nil {
			params.UsersHandler.MountRoutes(r)
		}
		if params.AuditHandler != nil {
			params.AuditHandler.MountRoutes(r)
		}
		if params.PermissionsHandler != nil {
			r.Route("/api/permissions", params.PermissionsHandler.MountRoutes)
		}
	})

	return r
}
