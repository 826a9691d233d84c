package audithttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/carreirahub/carreirahub/internal/rbac"
	"github.com/carreirahub/carreirahub/internal/session"
)

const rateLimit = 10
const rateWindow = time.Minute

// MountRoutes registers the audit trail page and its exports.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	r.Route("/admin/audit", func(r chi.Router) {
		if h.protect != nil {
			r.Use(h.protect)
		}
		r.Use(h.rbac.RequireAny(rbac.PermManageUsers))
		r.Get("/", h.handleTimeline)
		r.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/export.csv", h.handleExport)
			gr.Get("/pdf", h.handlePDF)
		})
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if p := session.FromContext(r.Context()).Current(); p != nil {
		if id := strings.TrimSpace(p.ID); id != "" {
			return "user:" + id, nil
		}
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
