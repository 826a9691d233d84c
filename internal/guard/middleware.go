package guard

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/carreirahub/carreirahub/internal/profile"
)

// ProfileFunc returns the profile of the current request, or nil.
type ProfileFunc func(r *http.Request) *profile.Profile

// DeniedRenderer draws the access denied view.
type DeniedRenderer interface {
	RenderDenied(w http.ResponseWriter, r *http.Request, d Decision) error
}

// DecisionRecorder counts decisions.
type DecisionRecorder interface {
	ObserveGuardDecision(outcome string)
}

// Middleware applies a Guard to HTTP navigation.
type Middleware struct {
	Guard   *Guard
	Profile ProfileFunc
	Denied  DeniedRenderer
	Metrics DecisionRecorder
	Logger  *slog.Logger
}

// With returns a copy of the middleware whose guard uses strategy.
func (m Middleware) With(strategy Strategy) Middleware {
	m.Guard = m.Guard.With(strategy)
	return m
}

// Protect wraps next so it only runs for authorized navigations.
func (m Middleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p *profile.Profile
		if m.Profile != nil {
			p = m.Profile(r)
		}
		d := m.Guard.Decide(p, r.URL.Path)
		if m.Metrics != nil {
			m.Metrics.ObserveGuardDecision(d.Outcome.String())
		}
		switch d.Outcome {
		case Allow:
			next.ServeHTTP(w, r)
		case RedirectEntry, RedirectHome:
			if m.Logger != nil && d.Outcome == RedirectHome {
				m.Logger.Info("guard redirect",
					slog.String("role", string(d.Role)),
					slog.String("path", d.Path),
					slog.String("location", d.Location))
			}
			http.Redirect(w, r, d.Location, http.StatusSeeOther)
		default:
			m.deny(w, r, d)
		}
	})
}

var fallbackDenied = template.Must(template.New("denied").Parse(
	`<!doctype html><title>Acesso negado</title><h1>Acesso negado</h1>` +
		`<p>Você não tem permissão para abrir esta página.</p>` +
		`{{if .Location}}<p><a href="{{.Location}}">Voltar ao início</a></p>{{end}}`))

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, d Decision) {
	if m.Logger != nil {
		m.Logger.Info("guard deny", slog.String("role", string(d.Role)), slog.String("path", d.Path))
	}
	if m.Denied != nil {
		err := m.Denied.RenderDenied(w, r, d)
		if err == nil {
			return
		}
		if m.Logger != nil {
			m.Logger.Error("render access denied", slog.Any("error", err))
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_ = fallbackDenied.Execute(w, d)
}
