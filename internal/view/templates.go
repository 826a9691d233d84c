package view

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"github.com/carreirahub/carreirahub/internal/profile"
	"github.com/carreirahub/carreirahub/internal/rbac"
	"github.com/carreirahub/carreirahub/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// NavItem is one entry of the role-filtered navigation.
type NavItem struct {
	Path   string
	Label  string
	Active bool
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CurrentPath string
	Profile     *profile.Profile
	Home        string
	Nav         []NavItem
	Flash       string
	Data        any
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	roles := rbac.DefaultRegistry(rbac.UnlistedAllow).Roles()
	funcMap := template.FuncMap{
		"roleLabel": func(role rbac.Role) string {
			return rbac.Label(role)
		},
		"roles": func() []rbac.Role { return roles },
		"prev":  func(n int) int { return n - 1 },
		"next":  func(n int) int { return n + 1 },
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData and status 200.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return e.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus executes a named template into a buffer and only writes the
// response when rendering succeeded.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
