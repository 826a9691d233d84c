package view

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carreirahub/carreirahub/internal/profile"
	"github.com/carreirahub/carreirahub/internal/rbac"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderDeniedPage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	res := httptest.NewRecorder()
	err = engine.RenderStatus(res, http.StatusForbidden, "pages/denied.html", TemplateData{
		Title:       "Acesso negado",
		CurrentPath: "/admin",
		Home:        "/dashboard/student",
		Profile:     &profile.Profile{Name: "Ana", Role: rbac.RoleStudent},
		Nav:         []NavItem{{Path: "/dashboard/student", Label: "Início"}},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "Acesso negado")
	assert.Contains(t, body, `href="/dashboard/student"`)
	assert.Contains(t, body, "Estudante")
}

func TestRenderUnknownTemplateWritesNothing(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	res := httptest.NewRecorder()
	err = engine.RenderStatus(res, http.StatusOK, "pages/missing.html", TemplateData{})
	require.Error(t, err)
	assert.Empty(t, res.Body.String())
	assert.Empty(t, res.Header().Get("Content-Type"))
}

func TestRenderLoginWithoutData(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	res := httptest.NewRecorder()
	require.NoError(t, engine.Render(res, "pages/login.html", TemplateData{Title: "Entrar"}))
	assert.Contains(t, res.Body.String(), "<form")
}

func TestNilEngine(t *testing.T) {
	var engine *Engine
	assert.Error(t, engine.Render(httptest.NewRecorder(), "pages/login.html", TemplateData{}))
}
