package portal_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carreirahub/carreirahub/internal/auth"
	"github.com/carreirahub/carreirahub/internal/guard"
	"github.com/carreirahub/carreirahub/internal/portal"
	"github.com/carreirahub/carreirahub/internal/profile"
	"github.com/carreirahub/carreirahub/internal/rbac"
	"github.com/carreirahub/carreirahub/internal/session"
	"github.com/carreirahub/carreirahub/internal/shared"
	"github.com/carreirahub/carreirahub/internal/view"
	_ "github.com/carreirahub/carreirahub/testing"
)

type counters struct {
	decisions map[string]int
	rejected  int
}

func (c *counters) ObserveGuardDecision(outcome string) { c.decisions[outcome]++ }
func (c *counters) ObserveRoleChangeRejected()          { c.rejected++ }

type accountLedger struct {
	written []profile.Profile
	err     error
}

func (l *accountLedger) UpdateProfile(_ context.Context, p profile.Profile) error {
	if l.err != nil {
		return l.err
	}
	l.written = append(l.written, p)
	return nil
}

type fixture struct {
	router   http.Handler
	store    *session.Store
	audit    *shared.MemoryAudit
	metrics  *counters
	accounts *accountLedger
}

func newFixture(t *testing.T, strategy guard.Strategy) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	registry := rbac.DefaultRegistry(rbac.UnlistedAllow)
	resolver := rbac.NewResolver(registry)
	store := session.NewStore("s1", session.NewRedisStorage(client, "carreirahub:session:", time.Hour), registry, nil)

	templates, err := view.NewEngine()
	require.NoError(t, err)

	f := &fixture{
		store:    store,
		audit:    &shared.MemoryAudit{},
		metrics:  &counters{decisions: map[string]int{}},
		accounts: &accountLedger{},
	}
	h := portal.NewHandler(portal.HandlerConfig{
		Templates: templates,
		Resolver:  resolver,
		Guard:     guard.New(resolver, strategy, ""),
		Audit:     f.audit,
		Metrics:   f.metrics,
		Accounts:  f.accounts,
	})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(session.ContextWithStore(r.Context(), store)))
		})
	})
	h.MountRoutes(r)
	f.router = r
	return f
}

func (f *fixture) login(t *testing.T, role rbac.Role, attrs string) {
	t.Helper()
	_, err := f.store.Login(context.Background(), profile.Data{
		ID:         "u-" + string(role),
		Name:       "Pessoa",
		Email:      "pessoa@example.com",
		Role:       role,
		Attributes: json.RawMessage(attrs),
	})
	require.NoError(t, err)
}

func (f *fixture) do(method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	return f.do(http.MethodGet, path, "", "")
}

func TestAnonymousIsSentToLogin(t *testing.T) {
	f := newFixture(t, nil)

	for _, path := range []string{"/dashboard", "/profile", "/admin", "/"} {
		res := f.get(path)
		assert.Equal(t, http.StatusSeeOther, res.Code, path)
		assert.Equal(t, "/login", res.Header().Get("Location"), path)
	}
	assert.Equal(t, 3, f.metrics.decisions["redirect_entry"])
}

func TestRootRedirectsToHome(t *testing.T) {
	f := newFixture(t, nil)
	f.login(t, rbac.RoleCourseProvider, "")

	res := f.get("/")
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/dashboard/provider", res.Header().Get("Location"))
}

func TestStudentOnAdminPageIsRedirectedHome(t *testing.T) {
	f := newFixture(t, guard.SoftRedirect)
	f.login(t, rbac.RoleStudent, "")

	res := f.get("/admin")
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/dashboard/student", res.Header().Get("Location"))
	assert.Equal(t, 1, f.metrics.decisions["redirect_home"])
}

func TestHardDenyRendersDeniedPage(t *testing.T) {
	f := newFixture(t, guard.HardDeny)
	f.login(t, rbac.RoleMentor, "")

	res := f.get("/payments")
	assert.Equal(t, http.StatusForbidden, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "Acesso negado")
	assert.Contains(t, body, "<code>/payments</code>")
	assert.Contains(t, body, `href="/dashboard/mentor"`)
}

func TestStudentDashboardShowsOnlyPermittedActions(t *testing.T) {
	f := newFixture(t, nil)
	f.login(t, rbac.RoleStudent, "")

	res := f.get("/dashboard/student")
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()

	assert.Contains(t, body, "Painel do estudante")
	assert.Contains(t, body, "Buscar vagas")
	assert.Contains(t, body, "Pedir mentoria")
	assert.NotContains(t, body, "Publicar vaga")
	assert.Contains(t, body, `href="/courses"`)
	assert.NotContains(t, body, `href="/admin"`)
	assert.NotContains(t, body, `href="/reports"`)
	assert.Contains(t, body, `class="active"`)
}

func TestJobsPageActionsDependOnRole(t *testing.T) {
	company := newFixture(t, nil)
	company.login(t, rbac.RoleCompany, "")
	body := company.get("/jobs").Body.String()
	assert.Contains(t, body, "Publicar vaga")
	assert.NotContains(t, body, "Candidatar-se")

	student := newFixture(t, nil)
	student.login(t, rbac.RoleStudent, "")
	body = student.get("/jobs").Body.String()
	assert.Contains(t, body, "Candidatar-se")
	assert.NotContains(t, body, "Publicar vaga")
}

func TestProfilePageShowsRoleFields(t *testing.T) {
	f := newFixture(t, nil)
	f.login(t, rbac.RoleCompany, `{"cnpj":"12.345.678/0001-90","companySize":"media"}`)

	res := f.get("/profile")
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "CNPJ")
	assert.Contains(t, body, "12.345.678/0001-90")
	assert.Contains(t, body, "Empresa")
	assert.NotContains(t, body, "Pontos")
	assert.Contains(t, body, `action="/profile"`)
}

func TestProfileFormUpdatesName(t *testing.T) {
	f := newFixture(t, nil)
	f.login(t, rbac.RoleStudent, `{"points":10}`)

	form := url.Values{"name": {" Nova Pessoa "}, "email": {"Nova@Example.com"}}
	res := f.do(http.MethodPost, "/profile", "application/x-www-form-urlencoded", form.Encode())
	assert.Equal(t, http.StatusSeeOther, res.Code)

	p := f.store.Current()
	require.NotNil(t, p)
	assert.Equal(t, "Nova Pessoa", p.Name)
	assert.Equal(t, "nova@example.com", p.Email)
	assert.Equal(t, 10, p.Attributes.(profile.StudentAttributes).Points)
}

func TestProfileFormEmailTaken(t *testing.T) {
	f := newFixture(t, nil)
	f.login(t, rbac.RoleStudent, "")
	f.accounts.err = auth.ErrEmailTaken

	form := url.Values{"name": {"Pessoa"}, "email": {"outra@example.com"}}
	res := f.do(http.MethodPost, "/profile", "application/x-www-form-urlencoded", form.Encode())
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Contains(t, res.Body.String(), "Este e-mail já está em uso")
	assert.Equal(t, "pessoa@example.com", f.store.Current().Email)
}

func TestProfileFormRejectsInvalidEmail(t *testing.T) {
	f := newFixture(t, nil)
	f.login(t, rbac.RoleStudent, "")

	form := url.Values{"name": {"X"}, "email": {"nope"}}
	res := f.do(http.MethodPost, "/profile", "application/x-www-form-urlencoded", form.Encode())
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "pessoa@example.com", f.store.Current().Email)
}

func TestMeRequiresSession(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, http.StatusUnauthorized, f.get("/api/me").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPatch, "/api/me", "application/json", `{"name":"x"}`).Code)
}

func TestMeReturnsProfile(t *testing.T) {
	f := newFixture(t, nil)
	f.login(t, rbac.RoleMentor, `{"expertise":["go"]}`)

	res := f.get("/api/me")
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{
		"id": "u-mentor",
		"name": "Pessoa",
		"email": "pessoa@example.com",
		"role": "mentor",
		"attributes": {"expertise": ["go"]}
	}`, res.Body.String())
}

func TestPatchMeNeverChangesRole(t *testing.T) {
	f := newFixture(t, nil)
	f.login(t, rbac.RoleStudent, "")

	res := f.do(http.MethodPatch, "/api/me", "application/json", `{"role":"admin","name":"X"}`)
	require.Equal(t, http.StatusOK, res.Code)

	var body struct {
		Profile struct {
			Name string    `json:"name"`
			Role rbac.Role `json:"role"`
		} `json:"profile"`
		Changed  bool     `json:"changed"`
		Warnings []string `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, "X", body.Profile.Name)
	assert.Equal(t, rbac.RoleStudent, body.Profile.Role)
	assert.True(t, body.Changed)
	assert.Equal(t, []string{"role_locked"}, body.Warnings)

	assert.Equal(t, rbac.RoleStudent, f.store.Role())
	assert.Equal(t, 1, f.metrics.rejected)
	records := f.audit.Records()
	require.Len(t, records, 1)
	assert.Equal(t, shared.AuditRoleChangeRejected, records[0].Action)
	assert.Equal(t, "admin", records[0].Meta["requested"])
}

func TestPatchMeWritesAccount(t *testing.T) {
	f := newFixture(t, nil)
	f.login(t, rbac.RoleMentor, "")

	res := f.do(http.MethodPatch, "/api/me", "application/json", `{"name":"Marta","attributes":{"bio":"Go"}}`)
	require.Equal(t, http.StatusOK, res.Code)

	require.Len(t, f.accounts.written, 1)
	written := f.accounts.written[0]
	assert.Equal(t, "u-mentor", written.ID)
	assert.Equal(t, "Marta", written.Name)
	assert.Equal(t, rbac.RoleMentor, written.Role)
	assert.Equal(t, profile.MentorAttributes{Bio: "Go"}, written.Attributes)
}

func TestPatchMeEmailTaken(t *testing.T) {
	f := newFixture(t, nil)
	f.login(t, rbac.RoleStudent, "")
	f.accounts.err = auth.ErrEmailTaken

	res := f.do(http.MethodPatch, "/api/me", "application/json", `{"email":"outra@example.com"}`)
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "pessoa@example.com", f.store.Current().Email)
}

func TestPatchMeCannotChangeEarnedFields(t *testing.T) {
	f := newFixture(t, nil)
	f.login(t, rbac.RoleStudent, `{"points":10,"badges":["pioneira"]}`)

	res := f.do(http.MethodPatch, "/api/me", "application/json", `{"attributes":{"age":22,"points":99999,"badges":["gold"]}}`)
	require.Equal(t, http.StatusOK, res.Code)

	var body struct {
		Profile struct {
			Attributes profile.StudentAttributes `json:"attributes"`
		} `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, 22, body.Profile.Attributes.Age)
	assert.Equal(t, 10, body.Profile.Attributes.Points)
	assert.Equal(t, []string{"pioneira"}, body.Profile.Attributes.Badges)
	assert.Equal(t, 10, f.store.Current().Attributes.(profile.StudentAttributes).Points)
}

func TestPatchMeEmptyIsNoop(t *testing.T) {
	f := newFixture(t, nil)
	f.login(t, rbac.RoleStudent, "")

	res := f.do(http.MethodPatch, "/api/me", "application/json", `{}`)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"changed":false`)
	assert.Empty(t, f.audit.Records())
	assert.Empty(t, f.accounts.written)
}

func TestPatchMeRejectsForeignAttributes(t *testing.T) {
	f := newFixture(t, nil)
	f.login(t, rbac.RoleStudent, "")

	res := f.do(http.MethodPatch, "/api/me", "application/json", `{"attributes":{"cnpj":"1"}}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestPatchMeValidatesEmail(t *testing.T) {
	f := newFixture(t, nil)
	f.login(t, rbac.RoleStudent, "")

	res := f.do(http.MethodPatch, "/api/me", "application/json", `{"email":"not-mail"}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestAccessListsRoutesAndPermissions(t *testing.T) {
	f := newFixture(t, nil)
	f.login(t, rbac.RoleStudent, "")

	res := f.get("/api/me/access")
	require.Equal(t, http.StatusOK, res.Code)

	var body struct {
		Role        rbac.Role         `json:"role"`
		Label       string            `json:"label"`
		Home        string            `json:"home"`
		Permissions []rbac.Permission `json:"permissions"`
		Routes      []string          `json:"routes"`
		Unlisted    string            `json:"unlisted"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, "Estudante", body.Label)
	assert.Equal(t, "/dashboard/student", body.Home)
	assert.Contains(t, body.Permissions, rbac.PermApplyJobs)
	assert.NotContains(t, body.Permissions, rbac.PermManageUsers)
	assert.Contains(t, body.Routes, "/applications")
	assert.NotContains(t, body.Routes, "/admin")
	assert.Equal(t, "allow", body.Unlisted)
}
