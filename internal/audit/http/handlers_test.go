package audithttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carreirahub/carreirahub/internal/audit"
	"github.com/carreirahub/carreirahub/internal/guard"
	"github.com/carreirahub/carreirahub/internal/portal"
	"github.com/carreirahub/carreirahub/internal/profile"
	"github.com/carreirahub/carreirahub/internal/rbac"
	"github.com/carreirahub/carreirahub/internal/session"
	"github.com/carreirahub/carreirahub/internal/view"
)

type stubTimelineService struct {
	result      audit.Result
	exportRows  []audit.TimelineRow
	lastFilters audit.TimelineFilters
}

func (s *stubTimelineService) Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error) {
	s.lastFilters = filters
	return s.result, nil
}

func (s *stubTimelineService) Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error) {
	s.lastFilters = filters
	return s.exportRows, nil
}

type fixture struct {
	router  http.Handler
	store   *session.Store
	service *stubTimelineService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	registry := rbac.DefaultRegistry(rbac.UnlistedAllow)
	resolver := rbac.NewResolver(registry)
	store := session.NewStore("s1", session.NewRedisStorage(client, "carreirahub:session:", time.Hour), registry, nil)
	templates, err := view.NewEngine()
	require.NoError(t, err)

	pages := portal.NewHandler(portal.HandlerConfig{
		Templates: templates,
		Resolver:  resolver,
		Guard:     guard.New(resolver, guard.SoftRedirect, ""),
	})
	service := &stubTimelineService{}
	handler := NewHandler(HandlerConfig{
		Service:  service,
		Exporter: audit.NewExporter(nil),
		Pages:    pages,
		Protect:  pages.Protect,
		Resolver: resolver,
	})
	handler.now = func() time.Time { return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) }

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(session.ContextWithStore(r.Context(), store)))
		})
	})
	handler.MountRoutes(r)
	return &fixture{router: r, store: store, service: service}
}

func (f *fixture) login(t *testing.T, role rbac.Role) {
	t.Helper()
	_, err := f.store.Login(context.Background(), profile.Data{ID: "u1", Name: "Ana", Email: "ana@example.com", Role: role})
	require.NoError(t, err)
}

func (f *fixture) get(path string, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestTimelineIsAdminOnly(t *testing.T) {
	f := newFixture(t)

	rr := f.get("/admin/audit", "")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	f.login(t, rbac.RoleCompany)
	rr = f.get("/admin/audit", "")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/dashboard/company", rr.Header().Get("Location"))
}

func TestTimelineRendersRows(t *testing.T) {
	f := newFixture(t)
	f.login(t, rbac.RoleAdmin)
	f.service.result = audit.Result{
		Rows:   []audit.TimelineRow{{At: time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC), Actor: "auditor@example.com", Action: "role_change_rejected", Entity: "profile", EntityID: "u9"}},
		Paging: audit.PagingInfo{Page: 1, PageSize: 20},
	}

	rr := f.get("/admin/audit?from=2024-03-01&to=2024-03-15", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "auditor@example.com")
	assert.Contains(t, body, "role_change_rejected")
	assert.Equal(t, "2024-03-01", f.service.lastFilters.From.Format("2006-01-02"))
}

func TestTimelineJSONDefaultsToLastWeek(t *testing.T) {
	f := newFixture(t)
	f.login(t, rbac.RoleAdmin)

	rr := f.get("/admin/audit?page_size=500", "application/json")
	require.Equal(t, http.StatusOK, rr.Code)
	var vm audit.ViewModel
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &vm))
	assert.Equal(t, "2024-03-08", f.service.lastFilters.From.Format("2006-01-02"))
	assert.Equal(t, "2024-03-15", f.service.lastFilters.To.Format("2006-01-02"))
	assert.Equal(t, maxPageSize, f.service.lastFilters.PageSize)
}

func TestTimelineRejectsBadFilters(t *testing.T) {
	f := newFixture(t)
	f.login(t, rbac.RoleAdmin)

	for _, q := range []string{"from=2024-03-20&to=2024-03-01", "from=2023-01-01&to=2024-03-01", "to=yesterday", "page=0"} {
		rr := f.get("/admin/audit?"+q, "application/json")
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	f.login(t, rbac.RoleAdmin)
	f.service.exportRows = []audit.TimelineRow{{Actor: "auditor@example.com", Action: "login"}}

	rr := f.get("/admin/audit/export.csv?from=2024-03-01&to=2024-03-05", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")
	assert.True(t, strings.HasPrefix(rr.Body.String(), "at,actor,action"))
	assert.Contains(t, rr.Body.String(), "auditor@example.com")
}

func TestExportIsRateLimitedPerUser(t *testing.T) {
	f := newFixture(t)
	f.login(t, rbac.RoleAdmin)

	for i := 0; i < rateLimit; i++ {
		require.Equal(t, http.StatusOK, f.get("/admin/audit/export.csv", "").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, f.get("/admin/audit/export.csv", "").Code)
}

func TestPDFNotImplemented(t *testing.T) {
	f := newFixture(t)
	f.login(t, rbac.RoleAdmin)

	rr := f.get("/admin/audit/pdf", "")
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}
