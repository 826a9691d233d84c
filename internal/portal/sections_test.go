package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carreirahub/carreirahub/internal/profile"
	"github.com/carreirahub/carreirahub/internal/rbac"
)

func TestEveryRouteHasAPage(t *testing.T) {
	for _, rule := range rbac.DefaultRegistry(rbac.UnlistedAllow).Rules() {
		if rule.Path == "/profile" {
			continue
		}
		_, ok := sectionByPath[rule.Path]
		assert.True(t, ok, "no page for %s", rule.Path)
	}
}

func TestActionsAreGatedByPermissionAndRoute(t *testing.T) {
	resolver := rbac.NewResolver(rbac.DefaultRegistry(rbac.UnlistedDeny))
	admin := sectionByPath["/admin"]

	labels := func(actions []Action) []string {
		var out []string
		for _, a := range actions {
			out = append(out, a.Label)
		}
		return out
	}
	// /api/permissions is unlisted, so the deny policy hides it.
	assert.Equal(t, []string{"Contas", "Trilha de auditoria", "Relatórios", "Pagamentos"}, labels(VisibleActions(resolver, rbac.RoleAdmin, admin)))
	assert.Empty(t, VisibleActions(resolver, rbac.RoleStudent, admin))
	assert.Empty(t, VisibleActions(resolver, "", sectionByPath["/dashboard"]))
}

func TestProfileFieldsPerRole(t *testing.T) {
	fields := ProfileFields(profile.Profile{
		Name:       "Ana",
		Role:       rbac.RoleStudent,
		Attributes: profile.StudentAttributes{Points: 40, Badges: []string{"pioneira", "mentora"}},
	})
	byName := map[string]string{}
	for _, f := range fields {
		byName[f.Name] = f.Value
	}
	assert.Equal(t, "Ana", byName["name"])
	assert.Equal(t, "Estudante", byName["role"])
	assert.Equal(t, "40", byName["points"])
	assert.Equal(t, "pioneira, mentora", byName["badges"])
	assert.Equal(t, "-", byName["age"])
	assert.NotContains(t, byName, "cnpj")

	fields = ProfileFields(profile.Profile{Role: rbac.RoleAdmin, Attributes: profile.AdminAttributes{}})
	assert.Equal(t, "scope", fields[len(fields)-1].Name)
}
