package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var samplePaths = []string{
	"/", "/dashboard", "/dashboard/student", "/dashboard/company", "/profile",
	"/jobs", "/jobs/manage", "/applications", "/applications/review",
	"/courses/manage", "/payments", "/mentorship", "/reports", "/admin",
	"/admin/users", "/help", "",
}

func TestCanAccessRouteIsDeterministic(t *testing.T) {
	resolver := NewResolver(DefaultRegistry(UnlistedAllow))
	for _, role := range resolver.Registry().Roles() {
		for _, p := range samplePaths {
			first := resolver.CanAccessRoute(role, p)
			for i := 0; i < 3; i++ {
				assert.Equal(t, first, resolver.CanAccessRoute(role, p), "%s %s", role, p)
			}
		}
	}
}

func TestAnonymousFailsClosed(t *testing.T) {
	for _, policy := range []UnlistedPolicy{UnlistedAllow, UnlistedDeny} {
		resolver := NewResolver(DefaultRegistry(policy))
		for _, p := range samplePaths {
			assert.False(t, resolver.CanAccessRoute("", p), p)
		}
		assert.False(t, resolver.HasPermission("", PermViewJobs))
	}
}

func TestUnknownRoleFailsClosed(t *testing.T) {
	resolver := NewResolver(DefaultRegistry(UnlistedAllow))

	assert.False(t, resolver.CanAccessRoute("superuser", "/help"))
	assert.False(t, resolver.CanAccessRoute("superuser", "/dashboard"))
	assert.False(t, resolver.HasPermission("superuser", PermManageUsers))
	assert.Empty(t, resolver.AccessibleRoutes("superuser"))
}

func TestHomeRouteIsAlwaysAccessible(t *testing.T) {
	for _, policy := range []UnlistedPolicy{UnlistedAllow, UnlistedDeny} {
		resolver := NewResolver(DefaultRegistry(policy))
		for _, role := range resolver.Registry().Roles() {
			home := resolver.HomeRoute(role)
			assert.True(t, resolver.CanAccessRoute(role, home), "%s -> %s (%s)", role, home, policy)
		}
	}
}

func TestHasPermission(t *testing.T) {
	resolver := NewResolver(DefaultRegistry(UnlistedAllow))

	assert.True(t, resolver.HasPermission(RoleStudent, PermApplyJobs))
	assert.True(t, resolver.HasPermission(RoleStudent, " Apply_Jobs "))
	assert.False(t, resolver.HasPermission(RoleStudent, PermManageJobs))
	assert.True(t, resolver.HasPermission(RoleCompany, PermReviewApplications))
	assert.True(t, resolver.HasAnyPermission(RoleMentor, PermManageUsers, PermMentorStudents))
	assert.False(t, resolver.HasAnyPermission(RoleMentor))
}

func TestStudentCannotOpenAdminRoutes(t *testing.T) {
	resolver := NewResolver(DefaultRegistry(UnlistedAllow))

	assert.False(t, resolver.CanAccessRoute(RoleStudent, "/admin"))
	assert.False(t, resolver.CanAccessRoute(RoleStudent, "/admin/users/7"))
	assert.True(t, resolver.CanAccessRoute(RoleAdmin, "/admin/users/7"))
	assert.True(t, resolver.CanAccessRoute(RoleStudent, "/help"))
}

func TestAccessibleRoutes(t *testing.T) {
	resolver := NewResolver(DefaultRegistry(UnlistedAllow))

	routes := resolver.AccessibleRoutes(RoleMentor)
	assert.Contains(t, routes, "/mentorship")
	assert.Contains(t, routes, "/dashboard/mentor")
	assert.NotContains(t, routes, "/admin")
	assert.NotContains(t, routes, "/payments")
}

func TestNilResolver(t *testing.T) {
	var resolver *Resolver

	assert.False(t, resolver.CanAccessRoute(RoleAdmin, "/admin"))
	assert.False(t, resolver.HasPermission(RoleAdmin, PermManageUsers))
	assert.Equal(t, FallbackHome, resolver.HomeRoute(RoleAdmin))
}
