package rbac

// Resolver answers authorization questions against a Registry. All answers
// fail closed: an empty or unregistered role is never granted anything.
type Resolver struct {
	registry *Registry
}

// NewResolver constructs a Resolver over reg.
func NewResolver(reg *Registry) *Resolver {
	return &Resolver{registry: reg}
}

// Registry exposes the underlying tables.
func (r *Resolver) Registry() *Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// HasPermission reports whether role holds perm.
func (r *Resolver) HasPermission(role Role, perm Permission) bool {
	if r == nil || !r.registry.IsValidRole(role) {
		return false
	}
	return r.registry.grants(role, ParsePermission(string(perm)))
}

// HasAnyPermission reports whether role holds at least one of perms.
func (r *Resolver) HasAnyPermission(role Role, perms ...Permission) bool {
	for _, p := range perms {
		if r.HasPermission(role, p) {
			return true
		}
	}
	return false
}

// CanAccessRoute reports whether role may open path.
func (r *Resolver) CanAccessRoute(role Role, path string) bool {
	if r == nil || !r.registry.IsValidRole(role) {
		return false
	}
	access := r.registry.RouteRulesFor(path)
	if access.IsAny() {
		return true
	}
	return access.Contains(role)
}

// HomeRoute returns the landing route of role.
func (r *Resolver) HomeRoute(role Role) string {
	if r == nil {
		return FallbackHome
	}
	return r.registry.DefaultRouteFor(role)
}

// AccessibleRoutes lists the rule paths role may open, ordered by path.
func (r *Resolver) AccessibleRoutes(role Role) []string {
	if r == nil || !r.registry.IsValidRole(role) {
		return nil
	}
	var paths []string
	for _, rule := range r.registry.Rules() {
		if r.CanAccessRoute(role, rule.Path) {
			paths = append(paths, rule.Path)
		}
	}
	return paths
}
