package rbac

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FallbackHome is the landing route for roles without a specific mapping.
const FallbackHome = "/dashboard"

// UnlistedPolicy controls paths that have no route rule.
type UnlistedPolicy string

const (
	// UnlistedAllow lets any authenticated role open an unlisted path.
	UnlistedAllow UnlistedPolicy = "allow"
	// UnlistedDeny refuses unlisted paths to everyone.
	UnlistedDeny UnlistedPolicy = "deny"
)

// ErrUnknownPolicy is returned when parsing an unsupported unlisted policy.
var ErrUnknownPolicy = errors.New("rbac: unknown unlisted route policy")

// ParseUnlistedPolicy converts configuration input into a policy.
func ParseUnlistedPolicy(raw string) (UnlistedPolicy, error) {
	switch UnlistedPolicy(strings.TrimSpace(strings.ToLower(raw))) {
	case "", UnlistedAllow:
		return UnlistedAllow, nil
	case UnlistedDeny:
		return UnlistedDeny, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, raw)
	}
}

// Tables is the declarative source of a Registry.
type Tables struct {
	Permissions  map[Role][]Permission
	Routes       map[string][]Role
	Homes        map[Role]string
	FallbackHome string
}

// Rule is a route rule as listed by Registry.Rules.
type Rule struct {
	Path  string `json:"path"`
	Roles []Role `json:"roles"`
}

// Registry holds the closed role set, the permission table and the route table.
// It is immutable after construction and safe for concurrent use.
type Registry struct {
	roles        []Role
	permissions  map[Role]map[Permission]struct{}
	routes       map[string]Access
	homes        map[Role]string
	fallbackHome string
	unlisted     UnlistedPolicy
}

// NewRegistry builds a Registry from tables. Every role that owns permissions,
// a route or a home route becomes a member of the closed role set.
func NewRegistry(t Tables, unlisted UnlistedPolicy) *Registry {
	reg := &Registry{
		permissions:  make(map[Role]map[Permission]struct{}, len(t.Permissions)),
		routes:       make(map[string]Access, len(t.Routes)),
		homes:        make(map[Role]string, len(t.Homes)),
		fallbackHome: cleanPath(t.FallbackHome),
		unlisted:     unlisted,
	}
	if t.FallbackHome == "" {
		reg.fallbackHome = FallbackHome
	}
	if reg.unlisted == "" {
		reg.unlisted = UnlistedAllow
	}
	addRole := func(r Role) {
		if r != "" && !slices.Contains(reg.roles, r) {
			reg.roles = append(reg.roles, r)
		}
	}
	for role, perms := range t.Permissions {
		addRole(role)
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[ParsePermission(string(p))] = struct{}{}
		}
		reg.permissions[role] = set
	}
	for p, roles := range t.Routes {
		for _, r := range roles {
			addRole(r)
		}
		reg.routes[cleanPath(p)] = AllowRoles(roles...)
	}
	for role, home := range t.Homes {
		addRole(role)
		reg.homes[role] = cleanPath(home)
	}
	slices.Sort(reg.roles)
	return reg
}

// DefaultRegistry returns the CarreiraHub tables.
func DefaultRegistry(unlisted UnlistedPolicy) *Registry {
	return NewRegistry(DefaultTables(), unlisted)
}

// DefaultTables returns a fresh copy of the CarreiraHub role tables.
func DefaultTables() Tables {
	all := []Role{RoleStudent, RoleCompany, RoleCourseProvider, RoleMentor, RoleAdmin}
	return Tables{
		Permissions: map[Role][]Permission{
			RoleStudent: {
				PermViewJobs, PermApplyJobs, PermViewApplications, PermViewCourses,
				PermEnrollCourses, PermViewPayments, PermViewGamification,
				PermRequestMentorship, PermEditProfile,
			},
			RoleCompany: {
				PermViewJobs, PermManageJobs, PermViewApplications, PermReviewApplications,
				PermViewCourses, PermViewPayments, PermViewReports, PermEditProfile,
			},
			RoleCourseProvider: {
				PermViewCourses, PermManageCourses, PermViewPayments, PermManagePayments,
				PermViewReports, PermEditProfile,
			},
			RoleMentor: {
				PermViewJobs, PermViewCourses, PermMentorStudents, PermEditProfile,
			},
			RoleAdmin: {
				PermViewJobs, PermManageJobs, PermViewApplications, PermReviewApplications,
				PermViewCourses, PermManageCourses, PermViewPayments, PermManagePayments,
				PermViewGamification, PermViewReports, PermManageUsers, PermEditProfile,
			},
		},
		Routes: map[string][]Role{
			"/dashboard":           all,
			"/dashboard/student":   {RoleStudent},
			"/dashboard/company":   {RoleCompany},
			"/dashboard/provider":  {RoleCourseProvider},
			"/dashboard/mentor":    {RoleMentor},
			"/profile":             all,
			"/jobs":                {RoleStudent, RoleCompany, RoleMentor, RoleAdmin},
			"/jobs/manage":         {RoleCompany, RoleAdmin},
			"/applications":        {RoleStudent},
			"/applications/review": {RoleCompany, RoleAdmin},
			"/courses":             all,
			"/courses/manage":      {RoleCourseProvider, RoleAdmin},
			"/courses/enrolled":    {RoleStudent},
			"/payments":            {RoleStudent, RoleCompany, RoleCourseProvider, RoleAdmin},
			"/mentorship":          {RoleStudent, RoleMentor},
			"/reports":             {RoleCompany, RoleCourseProvider, RoleAdmin},
			"/admin":               {RoleAdmin},
		},
		Homes: map[Role]string{
			RoleStudent:        "/dashboard/student",
			RoleCompany:        "/dashboard/company",
			RoleCourseProvider: "/dashboard/provider",
			RoleMentor:         "/dashboard/mentor",
			RoleAdmin:          "/admin",
		},
		FallbackHome: FallbackHome,
	}
}

// IsValidRole reports whether role belongs to the closed role set.
func (r *Registry) IsValidRole(role Role) bool {
	if r == nil || role == "" {
		return false
	}
	_, found := slices.BinarySearch(r.roles, role)
	return found
}

// Roles returns the closed role set in sorted order.
func (r *Registry) Roles() []Role {
	if r == nil {
		return nil
	}
	return slices.Clone(r.roles)
}

// PermissionsFor returns the sorted permission set of role. Unknown roles get none.
func (r *Registry) PermissionsFor(role Role) []Permission {
	if r == nil {
		return nil
	}
	set := r.permissions[role]
	perms := make([]Permission, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	slices.Sort(perms)
	return perms
}

func (r *Registry) grants(role Role, perm Permission) bool {
	if r == nil {
		return false
	}
	_, ok := r.permissions[role][perm]
	return ok
}

// RouteRulesFor returns the allow-list governing path. The most specific rule
// wins: a rule for "/admin" also covers "/admin/users". Paths without any rule
// get the sentinel under UnlistedAllow and an empty allow-list under UnlistedDeny.
func (r *Registry) RouteRulesFor(p string) Access {
	if r == nil {
		return Access{}
	}
	if access, ok := r.lookup(p); ok {
		return access
	}
	if r.unlisted == UnlistedDeny {
		return Access{}
	}
	return AnyAuthenticated()
}

func (r *Registry) lookup(p string) (Access, bool) {
	candidate := cleanPath(p)
	for {
		if access, ok := r.routes[candidate]; ok {
			return access, true
		}
		if candidate == "/" {
			return Access{}, false
		}
		candidate = path.Dir(candidate)
	}
}

// DefaultRouteFor returns the landing page of role.
func (r *Registry) DefaultRouteFor(role Role) string {
	if r == nil {
		return FallbackHome
	}
	if home, ok := r.homes[role]; ok {
		return home
	}
	return r.fallbackHome
}

// UnlistedPolicy reports how paths without rules are treated.
func (r *Registry) UnlistedPolicy() UnlistedPolicy {
	if r == nil {
		return UnlistedDeny
	}
	return r.unlisted
}

// Rules lists every route rule ordered by path.
func (r *Registry) Rules() []Rule {
	if r == nil {
		return nil
	}
	rules := make([]Rule, 0, len(r.routes))
	for p, access := range r.routes {
		rules = append(rules, Rule{Path: p, Roles: access.Roles()})
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Path < rules[j].Path })
	return rules
}

var roleLabels = map[Role]string{
	RoleStudent:        "Estudante",
	RoleCompany:        "Empresa",
	RoleCourseProvider: "Provedor de cursos",
	RoleMentor:         "Mentor",
	RoleAdmin:          "Administrador",
}

// Label returns a display name for role.
func Label(role Role) string {
	if label, ok := roleLabels[role]; ok {
		return label
	}
	return cases.Title(language.BrazilianPortuguese).String(strings.ReplaceAll(string(role), "_", " "))
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
