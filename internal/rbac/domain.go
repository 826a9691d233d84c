package rbac

import (
	"slices"
	"strings"
)

// Role identifies the kind of account. The empty Role means "no role".
type Role string

const (
	RoleStudent        Role = "student"
	RoleCompany        Role = "company"
	RoleCourseProvider Role = "course_provider"
	RoleMentor         Role = "mentor"
	RoleAdmin          Role = "admin"
)

// DefaultRole is adopted when a profile arrives without a role.
const DefaultRole = RoleStudent

// Permission represents an atomic capability independent of routing.
type Permission string

const (
	PermViewJobs           Permission = "view_jobs"
	PermApplyJobs          Permission = "apply_jobs"
	PermManageJobs         Permission = "manage_jobs"
	PermViewApplications   Permission = "view_applications"
	PermReviewApplications Permission = "review_applications"
	PermViewCourses        Permission = "view_courses"
	PermEnrollCourses      Permission = "enroll_courses"
	PermManageCourses      Permission = "manage_courses"
	PermViewPayments       Permission = "view_payments"
	PermManagePayments     Permission = "manage_payments"
	PermViewGamification   Permission = "view_gamification"
	PermMentorStudents     Permission = "mentor_students"
	PermRequestMentorship  Permission = "request_mentorship"
	PermViewReports        Permission = "view_reports"
	PermManageUsers        Permission = "manage_users"
	PermEditProfile        Permission = "edit_profile"
)

// ParseRole normalises raw input into a Role. It does not validate membership.
func ParseRole(raw string) Role {
	return Role(strings.TrimSpace(strings.ToLower(raw)))
}

// ParsePermission normalises raw input into a Permission.
func ParsePermission(raw string) Permission {
	return Permission(strings.TrimSpace(strings.ToLower(raw)))
}

// Access is the allow-list attached to a path. The zero value allows nobody.
type Access struct {
	any   bool
	roles []Role
}

// AnyAuthenticated is the sentinel meaning "every authenticated role".
func AnyAuthenticated() Access {
	return Access{any: true}
}

// AllowRoles builds an explicit allow-list.
func AllowRoles(roles ...Role) Access {
	unique := make([]Role, 0, len(roles))
	for _, r := range roles {
		if r == "" || slices.Contains(unique, r) {
			continue
		}
		unique = append(unique, r)
	}
	slices.Sort(unique)
	return Access{roles: unique}
}

// IsAny reports whether the access is the "any authenticated role" sentinel.
func (a Access) IsAny() bool {
	return a.any
}

// Roles returns a copy of the explicit allow-list.
func (a Access) Roles() []Role {
	return slices.Clone(a.roles)
}

// Contains reports explicit membership; it ignores the sentinel.
func (a Access) Contains(role Role) bool {
	return slices.Contains(a.roles, role)
}
