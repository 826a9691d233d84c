// Package profile defines the authenticated user's record: identity fields, a
// single role, and the attribute set selected by that role.
package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/carreirahub/carreirahub/internal/rbac"
)

var (
	// ErrInvalidAttributes indicates attributes that do not decode for the role.
	ErrInvalidAttributes = errors.New("profile: invalid attributes")
	// ErrUnsupportedRole indicates a role with no attribute set.
	ErrUnsupportedRole = errors.New("profile: unsupported role")
)

// Attributes is the role-specific part of a Profile. The concrete type is
// selected by the Profile's role.
type Attributes interface {
	Role() rbac.Role
	clone() Attributes
}

// StudentAttributes carries student-only data.
type StudentAttributes struct {
	Age         int      `json:"age,omitempty"`
	Education   string   `json:"education,omitempty"`
	AppliedJobs []string `json:"appliedJobs,omitempty"`
	Points      int      `json:"points"`
	Badges      []string `json:"badges,omitempty"`
}

// Role implements Attributes.
func (StudentAttributes) Role() rbac.Role { return rbac.RoleStudent }

func (a StudentAttributes) clone() Attributes {
	a.AppliedJobs = slices.Clone(a.AppliedJobs)
	a.Badges = slices.Clone(a.Badges)
	return a
}

// CompanyAttributes carries employer data.
type CompanyAttributes struct {
	CNPJ        string   `json:"cnpj,omitempty"`
	CompanySize string   `json:"companySize,omitempty"`
	ActiveJobs  []string `json:"activeJobs,omitempty"`
}

// Role implements Attributes.
func (CompanyAttributes) Role() rbac.Role { return rbac.RoleCompany }

func (a CompanyAttributes) clone() Attributes {
	a.ActiveJobs = slices.Clone(a.ActiveJobs)
	return a
}

// CourseProviderAttributes carries course provider data.
type CourseProviderAttributes struct {
	PlatformName string   `json:"platformName,omitempty"`
	Categories   []string `json:"categories,omitempty"`
}

// Role implements Attributes.
func (CourseProviderAttributes) Role() rbac.Role { return rbac.RoleCourseProvider }

func (a CourseProviderAttributes) clone() Attributes {
	a.Categories = slices.Clone(a.Categories)
	return a
}

// MentorAttributes carries mentor data.
type MentorAttributes struct {
	Expertise []string `json:"expertise,omitempty"`
	Bio       string   `json:"bio,omitempty"`
}

// Role implements Attributes.
func (MentorAttributes) Role() rbac.Role { return rbac.RoleMentor }

func (a MentorAttributes) clone() Attributes {
	a.Expertise = slices.Clone(a.Expertise)
	return a
}

// AdminAttributes carries administrator data.
type AdminAttributes struct {
	Scope string `json:"scope,omitempty"`
}

// Role implements Attributes.
func (AdminAttributes) Role() rbac.Role { return rbac.RoleAdmin }

func (a AdminAttributes) clone() Attributes { return a }

// NewAttributes returns the empty attribute set of role.
func NewAttributes(role rbac.Role) (Attributes, error) {
	switch role {
	case rbac.RoleStudent:
		return StudentAttributes{}, nil
	case rbac.RoleCompany:
		return CompanyAttributes{}, nil
	case rbac.RoleCourseProvider:
		return CourseProviderAttributes{}, nil
	case rbac.RoleMentor:
		return MentorAttributes{}, nil
	case rbac.RoleAdmin:
		return AdminAttributes{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedRole, role)
	}
}

// DecodeAttributes decodes raw JSON into the attribute set of role. Empty input
// yields the empty attribute set.
func DecodeAttributes(role rbac.Role, raw json.RawMessage) (Attributes, error) {
	base, err := NewAttributes(role)
	if err != nil {
		return nil, err
	}
	return MergeAttributes(base, raw)
}

// MergeAttributes overlays the fields present in raw onto current. Fields
// absent from raw keep their current value.
func MergeAttributes(current Attributes, raw json.RawMessage) (Attributes, error) {
	if current == nil {
		return nil, ErrInvalidAttributes
	}
	if isEmptyJSON(raw) {
		return current.clone(), nil
	}
	dec := func(target any) error {
		d := json.NewDecoder(bytes.NewReader(raw))
		d.DisallowUnknownFields()
		if err := d.Decode(target); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAttributes, err)
		}
		if err := d.Decode(&struct{}{}); err != io.EOF {
			return fmt.Errorf("%w: trailing data after attributes object", ErrInvalidAttributes)
		}
		return nil
	}
	var (
		merged Attributes
		err    error
	)
	switch a := current.clone().(type) {
	case StudentAttributes:
		err = dec(&a)
		a.AppliedJobs, a.Badges = nilIfEmpty(a.AppliedJobs), nilIfEmpty(a.Badges)
		merged = a
	case CompanyAttributes:
		err = dec(&a)
		a.ActiveJobs = nilIfEmpty(a.ActiveJobs)
		merged = a
	case CourseProviderAttributes:
		err = dec(&a)
		a.Categories = nilIfEmpty(a.Categories)
		merged = a
	case MentorAttributes:
		err = dec(&a)
		a.Expertise = nilIfEmpty(a.Expertise)
		merged = a
	case AdminAttributes:
		err = dec(&a)
		merged = a
	default:
		return nil, ErrInvalidAttributes
	}
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// nilIfEmpty keeps empty lists nil, the form they take after a trip through
// the omitempty JSON encoding.
func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

// WithoutEarnedFields clears the attributes the platform fills in over time:
// student points, badges and applications, and company active jobs.
func WithoutEarnedFields(attrs Attributes) Attributes {
	switch a := attrs.(type) {
	case StudentAttributes:
		a.AppliedJobs, a.Points, a.Badges = nil, 0, nil
		return a
	case CompanyAttributes:
		a.ActiveJobs = nil
		return a
	default:
		return attrs
	}
}

// keepEarnedFields returns next with the platform-owned fields of prev.
func keepEarnedFields(prev, next Attributes) Attributes {
	switch n := next.(type) {
	case StudentAttributes:
		p, _ := prev.(StudentAttributes)
		n.AppliedJobs, n.Points, n.Badges = slices.Clone(p.AppliedJobs), p.Points, slices.Clone(p.Badges)
		return n
	case CompanyAttributes:
		p, _ := prev.(CompanyAttributes)
		n.ActiveJobs = slices.Clone(p.ActiveJobs)
		return n
	default:
		return next
	}
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}"))
}

// Profile is the authenticated user's record.
type Profile struct {
	ID         string
	Name       string
	Email      string
	Role       rbac.Role
	Attributes Attributes
}

// Clone returns a deep copy so callers never share the store's root.
func (p Profile) Clone() Profile {
	if p.Attributes != nil {
		p.Attributes = p.Attributes.clone()
	}
	return p
}

type profileJSON struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Role       rbac.Role       `json:"role"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
}

// MarshalJSON encodes the profile with its role-tagged attributes.
func (p Profile) MarshalJSON() ([]byte, error) {
	out := profileJSON{ID: p.ID, Name: p.Name, Email: p.Email, Role: p.Role}
	if p.Attributes != nil {
		raw, err := json.Marshal(p.Attributes)
		if err != nil {
			return nil, err
		}
		out.Attributes = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes attributes into the type selected by the role.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var in profileJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	attrs, err := DecodeAttributes(in.Role, in.Attributes)
	if err != nil {
		return err
	}
	*p = Profile{ID: in.ID, Name: in.Name, Email: in.Email, Role: in.Role, Attributes: attrs}
	return nil
}
