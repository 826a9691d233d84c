package profile

import (
	"encoding/json"

	"github.com/carreirahub/carreirahub/internal/rbac"
)

// Data is the Profile-shaped record handed over by login or registration.
// An empty Role means the collaborator did not supply one.
type Data struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Role       rbac.Role       `json:"role,omitempty"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
}

// Build turns data into a Profile with the given role.
func Build(data Data, role rbac.Role) (Profile, error) {
	attrs, err := DecodeAttributes(role, data.Attributes)
	if err != nil {
		return Profile{}, err
	}
	return Profile{
		ID:         data.ID,
		Name:       data.Name,
		Email:      data.Email,
		Role:       role,
		Attributes: attrs,
	}, nil
}

// Patch is a partial update. Nil fields are left untouched; Attributes holds
// only the attribute fields to overwrite.
type Patch struct {
	Name       *string         `json:"name,omitempty"`
	Email      *string         `json:"email,omitempty"`
	Role       *rbac.Role      `json:"role,omitempty"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
}

// IsEmpty reports whether the patch carries no change at all.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Role == nil && isEmptyJSON(p.Attributes)
}

// Apply merges patch into current and returns the result. The role field is
// never applied here; role changes are not a generic update. Earned fields
// (see WithoutEarnedFields) keep their current value.
func Apply(current Profile, patch Patch) (Profile, error) {
	next := current.Clone()
	if patch.Name != nil {
		next.Name = *patch.Name
	}
	if patch.Email != nil {
		next.Email = *patch.Email
	}
	if !isEmptyJSON(patch.Attributes) {
		attrs := next.Attributes
		if attrs == nil {
			base, err := NewAttributes(next.Role)
			if err != nil {
				return Profile{}, err
			}
			attrs = base
		}
		merged, err := MergeAttributes(attrs, patch.Attributes)
		if err != nil {
			return Profile{}, err
		}
		next.Attributes = keepEarnedFields(attrs, merged)
	}
	return next, nil
}

// String returns a pointer to s, handy for building patches.
func String(s string) *string {
	return &s
}
