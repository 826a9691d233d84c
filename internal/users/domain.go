package users

import (
	"errors"
	"time"

	"github.com/carreirahub/carreirahub/internal/rbac"
	"github.com/carreirahub/carreirahub/internal/shared"
)

var (
	// ErrSelfDeactivation is returned when an admin tries to deactivate their own account.
	ErrSelfDeactivation = errors.New("users: cannot deactivate own account")
	// ErrInvalidFilter is returned for an unknown role filter.
	ErrInvalidFilter = errors.New("users: invalid filter")
)

// Account is the admin view of an account.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      rbac.Role `json:"role"`
	IsActive  bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFilter narrows the account listing.
type ListFilter struct {
	Role    rbac.Role
	Query   string
	Page    int
	PerPage int
}

// Listing is one page of accounts.
type Listing struct {
	Accounts   []Account         `json:"accounts"`
	Pagination shared.Pagination `json:"pagination"`
	Role       rbac.Role         `json:"role,omitempty"`
	Query      string            `json:"query,omitempty"`
}
