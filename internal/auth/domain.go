package auth

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/carreirahub/carreirahub/internal/profile"
	"github.com/carreirahub/carreirahub/internal/rbac"
)

var (
	// ErrEmailTaken is returned when registering an e-mail that already has an account.
	ErrEmailTaken = errors.New("auth: email already registered")
	// ErrRoleNotSelfService is returned when a visitor tries to register as admin.
	ErrRoleNotSelfService = errors.New("auth: role cannot be self-registered")
	// ErrInvalidInput wraps validation failures of registration input.
	ErrInvalidInput = errors.New("auth: invalid input")
)

// Account represents a stored user account.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         rbac.Role
	Attributes   json.RawMessage
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProfileData returns the record handed to the session store at login.
func (a Account) ProfileData() profile.Data {
	return profile.Data{
		ID:         a.ID,
		Name:       a.Name,
		Email:      a.Email,
		Role:       a.Role,
		Attributes: a.Attributes,
	}
}

// RegisterInput is a self-registration request.
type RegisterInput struct {
	Name       string          `json:"name" validate:"required,max=120"`
	Email      string          `json:"email" validate:"required,email,max=254"`
	Password   string          `json:"password" validate:"required,min=8,max=72"`
	Role       string          `json:"role" validate:"omitempty,max=32"`
	Attributes json.RawMessage `json:"attributes"`
}

// Credentials are submitted at login.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}
