package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/carreirahub/carreirahub/internal/profile"
	"github.com/carreirahub/carreirahub/internal/rbac"
	"github.com/carreirahub/carreirahub/internal/shared"
	"github.com/carreirahub/carreirahub/jobs"
)

// WelcomeEnqueuer schedules the welcome e-mail of a new account.
type WelcomeEnqueuer interface {
	EnqueueWelcome(ctx context.Context, payload jobs.WelcomePayload) error
}

// Service wraps authentication business rules.
type Service struct {
	repo      Repository
	registry  *rbac.Registry
	welcome   WelcomeEnqueuer
	logger    *slog.Logger
	validator *validator.Validate
	cost      int
}

// NewService constructs a new Service. welcome may be nil.
func NewService(repo Repository, registry *rbac.Registry, welcome WelcomeEnqueuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		registry:  registry,
		welcome:   welcome,
		logger:    logger,
		validator: validator.New(),
		cost:      bcrypt.DefaultCost,
	}
}

// Authenticate validates email/password credentials and returns the account as
// session login input.
func (s *Service) Authenticate(ctx context.Context, email, password string) (profile.Data, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return profile.Data{}, shared.ErrInvalidCredentials
		}
		return profile.Data{}, err
	}
	if !account.IsActive {
		return profile.Data{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return profile.Data{}, shared.ErrInvalidCredentials
	}
	return account.ProfileData(), nil
}

// Register creates an account. The role defaults to student; admin accounts
// are provisioned by operators only.
func (s *Service) Register(ctx context.Context, in RegisterInput) (profile.Data, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.validator.Struct(in); err != nil {
		return profile.Data{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	role := rbac.ParseRole(in.Role)
	if role == "" {
		role = rbac.DefaultRole
	}
	if !s.registry.IsValidRole(role) {
		return profile.Data{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}
	if role == rbac.RoleAdmin {
		return profile.Data{}, ErrRoleNotSelfService
	}
	attrs, err := profile.DecodeAttributes(role, in.Attributes)
	if err != nil {
		return profile.Data{}, err
	}
	normalized, err := json.Marshal(profile.WithoutEarnedFields(attrs))
	if err != nil {
		return profile.Data{}, fmt.Errorf("auth: encode attributes: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return profile.Data{}, fmt.Errorf("auth: hash password: %w", err)
	}
	account := Account{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         role,
		Attributes:   normalized,
		IsActive:     true,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return profile.Data{}, err
	}
	s.logger.Info("account registered", slog.String("account", account.ID), slog.String("role", string(role)))

	if s.welcome != nil {
		payload := jobs.WelcomePayload{
			AccountID: account.ID,
			Name:      account.Name,
			Email:     account.Email,
			Role:      role,
			Home:      s.registry.DefaultRouteFor(role),
		}
		if err := s.welcome.EnqueueWelcome(ctx, payload); err != nil {
			s.logger.Warn("enqueue welcome mail", slog.String("account", account.ID), slog.Any("error", err))
		}
	}
	return account.ProfileData(), nil
}

// UpdateProfile stores profile edits made during a session on the account, so
// the next login starts from them. A taken e-mail yields ErrEmailTaken.
func (s *Service) UpdateProfile(ctx context.Context, p profile.Profile) error {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if err := s.repo.UpdateProfile(ctx, p); err != nil {
		return fmt.Errorf("auth: update profile %s: %w", p.ID, err)
	}
	return nil
}
