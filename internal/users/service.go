package users

import (
	"context"
	"log/slog"
	"strings"

	"github.com/carreirahub/carreirahub/internal/rbac"
	"github.com/carreirahub/carreirahub/internal/shared"
)

// RepositoryPort defines data access methods for accounts.
type RepositoryPort interface {
	CountAccounts(ctx context.Context, filter ListFilter) (int, error)
	ListAccounts(ctx context.Context, filter ListFilter, limit, offset int) ([]Account, error)
	SetActive(ctx context.Context, id string, active bool) error
}

const maxPerPage = 100

// Service handles account administration.
type Service struct {
	repo     RepositoryPort
	registry *rbac.Registry
	audit    shared.AuditRecorder
	logger   *slog.Logger
}

// NewService builds Service instance. audit may be nil.
func NewService(repo RepositoryPort, registry *rbac.Registry, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, registry: registry, audit: audit, logger: logger}
}

// List returns one page of accounts.
func (s *Service) List(ctx context.Context, filter ListFilter) (Listing, error) {
	filter.Query = strings.TrimSpace(filter.Query)
	if filter.Role != "" {
		filter.Role = rbac.ParseRole(string(filter.Role))
		if !s.registry.IsValidRole(filter.Role) {
			return Listing{}, ErrInvalidFilter
		}
	}
	if filter.PerPage > maxPerPage {
		filter.PerPage = maxPerPage
	}
	total, err := s.repo.CountAccounts(ctx, filter)
	if err != nil {
		return Listing{}, err
	}
	pagination := shared.NewPagination(filter.Page, filter.PerPage, total)
	accounts, err := s.repo.ListAccounts(ctx, filter, pagination.PerPage, pagination.Offset())
	if err != nil {
		return Listing{}, err
	}
	return Listing{Accounts: accounts, Pagination: pagination, Role: filter.Role, Query: filter.Query}, nil
}

// SetActive activates or deactivates an account on behalf of actorID.
// Deactivated accounts can no longer log in.
func (s *Service) SetActive(ctx context.Context, actorID, accountID string, active bool) error {
	if !active && actorID == accountID {
		return ErrSelfDeactivation
	}
	if err := s.repo.SetActive(ctx, accountID, active); err != nil {
		return err
	}
	if s.audit == nil {
		return nil
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   shared.AuditAccountStatus,
		Entity:   "account",
		EntityID: accountID,
		Meta:     map[string]any{"active": active},
	})
	if err != nil {
		s.logger.Warn("audit account status", slog.String("account", accountID), slog.Any("error", err))
	}
	return nil
}
