package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/carreirahub/carreirahub/internal/profile"
	"github.com/carreirahub/carreirahub/internal/rbac"
)

// ProfileKey is the well-known key holding the serialized Profile.
const ProfileKey = "profile"

var (
	// ErrInvalidRole is returned by Login when the supplied role is not registered.
	ErrInvalidRole = errors.New("session: invalid role")
	// ErrAlreadyAuthenticated is returned by Login when a profile is already held.
	ErrAlreadyAuthenticated = errors.New("session: already authenticated")
	// ErrLoginPending is returned while another login is in flight.
	ErrLoginPending = errors.New("session: login pending")
	// ErrLoginAborted is returned when the store was logged out during a login.
	ErrLoginAborted = errors.New("session: login aborted")
	// ErrAnonymous is returned by Update when nobody is logged in.
	ErrAnonymous = errors.New("session: anonymous")
)

// State is the authentication state of a Store.
type State int

const (
	StateAnonymous State = iota
	StatePending
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Warning is a recoverable problem reported by Update.
type Warning string

// WarnRoleLocked means a role change was dropped from an update.
const WarnRoleLocked Warning = "role_locked"

// UpdateResult describes the outcome of Update.
type UpdateResult struct {
	Profile  profile.Profile
	Changed  bool
	Warnings []Warning
}

// ProfileWriter stores an updated profile outside the session, typically on
// the account record.
type ProfileWriter func(ctx context.Context, p profile.Profile) error

// RoleRejected reports whether the update tried to change the role.
func (r UpdateResult) RoleRejected() bool {
	for _, w := range r.Warnings {
		if w == WarnRoleLocked {
			return true
		}
	}
	return false
}

// Store owns the authenticated Profile of one session and mirrors it to
// durable storage. Only Login, Update and Logout write; readers get copies.
type Store struct {
	mu        sync.Mutex
	id        string
	key       string
	storage   Storage
	registry  *rbac.Registry
	logger    *slog.Logger
	state     State
	current   *profile.Profile
	destroyed bool
}

// NewStore constructs an anonymous Store whose durable copy lives under
// "<id>:profile" (or "profile" when id is empty).
func NewStore(id string, storage Storage, registry *rbac.Registry, logger *slog.Logger) *Store {
	key := ProfileKey
	if id != "" {
		key = id + ":" + ProfileKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{id: id, key: key, storage: storage, registry: registry, logger: logger}
}

// ID returns the session identifier.
func (s *Store) ID() string {
	return s.id
}

// Load replaces the in-memory profile with the durable copy. A missing copy
// yields nil. A corrupt copy is deleted and also yields nil. Storage failures
// leave the store anonymous and are returned.
func (s *Store) Load(ctx context.Context) (*profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	s.state = StateAnonymous

	data, err := s.storage.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var p profile.Profile
	if err := json.Unmarshal(data, &p); err != nil || !s.registry.IsValidRole(p.Role) {
		s.logger.Warn("discarding corrupt session profile",
			slog.String("session", s.id),
			slog.Any("error", err),
			slog.String("role", string(p.Role)))
		if delErr := s.storage.Delete(ctx, s.key); delErr != nil {
			s.logger.Warn("delete corrupt session profile", slog.Any("error", delErr))
		}
		return nil, nil
	}

	s.current = &p
	s.state = StateAuthenticated
	cp := p.Clone()
	return &cp, nil
}

// Login validates data and makes it the session's profile. A missing role
// defaults to student; an unregistered role is rejected.
func (s *Store) Login(ctx context.Context, data profile.Data) (profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateAuthenticated:
		return profile.Profile{}, ErrAlreadyAuthenticated
	case StatePending:
		return profile.Profile{}, ErrLoginPending
	}
	return s.commitLogin(ctx, data)
}

// Authenticate runs an external login collaborator and logs its result in.
// While fn runs the store is Pending and reports no profile.
func (s *Store) Authenticate(ctx context.Context, fn func(context.Context) (profile.Data, error)) (profile.Profile, error) {
	s.mu.Lock()
	switch s.state {
	case StateAuthenticated:
		s.mu.Unlock()
		return profile.Profile{}, ErrAlreadyAuthenticated
	case StatePending:
		s.mu.Unlock()
		return profile.Profile{}, ErrLoginPending
	}
	s.state = StatePending
	s.mu.Unlock()

	data, err := fn(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePending {
		return profile.Profile{}, ErrLoginAborted
	}
	if err != nil {
		s.state = StateAnonymous
		return profile.Profile{}, err
	}
	return s.commitLogin(ctx, data)
}

func (s *Store) commitLogin(ctx context.Context, data profile.Data) (profile.Profile, error) {
	s.state = StateAnonymous

	role := rbac.ParseRole(string(data.Role))
	if role == "" {
		role = rbac.DefaultRole
	}
	if !s.registry.IsValidRole(role) {
		return profile.Profile{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	p, err := profile.Build(data, role)
	if err != nil {
		return profile.Profile{}, err
	}
	if err := s.persist(ctx, p); err != nil {
		return profile.Profile{}, err
	}

	s.current = &p
	s.state = StateAuthenticated
	s.destroyed = false
	return p.Clone(), nil
}

// Update merges patch into the profile. A role different from the current one
// is dropped and reported as WarnRoleLocked; the other fields still apply.
func (s *Store) Update(ctx context.Context, patch profile.Patch) (UpdateResult, error) {
	return s.UpdateWith(ctx, patch, nil)
}

// UpdateWith is Update with write called on the merged profile before the
// durable copy. A write error leaves the session untouched. write is skipped
// when the patch changes nothing.
func (s *Store) UpdateWith(ctx context.Context, patch profile.Patch, write ProfileWriter) (UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAuthenticated || s.current == nil {
		return UpdateResult{}, ErrAnonymous
	}

	var result UpdateResult
	if patch.Role != nil {
		if requested := rbac.ParseRole(string(*patch.Role)); requested != s.current.Role {
			s.logger.Warn("role change rejected",
				slog.String("session", s.id),
				slog.String("profile", s.current.ID),
				slog.String("role", string(s.current.Role)),
				slog.String("requested", string(requested)))
			result.Warnings = append(result.Warnings, WarnRoleLocked)
		}
		patch.Role = nil
	}

	if patch.IsEmpty() {
		result.Profile = s.current.Clone()
		return result, nil
	}

	next, err := profile.Apply(*s.current, patch)
	if err != nil {
		return UpdateResult{}, err
	}
	if reflect.DeepEqual(next, *s.current) {
		result.Profile = s.current.Clone()
		return result, nil
	}
	if write != nil {
		if err := write(ctx, next.Clone()); err != nil {
			return UpdateResult{}, err
		}
	}
	if err := s.persist(ctx, next); err != nil {
		return UpdateResult{}, err
	}

	s.current = &next
	result.Profile = next.Clone()
	result.Changed = true
	return result, nil
}

// Logout clears the in-memory profile and deletes the durable copy. The
// in-memory copy is cleared even if the delete fails.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	s.state = StateAnonymous
	s.destroyed = true
	if err := s.storage.Delete(ctx, s.key); err != nil {
		s.logger.Error("delete session profile", slog.String("session", s.id), slog.Any("error", err))
		return err
	}
	return nil
}

// Current returns a copy of the profile, or nil unless authenticated. A nil
// store is anonymous.
func (s *Store) Current() *profile.Profile {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAuthenticated || s.current == nil {
		return nil
	}
	cp := s.current.Clone()
	return &cp
}

// Role returns the current role, or the empty role unless authenticated.
func (s *Store) Role() rbac.Role {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAuthenticated || s.current == nil {
		return ""
	}
	return s.current.Role
}

// State returns the authentication state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsAuthenticated reports whether a profile is held.
func (s *Store) IsAuthenticated() bool {
	return s != nil && s.State() == StateAuthenticated
}

// Destroyed reports whether Logout ran on this store.
func (s *Store) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

func (s *Store) persist(ctx context.Context, p profile.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("session: encode profile: %w", err)
	}
	return s.storage.Set(ctx, s.key, data)
}
