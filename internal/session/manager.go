package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carreirahub/carreirahub/internal/rbac"
)

// Manager hands out one Store per browser session, identified by a signed
// cookie. Unknown or tampered cookies get a fresh anonymous Store.
type Manager struct {
	storage    Storage
	registry   *rbac.Registry
	logger     *slog.Logger
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
}

// ManagerConfig groups Manager settings.
type ManagerConfig struct {
	CookieName string
	Secret     string
	TTL        time.Duration
	Secure     bool
}

// NewManager constructs a Manager.
func NewManager(storage Storage, registry *rbac.Registry, logger *slog.Logger, cfg ManagerConfig) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		storage:    storage,
		registry:   registry,
		logger:     logger,
		cookieName: cfg.CookieName,
		ttl:        cfg.TTL,
		secure:     cfg.Secure,
		secret:     []byte(cfg.Secret),
	}
}

// Load returns the Store for the request. A valid cookie whose profile is
// found restores that profile; anything else starts a new anonymous Store.
func (m *Manager) Load(ctx context.Context, r *http.Request) (*Store, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return m.newStore(), nil
		}
		return nil, err
	}

	id, ok := m.verify(cookie.Value)
	if !ok {
		m.logger.Info("ignoring session cookie with bad signature")
		return m.newStore(), nil
	}

	store := NewStore(id, m.storage, m.registry, m.logger)
	p, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return m.newStore(), nil
	}
	return store, nil
}

// Commit writes the cookie headers matching the store's state.
func (m *Manager) Commit(ctx context.Context, w http.ResponseWriter, store *Store) error {
	if store == nil {
		return nil
	}

	if store.Destroyed() && !store.IsAuthenticated() {
		http.SetCookie(w, &http.Cookie{
			Name:     m.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteStrictMode,
		})
		return nil
	}

	if !store.IsAuthenticated() {
		return nil
	}

	if t, ok := m.storage.(interface {
		Touch(ctx context.Context, key string) error
	}); ok {
		if err := t.Touch(ctx, store.key); err != nil {
			m.logger.Warn("extend session ttl", slog.Any("error", err))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    m.sign(store.ID()),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(m.ttl),
	})
	return nil
}

// TTL exposes the configured session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// CookieValue returns the signed cookie value for store; useful in tests.
func (m *Manager) CookieValue(store *Store) string {
	return m.sign(store.ID())
}

func (m *Manager) newStore() *Store {
	return NewStore(uuid.NewString(), m.storage, m.registry, m.logger)
}

func (m *Manager) sign(id string) string {
	mac := hmac.New(sha256.New, m.secret)
	_, _ = mac.Write([]byte(id))
	return id + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (m *Manager) verify(value string) (string, bool) {
	id, _, found := strings.Cut(value, ".")
	if !found {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	if !hmac.Equal([]byte(m.sign(id)), []byte(value)) {
		return "", false
	}
	return id, true
}
