package session

import (
	"context"
	"net/http"

	"github.com/carreirahub/carreirahub/internal/rbac"
)

type storeContextKey struct{}

// ContextWithStore stores the session store in context.
func ContextWithStore(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, storeContextKey{}, store)
}

// FromContext extracts the session store from context.
func FromContext(ctx context.Context) *Store {
	store, _ := ctx.Value(storeContextKey{}).(*Store)
	return store
}

// RoleFromRequest returns the role of the request's session, or the empty role.
func RoleFromRequest(r *http.Request) rbac.Role {
	return FromContext(r.Context()).Role()
}
