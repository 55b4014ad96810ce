// Package http provides the HTTP handlers and middleware for token authentication
// and token administration.
package http

import (
	"context"

	tokenDomain "github.com/allisson/apitokens/internal/token/domain"
)

// identityKey is a context key type for storing authenticated identities.
type identityKey struct{}

// WithIdentity stores an authenticated identity in the context.
// This is typically called by the authentication middleware after successful validation.
func WithIdentity(ctx context.Context, identity *tokenDomain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// GetIdentity retrieves the authenticated identity from the context.
// Returns (identity, true) if present, or (nil, false) if none was set.
func GetIdentity(ctx context.Context) (*tokenDomain.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*tokenDomain.Identity)
	return identity, ok
}
