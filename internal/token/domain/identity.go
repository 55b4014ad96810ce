package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Identity is the authenticated caller produced by validation.
// Legacy identities come from the static fallback secret and carry no TokenID.
type Identity struct {
	TokenID     *uuid.UUID
	Description string
	Scopes      Scopes
	ExpiresAt   *time.Time
	Legacy      bool
}

// NewTokenIdentity builds an identity from a stored token.
func NewTokenIdentity(token *Token) *Identity {
	id := token.ID
	return &Identity{
		TokenID:     &id,
		Description: token.Description,
		Scopes:      token.Scopes,
		ExpiresAt:   token.ExpiresAt,
	}
}

// NewLegacyIdentity builds the ephemeral identity granted to the legacy secret.
func NewLegacyIdentity() *Identity {
	return &Identity{
		Description: "legacy api token",
		Scopes:      FullScopes(),
		Legacy:      true,
	}
}

// Authorize fails with ErrInsufficientScope when any required scope is missing.
func (i *Identity) Authorize(required ...Scope) error {
	for _, scope := range required {
		if !i.Scopes.Contains(scope) {
			return fmt.Errorf("%w: missing %s", ErrInsufficientScope, scope)
		}
	}
	return nil
}
