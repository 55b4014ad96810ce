// Package domain defines the core token entities, scopes and errors.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// maskVisibleChars is the number of trailing secret characters kept when masking.
const maskVisibleChars = 4

// Token is the unit of identity: a bearer secret bound to a scope set.
// Secret is plaintext and only leaves the service on create and rotate.
type Token struct {
	ID          uuid.UUID
	Secret      string
	Description string
	Scopes      Scopes
	CreatedAt   time.Time
	ExpiresAt   *time.Time
	LastUsedAt  *time.Time
}

// IsExpired reports whether the token is past its expiry at the given instant.
// Tokens without an expiry never expire.
func (t *Token) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// MaskedSecret returns the secret with everything but its last four characters hidden.
func (t *Token) MaskedSecret() string {
	return MaskSecret(t.Secret)
}

// MaskSecret hides all but the last four characters of a secret.
func MaskSecret(secret string) string {
	if len(secret) <= maskVisibleChars {
		return "****"
	}
	return "****" + secret[len(secret)-maskVisibleChars:]
}

// EncryptedToken is the persisted form of a Token.
//
// EncryptedSecret holds nonce || ciphertext produced with the token ID as
// associated data. SecretLookup is a keyed one-way hash of the secret.
type EncryptedToken struct {
	ID              uuid.UUID
	EncryptedSecret []byte
	SecretLookup    []byte
	Description     string
	Scopes          Scopes
	CreatedAt       time.Time
	ExpiresAt       *time.Time
	LastUsedAt      *time.Time
}

// CreateTokenInput holds the parameters for creating a token.
// A nil Scopes falls back to DefaultScopes, nil ExpiresInDays to the configured
// default, and an empty Secret to a freshly generated one.
type CreateTokenInput struct {
	Description   string
	Scopes        Scopes
	ExpiresInDays *int
	Secret        string
}

// RotateTokenOutput describes the outcome of a rotation.
type RotateTokenOutput struct {
	OldTokenID   uuid.UUID
	// OldExpiresAt may be earlier than the requested grace window when the old
	// token was already due to expire sooner.
	OldExpiresAt *time.Time
	NewToken     *Token
}
