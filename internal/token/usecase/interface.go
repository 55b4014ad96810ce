// Package usecase implements the token store and the token service: issuance,
// validation, authorization, revocation, rotation and legacy migration.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	tokenDomain "github.com/allisson/apitokens/internal/token/domain"
)

// TokenRepository defines persistence operations for encrypted tokens.
// Implementations must support transaction-aware operations via context propagation.
type TokenRepository interface {
	// Create stores a new token. Returns ErrTokenAlreadyExists or ErrSecretAlreadyInUse on conflicts.
	Create(ctx context.Context, token *tokenDomain.EncryptedToken) error

	// Get retrieves a token by ID. Returns ErrTokenNotFound if not found.
	Get(ctx context.Context, tokenID uuid.UUID) (*tokenDomain.EncryptedToken, error)

	// GetForUpdate retrieves a token and locks it for the surrounding transaction.
	GetForUpdate(ctx context.Context, tokenID uuid.UUID) (*tokenDomain.EncryptedToken, error)

	// List returns every token ordered by creation time.
	List(ctx context.Context) ([]*tokenDomain.EncryptedToken, error)

	// ListBySecretLookup returns the tokens carrying the given lookup hash.
	ListBySecretLookup(ctx context.Context, lookup []byte) ([]*tokenDomain.EncryptedToken, error)

	// Update overwrites the mutable fields. Returns ErrTokenNotFound if absent.
	Update(ctx context.Context, token *tokenDomain.EncryptedToken) error

	// UpdateLastUsed sets last_used_at only. Returns ErrTokenNotFound if absent.
	UpdateLastUsed(ctx context.Context, tokenID uuid.UUID, at time.Time) error

	// Delete removes a token and reports whether it existed.
	Delete(ctx context.Context, tokenID uuid.UUID) (bool, error)
}

// TokenStore persists tokens with their secrets encrypted at rest.
// Every method works on plaintext tokens; encryption happens inside the store.
type TokenStore interface {
	// Add encrypts and stores a new token.
	Add(ctx context.Context, token *tokenDomain.Token) error

	// Get returns the decrypted token. Returns ErrTokenNotFound if absent.
	Get(ctx context.Context, tokenID uuid.UUID) (*tokenDomain.Token, error)

	// GetForUpdate is Get with the row locked for the surrounding transaction.
	GetForUpdate(ctx context.Context, tokenID uuid.UUID) (*tokenDomain.Token, error)

	// GetBySecret finds the token whose decrypted secret equals secret.
	// Rows that cannot be decrypted are skipped with a warning.
	// Returns ErrTokenNotFound when nothing matches.
	GetBySecret(ctx context.Context, secret string) (*tokenDomain.Token, error)

	// List returns every token. A row that cannot be decrypted is returned with
	// an empty Secret so it stays visible for revocation.
	List(ctx context.Context) ([]*tokenDomain.Token, error)

	// Update re-encrypts the secret and overwrites the mutable fields.
	Update(ctx context.Context, token *tokenDomain.Token) error

	// Touch records a successful use without rewriting any other field.
	Touch(ctx context.Context, tokenID uuid.UUID, at time.Time) error

	// Delete removes a token and reports whether it existed.
	Delete(ctx context.Context, tokenID uuid.UUID) (bool, error)
}

// TokenUseCase defines the token service operations consumed by the HTTP and CLI layers.
type TokenUseCase interface {
	// Create issues a new token. The returned Token carries the plaintext secret;
	// this is the only time it is visible besides Rotate.
	Create(ctx context.Context, input *tokenDomain.CreateTokenInput) (*tokenDomain.Token, error)

	// Validate resolves a presented secret to an identity and records the use.
	// Unknown, expired and empty secrets all fail with ErrInvalidCredentials.
	Validate(ctx context.Context, secret string) (*tokenDomain.Identity, error)

	// Authorize fails with ErrInsufficientScope if any required scope is missing.
	Authorize(ctx context.Context, identity *tokenDomain.Identity, required ...tokenDomain.Scope) error

	// Get retrieves a token by ID. Returns ErrTokenNotFound if absent.
	Get(ctx context.Context, tokenID uuid.UUID) (*tokenDomain.Token, error)

	// List returns every token. Callers must mask secrets before exposing them.
	List(ctx context.Context) ([]*tokenDomain.Token, error)

	// Revoke deletes a token and reports whether it existed. Repeated calls return false.
	Revoke(ctx context.Context, tokenID uuid.UUID) (bool, error)

	// Rotate issues a replacement carrying the same scopes and caps the old
	// token's expiry at now + graceDays. Returns ErrTokenNotFound if absent.
	Rotate(ctx context.Context, tokenID uuid.UUID, graceDays int) (*tokenDomain.RotateTokenOutput, error)

	// MigrateLegacy wraps the legacy secret in a full-scope token. An empty secret
	// uses the configured legacy secret. Calling it again returns the same token.
	MigrateLegacy(ctx context.Context, secret, description string) (*tokenDomain.Token, error)
}
