package domain

import (
	"github.com/allisson/apitokens/internal/errors"
)

// Token-specific error definitions.
//
// Authentication failures are collapsed into ErrInvalidCredentials regardless of
// whether the secret was unknown, expired, malformed or empty.
var (
	// ErrTokenNotFound indicates the token with the given ID does not exist.
	ErrTokenNotFound = errors.Wrap(errors.ErrNotFound, "token not found")

	// ErrTokenAlreadyExists indicates a token with the same ID is already stored.
	ErrTokenAlreadyExists = errors.Wrap(errors.ErrConflict, "token already exists")

	// ErrSecretAlreadyInUse indicates a supplied secret is already wrapped by another token.
	ErrSecretAlreadyInUse = errors.Wrap(errors.ErrConflict, "secret already in use")

	// ErrInvalidCredentials indicates the presented secret did not authenticate.
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "invalid credentials")

	// ErrInsufficientScope indicates an authenticated identity lacks a required scope.
	ErrInsufficientScope = errors.Wrap(errors.ErrForbidden, "insufficient scope")

	// ErrInvalidScope indicates an unknown scope name.
	ErrInvalidScope = errors.Wrap(errors.ErrInvalidInput, "invalid scope")

	// ErrEmptyScopes indicates an empty scope set.
	ErrEmptyScopes = errors.Wrap(errors.ErrInvalidInput, "scope set must not be empty")

	// ErrInvalidExpiration indicates a negative expiration period.
	ErrInvalidExpiration = errors.Wrap(errors.ErrInvalidInput, "expiration days must not be negative")

	// ErrInvalidGracePeriod indicates a negative rotation grace period.
	ErrInvalidGracePeriod = errors.Wrap(errors.ErrInvalidInput, "grace days must not be negative")

	// ErrEmptyDescription indicates a token without a description.
	ErrEmptyDescription = errors.Wrap(errors.ErrInvalidInput, "description must not be empty")

	// ErrLegacySecretRequired indicates a legacy migration with no secret supplied or configured.
	ErrLegacySecretRequired = errors.Wrap(errors.ErrInvalidInput, "legacy secret is required")
)
