package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/apitokens/internal/config"
	"github.com/allisson/apitokens/internal/database"
	tokenDomain "github.com/allisson/apitokens/internal/token/domain"
	tokenService "github.com/allisson/apitokens/internal/token/service"
)

const (
	rotatedDescriptionPrefix = "rotated from "
	legacyDescription        = "legacy api token"
)

// tokenUseCase implements TokenUseCase.
type tokenUseCase struct {
	config          *config.Config
	txManager       database.TxManager
	store           TokenStore
	secretGenerator tokenService.SecretGenerator
	legacyValidator tokenService.LegacyValidator
	logger          *slog.Logger
	now             func() time.Time
}

// Create issues a new token.
//
// Scopes default to DefaultScopes and are normalized. A nil ExpiresInDays uses
// Config.TokenDefaultExpirationDays (zero means no expiry). A caller-supplied
// secret must not already belong to another token.
func (t *tokenUseCase) Create(
	ctx context.Context,
	input *tokenDomain.CreateTokenInput,
) (*tokenDomain.Token, error) {
	if input.Secret != "" {
		_, err := t.store.GetBySecret(ctx, input.Secret)
		if err == nil {
			return nil, tokenDomain.ErrSecretAlreadyInUse
		}
		if !errors.Is(err, tokenDomain.ErrTokenNotFound) {
			return nil, err
		}
	}

	token, err := t.newToken(input)
	if err != nil {
		return nil, err
	}

	if err := t.store.Add(ctx, token); err != nil {
		return nil, err
	}

	t.logger.Info("token created",
		slog.String("token_id", token.ID.String()),
		slog.String("description", token.Description),
		slog.String("scopes", token.Scopes.String()),
	)
	return token, nil
}

// Validate resolves a presented secret.
//
// A stored, unexpired match wins and has its last use recorded. Otherwise the
// legacy validator is consulted. Every miss, including an expired match,
// collapses into ErrInvalidCredentials.
func (t *tokenUseCase) Validate(ctx context.Context, secret string) (*tokenDomain.Identity, error) {
	if secret == "" {
		return nil, tokenDomain.ErrInvalidCredentials
	}

	now := t.now()
	token, err := t.store.GetBySecret(ctx, secret)
	switch {
	case err == nil && !token.IsExpired(now):
		if err := t.store.Touch(ctx, token.ID, now); err != nil {
			// Revoked between lookup and touch.
			if errors.Is(err, tokenDomain.ErrTokenNotFound) {
				return nil, tokenDomain.ErrInvalidCredentials
			}
			return nil, err
		}
		token.LastUsedAt = &now
		return tokenDomain.NewTokenIdentity(token), nil
	case err != nil && !errors.Is(err, tokenDomain.ErrTokenNotFound):
		return nil, err
	}

	if t.legacyValidator.Enabled() && t.legacyValidator.Validate(secret) {
		return tokenDomain.NewLegacyIdentity(), nil
	}
	return nil, tokenDomain.ErrInvalidCredentials
}

// Authorize checks the identity's scopes against the required ones.
func (t *tokenUseCase) Authorize(
	ctx context.Context,
	identity *tokenDomain.Identity,
	required ...tokenDomain.Scope,
) error {
	if identity == nil {
		return tokenDomain.ErrInvalidCredentials
	}
	return identity.Authorize(required...)
}

// Get retrieves a token by ID.
func (t *tokenUseCase) Get(ctx context.Context, tokenID uuid.UUID) (*tokenDomain.Token, error) {
	return t.store.Get(ctx, tokenID)
}

// List returns every token.
func (t *tokenUseCase) List(ctx context.Context) ([]*tokenDomain.Token, error) {
	return t.store.List(ctx)
}

// Revoke deletes a token.
func (t *tokenUseCase) Revoke(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	deleted, err := t.store.Delete(ctx, tokenID)
	if err != nil {
		return false, err
	}
	if deleted {
		t.logger.Info("token revoked", slog.String("token_id", tokenID.String()))
	}
	return deleted, nil
}

// Rotate issues a replacement and shortens the old token's life to the grace window.
//
// The old row is locked for the whole operation so a concurrent rotation of the
// same token waits. An old expiry earlier than now + graceDays is kept.
func (t *tokenUseCase) Rotate(
	ctx context.Context,
	tokenID uuid.UUID,
	graceDays int,
) (*tokenDomain.RotateTokenOutput, error) {
	if graceDays < 0 {
		return nil, tokenDomain.ErrInvalidGracePeriod
	}

	var output *tokenDomain.RotateTokenOutput
	err := t.txManager.WithTx(ctx, func(ctx context.Context) error {
		old, err := t.store.GetForUpdate(ctx, tokenID)
		if err != nil {
			return err
		}

		replacement, err := t.newToken(&tokenDomain.CreateTokenInput{
			Description: rotatedDescription(old.Description),
			Scopes:      old.Scopes,
		})
		if err != nil {
			return err
		}
		if err := t.store.Add(ctx, replacement); err != nil {
			return err
		}

		graceEnd := t.now().AddDate(0, 0, graceDays)
		if old.ExpiresAt == nil || graceEnd.Before(*old.ExpiresAt) {
			old.ExpiresAt = &graceEnd
			if err := t.store.Update(ctx, old); err != nil {
				return err
			}
		}

		output = &tokenDomain.RotateTokenOutput{
			OldTokenID:   old.ID,
			OldExpiresAt: old.ExpiresAt,
			NewToken:     replacement,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.logger.Info("token rotated",
		slog.String("token_id", output.OldTokenID.String()),
		slog.String("new_token_id", output.NewToken.ID.String()),
		slog.Time("old_expires_at", *output.OldExpiresAt),
	)
	return output, nil
}

// MigrateLegacy wraps a static secret in a full-scope token without expiry.
func (t *tokenUseCase) MigrateLegacy(
	ctx context.Context,
	secret, description string,
) (*tokenDomain.Token, error) {
	if secret == "" {
		secret = t.config.LegacyAPIToken
	}
	if secret == "" {
		return nil, tokenDomain.ErrLegacySecretRequired
	}
	if strings.TrimSpace(description) == "" {
		description = legacyDescription
	}

	existing, err := t.store.GetBySecret(ctx, secret)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, tokenDomain.ErrTokenNotFound) {
		return nil, err
	}

	noExpiry := 0
	token, err := t.newToken(&tokenDomain.CreateTokenInput{
		Description:   description,
		Scopes:        tokenDomain.FullScopes(),
		ExpiresInDays: &noExpiry,
		Secret:        secret,
	})
	if err != nil {
		return nil, err
	}
	if err := t.store.Add(ctx, token); err != nil {
		// A concurrent migration stored the same secret first.
		if errors.Is(err, tokenDomain.ErrSecretAlreadyInUse) {
			return t.store.GetBySecret(ctx, secret)
		}
		return nil, err
	}

	t.logger.Info("legacy token migrated", slog.String("token_id", token.ID.String()))
	return token, nil
}

// newToken builds a token from input, generating the secret when none is supplied.
// An explicit ExpiresInDays of zero means no expiry.
func (t *tokenUseCase) newToken(input *tokenDomain.CreateTokenInput) (*tokenDomain.Token, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, tokenDomain.ErrEmptyDescription
	}

	scopes := input.Scopes
	if len(scopes) == 0 {
		scopes = tokenDomain.DefaultScopes()
	}
	scopes, err := tokenDomain.NewScopes(scopes...)
	if err != nil {
		return nil, err
	}

	days := t.config.TokenDefaultExpirationDays
	if input.ExpiresInDays != nil {
		days = *input.ExpiresInDays
	}
	if days < 0 {
		return nil, tokenDomain.ErrInvalidExpiration
	}

	secret := input.Secret
	if secret == "" {
		secret, err = t.secretGenerator.Generate(t.config.TokenSecretLength)
		if err != nil {
			return nil, err
		}
	}

	now := t.now()
	token := &tokenDomain.Token{
		ID:          uuid.Must(uuid.NewV7()),
		Secret:      secret,
		Description: description,
		Scopes:      scopes,
		CreatedAt:   now,
	}
	if days > 0 {
		expiresAt := now.AddDate(0, 0, days)
		token.ExpiresAt = &expiresAt
	}
	return token, nil
}

func rotatedDescription(old string) string {
	return fmt.Sprintf("%s%s", rotatedDescriptionPrefix, old)
}

// NewTokenUseCase creates a new TokenUseCase with the provided dependencies.
func NewTokenUseCase(
	config *config.Config,
	txManager database.TxManager,
	store TokenStore,
	secretGenerator tokenService.SecretGenerator,
	legacyValidator tokenService.LegacyValidator,
	logger *slog.Logger,
) TokenUseCase {
	return &tokenUseCase{
		config:          config,
		txManager:       txManager,
		store:           store,
		secretGenerator: secretGenerator,
		legacyValidator: legacyValidator,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}
