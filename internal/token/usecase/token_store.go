package usecase

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"time"

	"github.com/google/uuid"

	cryptoService "github.com/allisson/apitokens/internal/crypto/service"
	tokenDomain "github.com/allisson/apitokens/internal/token/domain"
)

// tokenStore implements TokenStore on top of a TokenRepository and a SecretCipher.
type tokenStore struct {
	repo       TokenRepository
	cipher     cryptoService.SecretCipher
	lookupMode tokenDomain.LookupMode
	logger     *slog.Logger
}

// Add encrypts the secret bound to the token ID and stores the row.
func (s *tokenStore) Add(ctx context.Context, token *tokenDomain.Token) error {
	encrypted, err := s.encrypt(token)
	if err != nil {
		return err
	}
	return s.repo.Create(ctx, encrypted)
}

// Get returns the decrypted token.
func (s *tokenStore) Get(ctx context.Context, tokenID uuid.UUID) (*tokenDomain.Token, error) {
	encrypted, err := s.repo.Get(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	return s.decrypt(encrypted)
}

// GetForUpdate returns the decrypted token with its row locked.
func (s *tokenStore) GetForUpdate(ctx context.Context, tokenID uuid.UUID) (*tokenDomain.Token, error) {
	encrypted, err := s.repo.GetForUpdate(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	return s.decrypt(encrypted)
}

// GetBySecret decrypts candidate rows and compares each in constant time.
//
// In scan mode every row is a candidate. In index mode only the rows sharing
// the secret's lookup hash are.
func (s *tokenStore) GetBySecret(ctx context.Context, secret string) (*tokenDomain.Token, error) {
	var (
		candidates []*tokenDomain.EncryptedToken
		err        error
	)
	if s.lookupMode == tokenDomain.LookupModeIndex {
		candidates, err = s.repo.ListBySecretLookup(ctx, s.cipher.LookupHash(secret))
	} else {
		candidates, err = s.repo.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	presented := []byte(secret)
	for _, candidate := range candidates {
		token, err := s.decrypt(candidate)
		if err != nil {
			s.logger.Warn("skipping token that failed to decrypt",
				slog.String("token_id", candidate.ID.String()),
				slog.Any("error", err),
			)
			continue
		}
		if subtle.ConstantTimeCompare(presented, []byte(token.Secret)) == 1 {
			return token, nil
		}
	}
	return nil, tokenDomain.ErrTokenNotFound
}

// List returns every token. Undecryptable rows are kept with an empty secret.
func (s *tokenStore) List(ctx context.Context) ([]*tokenDomain.Token, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	tokens := make([]*tokenDomain.Token, 0, len(rows))
	for _, row := range rows {
		token, err := s.decrypt(row)
		if err != nil {
			s.logger.Warn("listing token that failed to decrypt",
				slog.String("token_id", row.ID.String()),
				slog.Any("error", err),
			)
			token = toToken(row, "")
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

// Update re-encrypts the secret with a fresh nonce and overwrites the row.
func (s *tokenStore) Update(ctx context.Context, token *tokenDomain.Token) error {
	encrypted, err := s.encrypt(token)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, encrypted)
}

// Touch sets last_used_at.
func (s *tokenStore) Touch(ctx context.Context, tokenID uuid.UUID, at time.Time) error {
	return s.repo.UpdateLastUsed(ctx, tokenID, at.UTC())
}

// Delete removes a token.
func (s *tokenStore) Delete(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	return s.repo.Delete(ctx, tokenID)
}

func (s *tokenStore) encrypt(token *tokenDomain.Token) (*tokenDomain.EncryptedToken, error) {
	encryptedSecret, err := s.cipher.Encrypt(token.ID, token.Secret)
	if err != nil {
		return nil, err
	}

	return &tokenDomain.EncryptedToken{
		ID:              token.ID,
		EncryptedSecret: encryptedSecret,
		SecretLookup:    s.cipher.LookupHash(token.Secret),
		Description:     token.Description,
		Scopes:          token.Scopes,
		CreatedAt:       token.CreatedAt,
		ExpiresAt:       token.ExpiresAt,
		LastUsedAt:      token.LastUsedAt,
	}, nil
}

func (s *tokenStore) decrypt(encrypted *tokenDomain.EncryptedToken) (*tokenDomain.Token, error) {
	secret, err := s.cipher.Decrypt(encrypted.ID, encrypted.EncryptedSecret)
	if err != nil {
		return nil, err
	}
	return toToken(encrypted, secret), nil
}

func toToken(encrypted *tokenDomain.EncryptedToken, secret string) *tokenDomain.Token {
	return &tokenDomain.Token{
		ID:          encrypted.ID,
		Secret:      secret,
		Description: encrypted.Description,
		Scopes:      encrypted.Scopes,
		CreatedAt:   encrypted.CreatedAt,
		ExpiresAt:   encrypted.ExpiresAt,
		LastUsedAt:  encrypted.LastUsedAt,
	}
}

// NewTokenStore creates a TokenStore that encrypts secrets with cipher.
func NewTokenStore(
	repo TokenRepository,
	cipher cryptoService.SecretCipher,
	lookupMode tokenDomain.LookupMode,
	logger *slog.Logger,
) TokenStore {
	return &tokenStore{
		repo:       repo,
		cipher:     cipher,
		lookupMode: lookupMode,
		logger:     logger,
	}
}
