package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/apitokens/internal/database"
	tokenDomain "github.com/allisson/apitokens/internal/token/domain"
)

type tokenRepository interface {
	Create(ctx context.Context, token *tokenDomain.EncryptedToken) error
	Get(ctx context.Context, tokenID uuid.UUID) (*tokenDomain.EncryptedToken, error)
	GetForUpdate(ctx context.Context, tokenID uuid.UUID) (*tokenDomain.EncryptedToken, error)
	List(ctx context.Context) ([]*tokenDomain.EncryptedToken, error)
	ListBySecretLookup(ctx context.Context, lookup []byte) ([]*tokenDomain.EncryptedToken, error)
	Update(ctx context.Context, token *tokenDomain.EncryptedToken) error
	UpdateLastUsed(ctx context.Context, tokenID uuid.UUID, at time.Time) error
	Delete(ctx context.Context, tokenID uuid.UUID) (bool, error)
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func newEncryptedToken(t *testing.T, createdAt time.Time) *tokenDomain.EncryptedToken {
	t.Helper()
	return &tokenDomain.EncryptedToken{
		ID:              uuid.Must(uuid.NewV7()),
		EncryptedSecret: randomBytes(t, 76),
		SecretLookup:    randomBytes(t, 32),
		Description:     "ci-bot",
		Scopes:          tokenDomain.Scopes{tokenDomain.ScopeRead},
		CreatedAt:       createdAt,
	}
}

// runRepositoryConformance exercises the behavior shared by every backend.
func runRepositoryConformance(t *testing.T, db *sql.DB, repo tokenRepository) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("Success_CreateAndGet", func(t *testing.T) {
		expires := base.Add(24 * time.Hour)
		token := newEncryptedToken(t, base)
		token.ExpiresAt = &expires

		require.NoError(t, repo.Create(ctx, token))

		got, err := repo.Get(ctx, token.ID)
		require.NoError(t, err)
		assert.Equal(t, token.ID, got.ID)
		assert.Equal(t, token.EncryptedSecret, got.EncryptedSecret)
		assert.Equal(t, token.SecretLookup, got.SecretLookup)
		assert.Equal(t, token.Description, got.Description)
		assert.Equal(t, token.Scopes, got.Scopes)
		assert.True(t, token.CreatedAt.Equal(got.CreatedAt))
		require.NotNil(t, got.ExpiresAt)
		assert.True(t, expires.Equal(*got.ExpiresAt))
		assert.Nil(t, got.LastUsedAt)
	})

	t.Run("Error_GetNotFound", func(t *testing.T) {
		_, err := repo.Get(ctx, uuid.Must(uuid.NewV7()))
		assert.ErrorIs(t, err, tokenDomain.ErrTokenNotFound)
	})

	t.Run("Error_DuplicateID", func(t *testing.T) {
		token := newEncryptedToken(t, base)
		require.NoError(t, repo.Create(ctx, token))

		dup := newEncryptedToken(t, base)
		dup.ID = token.ID
		assert.ErrorIs(t, repo.Create(ctx, dup), tokenDomain.ErrTokenAlreadyExists)
	})

	t.Run("Error_DuplicateSecretLookup", func(t *testing.T) {
		token := newEncryptedToken(t, base)
		require.NoError(t, repo.Create(ctx, token))

		dup := newEncryptedToken(t, base)
		dup.SecretLookup = token.SecretLookup
		assert.ErrorIs(t, repo.Create(ctx, dup), tokenDomain.ErrSecretAlreadyInUse)
	})

	t.Run("Success_ListBySecretLookup", func(t *testing.T) {
		token := newEncryptedToken(t, base)
		require.NoError(t, repo.Create(ctx, token))

		found, err := repo.ListBySecretLookup(ctx, token.SecretLookup)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, token.ID, found[0].ID)

		none, err := repo.ListBySecretLookup(ctx, randomBytes(t, 32))
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Success_UpdateAndTouch", func(t *testing.T) {
		token := newEncryptedToken(t, base)
		require.NoError(t, repo.Create(ctx, token))

		expires := base.Add(time.Hour)
		token.ExpiresAt = &expires
		token.Scopes = tokenDomain.Scopes{tokenDomain.ScopeRead, tokenDomain.ScopeAdmin}
		token.EncryptedSecret = randomBytes(t, 76)
		require.NoError(t, repo.Update(ctx, token))

		usedAt := base.Add(time.Minute)
		require.NoError(t, repo.UpdateLastUsed(ctx, token.ID, usedAt))

		got, err := repo.Get(ctx, token.ID)
		require.NoError(t, err)
		assert.Equal(t, token.Scopes, got.Scopes)
		assert.Equal(t, token.EncryptedSecret, got.EncryptedSecret)
		require.NotNil(t, got.ExpiresAt)
		assert.True(t, expires.Equal(*got.ExpiresAt))
		require.NotNil(t, got.LastUsedAt)
		assert.True(t, usedAt.Equal(*got.LastUsedAt))
	})

	t.Run("Error_UpdateNotFound", func(t *testing.T) {
		missing := newEncryptedToken(t, base)
		assert.ErrorIs(t, repo.Update(ctx, missing), tokenDomain.ErrTokenNotFound)
		assert.ErrorIs(t, repo.UpdateLastUsed(ctx, missing.ID, base), tokenDomain.ErrTokenNotFound)
	})

	t.Run("Success_DeleteIsIdempotent", func(t *testing.T) {
		token := newEncryptedToken(t, base)
		require.NoError(t, repo.Create(ctx, token))

		deleted, err := repo.Delete(ctx, token.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, token.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("Success_GetForUpdateInTransaction", func(t *testing.T) {
		token := newEncryptedToken(t, base)
		require.NoError(t, repo.Create(ctx, token))

		err := database.NewTxManager(db).WithTx(ctx, func(ctx context.Context) error {
			locked, err := repo.GetForUpdate(ctx, token.ID)
			if err != nil {
				return err
			}
			expires := base.Add(2 * time.Hour)
			locked.ExpiresAt = &expires
			return repo.Update(ctx, locked)
		})
		require.NoError(t, err)

		got, err := repo.Get(ctx, token.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ExpiresAt)
	})

	t.Run("Success_ListOrderedByCreation", func(t *testing.T) {
		later := newEncryptedToken(t, base.Add(48*time.Hour))
		earlier := newEncryptedToken(t, base.Add(47*time.Hour))
		require.NoError(t, repo.Create(ctx, later))
		require.NoError(t, repo.Create(ctx, earlier))

		tokens, err := repo.List(ctx)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(tokens), 2)

		n := len(tokens)
		assert.Equal(t, earlier.ID, tokens[n-2].ID)
		assert.Equal(t, later.ID, tokens[n-1].ID)
	})
}
