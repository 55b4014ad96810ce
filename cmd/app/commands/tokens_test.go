package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	tokenDomain "github.com/allisson/apitokens/internal/token/domain"
	"github.com/allisson/apitokens/internal/token/http/dto"
	tokenMocks "github.com/allisson/apitokens/internal/token/usecase/mocks"
)

func newCLIToken(secret string) *tokenDomain.Token {
	return &tokenDomain.Token{
		ID:          uuid.Must(uuid.NewV7()),
		Secret:      secret,
		Description: "ci-bot",
		Scopes:      tokenDomain.DefaultScopes(),
		CreatedAt:   time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestRunCreateToken(t *testing.T) {
	ctx := context.Background()
	logger := createTestLogger()

	t.Run("Success_Text", func(t *testing.T) {
		mockUseCase := tokenMocks.NewMockTokenUseCase(t)
		token := newCLIToken("a-freshly-generated-secret")
		days := 30

		mockUseCase.On("Create", ctx, &tokenDomain.CreateTokenInput{
			Description:   "ci-bot",
			Scopes:        tokenDomain.Scopes{tokenDomain.ScopeRead, tokenDomain.ScopeAdmin},
			ExpiresInDays: &days,
		}).Return(token, nil).Once()

		var out bytes.Buffer
		err := RunCreateToken(ctx, mockUseCase, logger, "ci-bot", "admin, read", 30, "text", IOTuple{Writer: &out})

		require.NoError(t, err)
		assert.Contains(t, out.String(), token.ID.String())
		assert.Contains(t, out.String(), token.Secret)
		assert.Contains(t, out.String(), "shown only once")
	})

	t.Run("Success_JSONDefaults", func(t *testing.T) {
		mockUseCase := tokenMocks.NewMockTokenUseCase(t)
		token := newCLIToken("another-secret")

		mockUseCase.On("Create", ctx, &tokenDomain.CreateTokenInput{Description: "ci-bot"}).Return(token, nil).Once()

		var out bytes.Buffer
		err := RunCreateToken(ctx, mockUseCase, logger, "ci-bot", "", -1, "json", IOTuple{Writer: &out})
		require.NoError(t, err)

		var response dto.CreateTokenResponse
		require.NoError(t, json.Unmarshal(out.Bytes(), &response))
		assert.Equal(t, token.Secret, response.Secret)
		assert.Nil(t, response.ExpiresAt)
	})

	t.Run("Error_UnknownScope", func(t *testing.T) {
		mockUseCase := tokenMocks.NewMockTokenUseCase(t)

		err := RunCreateToken(ctx, mockUseCase, logger, "ci-bot", "read,root", -1, "text", IOTuple{Writer: &bytes.Buffer{}})

		assert.ErrorIs(t, err, tokenDomain.ErrInvalidScope)
	})

	t.Run("Error_UseCase", func(t *testing.T) {
		mockUseCase := tokenMocks.NewMockTokenUseCase(t)
		mockUseCase.On("Create", ctx, mock.Anything).Return(nil, tokenDomain.ErrEmptyDescription).Once()

		err := RunCreateToken(ctx, mockUseCase, logger, " ", "", -1, "text", IOTuple{Writer: &bytes.Buffer{}})

		assert.ErrorIs(t, err, tokenDomain.ErrEmptyDescription)
	})
}

func TestRunListTokens(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_TextMasksSecrets", func(t *testing.T) {
		mockUseCase := tokenMocks.NewMockTokenUseCase(t)
		token := newCLIToken("very-secret-value-WXYZ")
		mockUseCase.On("List", ctx).Return([]*tokenDomain.Token{token}, nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunListTokens(ctx, mockUseCase, "text", IOTuple{Writer: &out}))

		assert.Contains(t, out.String(), token.ID.String())
		assert.Contains(t, out.String(), "****WXYZ")
		assert.Contains(t, out.String(), "never")
		assert.NotContains(t, out.String(), token.Secret)
	})

	t.Run("Success_JSONMasksSecrets", func(t *testing.T) {
		mockUseCase := tokenMocks.NewMockTokenUseCase(t)
		token := newCLIToken("very-secret-value-WXYZ")
		mockUseCase.On("List", ctx).Return([]*tokenDomain.Token{token}, nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunListTokens(ctx, mockUseCase, "json", IOTuple{Writer: &out}))

		assert.NotContains(t, out.String(), token.Secret)
		var response dto.ListTokensResponse
		require.NoError(t, json.Unmarshal(out.Bytes(), &response))
		require.Len(t, response.Data, 1)
		assert.Equal(t, "****WXYZ", response.Data[0].Secret)
	})

	t.Run("Success_Empty", func(t *testing.T) {
		mockUseCase := tokenMocks.NewMockTokenUseCase(t)
		mockUseCase.On("List", ctx).Return([]*tokenDomain.Token{}, nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunListTokens(ctx, mockUseCase, "text", IOTuple{Writer: &out}))
		assert.Contains(t, out.String(), "No tokens found.")
	})
}

func TestRunRevokeToken(t *testing.T) {
	ctx := context.Background()
	logger := createTestLogger()
	tokenID := uuid.Must(uuid.NewV7())

	t.Run("Success_Revoked", func(t *testing.T) {
		mockUseCase := tokenMocks.NewMockTokenUseCase(t)
		mockUseCase.On("Revoke", ctx, tokenID).Return(true, nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunRevokeToken(ctx, mockUseCase, logger, tokenID.String(), "text", IOTuple{Writer: &out}))
		assert.Contains(t, out.String(), "revoked")
	})

	t.Run("Success_UnknownIsNotAnError", func(t *testing.T) {
		mockUseCase := tokenMocks.NewMockTokenUseCase(t)
		mockUseCase.On("Revoke", ctx, tokenID).Return(false, nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunRevokeToken(ctx, mockUseCase, logger, tokenID.String(), "json", IOTuple{Writer: &out}))

		var result map[string]interface{}
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.Equal(t, false, result["revoked"])
	})

	t.Run("Error_InvalidID", func(t *testing.T) {
		mockUseCase := tokenMocks.NewMockTokenUseCase(t)

		err := RunRevokeToken(ctx, mockUseCase, logger, "nope", "text", IOTuple{Writer: &bytes.Buffer{}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid token ID format")
	})
}

func TestRunRotateToken(t *testing.T) {
	ctx := context.Background()
	logger := createTestLogger()
	oldID := uuid.Must(uuid.NewV7())
	expires := time.Date(2026, 1, 22, 10, 0, 0, 0, time.UTC)

	t.Run("Success_Text", func(t *testing.T) {
		mockUseCase := tokenMocks.NewMockTokenUseCase(t)
		replacement := newCLIToken("the-new-secret")
		mockUseCase.On("Rotate", ctx, oldID, 7).Return(&tokenDomain.RotateTokenOutput{
			OldTokenID:   oldID,
			OldExpiresAt: &expires,
			NewToken:     replacement,
		}, nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunRotateToken(ctx, mockUseCase, logger, oldID.String(), 7, "text", IOTuple{Writer: &out}))

		assert.Contains(t, out.String(), "2026-01-22T10:00:00Z")
		assert.Contains(t, out.String(), replacement.Secret)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		mockUseCase := tokenMocks.NewMockTokenUseCase(t)
		mockUseCase.On("Rotate", ctx, oldID, 7).Return(nil, tokenDomain.ErrTokenNotFound).Once()

		err := RunRotateToken(ctx, mockUseCase, logger, oldID.String(), 7, "text", IOTuple{Writer: &bytes.Buffer{}})
		assert.ErrorIs(t, err, tokenDomain.ErrTokenNotFound)
	})
}

func TestRunMigrateLegacyToken(t *testing.T) {
	ctx := context.Background()
	logger := createTestLogger()

	t.Run("Success_NeverPrintsSecret", func(t *testing.T) {
		mockUseCase := tokenMocks.NewMockTokenUseCase(t)
		token := newCLIToken("legacy-static-secret")
		token.Scopes = tokenDomain.FullScopes()
		mockUseCase.On("MigrateLegacy", ctx, "", "old integrations").Return(token, nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunMigrateLegacyToken(ctx, mockUseCase, logger, "", "old integrations", "text", IOTuple{Writer: &out}))

		assert.Contains(t, out.String(), token.ID.String())
		assert.NotContains(t, out.String(), token.Secret)
	})

	t.Run("Error_NoSecret", func(t *testing.T) {
		mockUseCase := tokenMocks.NewMockTokenUseCase(t)
		mockUseCase.On("MigrateLegacy", ctx, "", "").Return(nil, tokenDomain.ErrLegacySecretRequired).Once()

		err := RunMigrateLegacyToken(ctx, mockUseCase, logger, "", "", "text", IOTuple{Writer: &bytes.Buffer{}})
		assert.True(t, errors.Is(err, tokenDomain.ErrLegacySecretRequired))
	})
}
