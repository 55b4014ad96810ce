package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/apitokens/internal/metrics"
	tokenDomain "github.com/allisson/apitokens/internal/token/domain"
)

const metricsDomain = "tokens"

// tokenUseCaseWithMetrics decorates TokenUseCase with metrics instrumentation.
type tokenUseCaseWithMetrics struct {
	next    TokenUseCase
	metrics metrics.BusinessMetrics
}

// NewTokenUseCaseWithMetrics wraps a TokenUseCase with metrics recording.
func NewTokenUseCaseWithMetrics(useCase TokenUseCase, m metrics.BusinessMetrics) TokenUseCase {
	return &tokenUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (t *tokenUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	t.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	t.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// Create records metrics for token creation operations.
func (t *tokenUseCaseWithMetrics) Create(
	ctx context.Context,
	input *tokenDomain.CreateTokenInput,
) (*tokenDomain.Token, error) {
	start := time.Now()
	token, err := t.next.Create(ctx, input)
	t.record(ctx, "token_create", start, err)
	return token, err
}

// Validate records metrics for token validation operations and counts the
// authentication result.
func (t *tokenUseCaseWithMetrics) Validate(ctx context.Context, secret string) (*tokenDomain.Identity, error) {
	start := time.Now()
	identity, err := t.next.Validate(ctx, secret)
	t.record(ctx, "token_validate", start, err)
	t.metrics.RecordAuthentication(ctx, authResult(identity, err))
	return identity, err
}

func authResult(identity *tokenDomain.Identity, err error) string {
	switch {
	case errors.Is(err, tokenDomain.ErrInvalidCredentials):
		return metrics.AuthResultRejected
	case err != nil:
		return metrics.AuthResultError
	case identity.Legacy:
		return metrics.AuthResultLegacy
	default:
		return metrics.AuthResultToken
	}
}

// Authorize records metrics for scope checks.
func (t *tokenUseCaseWithMetrics) Authorize(
	ctx context.Context,
	identity *tokenDomain.Identity,
	required ...tokenDomain.Scope,
) error {
	start := time.Now()
	err := t.next.Authorize(ctx, identity, required...)
	t.record(ctx, "token_authorize", start, err)
	return err
}

// Get records metrics for token retrieval operations.
func (t *tokenUseCaseWithMetrics) Get(ctx context.Context, tokenID uuid.UUID) (*tokenDomain.Token, error) {
	start := time.Now()
	token, err := t.next.Get(ctx, tokenID)
	t.record(ctx, "token_get", start, err)
	return token, err
}

// List records metrics for token list operations.
func (t *tokenUseCaseWithMetrics) List(ctx context.Context) ([]*tokenDomain.Token, error) {
	start := time.Now()
	tokens, err := t.next.List(ctx)
	t.record(ctx, "token_list", start, err)
	return tokens, err
}

// Revoke records metrics for token revocation operations.
func (t *tokenUseCaseWithMetrics) Revoke(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	start := time.Now()
	deleted, err := t.next.Revoke(ctx, tokenID)
	t.record(ctx, "token_revoke", start, err)
	return deleted, err
}

// Rotate records metrics for token rotation operations.
func (t *tokenUseCaseWithMetrics) Rotate(
	ctx context.Context,
	tokenID uuid.UUID,
	graceDays int,
) (*tokenDomain.RotateTokenOutput, error) {
	start := time.Now()
	output, err := t.next.Rotate(ctx, tokenID, graceDays)
	t.record(ctx, "token_rotate", start, err)
	return output, err
}

// MigrateLegacy records metrics for legacy migration operations.
func (t *tokenUseCaseWithMetrics) MigrateLegacy(
	ctx context.Context,
	secret, description string,
) (*tokenDomain.Token, error) {
	start := time.Now()
	token, err := t.next.MigrateLegacy(ctx, secret, description)
	t.record(ctx, "token_migrate_legacy", start, err)
	return token, err
}
