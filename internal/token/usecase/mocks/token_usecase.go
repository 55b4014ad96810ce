// Package mocks provides mock implementations of the token use case for testing.
package mocks

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	tokenDomain "github.com/allisson/apitokens/internal/token/domain"
)

// MockTokenUseCase is a mock implementation of TokenUseCase for testing.
type MockTokenUseCase struct {
	mock.Mock
}

// NewMockTokenUseCase creates a MockTokenUseCase that asserts its expectations on cleanup.
func NewMockTokenUseCase(t *testing.T) *MockTokenUseCase {
	m := &MockTokenUseCase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create mocks the Create method of TokenUseCase.
func (m *MockTokenUseCase) Create(
	ctx context.Context,
	input *tokenDomain.CreateTokenInput,
) (*tokenDomain.Token, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tokenDomain.Token), args.Error(1)
}

// Validate mocks the Validate method of TokenUseCase.
func (m *MockTokenUseCase) Validate(ctx context.Context, secret string) (*tokenDomain.Identity, error) {
	args := m.Called(ctx, secret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tokenDomain.Identity), args.Error(1)
}

// Authorize mocks the Authorize method of TokenUseCase. The required scopes are
// matched as a single []tokenDomain.Scope argument.
func (m *MockTokenUseCase) Authorize(
	ctx context.Context,
	identity *tokenDomain.Identity,
	required ...tokenDomain.Scope,
) error {
	args := m.Called(ctx, identity, required)
	return args.Error(0)
}

// Get mocks the Get method of TokenUseCase.
func (m *MockTokenUseCase) Get(ctx context.Context, tokenID uuid.UUID) (*tokenDomain.Token, error) {
	args := m.Called(ctx, tokenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tokenDomain.Token), args.Error(1)
}

// List mocks the List method of TokenUseCase.
func (m *MockTokenUseCase) List(ctx context.Context) ([]*tokenDomain.Token, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*tokenDomain.Token), args.Error(1)
}

// Revoke mocks the Revoke method of TokenUseCase.
func (m *MockTokenUseCase) Revoke(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

// Rotate mocks the Rotate method of TokenUseCase.
func (m *MockTokenUseCase) Rotate(
	ctx context.Context,
	tokenID uuid.UUID,
	graceDays int,
) (*tokenDomain.RotateTokenOutput, error) {
	args := m.Called(ctx, tokenID, graceDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tokenDomain.RotateTokenOutput), args.Error(1)
}

// MigrateLegacy mocks the MigrateLegacy method of TokenUseCase.
func (m *MockTokenUseCase) MigrateLegacy(
	ctx context.Context,
	secret, description string,
) (*tokenDomain.Token, error) {
	args := m.Called(ctx, secret, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tokenDomain.Token), args.Error(1)
}
