package dto

import (
	"time"

	tokenDomain "github.com/allisson/apitokens/internal/token/domain"
)

// TokenResponse represents a token in API responses with its secret masked.
type TokenResponse struct {
	ID          string     `json:"id"`
	Secret      string     `json:"secret"`
	Description string     `json:"description"`
	Scopes      []string   `json:"scopes"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
	LastUsedAt  *time.Time `json:"last_used_at"`
}

// MapTokenToResponse converts a domain token to an API response, masking the secret.
func MapTokenToResponse(token *tokenDomain.Token) TokenResponse {
	return TokenResponse{
		ID:          token.ID.String(),
		Secret:      token.MaskedSecret(),
		Description: token.Description,
		Scopes:      token.Scopes.Strings(),
		CreatedAt:   token.CreatedAt,
		ExpiresAt:   token.ExpiresAt,
		LastUsedAt:  token.LastUsedAt,
	}
}

// CreateTokenResponse contains a newly issued token.
// SECURITY: the secret is only returned here and in RotateTokenResponse.
type CreateTokenResponse struct {
	ID          string     `json:"id"`
	Secret      string     `json:"secret"` //nolint:gosec // returned once on creation
	Description string     `json:"description"`
	Scopes      []string   `json:"scopes"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// MapTokenToCreateResponse converts a freshly issued token, secret included.
func MapTokenToCreateResponse(token *tokenDomain.Token) CreateTokenResponse {
	return CreateTokenResponse{
		ID:          token.ID.String(),
		Secret:      token.Secret,
		Description: token.Description,
		Scopes:      token.Scopes.Strings(),
		CreatedAt:   token.CreatedAt,
		ExpiresAt:   token.ExpiresAt,
	}
}

// ListTokensResponse represents a page of tokens.
type ListTokensResponse struct {
	Data []TokenResponse `json:"data"`
}

// MapTokensToListResponse converts domain tokens to a list response.
func MapTokensToListResponse(tokens []*tokenDomain.Token) ListTokensResponse {
	data := make([]TokenResponse, 0, len(tokens))
	for _, token := range tokens {
		data = append(data, MapTokenToResponse(token))
	}
	return ListTokensResponse{Data: data}
}

// RotateTokenResponse contains the rotation result. The new secret is shown once.
type RotateTokenResponse struct {
	OldTokenID   string              `json:"old_token_id"`
	OldExpiresAt *time.Time          `json:"old_expires_at"`
	NewToken     CreateTokenResponse `json:"new_token"`
}

// MapRotateOutputToResponse converts a rotation result.
func MapRotateOutputToResponse(output *tokenDomain.RotateTokenOutput) RotateTokenResponse {
	return RotateTokenResponse{
		OldTokenID:   output.OldTokenID.String(),
		OldExpiresAt: output.OldExpiresAt,
		NewToken:     MapTokenToCreateResponse(output.NewToken),
	}
}

// IdentityResponse describes the caller behind the presented token.
type IdentityResponse struct {
	TokenID     *string    `json:"token_id"`
	Description string     `json:"description"`
	Scopes      []string   `json:"scopes"`
	ExpiresAt   *time.Time `json:"expires_at"`
	Legacy      bool       `json:"legacy"`
}

// MapIdentityToResponse converts an identity to an API response.
func MapIdentityToResponse(identity *tokenDomain.Identity) IdentityResponse {
	response := IdentityResponse{
		Description: identity.Description,
		Scopes:      identity.Scopes.Strings(),
		ExpiresAt:   identity.ExpiresAt,
		Legacy:      identity.Legacy,
	}
	if identity.TokenID != nil {
		id := identity.TokenID.String()
		response.TokenID = &id
	}
	return response
}
