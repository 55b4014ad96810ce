// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	tokenDomain "github.com/allisson/apitokens/internal/token/domain"
	customValidation "github.com/allisson/apitokens/internal/validation"
)

// maxExpirationDays bounds expires_in_days and grace_days to roughly one hundred years.
const maxExpirationDays = 36500

// validScope checks that a scope name is known.
var validScope = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_scope_type", "must be a string")
	}
	if _, err := tokenDomain.ParseScope(s); err != nil {
		return validation.NewError("validation_scope", "must be one of read, write, admin")
	}
	return nil
})

// CreateTokenRequest contains the parameters for issuing a new token.
type CreateTokenRequest struct {
	Description   string   `json:"description"`
	Scopes        []string `json:"scopes"`
	ExpiresInDays *int     `json:"expires_in_days"`
}

// Validate checks if the create token request is valid.
func (r *CreateTokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Description,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
		validation.Field(&r.Scopes,
			validation.NilOrNotEmpty,
			validation.Each(validScope),
		),
		validation.Field(&r.ExpiresInDays,
			validation.Min(0),
			validation.Max(maxExpirationDays),
		),
	)
}

// ToInput converts the request into the use case input. Validate must pass first.
func (r *CreateTokenRequest) ToInput() (*tokenDomain.CreateTokenInput, error) {
	input := &tokenDomain.CreateTokenInput{
		Description:   r.Description,
		ExpiresInDays: r.ExpiresInDays,
	}
	if r.Scopes != nil {
		scopes, err := tokenDomain.ParseScopes(r.Scopes)
		if err != nil {
			return nil, err
		}
		input.Scopes = scopes
	}
	return input, nil
}

// RotateTokenRequest contains the parameters for rotating a token.
// A nil GraceDays uses the configured default.
type RotateTokenRequest struct {
	GraceDays *int `json:"grace_days"`
}

// Validate checks if the rotate token request is valid.
func (r *RotateTokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.GraceDays,
			validation.Min(0),
			validation.Max(maxExpirationDays),
		),
	)
}

// MigrateLegacyTokenRequest contains the parameters for wrapping the legacy secret.
// An empty Secret uses the configured legacy secret.
type MigrateLegacyTokenRequest struct {
	Secret      string `json:"secret"` //nolint:gosec // caller-supplied legacy secret
	Description string `json:"description"`
}

// Validate checks if the migrate legacy token request is valid.
func (r *MigrateLegacyTokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Secret,
			customValidation.NoWhitespace,
			validation.Length(0, 512),
		),
		validation.Field(&r.Description,
			validation.Length(0, 255),
		),
	)
}
