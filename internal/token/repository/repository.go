// Package repository implements token persistence for SQLite, PostgreSQL and MySQL.
package repository

import (
	"encoding/json"
	"strings"

	tokenDomain "github.com/allisson/apitokens/internal/token/domain"
	apperrors "github.com/allisson/apitokens/internal/errors"
)

// marshalScopes serializes the scope set as a JSON list of names.
func marshalScopes(scopes tokenDomain.Scopes) ([]byte, error) {
	data, err := json.Marshal(scopes.Strings())
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal token scopes")
	}
	return data, nil
}

// unmarshalScopes parses a stored JSON list, rejecting unknown scope names.
func unmarshalScopes(data []byte) (tokenDomain.Scopes, error) {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal token scopes")
	}
	return tokenDomain.ParseScopes(names)
}

// classifyUniqueViolation maps a unique constraint failure to the right domain error.
func classifyUniqueViolation(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "secret_lookup") {
		return tokenDomain.ErrSecretAlreadyInUse
	}
	return tokenDomain.ErrTokenAlreadyExists
}

// checkRowsAffected turns an UPDATE that touched nothing into ErrTokenNotFound.
func checkRowsAffected(rows int64, err error) error {
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return tokenDomain.ErrTokenNotFound
	}
	return nil
}
