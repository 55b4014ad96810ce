package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/apitokens/internal/database"
	apperrors "github.com/allisson/apitokens/internal/errors"
	tokenDomain "github.com/allisson/apitokens/internal/token/domain"
)

const mysqlSelectColumns = `SELECT token_id, encrypted_secret, secret_lookup, description, scope,
	created_at, expires_at, last_used_at FROM tokens`

// MySQLTokenRepository implements token persistence for MySQL.
// Uses BINARY(16) for UUID storage with transaction support via database.GetTx().
type MySQLTokenRepository struct {
	db *sql.DB
}

// NewMySQLTokenRepository creates a new MySQL token repository.
func NewMySQLTokenRepository(db *sql.DB) *MySQLTokenRepository {
	return &MySQLTokenRepository{db: db}
}

// Create inserts a new token using BINARY(16) for the ID.
func (m *MySQLTokenRepository) Create(ctx context.Context, token *tokenDomain.EncryptedToken) error {
	querier := database.GetTx(ctx, m.db)

	id, err := token.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal token id")
	}

	scopes, err := marshalScopes(token.Scopes)
	if err != nil {
		return err
	}

	query := `INSERT INTO tokens (token_id, encrypted_secret, secret_lookup, description, scope,
			  created_at, expires_at, last_used_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		token.EncryptedSecret,
		token.SecretLookup,
		token.Description,
		scopes,
		token.CreatedAt,
		token.ExpiresAt,
		token.LastUsedAt,
	)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return classifyUniqueViolation(err)
		}
		return apperrors.Wrap(err, "failed to create token")
	}
	return nil
}

// Get retrieves a token by ID.
func (m *MySQLTokenRepository) Get(ctx context.Context, tokenID uuid.UUID) (*tokenDomain.EncryptedToken, error) {
	return m.get(ctx, mysqlSelectColumns+` WHERE token_id = ?`, tokenID)
}

// GetForUpdate retrieves a token and locks its row until the surrounding transaction ends.
func (m *MySQLTokenRepository) GetForUpdate(
	ctx context.Context,
	tokenID uuid.UUID,
) (*tokenDomain.EncryptedToken, error) {
	return m.get(ctx, mysqlSelectColumns+` WHERE token_id = ? FOR UPDATE`, tokenID)
}

// List returns every token ordered by creation time.
func (m *MySQLTokenRepository) List(ctx context.Context) ([]*tokenDomain.EncryptedToken, error) {
	return m.query(ctx, mysqlSelectColumns+` ORDER BY created_at ASC, token_id ASC`)
}

// ListBySecretLookup returns the tokens whose lookup hash equals lookup.
func (m *MySQLTokenRepository) ListBySecretLookup(
	ctx context.Context,
	lookup []byte,
) ([]*tokenDomain.EncryptedToken, error) {
	return m.query(ctx, mysqlSelectColumns+` WHERE secret_lookup = ?`, lookup)
}

// Update overwrites the mutable fields of an existing token.
func (m *MySQLTokenRepository) Update(ctx context.Context, token *tokenDomain.EncryptedToken) error {
	querier := database.GetTx(ctx, m.db)

	id, err := token.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal token id")
	}

	scopes, err := marshalScopes(token.Scopes)
	if err != nil {
		return err
	}

	query := `UPDATE tokens
			  SET encrypted_secret = ?,
				  secret_lookup = ?,
				  description = ?,
				  scope = ?,
				  expires_at = ?,
				  last_used_at = ?
			  WHERE token_id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		token.EncryptedSecret,
		token.SecretLookup,
		token.Description,
		scopes,
		token.ExpiresAt,
		token.LastUsedAt,
		id,
	)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return classifyUniqueViolation(err)
		}
		return apperrors.Wrap(err, "failed to update token")
	}
	return m.checkMatched(ctx, querier, id, result)
}

// UpdateLastUsed sets only last_used_at.
func (m *MySQLTokenRepository) UpdateLastUsed(ctx context.Context, tokenID uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, m.db)

	id, err := tokenID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal token id")
	}

	result, err := querier.ExecContext(ctx, `UPDATE tokens SET last_used_at = ? WHERE token_id = ?`, at, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update token last used")
	}
	return m.checkMatched(ctx, querier, id, result)
}

// checkMatched treats zero affected rows as a miss only when the row is gone.
// MySQL reports changed rows, so an update writing identical values affects none.
func (m *MySQLTokenRepository) checkMatched(
	ctx context.Context,
	querier database.Querier,
	id []byte,
	result sql.Result,
) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if rows > 0 {
		return nil
	}

	var exists int
	err = querier.QueryRowContext(ctx, `SELECT 1 FROM tokens WHERE token_id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return tokenDomain.ErrTokenNotFound
	}
	if err != nil {
		return apperrors.Wrap(err, "failed to check token existence")
	}
	return nil
}

// Delete removes a token and reports whether it existed.
func (m *MySQLTokenRepository) Delete(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := tokenID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal token id")
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM tokens WHERE token_id = ?`, id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to delete token")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get rows affected")
	}
	return rows > 0, nil
}

func (m *MySQLTokenRepository) get(
	ctx context.Context,
	query string,
	tokenID uuid.UUID,
) (*tokenDomain.EncryptedToken, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := tokenID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal token id")
	}

	token, err := scanMySQLToken(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tokenDomain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get token")
	}
	return token, nil
}

func (m *MySQLTokenRepository) query(
	ctx context.Context,
	query string,
	args ...any,
) ([]*tokenDomain.EncryptedToken, error) {
	querier := database.GetTx(ctx, m.db)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list tokens")
	}
	defer func() { _ = rows.Close() }()

	tokens := make([]*tokenDomain.EncryptedToken, 0)
	for rows.Next() {
		token, err := scanMySQLToken(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan token")
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate tokens")
	}
	return tokens, nil
}

func scanMySQLToken(row rowScanner) (*tokenDomain.EncryptedToken, error) {
	var (
		token   tokenDomain.EncryptedToken
		idBytes []byte
		scopes  []byte
	)

	if err := row.Scan(
		&idBytes,
		&token.EncryptedSecret,
		&token.SecretLookup,
		&token.Description,
		&scopes,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.LastUsedAt,
	); err != nil {
		return nil, err
	}

	if err := token.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal token id")
	}

	var err error
	if token.Scopes, err = unmarshalScopes(scopes); err != nil {
		return nil, err
	}
	return &token, nil
}

// isMySQLUniqueViolation checks if the error is a MySQL unique constraint violation
func isMySQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// MySQL: "Error 1062: Duplicate entry"
	return strings.Contains(errMsg, "duplicate entry") || strings.Contains(errMsg, "1062")
}
