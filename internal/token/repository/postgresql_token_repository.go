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

const postgresSelectColumns = `SELECT token_id, encrypted_secret, secret_lookup, description, scope,
	created_at, expires_at, last_used_at FROM tokens`

// PostgreSQLTokenRepository implements token persistence for PostgreSQL.
// Uses native UUID types with transaction support via database.GetTx().
type PostgreSQLTokenRepository struct {
	db *sql.DB
}

// NewPostgreSQLTokenRepository creates a new PostgreSQL token repository.
func NewPostgreSQLTokenRepository(db *sql.DB) *PostgreSQLTokenRepository {
	return &PostgreSQLTokenRepository{db: db}
}

// Create inserts a new token. Unique violations map to ErrTokenAlreadyExists or
// ErrSecretAlreadyInUse depending on the violated constraint.
func (p *PostgreSQLTokenRepository) Create(ctx context.Context, token *tokenDomain.EncryptedToken) error {
	querier := database.GetTx(ctx, p.db)

	scopes, err := marshalScopes(token.Scopes)
	if err != nil {
		return err
	}

	query := `INSERT INTO tokens (token_id, encrypted_secret, secret_lookup, description, scope,
			  created_at, expires_at, last_used_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = querier.ExecContext(
		ctx,
		query,
		token.ID,
		token.EncryptedSecret,
		token.SecretLookup,
		token.Description,
		scopes,
		token.CreatedAt,
		token.ExpiresAt,
		token.LastUsedAt,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return classifyUniqueViolation(err)
		}
		return apperrors.Wrap(err, "failed to create token")
	}
	return nil
}

// Get retrieves a token by ID.
func (p *PostgreSQLTokenRepository) Get(
	ctx context.Context,
	tokenID uuid.UUID,
) (*tokenDomain.EncryptedToken, error) {
	return p.get(ctx, postgresSelectColumns+` WHERE token_id = $1`, tokenID)
}

// GetForUpdate retrieves a token and locks its row until the surrounding transaction ends.
func (p *PostgreSQLTokenRepository) GetForUpdate(
	ctx context.Context,
	tokenID uuid.UUID,
) (*tokenDomain.EncryptedToken, error) {
	return p.get(ctx, postgresSelectColumns+` WHERE token_id = $1 FOR UPDATE`, tokenID)
}

// List returns every token ordered by creation time.
func (p *PostgreSQLTokenRepository) List(ctx context.Context) ([]*tokenDomain.EncryptedToken, error) {
	return p.query(ctx, postgresSelectColumns+` ORDER BY created_at ASC, token_id ASC`)
}

// ListBySecretLookup returns the tokens whose lookup hash equals lookup.
func (p *PostgreSQLTokenRepository) ListBySecretLookup(
	ctx context.Context,
	lookup []byte,
) ([]*tokenDomain.EncryptedToken, error) {
	return p.query(ctx, postgresSelectColumns+` WHERE secret_lookup = $1`, lookup)
}

// Update overwrites the mutable fields of an existing token.
func (p *PostgreSQLTokenRepository) Update(ctx context.Context, token *tokenDomain.EncryptedToken) error {
	querier := database.GetTx(ctx, p.db)

	scopes, err := marshalScopes(token.Scopes)
	if err != nil {
		return err
	}

	query := `UPDATE tokens
			  SET encrypted_secret = $1,
				  secret_lookup = $2,
				  description = $3,
				  scope = $4,
				  expires_at = $5,
				  last_used_at = $6
			  WHERE token_id = $7`

	result, err := querier.ExecContext(
		ctx,
		query,
		token.EncryptedSecret,
		token.SecretLookup,
		token.Description,
		scopes,
		token.ExpiresAt,
		token.LastUsedAt,
		token.ID,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return classifyUniqueViolation(err)
		}
		return apperrors.Wrap(err, "failed to update token")
	}
	return checkRowsAffected(result.RowsAffected())
}

// UpdateLastUsed sets only last_used_at.
func (p *PostgreSQLTokenRepository) UpdateLastUsed(ctx context.Context, tokenID uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx,
		`UPDATE tokens SET last_used_at = $1 WHERE token_id = $2`, at, tokenID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update token last used")
	}
	return checkRowsAffected(result.RowsAffected())
}

// Delete removes a token and reports whether it existed.
func (p *PostgreSQLTokenRepository) Delete(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM tokens WHERE token_id = $1`, tokenID)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to delete token")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get rows affected")
	}
	return rows > 0, nil
}

func (p *PostgreSQLTokenRepository) get(
	ctx context.Context,
	query string,
	tokenID uuid.UUID,
) (*tokenDomain.EncryptedToken, error) {
	querier := database.GetTx(ctx, p.db)

	token, err := scanPostgreSQLToken(querier.QueryRowContext(ctx, query, tokenID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tokenDomain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get token")
	}
	return token, nil
}

func (p *PostgreSQLTokenRepository) query(
	ctx context.Context,
	query string,
	args ...any,
) ([]*tokenDomain.EncryptedToken, error) {
	querier := database.GetTx(ctx, p.db)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list tokens")
	}
	defer func() { _ = rows.Close() }()

	tokens := make([]*tokenDomain.EncryptedToken, 0)
	for rows.Next() {
		token, err := scanPostgreSQLToken(rows)
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

func scanPostgreSQLToken(row rowScanner) (*tokenDomain.EncryptedToken, error) {
	var (
		token  tokenDomain.EncryptedToken
		scopes []byte
	)

	if err := row.Scan(
		&token.ID,
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

	var err error
	if token.Scopes, err = unmarshalScopes(scopes); err != nil {
		return nil, err
	}
	return &token, nil
}

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique constraint violation
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// PostgreSQL: "duplicate key value violates unique constraint" or "pq: duplicate key"
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}
