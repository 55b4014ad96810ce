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

// sqliteTimeLayout keeps a fixed-width fraction so text order matches time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tokens (
	token_id TEXT PRIMARY KEY,
	encrypted_secret BLOB NOT NULL,
	secret_lookup BLOB NOT NULL,
	description TEXT NOT NULL,
	scope TEXT NOT NULL,
	created_at TEXT NOT NULL,
	expires_at TEXT,
	last_used_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS tokens_secret_lookup_idx ON tokens (secret_lookup);
`

const sqliteSelectColumns = `SELECT token_id, encrypted_secret, secret_lookup, description, scope,
	created_at, expires_at, last_used_at FROM tokens`

// SQLiteTokenRepository implements token persistence for SQLite.
// Timestamps are stored as RFC 3339 text in UTC.
type SQLiteTokenRepository struct {
	db *sql.DB
}

// NewSQLiteTokenRepository creates a new SQLite token repository.
func NewSQLiteTokenRepository(db *sql.DB) *SQLiteTokenRepository {
	return &SQLiteTokenRepository{db: db}
}

// EnsureSQLiteSchema creates the tokens table and its indexes when missing.
func EnsureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return apperrors.Wrap(err, "failed to create sqlite schema")
	}
	return nil
}

// Create inserts a new token.
func (s *SQLiteTokenRepository) Create(ctx context.Context, token *tokenDomain.EncryptedToken) error {
	querier := database.GetTx(ctx, s.db)

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
		token.ID.String(),
		token.EncryptedSecret,
		token.SecretLookup,
		token.Description,
		string(scopes),
		formatSQLiteTime(token.CreatedAt),
		formatSQLiteNullTime(token.ExpiresAt),
		formatSQLiteNullTime(token.LastUsedAt),
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return classifyUniqueViolation(err)
		}
		return apperrors.Wrap(err, "failed to create token")
	}
	return nil
}

// Get retrieves a token by ID.
func (s *SQLiteTokenRepository) Get(ctx context.Context, tokenID uuid.UUID) (*tokenDomain.EncryptedToken, error) {
	querier := database.GetTx(ctx, s.db)

	row := querier.QueryRowContext(ctx, sqliteSelectColumns+` WHERE token_id = ?`, tokenID.String())
	token, err := scanSQLiteToken(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tokenDomain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get token")
	}
	return token, nil
}

// GetForUpdate retrieves a token inside the caller's transaction. SQLite
// serializes writers per database, so no row lock is required.
func (s *SQLiteTokenRepository) GetForUpdate(
	ctx context.Context,
	tokenID uuid.UUID,
) (*tokenDomain.EncryptedToken, error) {
	return s.Get(ctx, tokenID)
}

// List returns every token ordered by creation time.
func (s *SQLiteTokenRepository) List(ctx context.Context) ([]*tokenDomain.EncryptedToken, error) {
	return s.query(ctx, sqliteSelectColumns+` ORDER BY created_at ASC, token_id ASC`)
}

// ListBySecretLookup returns the tokens whose lookup hash equals lookup.
func (s *SQLiteTokenRepository) ListBySecretLookup(
	ctx context.Context,
	lookup []byte,
) ([]*tokenDomain.EncryptedToken, error) {
	return s.query(ctx, sqliteSelectColumns+` WHERE secret_lookup = ?`, lookup)
}

// Update overwrites the mutable fields of an existing token.
func (s *SQLiteTokenRepository) Update(ctx context.Context, token *tokenDomain.EncryptedToken) error {
	querier := database.GetTx(ctx, s.db)

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
		string(scopes),
		formatSQLiteNullTime(token.ExpiresAt),
		formatSQLiteNullTime(token.LastUsedAt),
		token.ID.String(),
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return classifyUniqueViolation(err)
		}
		return apperrors.Wrap(err, "failed to update token")
	}
	return checkRowsAffected(result.RowsAffected())
}

// UpdateLastUsed sets only last_used_at so it never clobbers a concurrent expiry change.
func (s *SQLiteTokenRepository) UpdateLastUsed(ctx context.Context, tokenID uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, s.db)

	result, err := querier.ExecContext(ctx,
		`UPDATE tokens SET last_used_at = ? WHERE token_id = ?`,
		formatSQLiteTime(at),
		tokenID.String(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update token last used")
	}
	return checkRowsAffected(result.RowsAffected())
}

// Delete removes a token and reports whether it existed.
func (s *SQLiteTokenRepository) Delete(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, s.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM tokens WHERE token_id = ?`, tokenID.String())
	if err != nil {
		return false, apperrors.Wrap(err, "failed to delete token")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get rows affected")
	}
	return rows > 0, nil
}

func (s *SQLiteTokenRepository) query(
	ctx context.Context,
	query string,
	args ...any,
) ([]*tokenDomain.EncryptedToken, error) {
	querier := database.GetTx(ctx, s.db)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list tokens")
	}
	defer func() { _ = rows.Close() }()

	tokens := make([]*tokenDomain.EncryptedToken, 0)
	for rows.Next() {
		token, err := scanSQLiteToken(rows)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteToken(row rowScanner) (*tokenDomain.EncryptedToken, error) {
	var (
		token      tokenDomain.EncryptedToken
		id         string
		scope      string
		createdAt  string
		expiresAt  sql.NullString
		lastUsedAt sql.NullString
	)

	if err := row.Scan(
		&id,
		&token.EncryptedSecret,
		&token.SecretLookup,
		&token.Description,
		&scope,
		&createdAt,
		&expiresAt,
		&lastUsedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if token.ID, err = uuid.Parse(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse token id")
	}
	if token.Scopes, err = unmarshalScopes([]byte(scope)); err != nil {
		return nil, err
	}
	if token.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse created_at")
	}
	if token.ExpiresAt, err = parseSQLiteNullTime(expiresAt); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse expires_at")
	}
	if token.LastUsedAt, err = parseSQLiteNullTime(lastUsedAt); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse last_used_at")
	}
	return &token, nil
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func formatSQLiteNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatSQLiteTime(*t)
}

func parseSQLiteNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// isSQLiteUniqueViolation checks if the error is a SQLite unique constraint violation
func isSQLiteUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
