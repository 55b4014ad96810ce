package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	tokenDomain "github.com/allisson/apitokens/internal/token/domain"
	"github.com/allisson/apitokens/internal/token/http/dto"
	tokenUseCase "github.com/allisson/apitokens/internal/token/usecase"
)

// secretNotice is printed after every command that reveals a secret.
const secretNotice = "\nIMPORTANT: The secret is shown only once. Store it securely."

// RunCreateToken issues a new token. scopes is a comma-separated list; empty
// means the default scopes. A negative expiresInDays uses the configured default.
//
// Requirements: Database must be migrated and accessible.
func RunCreateToken(
	ctx context.Context,
	useCase tokenUseCase.TokenUseCase,
	logger *slog.Logger,
	description string,
	scopes string,
	expiresInDays int,
	format string,
	io IOTuple,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	input := &tokenDomain.CreateTokenInput{Description: description}

	if strings.TrimSpace(scopes) != "" {
		parsed, err := tokenDomain.ParseScopes(strings.Split(scopes, ","))
		if err != nil {
			return fmt.Errorf("failed to parse scopes: %w", err)
		}
		input.Scopes = parsed
	}
	if expiresInDays >= 0 {
		input.ExpiresInDays = &expiresInDays
	}

	token, err := useCase.Create(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	logger.Info("token created", slog.String("token_id", token.ID.String()))

	if format == "json" {
		return writeJSON(io.Writer, dto.MapTokenToCreateResponse(token))
	}

	_, _ = fmt.Fprintln(io.Writer, "\nToken created successfully!")
	_, _ = fmt.Fprintf(io.Writer, "Token ID: %s\n", token.ID.String())
	_, _ = fmt.Fprintf(io.Writer, "Secret: %s\n", token.Secret)
	_, _ = fmt.Fprintf(io.Writer, "Scopes: %s\n", token.Scopes.String())
	_, _ = fmt.Fprintf(io.Writer, "Expires: %s\n", formatExpiry(token.ExpiresAt))
	_, _ = fmt.Fprintln(io.Writer, secretNotice)
	return nil
}

// RunListTokens prints every token with its secret masked.
func RunListTokens(
	ctx context.Context,
	useCase tokenUseCase.TokenUseCase,
	format string,
	io IOTuple,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	tokens, err := useCase.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tokens: %w", err)
	}

	if format == "json" {
		return writeJSON(io.Writer, dto.MapTokensToListResponse(tokens))
	}

	if len(tokens) == 0 {
		_, _ = fmt.Fprintln(io.Writer, "No tokens found.")
		return nil
	}

	w := tabwriter.NewWriter(io.Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSECRET\tDESCRIPTION\tSCOPES\tCREATED\tEXPIRES\tLAST USED")
	for _, token := range tokens {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			token.ID.String(),
			token.MaskedSecret(),
			token.Description,
			token.Scopes.String(),
			token.CreatedAt.Format(time.RFC3339),
			formatExpiry(token.ExpiresAt),
			formatOptionalTime(token.LastUsedAt),
		)
	}
	return w.Flush()
}

// RunRevokeToken deletes a token. Revoking an unknown ID is reported, not an error.
func RunRevokeToken(
	ctx context.Context,
	useCase tokenUseCase.TokenUseCase,
	logger *slog.Logger,
	tokenIDStr string,
	format string,
	io IOTuple,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	tokenID, err := uuid.Parse(tokenIDStr)
	if err != nil {
		return fmt.Errorf("invalid token ID format: %w", err)
	}

	deleted, err := useCase.Revoke(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	logger.Info("revoke token finished",
		slog.String("token_id", tokenID.String()),
		slog.Bool("deleted", deleted),
	)

	if format == "json" {
		return writeJSON(io.Writer, map[string]interface{}{
			"token_id": tokenID.String(),
			"revoked":  deleted,
		})
	}

	if deleted {
		_, _ = fmt.Fprintf(io.Writer, "Token %s revoked.\n", tokenID.String())
	} else {
		_, _ = fmt.Fprintf(io.Writer, "Token %s not found.\n", tokenID.String())
	}
	return nil
}

// RunRotateToken issues a replacement and keeps the old token valid for graceDays.
func RunRotateToken(
	ctx context.Context,
	useCase tokenUseCase.TokenUseCase,
	logger *slog.Logger,
	tokenIDStr string,
	graceDays int,
	format string,
	io IOTuple,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	tokenID, err := uuid.Parse(tokenIDStr)
	if err != nil {
		return fmt.Errorf("invalid token ID format: %w", err)
	}

	output, err := useCase.Rotate(ctx, tokenID, graceDays)
	if err != nil {
		return fmt.Errorf("failed to rotate token: %w", err)
	}

	logger.Info("token rotated",
		slog.String("token_id", output.OldTokenID.String()),
		slog.String("new_token_id", output.NewToken.ID.String()),
	)

	if format == "json" {
		return writeJSON(io.Writer, dto.MapRotateOutputToResponse(output))
	}

	_, _ = fmt.Fprintln(io.Writer, "\nToken rotated successfully!")
	_, _ = fmt.Fprintf(io.Writer, "Old token ID: %s (valid until %s)\n",
		output.OldTokenID.String(), formatExpiry(output.OldExpiresAt))
	_, _ = fmt.Fprintf(io.Writer, "New token ID: %s\n", output.NewToken.ID.String())
	_, _ = fmt.Fprintf(io.Writer, "New secret: %s\n", output.NewToken.Secret)
	_, _ = fmt.Fprintln(io.Writer, secretNotice)
	return nil
}

// RunMigrateLegacyToken wraps the legacy secret into a stored token.
// An empty secret uses LEGACY_API_TOKEN. The secret itself is never printed.
func RunMigrateLegacyToken(
	ctx context.Context,
	useCase tokenUseCase.TokenUseCase,
	logger *slog.Logger,
	secret string,
	description string,
	format string,
	io IOTuple,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	token, err := useCase.MigrateLegacy(ctx, secret, description)
	if err != nil {
		return fmt.Errorf("failed to migrate legacy token: %w", err)
	}

	logger.Info("legacy token migrated", slog.String("token_id", token.ID.String()))

	if format == "json" {
		return writeJSON(io.Writer, dto.MapTokenToResponse(token))
	}

	_, _ = fmt.Fprintln(io.Writer, "\nLegacy token migrated successfully!")
	_, _ = fmt.Fprintf(io.Writer, "Token ID: %s\n", token.ID.String())
	_, _ = fmt.Fprintf(io.Writer, "Secret: %s\n", token.MaskedSecret())
	_, _ = fmt.Fprintf(io.Writer, "Scopes: %s\n", token.Scopes.String())
	return nil
}

func formatExpiry(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format(time.RFC3339)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
