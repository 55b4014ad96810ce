package commands

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"

	cryptoDomain "github.com/allisson/apitokens/internal/crypto/domain"
	cryptoService "github.com/allisson/apitokens/internal/crypto/service"
)

// RunCreateKey prepares the key material that encrypts stored token secrets.
//
// By default the key file at keyPath is created when missing and left untouched
// when present, so running the command twice is safe. The key itself is never
// printed in this mode. With inline set, a fresh key is generated and printed as
// a TOKEN_ENCRYPTION_KEY value instead; nothing is written to disk.
func RunCreateKey(
	ctx context.Context,
	keyManager cryptoService.KeyMaterialManager,
	logger *slog.Logger,
	keyPath string,
	inline bool,
	format string,
	io IOTuple,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	if inline {
		return createInlineKey(io, format)
	}

	km, err := keyManager.GetOrCreateKey(ctx, keyPath)
	if err != nil {
		return fmt.Errorf("failed to create key file: %w", err)
	}
	defer km.Close()

	logger.Info("key file ready", slog.String("path", km.Source))

	if format == "json" {
		return writeJSON(io.Writer, map[string]string{"key_path": km.Source})
	}

	_, _ = fmt.Fprintf(io.Writer, "Key file ready: %s\n", km.Source)
	_, _ = fmt.Fprintln(io.Writer, "Back this file up. Stored tokens cannot be decrypted without it.")
	return nil
}

func createInlineKey(io IOTuple, format string) error {
	key := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}
	defer cryptoDomain.Zero(key)

	encoded := cryptoDomain.EncodeKey(key)

	if format == "json" {
		return writeJSON(io.Writer, map[string]string{"token_encryption_key": encoded})
	}

	_, _ = fmt.Fprintln(io.Writer, "# Copy this variable to your .env file or secrets manager")
	_, _ = fmt.Fprintf(io.Writer, "TOKEN_ENCRYPTION_KEY=\"%s\"\n", encoded)
	return nil
}
