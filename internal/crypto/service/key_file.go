package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	cryptoDomain "github.com/allisson/apitokens/internal/crypto/domain"
)

const (
	keyDirPerm  fs.FileMode = 0o700
	keyFilePerm fs.FileMode = 0o600
)

var errKeyFileEmpty = errors.New("key file is empty")

// KeyFileManager keeps the root key in a file that is created once and reused
// across restarts. When a KMS key URI is configured the file holds the
// KMS-wrapped key instead of the raw key.
type KeyFileManager struct {
	kmsService KMSService
	kmsKeyURI  string
	logger     *slog.Logger

	readRetries    int
	readRetryDelay time.Duration
}

// NewKeyFileManager creates a KeyFileManager. kmsKeyURI may be empty.
func NewKeyFileManager(kmsService KMSService, kmsKeyURI string, logger *slog.Logger) *KeyFileManager {
	return &KeyFileManager{
		kmsService:     kmsService,
		kmsKeyURI:      kmsKeyURI,
		logger:         logger,
		readRetries:    10,
		readRetryDelay: 50 * time.Millisecond,
	}
}

// GetOrCreateKey returns the key stored at path, generating and persisting a
// new one when the file does not exist yet.
//
// The new file is fully written to a temporary name and then hard-linked into
// place, so concurrent initializers never overwrite each other: the loser of
// the race reads the winner's key.
func (m *KeyFileManager) GetOrCreateKey(ctx context.Context, path string) (*cryptoDomain.KeyMaterial, error) {
	if path == "" {
		return nil, cryptoDomain.ErrKeyPathRequired
	}

	km, err := m.readKeyFile(ctx, path)
	if err == nil {
		return km, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	return m.createKeyFile(ctx, path)
}

// LoadInlineKey decodes a raw base64 key supplied through configuration.
func (m *KeyFileManager) LoadInlineKey(ctx context.Context, encoded string) (*cryptoDomain.KeyMaterial, error) {
	raw, err := cryptoDomain.DecodeKey(encoded)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(raw)

	return cryptoDomain.NewKeyMaterial(raw, "inline")
}

func (m *KeyFileManager) createKeyFile(ctx context.Context, path string) (*cryptoDomain.KeyMaterial, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, keyDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}

	key := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	defer cryptoDomain.Zero(key)

	content, err := m.encode(ctx, key)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(dir, ".key-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary key file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := writeAndClose(tmp, content); err != nil {
		return nil, err
	}

	if err := os.Link(tmpName, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			m.logger.Info("key file created concurrently, reusing it", slog.String("path", path))
			return m.readWithRetry(ctx, path)
		}

		// Filesystems without hard links fall back to an exclusive create.
		if err := writeExclusive(path, content); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return m.readWithRetry(ctx, path)
			}
			return nil, fmt.Errorf("failed to write key file: %w", err)
		}
	}

	m.logger.Info("created key file",
		slog.String("path", path),
		slog.Bool("kms_wrapped", m.kmsKeyURI != ""))

	return cryptoDomain.NewKeyMaterial(key, path)
}

// readWithRetry tolerates a file that another process created but has not
// finished writing yet.
func (m *KeyFileManager) readWithRetry(ctx context.Context, path string) (*cryptoDomain.KeyMaterial, error) {
	var lastErr error
	for attempt := 0; attempt <= m.readRetries; attempt++ {
		km, err := m.readKeyFile(ctx, path)
		if err == nil {
			return km, nil
		}
		if !errors.Is(err, errKeyFileEmpty) {
			return nil, err
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.readRetryDelay):
		}
	}
	return nil, fmt.Errorf("failed to read key file: %w", lastErr)
}

func (m *KeyFileManager) readKeyFile(ctx context.Context, path string) (*cryptoDomain.KeyMaterial, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil, errKeyFileEmpty
	}

	key, err := m.decode(ctx, content)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(key)

	return cryptoDomain.NewKeyMaterial(key, path)
}

func (m *KeyFileManager) encode(ctx context.Context, key []byte) (string, error) {
	if m.kmsKeyURI == "" {
		return cryptoDomain.EncodeKey(key), nil
	}

	keeper, err := m.kmsService.OpenKeeper(ctx, m.kmsKeyURI)
	if err != nil {
		return "", err
	}
	defer func() { _ = keeper.Close() }()

	wrapped, err := keeper.Encrypt(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to wrap key with KMS: %w", err)
	}
	return cryptoDomain.EncodeKey(wrapped), nil
}

func (m *KeyFileManager) decode(ctx context.Context, content string) ([]byte, error) {
	raw, err := cryptoDomain.DecodeKey(content)
	if err != nil {
		return nil, err
	}
	if m.kmsKeyURI == "" {
		return raw, nil
	}

	keeper, err := m.kmsService.OpenKeeper(ctx, m.kmsKeyURI)
	if err != nil {
		return nil, err
	}
	defer func() { _ = keeper.Close() }()

	key, err := keeper.Decrypt(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap key with KMS: %w", err)
	}
	return key, nil
}

func writeAndClose(f *os.File, content string) error {
	if _, err := f.WriteString(content + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write key file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync key file: %w", err)
	}
	return f.Close()
}

func writeExclusive(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, keyFilePerm) //nolint:gosec
	if err != nil {
		return err
	}
	return writeAndClose(f, content)
}
