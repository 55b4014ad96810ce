// Package service provides the cryptographic services behind the token store:
// AEAD ciphers, key material management and secret encryption.
package service

import (
	"context"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/apitokens/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)

	// NonceSize returns the nonce length in bytes.
	NonceSize() int
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// KeyMaterialManager obtains the root key that protects stored secrets.
type KeyMaterialManager interface {
	// GetOrCreateKey reads the key file at path, creating it on first use.
	GetOrCreateKey(ctx context.Context, path string) (*cryptoDomain.KeyMaterial, error)

	// LoadInlineKey decodes a base64 key supplied directly through configuration.
	LoadInlineKey(ctx context.Context, encoded string) (*cryptoDomain.KeyMaterial, error)
}

// SecretCipher encrypts token secrets at rest and derives their lookup hash.
type SecretCipher interface {
	// Encrypt seals secret bound to tokenID and returns nonce || ciphertext.
	Encrypt(tokenID uuid.UUID, secret string) ([]byte, error)

	// Decrypt opens a value produced by Encrypt for the same tokenID.
	Decrypt(tokenID uuid.UUID, encrypted []byte) (string, error)

	// LookupHash returns a deterministic keyed hash of secret.
	LookupHash(secret string) []byte
}
