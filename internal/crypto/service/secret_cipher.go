package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/allisson/apitokens/internal/crypto/domain"
)

const (
	encryptionKeyInfo = "token-secret-encryption-v1"
	lookupKeyInfo     = "token-secret-lookup-v1"
)

// SecretCipherService encrypts token secrets with an AEAD keyed by a subkey of
// the root key material. The token ID is the associated data, so a ciphertext
// moved onto another row fails to decrypt.
type SecretCipherService struct {
	aead      AEAD
	lookupKey []byte
}

// NewSecretCipher derives the encryption and lookup subkeys from km.
func NewSecretCipher(
	aeadManager AEADManager,
	km *cryptoDomain.KeyMaterial,
	alg cryptoDomain.Algorithm,
) (*SecretCipherService, error) {
	encKey, err := deriveKey(km.Key, encryptionKeyInfo)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(encKey)

	aead, err := aeadManager.CreateCipher(encKey, alg)
	if err != nil {
		return nil, err
	}

	lookupKey, err := deriveKey(km.Key, lookupKeyInfo)
	if err != nil {
		return nil, err
	}

	return &SecretCipherService{aead: aead, lookupKey: lookupKey}, nil
}

// Encrypt seals secret and returns nonce || ciphertext.
func (s *SecretCipherService) Encrypt(tokenID uuid.UUID, secret string) ([]byte, error) {
	ciphertext, nonce, err := s.aead.Encrypt([]byte(secret), tokenID[:])
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(nonce)+len(ciphertext))
	out = append(out, nonce...)
	return append(out, ciphertext...), nil
}

// Decrypt reverses Encrypt. Any failure is reported as ErrDecryptionFailed.
func (s *SecretCipherService) Decrypt(tokenID uuid.UUID, encrypted []byte) (string, error) {
	nonceSize := s.aead.NonceSize()
	if len(encrypted) <= nonceSize {
		return "", cryptoDomain.ErrDecryptionFailed
	}

	plaintext, err := s.aead.Decrypt(encrypted[nonceSize:], encrypted[:nonceSize], tokenID[:])
	if err != nil {
		return "", cryptoDomain.ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// LookupHash returns HMAC-SHA256 of secret under the lookup subkey.
func (s *SecretCipherService) LookupHash(secret string) []byte {
	mac := hmac.New(sha256.New, s.lookupKey)
	mac.Write([]byte(secret))
	return mac.Sum(nil)
}

func deriveKey(root []byte, info string) ([]byte, error) {
	reader := hkdf.New(sha256.New, root, nil, []byte(info))

	key := make([]byte, cryptoDomain.KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive %s key: %w", info, err)
	}
	return key, nil
}
