package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// KeyMaterial is the symmetric root key protecting stored secrets.
// Source describes where it came from (file path or "inline") and is safe to log.
type KeyMaterial struct {
	Key    []byte
	Source string
}

// NewKeyMaterial copies key into a new KeyMaterial after checking its size.
func NewKeyMaterial(key []byte, source string) (*KeyMaterial, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeySize, KeySize, len(key))
	}
	buf := make([]byte, KeySize)
	copy(buf, key)
	return &KeyMaterial{Key: buf, Source: source}, nil
}

// Close wipes the key bytes.
func (k *KeyMaterial) Close() {
	Zero(k.Key)
}

// EncodeKey renders key bytes as standard base64 text.
func EncodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// DecodeKey parses base64 text, ignoring surrounding whitespace.
func DecodeKey(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFile, err)
	}
	return raw, nil
}
