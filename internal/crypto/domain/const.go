// Package domain defines cryptographic primitives shared by the token store:
// supported algorithms, key material and error values.
package domain

import "fmt"

// KeySize is the length in bytes of the key material and of every derived subkey.
const KeySize = 32

// Algorithm names the AEAD cipher used to encrypt stored secrets.
type Algorithm string

const (
	// AESGCM is AES-256 in Galois/Counter Mode. Fast on CPUs with AES-NI.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 is ChaCha20-Poly1305. Preferred on hardware without AES acceleration.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// ParseAlgorithm validates an algorithm name taken from configuration.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case AESGCM, ChaCha20:
		return Algorithm(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
	}
}
