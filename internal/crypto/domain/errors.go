package domain

import (
	"github.com/allisson/apitokens/internal/errors"
)

// Cryptographic error definitions.
var (
	// ErrUnsupportedAlgorithm indicates an unknown cipher name.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates key material that is not exactly KeySize bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed indicates a ciphertext that failed authentication.
	// The cause (wrong key, tampered data, mismatched id) is never disclosed.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrInvalidKeyFile indicates a key file whose content cannot be decoded.
	ErrInvalidKeyFile = errors.New("invalid key file")

	// ErrKeyPathRequired indicates that neither a key path nor an inline key was configured.
	ErrKeyPathRequired = errors.New("key path is required")
)
