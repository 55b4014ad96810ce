package service

import (
	"crypto/sha256"
	"crypto/subtle"
)

type legacyValidator struct {
	digest  [sha256.Size]byte
	enabled bool
}

// NewLegacyValidator creates a validator for the static legacy secret.
// An empty secret disables the fallback entirely.
func NewLegacyValidator(secret string) LegacyValidator {
	if secret == "" {
		return &legacyValidator{}
	}
	return &legacyValidator{digest: sha256.Sum256([]byte(secret)), enabled: true}
}

func (v *legacyValidator) Enabled() bool {
	return v.enabled
}

// Validate compares SHA-256 digests with subtle.ConstantTimeCompare so the
// running time depends on neither the mismatch position nor the input length.
func (v *legacyValidator) Validate(presented string) bool {
	if !v.enabled || presented == "" {
		return false
	}
	candidate := sha256.Sum256([]byte(presented))
	return subtle.ConstantTimeCompare(candidate[:], v.digest[:]) == 1
}
