// Package service provides the stateless token primitives: secret generation
// and the legacy static-secret comparison.
package service

// SecretGenerator produces bearer secrets from a cryptographically secure source.
type SecretGenerator interface {
	// Generate returns a random alphanumeric secret of the given length.
	Generate(length int) (string, error)
}

// LegacyValidator compares a presented secret with the single configured legacy secret.
type LegacyValidator interface {
	// Enabled reports whether a legacy secret is configured.
	Enabled() bool

	// Validate reports whether presented equals the legacy secret, in constant time.
	Validate(presented string) bool
}
