package domain

import (
	"fmt"
	"strings"

	"github.com/allisson/apitokens/internal/errors"
)

// LookupMode selects how the store finds the token matching a presented secret.
type LookupMode string

const (
	// LookupModeScan decrypts every stored secret and compares it with the candidate.
	LookupModeScan LookupMode = "scan"
	// LookupModeIndex short-lists rows by keyed hash before decrypting.
	LookupModeIndex LookupMode = "index"
)

// ErrInvalidLookupMode indicates an unknown lookup mode name.
var ErrInvalidLookupMode = errors.Wrap(errors.ErrInvalidInput, "invalid token lookup mode")

// ParseLookupMode converts a configuration value into a LookupMode. Empty means scan.
func ParseLookupMode(s string) (LookupMode, error) {
	switch LookupMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", LookupModeScan:
		return LookupModeScan, nil
	case LookupModeIndex:
		return LookupModeIndex, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidLookupMode, s)
	}
}
