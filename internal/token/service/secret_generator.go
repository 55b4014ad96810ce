package service

import (
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-secure-stdlib/base62"
)

// DefaultSecretLength is the length of generated secrets.
const DefaultSecretLength = 48

// MinSecretLength is the shortest secret Generate accepts.
const MinSecretLength = 16

// ErrSecretTooShort indicates a requested secret length below MinSecretLength.
var ErrSecretTooShort = errors.New("secret length too short")

type base62Generator struct {
	reader io.Reader
}

// NewSecretGenerator creates a generator drawing from crypto/rand over the
// alphabet [0-9A-Za-z].
func NewSecretGenerator() SecretGenerator {
	return &base62Generator{}
}

// NewSecretGeneratorWithReader creates a generator reading entropy from r.
// Intended for tests that need to exercise reader failures.
func NewSecretGeneratorWithReader(r io.Reader) SecretGenerator {
	return &base62Generator{reader: r}
}

// Generate returns a random alphanumeric string of exactly length characters.
func (g *base62Generator) Generate(length int) (string, error) {
	if length < MinSecretLength {
		return "", fmt.Errorf("%w: %d < %d", ErrSecretTooShort, length, MinSecretLength)
	}

	var (
		secret string
		err    error
	)
	if g.reader != nil {
		secret, err = base62.RandomWithReader(length, g.reader)
	} else {
		secret, err = base62.Random(length)
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return secret, nil
}
