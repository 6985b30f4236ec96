package identity

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// IdentityLength is the fixed length of generated identities.
const IdentityLength = 12

var generatedPattern = regexp.MustCompile(`^[a-z][a-z0-9]{11}$`)

// Generator produces new identity strings.
type Generator interface {
	Generate() (string, error)
}

// RandomGenerator derives identities from random (version 4) UUIDs.
// The first character is a lowercase letter so the identity is a legal
// package segment; the remaining characters are base-36 digits.
type RandomGenerator struct {
	// Rand is the entropy source. Nil means crypto/rand.
	Rand io.Reader
}

// NewRandomGenerator returns a generator backed by crypto/rand.
func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

// Generate returns a new identity of IdentityLength characters.
func (g *RandomGenerator) Generate() (string, error) {
	r := g.Rand
	if r == nil {
		r = rand.Reader
	}

	u, err := uuid.NewRandomFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	lead := byte('a' + u[0]%26)

	tail := new(big.Int).SetBytes(u[1:]).Text(36)
	width := IdentityLength - 1
	if len(tail) < width {
		tail = strings.Repeat("0", width-len(tail)) + tail
	}
	tail = tail[len(tail)-width:]

	return string(lead) + tail, nil
}

// ValidIdentity reports whether s has the shape of a generated identity.
func ValidIdentity(s string) bool {
	return generatedPattern.MatchString(s)
}
