// Package invite generates and validates the short human-shareable codes used
// to join a game while it is still being set up.
package invite

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Codes are 6 characters drawn from uppercase letters and digits: a 36^6
// space, large enough that collisions across the expected concurrent-game
// population are a birthday-bound rarity. The caller retries at write time on
// the off chance of a conflict; the generator itself is stateless.
const (
	alphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	CodeLength = 6
)

// RandSource interface for dependency injection of randomness.
type RandSource interface {
	Intn(n int) int
}

// Generator produces invite codes with configurable randomness.
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a generator. A nil RandSource selects crypto/rand.
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate creates a new invite code using crypto/rand.
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate creates a new 6-character invite code.
func (g *Generator) Generate() string {
	code := make([]byte, CodeLength)
	if g.randSource != nil {
		for i := range code {
			code[i] = alphabet[g.randSource.Intn(len(alphabet))]
		}
		return string(code)
	}

	// Rejection sampling over crypto/rand bytes keeps the draw uniform;
	// 252 is the largest multiple of 36 below 256.
	const limit = byte(len(alphabet) * (256 / len(alphabet)))
	buf := make([]byte, CodeLength)
	filled := 0
	for filled < CodeLength {
		if _, err := rand.Read(buf); err != nil {
			panic("failed to generate random bytes: " + err.Error())
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			code[filled] = alphabet[int(b)%len(alphabet)]
			filled++
			if filled == CodeLength {
				break
			}
		}
	}
	return string(code)
}

// Normalize upper-cases and trims a user-entered code so lookups are
// case-insensitive.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks that code is exactly 6 uppercase alphanumeric characters.
func Validate(code string) error {
	if len(code) != CodeLength {
		return fmt.Errorf("invite code must be exactly %d characters, got %d", CodeLength, len(code))
	}
	for i, char := range code {
		if !strings.ContainsRune(alphabet, char) {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}
	return nil
}
