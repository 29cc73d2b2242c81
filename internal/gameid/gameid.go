// Package gameid generates the opaque ids assigned to game documents at
// creation. Ids are UUIDv7 values encoded as 26-character Crockford base32,
// so they sort by creation time and stay URL-safe.
package gameid

import (
	"crypto/rand"
	"fmt"
	"time"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// RandSource interface for dependency injection of randomness.
type RandSource interface {
	Intn(n int) int
}

// Generator handles game ID generation with configurable randomness.
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a new generator. A nil RandSource selects crypto/rand.
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate creates a new game ID using crypto/rand.
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate creates a new game ID from a UUIDv7: a 48-bit millisecond
// timestamp followed by random bits, with the version and variant fields set.
func (g *Generator) Generate() string {
	var uuid [16]byte

	now := time.Now().UnixMilli()
	uuid[0] = byte(now >> 40)
	uuid[1] = byte(now >> 32)
	uuid[2] = byte(now >> 24)
	uuid[3] = byte(now >> 16)
	uuid[4] = byte(now >> 8)
	uuid[5] = byte(now)

	if g.randSource != nil {
		for i := 6; i < 16; i++ {
			uuid[i] = byte(g.randSource.Intn(256))
		}
	} else {
		if _, err := rand.Read(uuid[6:]); err != nil {
			panic("failed to generate random bytes: " + err.Error())
		}
	}

	uuid[6] = (uuid[6] & 0x0f) | 0x70 // version 7
	uuid[8] = (uuid[8] & 0x3f) | 0x80 // variant 10

	return encodeBase32(uuid)
}

// encodeBase32 encodes the 128-bit UUID as 26 base32 characters, 5 bits per
// character, most significant bits first.
func encodeBase32(data [16]byte) string {
	result := make([]byte, 26)
	for i := 0; i < 26; i++ {
		bitOffset := i * 5
		byteIndex := bitOffset / 8
		bitIndex := bitOffset % 8

		var value uint8
		if byteIndex < 16 {
			if bitIndex <= 3 {
				value = (data[byteIndex] >> (3 - bitIndex)) & 0x1f
			} else {
				value = (data[byteIndex] << (bitIndex - 3)) & 0x1f
				if byteIndex+1 < 16 {
					value |= data[byteIndex+1] >> (11 - bitIndex)
				}
			}
		}
		result[i] = alphabet[value]
	}
	return string(result)
}

// Validate checks that id is a well-formed 26-character base32 game ID.
func Validate(id string) error {
	if len(id) != 26 {
		return fmt.Errorf("game ID must be exactly 26 characters, got %d", len(id))
	}
	// The leading character carries only 3 significant bits.
	if id[0] > '7' {
		return fmt.Errorf("game ID first character must be 0-7, got %c", id[0])
	}
	for i, char := range id {
		valid := false
		for _, validChar := range alphabet {
			if char == validChar {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}
	return nil
}
