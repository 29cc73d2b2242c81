package invite

import (
	"regexp"
	"testing"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func TestGenerateFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := Generate()
		if !codePattern.MatchString(code) {
			t.Fatalf("code %q does not match ^[A-Z0-9]{6}$", code)
		}
		if err := Validate(code); err != nil {
			t.Fatalf("generated code failed validation: %v", err)
		}
	}
}

func TestGenerateCollisions(t *testing.T) {
	// 1000 draws from a 36^6 space should essentially never collide; a
	// single repeat is tolerated to keep the test statistical, not flaky.
	seen := make(map[string]bool)
	collisions := 0
	for i := 0; i < 1000; i++ {
		code := Generate()
		if seen[code] {
			collisions++
		}
		seen[code] = true
	}
	if collisions > 1 {
		t.Errorf("%d collisions in 1000 codes, generator suspect", collisions)
	}
}

// seqSource returns 0, 1, 2, ... for deterministic tests.
type seqSource struct{ n int }

func (s *seqSource) Intn(n int) int {
	v := s.n % n
	s.n++
	return v
}

func TestGenerateWithRandSource(t *testing.T) {
	gen := NewGenerator(&seqSource{})

	code := gen.Generate()
	if code != "ABCDEF" {
		t.Errorf("expected ABCDEF from sequential source, got %q", code)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc123", "ABC123"},
		{"  AbC123  ", "ABC123"},
		{"XYZ789", "XYZ789"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{"valid", "ABC123", false},
		{"valid all letters", "QWERTY", false},
		{"valid all digits", "123456", false},
		{"too short", "ABC12", true},
		{"too long", "ABC1234", true},
		{"lowercase", "abc123", true},
		{"punctuation", "ABC-12", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.code)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
		})
	}
}
