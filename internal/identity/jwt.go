package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// JWTProvider signs and verifies HS256 session tokens carrying the user id
// as subject and the display name as a private claim.
type JWTProvider struct {
	secret []byte
	ttl    time.Duration
}

type sessionClaims struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// NewJWTProvider creates a provider signing with secret. ttl bounds token
// lifetime; zero means tokens never expire.
func NewJWTProvider(secret []byte, ttl time.Duration) *JWTProvider {
	return &JWTProvider{secret: secret, ttl: ttl}
}

func (p *JWTProvider) Issue(ctx context.Context, user User) (string, error) {
	if user.ID == "" {
		return "", fmt.Errorf("identity: user id is required")
	}

	claims := sessionClaims{
		DisplayName: user.DisplayName,
		Email:       user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  user.ID,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	if p.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(p.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (p *JWTProvider) Verify(ctx context.Context, tokenStr string) (*User, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}

	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &User{
		ID:          claims.Subject,
		DisplayName: claims.DisplayName,
		Email:       claims.Email,
	}, nil
}

// StaticProvider is the dev-mode provider: the token is the user id, the
// display name defaults to the id. No cryptography, no expiry.
type StaticProvider struct{}

// NewStaticProvider creates a provider that trusts whatever id it is handed.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{}
}

func (s *StaticProvider) Issue(ctx context.Context, user User) (string, error) {
	if user.ID == "" {
		return "", fmt.Errorf("identity: user id is required")
	}
	return user.ID, nil
}

func (s *StaticProvider) Verify(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	return &User{ID: token, DisplayName: token}, nil
}
