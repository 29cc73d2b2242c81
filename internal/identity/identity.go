// Package identity provides the authentication contract the game server
// needs: a stable user id plus display name per connection, issued and
// verified via tokens.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrInvalidToken indicates the token is definitively invalid or expired.
	ErrInvalidToken = errors.New("identity: invalid token")
)

// User is an authenticated player.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
}

// Provider issues and verifies identity tokens.
//
// Issue is the sign-in half: it turns a known user into a token the client
// holds for the session. Verify is the current-user half: it turns a
// presented token back into the user, or ErrInvalidToken.
type Provider interface {
	Issue(ctx context.Context, user User) (string, error)
	Verify(ctx context.Context, token string) (*User, error)
}
