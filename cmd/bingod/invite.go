package main

import (
	"context"
	"fmt"
	"time"

	"github.com/partygames/bingo/internal/identity"
	"github.com/partygames/bingo/internal/invite"
)

// InviteCmd prints freshly generated invite codes, mostly useful for
// eyeballing the format and for seeding test fixtures.
type InviteCmd struct {
	Count int `kong:"default='1',help='Number of codes to generate'"`
}

func (c *InviteCmd) Run() error {
	for i := 0; i < c.Count; i++ {
		fmt.Println(invite.Generate())
	}
	return nil
}

// TokenCmd signs an identity token for a user, for connecting test clients
// against a server configured with a jwt_secret.
type TokenCmd struct {
	Secret string `kong:"required,help='JWT signing secret (must match the server config)'"`
	User   string `kong:"required,help='User id to embed in the token'"`
	Name   string `kong:"help='Display name; defaults to the user id'"`
	TTL    int    `kong:"default='0',help='Token lifetime in hours, 0 for no expiry'"`
}

func (c *TokenCmd) Run() error {
	name := c.Name
	if name == "" {
		name = c.User
	}

	idp := identity.NewJWTProvider([]byte(c.Secret), time.Duration(c.TTL)*time.Hour)
	token, err := idp.Issue(context.Background(), identity.User{ID: c.User, DisplayName: name})
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
