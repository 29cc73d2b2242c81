// Package directory answers "which games is this user in" and resolves invite
// codes: a thin query and subscription layer over the document store.
package directory

import (
	"context"
	"sort"

	"github.com/partygames/bingo/internal/docstore"
	"github.com/partygames/bingo/internal/game"
	"github.com/partygames/bingo/internal/invite"
)

// Directory wraps a Store with the read paths the clients use.
type Directory struct {
	store docstore.Store
}

// New creates a directory over store.
func New(store docstore.Store) *Directory {
	return &Directory{store: store}
}

// GamesFor lists every game the user participates in, newest first.
func (d *Directory) GamesFor(ctx context.Context, userID string) ([]*game.Game, error) {
	games, err := d.store.ByPlayer(ctx, userID)
	if err != nil {
		return nil, err
	}
	// CreatedAt is RFC 3339 text, so lexicographic order is chronological.
	sort.Slice(games, func(i, j int) bool {
		if games[i].CreatedAt != games[j].CreatedAt {
			return games[i].CreatedAt > games[j].CreatedAt
		}
		return games[i].ID > games[j].ID
	})
	return games, nil
}

// ByInviteCode resolves a user-entered code, normalizing case first.
func (d *Directory) ByInviteCode(ctx context.Context, code string) (*game.Game, error) {
	return d.store.ByInviteCode(ctx, invite.Normalize(code))
}

// Get returns one game by id.
func (d *Directory) Get(ctx context.Context, gameID string) (*game.Game, error) {
	return d.store.Get(ctx, gameID)
}

// WatchGame subscribes to live updates of one game.
func (d *Directory) WatchGame(ctx context.Context, gameID string) (*docstore.Subscription, error) {
	return d.store.Watch(ctx, gameID)
}

// WatchPlayer subscribes to live updates of every game the user is in.
func (d *Directory) WatchPlayer(ctx context.Context, userID string) (*docstore.Subscription, error) {
	return d.store.WatchPlayer(ctx, userID)
}
