// Package docstore defines the document store contract the game core runs
// against: get/put/update/delete plus membership and invite-code queries and
// subscribe-to-changes semantics. Backends are interchangeable; the core only
// sees this interface.
package docstore

import (
	"context"

	"github.com/partygames/bingo/internal/game"
)

// EventType classifies a change notification.
type EventType string

const (
	// EventPut is delivered after a create or any mutation; Game carries the
	// full document as written.
	EventPut EventType = "put"
	// EventDelete is delivered when the document is removed; Game is nil.
	EventDelete EventType = "delete"
)

// Event is one change notification for a watched game or player feed.
type Event struct {
	Type   EventType
	GameID string
	Game   *game.Game
}

// Subscription is a live change feed. C is closed when the subscription ends;
// Close is safe to call more than once.
type Subscription struct {
	C      <-chan Event
	cancel func()
}

// Close tears the subscription down and releases its resources.
func (s *Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Store is the persistence contract for game documents.
//
// Update is the read-modify-write primitive: the store loads the current
// document, applies fn, and writes the result back so that no concurrent
// update is lost in between. fn returning an error aborts the write and the
// error is returned unchanged, which is how lifecycle operations veto invalid
// transitions.
type Store interface {
	// Get returns the document, or game.ErrNotFound.
	Get(ctx context.Context, id string) (*game.Game, error)

	// Put creates or fully replaces the document.
	Put(ctx context.Context, g *game.Game) error

	// Update atomically applies fn to the current document and persists the
	// result, returning the new state. Returns game.ErrNotFound if the
	// document does not exist.
	Update(ctx context.Context, id string, fn func(*game.Game) error) (*game.Game, error)

	// Delete removes the document. Deleting an absent document is an error
	// (game.ErrNotFound).
	Delete(ctx context.Context, id string) error

	// ByPlayer returns every game whose players set contains userID.
	// Ordering is backend-defined; the directory sorts.
	ByPlayer(ctx context.Context, userID string) ([]*game.Game, error)

	// ByInviteCode returns the game carrying the (already normalized)
	// invite code, or game.ErrNotFound.
	ByInviteCode(ctx context.Context, code string) (*game.Game, error)

	// Watch subscribes to changes of one game document.
	Watch(ctx context.Context, id string) (*Subscription, error)

	// WatchPlayer subscribes to changes of every game userID participates
	// in, including games joined after the subscription was established.
	WatchPlayer(ctx context.Context, userID string) (*Subscription, error)

	// Close releases backend resources and terminates all subscriptions.
	Close() error
}
