package docstore

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partygames/bingo/internal/game"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func testGame(id, owner, code string) *game.Game {
	return &game.Game{
		ID:               id,
		Category:         "Movies",
		Size:             3,
		Status:           game.StatusCreating,
		GameMode:         game.ModeJoined,
		WinningModel:     game.WinLine,
		Players:          []string{owner},
		PlayerNames:      map[string]string{owner: owner},
		OwnerID:          owner,
		Items:            []string{},
		PlayerItemCounts: map[string]int{owner: 0},
		InviteCode:       code,
		MaxPlayers:       10,
		CreatedAt:        "2026-08-28T12:00:00Z",
	}
}

func recvEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C:
		require.True(t, ok, "subscription closed unexpectedly")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(testLogger())
	defer store.Close()

	g := testGame("g1", "alice", "ABC123")
	require.NoError(t, store.Put(ctx, g))

	got, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Movies", got.Category)
	assert.Equal(t, []string{"alice"}, got.Players)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, game.ErrNotFound)

	require.NoError(t, store.Delete(ctx, "g1"))
	_, err = store.Get(ctx, "g1")
	assert.ErrorIs(t, err, game.ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, "g1"), game.ErrNotFound)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(testLogger())
	defer store.Close()

	require.NoError(t, store.Put(ctx, testGame("g1", "alice", "ABC123")))

	got, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	got.Players = append(got.Players, "mallory")
	got.PlayerNames["mallory"] = "Mallory"

	fresh, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, fresh.Players, "store state must not be mutable through returned copies")
	assert.NotContains(t, fresh.PlayerNames, "mallory")
}

func TestMemoryStoreUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(testLogger())
	defer store.Close()

	require.NoError(t, store.Put(ctx, testGame("g1", "alice", "ABC123")))

	updated, err := store.Update(ctx, "g1", func(g *game.Game) error {
		g.Players = append(g.Players, "bob")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, updated.Players)

	_, err = store.Update(ctx, "missing", func(g *game.Game) error { return nil })
	assert.ErrorIs(t, err, game.ErrNotFound)
}

func TestMemoryStoreUpdateErrorAborts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(testLogger())
	defer store.Close()

	require.NoError(t, store.Put(ctx, testGame("g1", "alice", "ABC123")))

	_, err := store.Update(ctx, "g1", func(g *game.Game) error {
		g.Players = append(g.Players, "bob")
		return game.ErrGameFull
	})
	assert.ErrorIs(t, err, game.ErrGameFull)

	got, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, got.Players, "a failed update must not leak partial writes")
}

func TestMemoryStoreQueries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(testLogger())
	defer store.Close()

	g1 := testGame("g1", "alice", "AAAAAA")
	g2 := testGame("g2", "bob", "BBBBBB")
	g2.Players = []string{"bob", "alice"}
	require.NoError(t, store.Put(ctx, g1))
	require.NoError(t, store.Put(ctx, g2))

	games, err := store.ByPlayer(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, games, 2)

	games, err = store.ByPlayer(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, games, 1)

	games, err = store.ByPlayer(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, games)

	found, err := store.ByInviteCode(ctx, "BBBBBB")
	require.NoError(t, err)
	assert.Equal(t, "g2", found.ID)

	_, err = store.ByInviteCode(ctx, "ZZZZZZ")
	assert.ErrorIs(t, err, game.ErrNotFound)
}

func TestMemoryStoreWatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(testLogger())
	defer store.Close()

	require.NoError(t, store.Put(ctx, testGame("g1", "alice", "ABC123")))

	sub, err := store.Watch(ctx, "g1")
	require.NoError(t, err)
	defer sub.Close()

	_, err = store.Update(ctx, "g1", func(g *game.Game) error {
		g.Players = append(g.Players, "bob")
		return nil
	})
	require.NoError(t, err)

	ev := recvEvent(t, sub)
	assert.Equal(t, EventPut, ev.Type)
	assert.Equal(t, "g1", ev.GameID)
	require.NotNil(t, ev.Game)
	assert.Equal(t, []string{"alice", "bob"}, ev.Game.Players)

	require.NoError(t, store.Delete(ctx, "g1"))
	ev = recvEvent(t, sub)
	assert.Equal(t, EventDelete, ev.Type)
	assert.Nil(t, ev.Game)
}

func TestMemoryStoreWatchOtherGameFiltered(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(testLogger())
	defer store.Close()

	require.NoError(t, store.Put(ctx, testGame("g1", "alice", "AAAAAA")))

	sub, err := store.Watch(ctx, "g1")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, store.Put(ctx, testGame("g2", "bob", "BBBBBB")))

	select {
	case ev := <-sub.C:
		t.Fatalf("unexpected event for unwatched game: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryStoreWatchPlayer(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(testLogger())
	defer store.Close()

	sub, err := store.WatchPlayer(ctx, "bob")
	require.NoError(t, err)
	defer sub.Close()

	// bob is not in g1 yet: creation is invisible to his feed.
	require.NoError(t, store.Put(ctx, testGame("g1", "alice", "AAAAAA")))
	select {
	case ev := <-sub.C:
		t.Fatalf("unexpected event before joining: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}

	// Joining makes the game visible.
	_, err = store.Update(ctx, "g1", func(g *game.Game) error {
		g.Players = append(g.Players, "bob")
		return nil
	})
	require.NoError(t, err)
	ev := recvEvent(t, sub)
	assert.Equal(t, "g1", ev.GameID)

	// The update that removes bob still reaches him.
	_, err = store.Update(ctx, "g1", func(g *game.Game) error {
		g.RemovePlayer("bob")
		return nil
	})
	require.NoError(t, err)
	ev = recvEvent(t, sub)
	require.NotNil(t, ev.Game)
	assert.False(t, ev.Game.HasPlayer("bob"))
}

func TestMemoryStoreSubscriptionClose(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(testLogger())
	defer store.Close()

	require.NoError(t, store.Put(ctx, testGame("g1", "alice", "AAAAAA")))

	sub, err := store.Watch(ctx, "g1")
	require.NoError(t, err)

	sub.Close()
	sub.Close() // closing twice is safe

	_, ok := <-sub.C
	assert.False(t, ok, "channel should be closed after Close")
}

func TestMemoryStorePersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := OpenMemoryStore(testLogger(), dir)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, testGame("g1", "alice", "ABC123")))
	_, err = store.Update(ctx, "g1", func(g *game.Game) error {
		g.Items = append(g.Items, "The Matrix")
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := OpenMemoryStore(testLogger(), dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"The Matrix"}, got.Items)
	assert.Equal(t, "ABC123", got.InviteCode)
}
