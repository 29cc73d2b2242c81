package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/partygames/bingo/internal/fileutil"
	"github.com/partygames/bingo/internal/game"
)

const snapshotFile = "games.json"

// subscriber delivery buffer. A full buffer drops the event rather than
// blocking a writer; consumers re-sync on the next change.
const subBuffer = 16

// MemoryStore is the in-process Store: a map guarded by a mutex, change
// notification via channels, and optional JSON snapshot persistence. Update
// runs under the write lock, so every read-modify-write is atomic within the
// process.
type MemoryStore struct {
	logger *log.Logger

	mu      sync.RWMutex
	games   map[string]*game.Game
	subs    map[int]*memorySub
	nextSub int
	closed  bool

	persistDir string
}

type memorySub struct {
	ch     chan Event
	gameID string // non-empty: single-game watch
	userID string // non-empty: player feed watch
}

// NewMemoryStore creates a volatile in-memory store.
func NewMemoryStore(logger *log.Logger) *MemoryStore {
	return &MemoryStore{
		logger: logger.WithPrefix("docstore"),
		games:  make(map[string]*game.Game),
		subs:   make(map[int]*memorySub),
	}
}

// OpenMemoryStore creates a memory store that loads its state from dir and
// snapshots it back (atomically) after every mutation.
func OpenMemoryStore(logger *log.Logger, dir string) (*MemoryStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	s := NewMemoryStore(logger)
	s.persistDir = dir

	data, err := os.ReadFile(filepath.Join(dir, snapshotFile))
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &s.games); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	s.logger.Info("Loaded game snapshot", "dir", dir, "games", len(s.games))
	return s, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*game.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[id]
	if !ok {
		return nil, game.ErrNotFound
	}
	return g.Clone(), nil
}

func (s *MemoryStore) Put(ctx context.Context, g *game.Game) error {
	s.mu.Lock()
	stored := g.Clone()
	s.games[g.ID] = stored
	s.persistLocked()
	s.notifyLocked(Event{Type: EventPut, GameID: g.ID, Game: stored}, nil)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, fn func(*game.Game) error) (*game.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.games[id]
	if !ok {
		return nil, game.ErrNotFound
	}

	next := prev.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.games[id] = next
	s.persistLocked()
	s.notifyLocked(Event{Type: EventPut, GameID: id, Game: next}, prev)
	return next.Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.games[id]
	if !ok {
		return game.ErrNotFound
	}
	delete(s.games, id)
	s.persistLocked()
	s.notifyLocked(Event{Type: EventDelete, GameID: id}, prev)
	return nil
}

func (s *MemoryStore) ByPlayer(ctx context.Context, userID string) ([]*game.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*game.Game
	for _, g := range s.games {
		if g.HasPlayer(userID) {
			out = append(out, g.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) ByInviteCode(ctx context.Context, code string) (*game.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.games {
		if g.InviteCode == code {
			return g.Clone(), nil
		}
	}
	return nil, game.ErrNotFound
}

func (s *MemoryStore) Watch(ctx context.Context, id string) (*Subscription, error) {
	return s.subscribe(ctx, &memorySub{gameID: id})
}

func (s *MemoryStore) WatchPlayer(ctx context.Context, userID string) (*Subscription, error) {
	return s.subscribe(ctx, &memorySub{userID: userID})
}

func (s *MemoryStore) subscribe(ctx context.Context, sub *memorySub) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("docstore: store is closed")
	}

	sub.ch = make(chan Event, subBuffer)
	key := s.nextSub
	s.nextSub++
	s.subs[key] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			if _, ok := s.subs[key]; ok {
				delete(s.subs, key)
				close(sub.ch)
			}
			s.mu.Unlock()
		})
	}

	// Tie the subscription to the caller's context lifetime.
	go func() {
		<-ctx.Done()
		cancel()
	}()

	return &Subscription{C: sub.ch, cancel: cancel}, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	for key, sub := range s.subs {
		delete(s.subs, key)
		close(sub.ch)
	}
	return nil
}

// notifyLocked fans an event out to matching subscribers. prev is the
// document state before the mutation; it keeps a player's feed alive for the
// change that removes them.
func (s *MemoryStore) notifyLocked(ev Event, prev *game.Game) {
	for _, sub := range s.subs {
		if !sub.matches(ev, prev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			s.logger.Warn("Subscriber buffer full, dropping event", "game", ev.GameID)
		}
	}
}

func (sub *memorySub) matches(ev Event, prev *game.Game) bool {
	if sub.gameID != "" {
		return sub.gameID == ev.GameID
	}
	if sub.userID != "" {
		if ev.Game != nil && ev.Game.HasPlayer(sub.userID) {
			return true
		}
		return prev != nil && prev.HasPlayer(sub.userID)
	}
	return false
}

// persistLocked snapshots all games to disk when persistence is enabled.
// Failures are logged, not returned: the in-memory state is authoritative and
// the next successful snapshot heals the file.
func (s *MemoryStore) persistLocked() {
	if s.persistDir == "" {
		return
	}
	data, err := json.MarshalIndent(s.games, "", "  ")
	if err != nil {
		s.logger.Error("Failed to encode game snapshot", "error", err)
		return
	}
	path := filepath.Join(s.persistDir, snapshotFile)
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		s.logger.Error("Failed to write game snapshot", "error", err, "path", path)
	}
}
