// Package lifecycle owns the game state machine: creation, membership, item
// collection, the deal at start, mark-and-evaluate, cancellation, and
// deletion. Every operation is a read-modify-write against the document
// store's atomic Update, so transitions are validated against the state
// actually being written over.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/partygames/bingo/internal/board"
	"github.com/partygames/bingo/internal/docstore"
	"github.com/partygames/bingo/internal/game"
	"github.com/partygames/bingo/internal/gameid"
	"github.com/partygames/bingo/internal/invite"
	"github.com/partygames/bingo/internal/win"
)

// Attempts to find an unused invite code before create gives up. With a 36^6
// code space a second attempt is already vanishingly rare.
const inviteRetries = 5

// Config tunes a Manager. Zero values select sensible defaults.
type Config struct {
	// DefaultMaxPlayers caps membership for games created without an
	// explicit capacity. Defaults to 10.
	DefaultMaxPlayers int

	// AllowedSizes lists the supported board edge lengths. Defaults to
	// 3, 4, 5, 6.
	AllowedSizes []int

	// Clock supplies creation timestamps; tests inject quartz.NewMock.
	Clock quartz.Clock

	// Rand seeds the board dealer; tests inject a deterministic source.
	Rand *rand.Rand

	// InviteRand overrides the invite code generator's randomness; nil uses
	// crypto/rand.
	InviteRand invite.RandSource
}

// Manager orchestrates all lifecycle operations over the document store.
// Ownership restrictions (who may start, cancel, delete, or moderate) are the
// transport layer's responsibility; the manager enforces the state machine.
type Manager struct {
	store  docstore.Store
	dealer *board.Dealer
	clock  quartz.Clock
	logger *log.Logger

	defaultMaxPlayers int
	allowedSizes      map[int]bool

	codes *invite.Generator
	ids   *gameid.Generator
}

// NewManager creates a lifecycle manager over store.
func NewManager(store docstore.Store, logger *log.Logger, cfg Config) *Manager {
	if cfg.DefaultMaxPlayers <= 0 {
		cfg.DefaultMaxPlayers = 10
	}
	if len(cfg.AllowedSizes) == 0 {
		cfg.AllowedSizes = []int{3, 4, 5, 6}
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}

	allowed := make(map[int]bool, len(cfg.AllowedSizes))
	for _, s := range cfg.AllowedSizes {
		allowed[s] = true
	}

	return &Manager{
		store:             store,
		dealer:            board.NewDealer(cfg.Rand),
		clock:             cfg.Clock,
		logger:            logger.WithPrefix("lifecycle"),
		defaultMaxPlayers: cfg.DefaultMaxPlayers,
		allowedSizes:      allowed,
		codes:             invite.NewGenerator(cfg.InviteRand),
		ids:               gameid.NewGenerator(nil),
	}
}

// Create builds a new game in the creating status with the owner as its sole
// player and a freshly generated invite code, and persists it.
func (m *Manager) Create(ctx context.Context, ownerID, ownerName, category string, size int, mode game.Mode, model game.WinningModel) (*game.Game, error) {
	if !m.allowedSizes[size] {
		return nil, fmt.Errorf("%w: unsupported board size %d", game.ErrInvalidArgument, size)
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown game mode %q", game.ErrInvalidArgument, mode)
	}
	if !model.Valid() {
		return nil, fmt.Errorf("%w: unknown winning model %q", game.ErrInvalidArgument, model)
	}

	code, err := m.freshInviteCode(ctx)
	if err != nil {
		return nil, err
	}

	g := &game.Game{
		ID:               m.ids.Generate(),
		Category:         strings.TrimSpace(category),
		Size:             size,
		Status:           game.StatusCreating,
		GameMode:         mode,
		WinningModel:     model,
		Players:          []string{ownerID},
		PlayerNames:      map[string]string{ownerID: ownerName},
		OwnerID:          ownerID,
		Items:            []string{},
		PlayerItemCounts: map[string]int{ownerID: 0},
		InviteCode:       code,
		MaxPlayers:       m.defaultMaxPlayers,
		CreatedAt:        m.clock.Now().UTC().Format(time.RFC3339),
	}
	if mode == game.ModeIndividual {
		g.PlayerItems = map[string][]string{ownerID: {}}
	}

	if err := m.store.Put(ctx, g); err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	m.logger.Info("Game created", "game", g.ID, "owner", ownerID, "mode", mode, "size", size)
	return g, nil
}

// freshInviteCode generates codes until one is unused. Collision checking
// happens here, at write time, not inside the generator.
func (m *Manager) freshInviteCode(ctx context.Context) (string, error) {
	for i := 0; i < inviteRetries; i++ {
		code := m.codes.Generate()
		_, err := m.store.ByInviteCode(ctx, code)
		if errors.Is(err, game.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("check invite code: %w", err)
		}
		m.logger.Warn("Invite code collision, retrying", "code", code)
	}
	return "", fmt.Errorf("could not find an unused invite code after %d attempts", inviteRetries)
}

// Join resolves an invite code and adds the user to the game. The operation
// is intentionally not idempotent: joining twice fails with ErrAlreadyJoined.
func (m *Manager) Join(ctx context.Context, code, userID, displayName string) (*game.Game, error) {
	g, err := m.store.ByInviteCode(ctx, invite.Normalize(code))
	if err != nil {
		return nil, err
	}

	updated, err := m.store.Update(ctx, g.ID, func(g *game.Game) error {
		if g.Status != game.StatusCreating {
			return game.ErrAlreadyStarted
		}
		if g.HasPlayer(userID) {
			return game.ErrAlreadyJoined
		}
		if len(g.Players) >= g.MaxPlayers {
			return game.ErrGameFull
		}
		g.Players = append(g.Players, userID)
		g.PlayerNames[userID] = displayName
		if g.GameMode == game.ModeIndividual {
			if g.PlayerItems == nil {
				g.PlayerItems = map[string][]string{}
			}
			g.PlayerItems[userID] = []string{}
		}
		g.RecountItems()
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("Player joined", "game", updated.ID, "player", userID)
	return updated, nil
}

// Leave removes the user from the game. Leaving a game one is not in is a
// no-op. The transport layer prevents the owner from using this path; the
// operation itself only manipulates membership data.
func (m *Manager) Leave(ctx context.Context, gameID, userID string) error {
	_, err := m.store.Update(ctx, gameID, func(g *game.Game) error {
		g.RemovePlayer(userID)
		g.RecountItems()
		return nil
	})
	if err != nil {
		return err
	}
	m.logger.Info("Player left", "game", gameID, "player", userID)
	return nil
}

// AddItem appends the trimmed item to the game's relevant list: the shared
// list in joined mode, the caller's private list in individual mode. Items
// may only be collected while the game is still being set up.
func (m *Manager) AddItem(ctx context.Context, gameID, userID, item string) (*game.Game, error) {
	trimmed := strings.TrimSpace(item)
	if trimmed == "" {
		return nil, game.ErrEmptyItem
	}

	return m.store.Update(ctx, gameID, func(g *game.Game) error {
		if g.Status != game.StatusCreating {
			return game.ErrInvalidTransition
		}
		list := g.ItemsFor(userID)
		for _, existing := range list {
			if existing == trimmed {
				return game.ErrDuplicateItem
			}
		}
		if g.GameMode == game.ModeIndividual {
			if g.PlayerItems == nil {
				g.PlayerItems = map[string][]string{}
			}
			g.PlayerItems[userID] = append(g.PlayerItems[userID], trimmed)
		} else {
			g.Items = append(g.Items, trimmed)
		}
		g.RecountItems()
		return nil
	})
}

// RemoveItem drops the item at index from the relevant list. Filter
// semantics: an out-of-range index changes nothing. Who may remove is the
// transport layer's call.
func (m *Manager) RemoveItem(ctx context.Context, gameID, userID string, index int) (*game.Game, error) {
	return m.store.Update(ctx, gameID, func(g *game.Game) error {
		if g.Status != game.StatusCreating {
			return game.ErrInvalidTransition
		}
		if g.GameMode == game.ModeIndividual {
			if g.PlayerItems != nil {
				g.PlayerItems[userID] = removeIndex(g.PlayerItems[userID], index)
			}
		} else {
			g.Items = removeIndex(g.Items, index)
		}
		g.RecountItems()
		return nil
	})
}

func removeIndex(list []string, index int) []string {
	if index < 0 || index >= len(list) {
		return list
	}
	out := make([]string, 0, len(list)-1)
	out = append(out, list[:index]...)
	return append(out, list[index+1:]...)
}

// Start performs the creating -> active transition: it verifies every
// applicable item pool can fill a board, deals one randomized board per
// player from that player's pool, and initializes each player's all-false
// marked grid.
func (m *Manager) Start(ctx context.Context, gameID string) (*game.Game, error) {
	updated, err := m.store.Update(ctx, gameID, func(g *game.Game) error {
		if g.Status != game.StatusCreating {
			return game.ErrInvalidTransition
		}
		needed := g.Size * g.Size
		for _, p := range g.Players {
			if len(g.ItemsFor(p)) < needed {
				return fmt.Errorf("%w: player %s has %d of %d", game.ErrNotEnoughItems, p, len(g.ItemsFor(p)), needed)
			}
		}

		g.PlayerBoards = make(map[string]game.Board, len(g.Players))
		g.PlayerMarkedCells = make(map[string]game.Marks, len(g.Players))
		for _, p := range g.Players {
			g.PlayerBoards[p] = m.dealer.Deal(g.ItemsFor(p), g.Size)
			g.PlayerMarkedCells[p] = board.EmptyMarks(g.Size)
		}
		g.Status = game.StatusActive
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("Game started", "game", gameID, "players", len(updated.Players))
	return updated, nil
}

// MarkCell toggles the cell on the caller's own board, then evaluates the
// game's winning model. A detected win performs the active -> completed
// transition with the caller recorded as winner. The returned bool reports
// whether this mark completed the game. Coordinates outside the board are
// rejected, keeping every marks grid at its dealt size*size shape.
func (m *Manager) MarkCell(ctx context.Context, gameID, userID string, row, col int) (*game.Game, bool, error) {
	won := false
	updated, err := m.store.Update(ctx, gameID, func(g *game.Game) error {
		if g.Status != game.StatusActive {
			return game.ErrInvalidTransition
		}
		if row < 0 || col < 0 || row >= g.Size || col >= g.Size {
			return fmt.Errorf("%w: cell %d-%d outside a size %d board", game.ErrInvalidArgument, row, col, g.Size)
		}
		marks, ok := g.PlayerMarkedCells[userID]
		if !ok {
			return nil // no board dealt for this user, nothing to mark
		}
		key := game.CellKey(row, col)
		marks[key] = !marks[key]

		if marks[key] && win.Check(marks, g.Size, g.WinningModel) {
			g.Status = game.StatusCompleted
			g.Winner = userID
			won = true
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if won {
		m.logger.Info("Game won", "game", gameID, "winner", userID)
	}
	return updated, won, nil
}

// Cancel performs the creating/active -> cancelled transition. The transport
// layer restricts this to the owner.
func (m *Manager) Cancel(ctx context.Context, gameID string) (*game.Game, error) {
	updated, err := m.store.Update(ctx, gameID, func(g *game.Game) error {
		if g.Status.Terminal() {
			return game.ErrInvalidTransition
		}
		g.Status = game.StatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("Game cancelled", "game", gameID)
	return updated, nil
}

// Delete removes the game document entirely. The transport layer restricts
// this to the owner and to terminal states.
func (m *Manager) Delete(ctx context.Context, gameID string) error {
	if err := m.store.Delete(ctx, gameID); err != nil {
		return err
	}
	m.logger.Info("Game deleted", "game", gameID)
	return nil
}
