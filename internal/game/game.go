package game

import "fmt"

// Status is the lifecycle state of a game. Transitions are forward-only:
// creating -> active -> completed, with cancelled reachable from creating and
// active. Completed and cancelled are terminal.
type Status string

const (
	StatusCreating  Status = "creating"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusCreating, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are possible from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Mode determines how the item pool is collected before the game starts.
type Mode string

const (
	// ModeJoined uses a single item list shared by every player.
	ModeJoined Mode = "joined"
	// ModeIndividual gives every player a private item list; each player's
	// board is dealt from their own list.
	ModeIndividual Mode = "individual"
)

// Valid reports whether m is a known game mode.
func (m Mode) Valid() bool {
	return m == ModeJoined || m == ModeIndividual
}

// WinningModel selects the win condition evaluated after each mark.
type WinningModel string

const (
	// WinLine completes on any fully marked row, column, or diagonal.
	WinLine WinningModel = "line"
	// WinFullBoard completes only when every cell is marked.
	WinFullBoard WinningModel = "fullBoard"
)

// Valid reports whether w is a known winning model.
func (w WinningModel) Valid() bool {
	return w == WinLine || w == WinFullBoard
}

// Board maps "row-col" cell keys to the item text dealt into that cell.
type Board map[string]string

// Marks maps "row-col" cell keys to whether the owning player marked them.
type Marks map[string]bool

// CellKey builds the canonical zero-indexed "row-col" key for a cell.
func CellKey(row, col int) string {
	return fmt.Sprintf("%d-%d", row, col)
}

// Game is the sole aggregate: one document per play session, owned by its
// creator and shared by all players. Field mutability follows the status
// machine; everything but players, items, marks, status, and winner is frozen
// at creation, and the item lists freeze once status leaves creating.
type Game struct {
	ID           string       `json:"id"`
	Category     string       `json:"category"`
	Size         int          `json:"size"`
	Status       Status       `json:"status"`
	GameMode     Mode         `json:"gameMode"`
	WinningModel WinningModel `json:"winningModel"`

	// Players is insertion-ordered: join order, owner first, no duplicates.
	Players     []string          `json:"players"`
	PlayerNames map[string]string `json:"playerNames"`
	OwnerID     string            `json:"ownerId"`

	// Items is the shared pool, used only in joined mode. PlayerItems holds
	// the per-player pools for individual mode. PlayerItemCounts is
	// denormalized for list screens and recomputed after every mutation
	// rather than incremented, so it cannot drift.
	Items            []string            `json:"items"`
	PlayerItems      map[string][]string `json:"playerItems,omitempty"`
	PlayerItemCounts map[string]int      `json:"playerItemCounts"`

	InviteCode string `json:"inviteCode"`
	MaxPlayers int    `json:"maxPlayers"`
	CreatedAt  string `json:"createdAt"`

	// PlayerBoards and PlayerMarkedCells exist from the creating -> active
	// transition onwards. Boards are immutable once dealt; marks are toggled
	// only by the owning player.
	PlayerBoards      map[string]Board `json:"playerBoards,omitempty"`
	PlayerMarkedCells map[string]Marks `json:"playerMarkedCells,omitempty"`

	// Winner is set at most once, on the transition into completed, and is
	// always a member of Players at that moment.
	Winner string `json:"winner,omitempty"`
}

// HasPlayer reports whether userID has joined the game.
func (g *Game) HasPlayer(userID string) bool {
	for _, p := range g.Players {
		if p == userID {
			return true
		}
	}
	return false
}

// IsOwner reports whether userID created the game and holds the exclusive
// start/cancel/delete rights.
func (g *Game) IsOwner(userID string) bool {
	return g.OwnerID == userID
}

// ItemsFor returns the item pool a board would be dealt from for userID:
// the shared list in joined mode, the player's own list in individual mode.
func (g *Game) ItemsFor(userID string) []string {
	if g.GameMode == ModeIndividual {
		return g.PlayerItems[userID]
	}
	return g.Items
}

// RecountItems rebuilds PlayerItemCounts from the authoritative item lists.
func (g *Game) RecountItems() {
	counts := make(map[string]int, len(g.Players))
	for _, p := range g.Players {
		if g.GameMode == ModeIndividual {
			counts[p] = len(g.PlayerItems[p])
		} else {
			counts[p] = len(g.Items)
		}
	}
	g.PlayerItemCounts = counts
}

// RemovePlayer drops userID from the membership set and every per-player map.
// Removing an absent player changes nothing.
func (g *Game) RemovePlayer(userID string) {
	players := g.Players[:0]
	for _, p := range g.Players {
		if p != userID {
			players = append(players, p)
		}
	}
	g.Players = players
	delete(g.PlayerNames, userID)
	delete(g.PlayerItemCounts, userID)
	delete(g.PlayerItems, userID)
	delete(g.PlayerBoards, userID)
	delete(g.PlayerMarkedCells, userID)
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// mutate shared state behind the store's back.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	out := *g
	out.Players = append([]string(nil), g.Players...)
	out.Items = append([]string(nil), g.Items...)
	out.PlayerNames = cloneMap(g.PlayerNames)
	out.PlayerItemCounts = cloneMap(g.PlayerItemCounts)
	if g.PlayerItems != nil {
		out.PlayerItems = make(map[string][]string, len(g.PlayerItems))
		for k, v := range g.PlayerItems {
			out.PlayerItems[k] = append([]string(nil), v...)
		}
	}
	if g.PlayerBoards != nil {
		out.PlayerBoards = make(map[string]Board, len(g.PlayerBoards))
		for k, v := range g.PlayerBoards {
			out.PlayerBoards[k] = cloneMap(v)
		}
	}
	if g.PlayerMarkedCells != nil {
		out.PlayerMarkedCells = make(map[string]Marks, len(g.PlayerMarkedCells))
		for k, v := range g.PlayerMarkedCells {
			out.PlayerMarkedCells[k] = cloneMap(v)
		}
	}
	return &out
}

func cloneMap[M ~map[K]V, K comparable, V any](m M) M {
	if m == nil {
		return nil
	}
	out := make(M, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
