package server

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/partygames/bingo/internal/game"
	"github.com/partygames/bingo/internal/identity"
)

// MessageType identifies a WebSocket message.
type MessageType string

const (
	// Client -> Server
	TypeAuth       MessageType = "auth"
	TypeCreateGame MessageType = "create_game"
	TypeJoinGame   MessageType = "join_game"
	TypeLeaveGame  MessageType = "leave_game"
	TypeAddItem    MessageType = "add_item"
	TypeRemoveItem MessageType = "remove_item"
	TypeStartGame  MessageType = "start_game"
	TypeMarkCell   MessageType = "mark_cell"
	TypeCancelGame MessageType = "cancel_game"
	TypeDeleteGame MessageType = "delete_game"
	TypeListGames  MessageType = "list_games"
	TypeWatchGame  MessageType = "watch_game"
	TypeUnwatch    MessageType = "unwatch_game"

	// Server -> Client
	TypeAuthResponse MessageType = "auth_response"
	TypeGameState    MessageType = "game_state"
	TypeGamesList    MessageType = "games_list"
	TypeGameDeleted  MessageType = "game_deleted"
	TypeError        MessageType = "error"
)

// Message is the JSON envelope for all WebSocket traffic.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client -> Server payloads

type AuthData struct {
	Token string `json:"token"`
	// Name overrides the display name from the token (dev-mode convenience).
	Name string `json:"name,omitempty"`
}

type CreateGameData struct {
	Category     string `json:"category"`
	Size         int    `json:"size"`
	GameMode     string `json:"gameMode"`
	WinningModel string `json:"winningModel"`
}

type JoinGameData struct {
	InviteCode string `json:"inviteCode"`
}

type GameRefData struct {
	GameID string `json:"gameId"`
}

type AddItemData struct {
	GameID string `json:"gameId"`
	Item   string `json:"item"`
}

type RemoveItemData struct {
	GameID string `json:"gameId"`
	Index  int    `json:"index"`
}

type MarkCellData struct {
	GameID string `json:"gameId"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
}

// Server -> Client payloads

type AuthResponseData struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId,omitempty"`
	Name    string `json:"name,omitempty"`
	Error   string `json:"error,omitempty"`
}

type GameStateData struct {
	Game *game.Game `json:"game"`
}

type GamesListData struct {
	Games []*game.Game `json:"games"`
}

type GameDeletedData struct {
	GameID string `json:"gameId"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Wire error codes, from the lifecycle error taxonomy.
const (
	CodeNotFound          = "not_found"
	CodeAlreadyStarted    = "already_started"
	CodeAlreadyJoined     = "already_joined"
	CodeGameFull          = "game_full"
	CodeEmptyItem         = "empty_item"
	CodeDuplicateItem     = "duplicate_item"
	CodeNotEnoughItems    = "not_enough_items"
	CodeInvalidTransition = "invalid_transition"
	CodeBadRequest        = "bad_request"
	CodeForbidden         = "forbidden"
	CodeUnauthorized      = "unauthorized"
	CodeInternal          = "internal"
)

// errorCode maps a lifecycle error to its wire code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, game.ErrAlreadyStarted):
		return CodeAlreadyStarted
	case errors.Is(err, game.ErrAlreadyJoined):
		return CodeAlreadyJoined
	case errors.Is(err, game.ErrGameFull):
		return CodeGameFull
	case errors.Is(err, game.ErrEmptyItem):
		return CodeEmptyItem
	case errors.Is(err, game.ErrDuplicateItem):
		return CodeDuplicateItem
	case errors.Is(err, game.ErrNotEnoughItems):
		return CodeNotEnoughItems
	case errors.Is(err, game.ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, game.ErrInvalidArgument):
		return CodeBadRequest
	case errors.Is(err, identity.ErrInvalidToken):
		return CodeUnauthorized
	default:
		return CodeInternal
	}
}
