// Package server exposes the game lifecycle over WebSockets: clients send
// operation messages, the server routes them to the lifecycle manager, and
// document-store subscriptions push every change back out to watching
// clients. Ownership rules (who may start, cancel, delete, or leave) are
// enforced here, at the boundary, keeping the lifecycle operations pure state
// machine.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/partygames/bingo/internal/directory"
	"github.com/partygames/bingo/internal/docstore"
	"github.com/partygames/bingo/internal/game"
	"github.com/partygames/bingo/internal/identity"
	"github.com/partygames/bingo/internal/lifecycle"
)

// Server is the WebSocket server.
type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc

	store     docstore.Store
	lifecycle *lifecycle.Manager
	directory *directory.Directory
	idp       identity.Provider

	httpServer *http.Server
}

// NewServer wires the serving surface over the given core components.
func NewServer(addr string, store docstore.Store, mgr *lifecycle.Manager, dir *directory.Directory, idp identity.Provider, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Casual game, no cookie auth: origin checks add nothing.
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
		store:       store,
		lifecycle:   mgr,
		directory:   dir,
		idp:         idp,
	}
}

// Start runs the WebSocket server until Stop or listener failure.
func (s *Server) Start() error {
	go s.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}
	s.logger.Info("Starting WebSocket server", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop stops the server and closes all connections.
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// run handles connection lifecycle.
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.connections[conn]; ok {
				delete(s.connections, conn)
				_ = conn.Close()
			}
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client disconnected", "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

// handleWebSocket handles WebSocket upgrade requests.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s)
	s.register <- client
	client.Start()

	go func() {
		<-client.ctx.Done()
		s.unregister <- client
	}()
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// handleMessage routes one client message. Everything except auth requires an
// authenticated connection.
func (s *Server) handleMessage(c *Connection, msg *Message) {
	if msg.Type == TypeAuth {
		s.handleAuth(c, msg)
		return
	}

	user := c.User()
	if user == nil {
		c.sendError(msg, CodeUnauthorized, "authenticate first")
		return
	}

	switch msg.Type {
	case TypeCreateGame:
		s.handleCreateGame(c, msg, user)
	case TypeJoinGame:
		s.handleJoinGame(c, msg, user)
	case TypeLeaveGame:
		s.handleLeaveGame(c, msg, user)
	case TypeAddItem:
		s.handleAddItem(c, msg, user)
	case TypeRemoveItem:
		s.handleRemoveItem(c, msg, user)
	case TypeStartGame:
		s.handleStartGame(c, msg, user)
	case TypeMarkCell:
		s.handleMarkCell(c, msg, user)
	case TypeCancelGame:
		s.handleCancelGame(c, msg, user)
	case TypeDeleteGame:
		s.handleDeleteGame(c, msg, user)
	case TypeListGames:
		s.handleListGames(c, msg, user)
	case TypeWatchGame:
		s.handleWatchGame(c, msg)
	case TypeUnwatch:
		s.handleUnwatchGame(c, msg)
	default:
		c.sendError(msg, CodeBadRequest, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func (s *Server) handleAuth(c *Connection, msg *Message) {
	var data AuthData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError(msg, CodeBadRequest, "malformed auth payload")
		return
	}

	user, err := s.idp.Verify(c.ctx, data.Token)
	if err != nil {
		s.reply(c, msg, TypeAuthResponse, AuthResponseData{Success: false, Error: "invalid token"})
		return
	}
	if data.Name != "" {
		user.DisplayName = data.Name
	}
	c.SetUser(user)

	// Every authenticated connection gets a live feed of its own games.
	sub, err := s.store.WatchPlayer(c.ctx, user.ID)
	if err != nil {
		s.logger.Error("Failed to establish player feed", "error", err, "user", user.ID)
	} else {
		c.setPlayerWatch(sub)
	}

	s.logger.Info("Client authenticated", "user", user.ID)
	s.reply(c, msg, TypeAuthResponse, AuthResponseData{Success: true, UserID: user.ID, Name: user.DisplayName})
}

func (s *Server) handleCreateGame(c *Connection, msg *Message, user *identity.User) {
	var data CreateGameData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError(msg, CodeBadRequest, "malformed create_game payload")
		return
	}

	g, err := s.lifecycle.Create(c.ctx, user.ID, user.DisplayName, data.Category, data.Size, game.Mode(data.GameMode), game.WinningModel(data.WinningModel))
	if err != nil {
		c.sendError(msg, errorCode(err), err.Error())
		return
	}
	s.reply(c, msg, TypeGameState, GameStateData{Game: g})
}

func (s *Server) handleJoinGame(c *Connection, msg *Message, user *identity.User) {
	var data JoinGameData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError(msg, CodeBadRequest, "malformed join_game payload")
		return
	}

	g, err := s.lifecycle.Join(c.ctx, data.InviteCode, user.ID, user.DisplayName)
	if err != nil {
		c.sendError(msg, errorCode(err), err.Error())
		return
	}
	s.reply(c, msg, TypeGameState, GameStateData{Game: g})
}

func (s *Server) handleLeaveGame(c *Connection, msg *Message, user *identity.User) {
	var data GameRefData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError(msg, CodeBadRequest, "malformed leave_game payload")
		return
	}

	g, err := s.directory.Get(c.ctx, data.GameID)
	if err != nil {
		c.sendError(msg, errorCode(err), err.Error())
		return
	}
	if g.IsOwner(user.ID) {
		c.sendError(msg, CodeForbidden, "the owner cannot leave; cancel or delete the game instead")
		return
	}

	if err := s.lifecycle.Leave(c.ctx, data.GameID, user.ID); err != nil {
		c.sendError(msg, errorCode(err), err.Error())
		return
	}
	c.unwatchGame(data.GameID)
	s.sendGamesList(c, msg, user)
}

func (s *Server) handleAddItem(c *Connection, msg *Message, user *identity.User) {
	var data AddItemData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError(msg, CodeBadRequest, "malformed add_item payload")
		return
	}

	g, err := s.lifecycle.AddItem(c.ctx, data.GameID, user.ID, data.Item)
	if err != nil {
		c.sendError(msg, errorCode(err), err.Error())
		return
	}
	s.reply(c, msg, TypeGameState, GameStateData{Game: g})
}

func (s *Server) handleRemoveItem(c *Connection, msg *Message, user *identity.User) {
	var data RemoveItemData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError(msg, CodeBadRequest, "malformed remove_item payload")
		return
	}

	// In joined mode only the owner moderates the shared list; individual
	// lists are each player's own.
	g, err := s.directory.Get(c.ctx, data.GameID)
	if err != nil {
		c.sendError(msg, errorCode(err), err.Error())
		return
	}
	if g.GameMode == game.ModeJoined && !g.IsOwner(user.ID) {
		c.sendError(msg, CodeForbidden, "only the owner can remove shared items")
		return
	}

	updated, err := s.lifecycle.RemoveItem(c.ctx, data.GameID, user.ID, data.Index)
	if err != nil {
		c.sendError(msg, errorCode(err), err.Error())
		return
	}
	s.reply(c, msg, TypeGameState, GameStateData{Game: updated})
}

func (s *Server) handleStartGame(c *Connection, msg *Message, user *identity.User) {
	var data GameRefData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError(msg, CodeBadRequest, "malformed start_game payload")
		return
	}

	if !s.requireOwner(c, msg, data.GameID, user) {
		return
	}

	g, err := s.lifecycle.Start(c.ctx, data.GameID)
	if err != nil {
		c.sendError(msg, errorCode(err), err.Error())
		return
	}
	s.reply(c, msg, TypeGameState, GameStateData{Game: g})
}

func (s *Server) handleMarkCell(c *Connection, msg *Message, user *identity.User) {
	var data MarkCellData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError(msg, CodeBadRequest, "malformed mark_cell payload")
		return
	}

	g, _, err := s.lifecycle.MarkCell(c.ctx, data.GameID, user.ID, data.Row, data.Col)
	if err != nil {
		c.sendError(msg, errorCode(err), err.Error())
		return
	}
	s.reply(c, msg, TypeGameState, GameStateData{Game: g})
}

func (s *Server) handleCancelGame(c *Connection, msg *Message, user *identity.User) {
	var data GameRefData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError(msg, CodeBadRequest, "malformed cancel_game payload")
		return
	}

	if !s.requireOwner(c, msg, data.GameID, user) {
		return
	}

	g, err := s.lifecycle.Cancel(c.ctx, data.GameID)
	if err != nil {
		c.sendError(msg, errorCode(err), err.Error())
		return
	}
	s.reply(c, msg, TypeGameState, GameStateData{Game: g})
}

func (s *Server) handleDeleteGame(c *Connection, msg *Message, user *identity.User) {
	var data GameRefData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError(msg, CodeBadRequest, "malformed delete_game payload")
		return
	}

	g, err := s.directory.Get(c.ctx, data.GameID)
	if err != nil {
		c.sendError(msg, errorCode(err), err.Error())
		return
	}
	if !g.IsOwner(user.ID) {
		c.sendError(msg, CodeForbidden, "only the owner can delete the game")
		return
	}
	if !g.Status.Terminal() {
		c.sendError(msg, CodeInvalidTransition, "only completed or cancelled games can be deleted")
		return
	}

	if err := s.lifecycle.Delete(c.ctx, data.GameID); err != nil {
		c.sendError(msg, errorCode(err), err.Error())
		return
	}
	c.unwatchGame(data.GameID)
	s.reply(c, msg, TypeGameDeleted, GameDeletedData{GameID: data.GameID})
}

func (s *Server) handleListGames(c *Connection, msg *Message, user *identity.User) {
	s.sendGamesList(c, msg, user)
}

func (s *Server) handleWatchGame(c *Connection, msg *Message) {
	var data GameRefData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError(msg, CodeBadRequest, "malformed watch_game payload")
		return
	}

	g, err := s.directory.Get(c.ctx, data.GameID)
	if err != nil {
		c.sendError(msg, errorCode(err), err.Error())
		return
	}

	sub, err := s.directory.WatchGame(c.ctx, data.GameID)
	if err != nil {
		c.sendError(msg, CodeInternal, "could not establish subscription")
		return
	}
	c.watchGame(data.GameID, sub)

	// Current state first, then the live feed.
	s.reply(c, msg, TypeGameState, GameStateData{Game: g})
}

func (s *Server) handleUnwatchGame(c *Connection, msg *Message) {
	var data GameRefData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError(msg, CodeBadRequest, "malformed unwatch_game payload")
		return
	}
	c.unwatchGame(data.GameID)
}

// requireOwner loads the game and rejects the request unless user owns it.
func (s *Server) requireOwner(c *Connection, msg *Message, gameID string, user *identity.User) bool {
	g, err := s.directory.Get(c.ctx, gameID)
	if err != nil {
		c.sendError(msg, errorCode(err), err.Error())
		return false
	}
	if !g.IsOwner(user.ID) {
		c.sendError(msg, CodeForbidden, "only the owner can do that")
		return false
	}
	return true
}

func (s *Server) sendGamesList(c *Connection, msg *Message, user *identity.User) {
	games, err := s.directory.GamesFor(c.ctx, user.ID)
	if err != nil {
		c.sendError(msg, CodeInternal, "could not list games")
		return
	}
	s.reply(c, msg, TypeGamesList, GamesListData{Games: games})
}

// reply sends a typed response echoing the request id.
func (s *Server) reply(c *Connection, req *Message, msgType MessageType, data interface{}) {
	msg, err := NewMessage(msgType, data)
	if err != nil {
		s.logger.Error("Failed to build message", "type", msgType, "error", err)
		return
	}
	if req != nil {
		msg.RequestID = req.RequestID
	}
	_ = c.SendMessage(msg)
}
