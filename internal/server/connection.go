package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/partygames/bingo/internal/docstore"
	"github.com/partygames/bingo/internal/identity"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 16384
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection represents a WebSocket connection to a client.
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	logger    *log.Logger
	server    *Server
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once

	user *identity.User

	// Per-connection change feeds: one optional player feed plus one
	// subscription per watched game, all torn down with the connection.
	playerWatch *docstore.Subscription
	gameWatches map[string]*docstore.Subscription
}

// NewConnection creates a new connection wrapper.
func NewConnection(conn *websocket.Conn, logger *log.Logger, server *Server) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:        conn,
		send:        make(chan *Message, 256),
		logger:      logger.WithPrefix("conn"),
		server:      server,
		ctx:         ctx,
		cancel:      cancel,
		gameWatches: make(map[string]*docstore.Subscription),
	}
}

// Start begins handling the connection.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection and every subscription it holds.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		if c.playerWatch != nil {
			c.playerWatch.Close()
			c.playerWatch = nil
		}
		for id, sub := range c.gameWatches {
			sub.Close()
			delete(c.gameWatches, id)
		}
		c.mu.Unlock()

		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message for the client. A full buffer closes the
// connection instead of blocking the server.
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// send channel closed during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// SetUser associates this connection with an authenticated user.
func (c *Connection) SetUser(user *identity.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = user
}

// User returns the authenticated user, or nil before auth.
func (c *Connection) User() *identity.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// watchGame registers a subscription for gameID and pumps its events to the
// client. Watching an already watched game is a no-op.
func (c *Connection) watchGame(gameID string, sub *docstore.Subscription) {
	c.mu.Lock()
	if _, ok := c.gameWatches[gameID]; ok {
		c.mu.Unlock()
		sub.Close()
		return
	}
	c.gameWatches[gameID] = sub
	c.mu.Unlock()

	go c.pumpGameEvents(sub)
}

// unwatchGame drops the subscription for gameID, if any.
func (c *Connection) unwatchGame(gameID string) {
	c.mu.Lock()
	sub, ok := c.gameWatches[gameID]
	if ok {
		delete(c.gameWatches, gameID)
	}
	c.mu.Unlock()
	if ok {
		sub.Close()
	}
}

// setPlayerWatch installs the per-user feed, replacing any previous one.
func (c *Connection) setPlayerWatch(sub *docstore.Subscription) {
	c.mu.Lock()
	old := c.playerWatch
	c.playerWatch = sub
	c.mu.Unlock()
	if old != nil {
		old.Close()
	}

	go c.pumpPlayerEvents(sub)
}

func (c *Connection) pumpGameEvents(sub *docstore.Subscription) {
	for ev := range sub.C {
		var (
			msg *Message
			err error
		)
		switch ev.Type {
		case docstore.EventDelete:
			msg, err = NewMessage(TypeGameDeleted, GameDeletedData{GameID: ev.GameID})
		default:
			msg, err = NewMessage(TypeGameState, GameStateData{Game: ev.Game})
		}
		if err != nil {
			c.logger.Error("Failed to build game event message", "error", err)
			continue
		}
		if c.SendMessage(msg) != nil {
			return
		}
	}
}

// pumpPlayerEvents refreshes the client's game list on every change touching
// one of their games.
func (c *Connection) pumpPlayerEvents(sub *docstore.Subscription) {
	for range sub.C {
		user := c.User()
		if user == nil {
			return
		}
		games, err := c.server.directory.GamesFor(c.ctx, user.ID)
		if err != nil {
			c.logger.Error("Failed to refresh games list", "error", err, "user", user.ID)
			continue
		}
		msg, err := NewMessage(TypeGamesList, GamesListData{Games: games})
		if err != nil {
			c.logger.Error("Failed to build games list message", "error", err)
			continue
		}
		if c.SendMessage(msg) != nil {
			return
		}
	}
}

// readPump handles incoming messages from the client.
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("Unexpected connection close", "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError(&msg, CodeBadRequest, "malformed message")
			continue
		}

		c.server.handleMessage(c, &msg)
	}
}

// writePump handles outgoing messages and keepalive pings.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug("Write failed", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// sendError reports a failure for the request in msg, echoing its request id.
func (c *Connection) sendError(req *Message, code, message string) {
	msg, err := NewMessage(TypeError, ErrorData{Code: code, Message: message})
	if err != nil {
		c.logger.Error("Failed to build error message", "error", err)
		return
	}
	if req != nil {
		msg.RequestID = req.RequestID
	}
	_ = c.SendMessage(msg)
}
