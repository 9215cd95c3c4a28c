package game

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Role identifies what kind of client sits behind a connection.
type Role string

const (
	RoleHost    Role = "host"
	RoleDisplay Role = "display"
	RolePlayer  Role = "player"
)

const (
	writeTimeout   = 10 * time.Second
	pongTimeout    = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 8 << 10
	sendBufferSize = 64
)

// Conn is one live client socket.
type Conn struct {
	ID       string
	PlayerID string
	Role     Role

	ws       *websocket.Conn
	send     chan []byte
	registry *Registry
	closed   bool
}

// Registry tracks live client sockets and delivers point-to-point and
// broadcast messages. Dead or slow sockets are removed here so no call
// site has to deal with delivery failure.
type Registry struct {
	mu       sync.RWMutex
	conns    map[*Conn]struct{}
	upgrader websocket.Upgrader
	logger   *slog.Logger

	onMessage    func(c *Conn, data []byte)
	onDisconnect func(c *Conn)
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		conns:  make(map[*Conn]struct{}),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// SetHandlers installs the inbound message and disconnect callbacks. Must be
// called before the first Upgrade.
func (reg *Registry) SetHandlers(onMessage func(*Conn, []byte), onDisconnect func(*Conn)) {
	reg.onMessage = onMessage
	reg.onDisconnect = onDisconnect
}

// Upgrade turns an HTTP request into a registered websocket connection and
// starts its read/write pumps.
func (reg *Registry) Upgrade(w http.ResponseWriter, r *http.Request, playerID string, role Role) (*Conn, error) {
	ws, err := reg.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	c := &Conn{
		ID:       uuid.NewString(),
		PlayerID: playerID,
		Role:     role,
		ws:       ws,
		send:     make(chan []byte, sendBufferSize),
		registry: reg,
	}

	reg.mu.Lock()
	reg.conns[c] = struct{}{}
	reg.mu.Unlock()

	go c.writePump()
	go c.readPump()

	reg.logger.Info("client connected",
		"connection_id", c.ID, "player_id", playerID, "role", string(role))
	return c, nil
}

func (reg *Registry) remove(c *Conn) {
	reg.mu.Lock()
	_, ok := reg.conns[c]
	if ok {
		delete(reg.conns, c)
		if !c.closed {
			c.closed = true
			close(c.send)
		}
	}
	reg.mu.Unlock()

	if ok {
		reg.logger.Info("client disconnected",
			"connection_id", c.ID, "player_id", c.PlayerID, "role", string(c.Role))
		if reg.onDisconnect != nil {
			// The disconnect callback takes the session lock. Broadcasts run
			// with that lock held and can remove slow connections, so the
			// callback must not run inline.
			go reg.onDisconnect(c)
		}
	}
}

// Count returns the number of live connections.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.conns)
}

// Broadcast sends an event to every connection.
func (reg *Registry) Broadcast(v any) {
	reg.deliver(v, func(*Conn) bool { return true })
}

// BroadcastRole sends an event only to connections holding the given role.
func (reg *Registry) BroadcastRole(role Role, v any) {
	reg.deliver(v, func(c *Conn) bool { return c.Role == role })
}

// BroadcastExceptRole sends an event to every connection not holding the
// given role.
func (reg *Registry) BroadcastExceptRole(role Role, v any) {
	reg.deliver(v, func(c *Conn) bool { return c.Role != role })
}

// SendTo sends an event to all connections of one player.
func (reg *Registry) SendTo(playerID string, v any) {
	reg.deliver(v, func(c *Conn) bool { return c.PlayerID == playerID })
}

// Send delivers an event to a single connection.
func (reg *Registry) Send(c *Conn, v any) {
	reg.deliver(v, func(target *Conn) bool { return target == c })
}

func (reg *Registry) deliver(v any, match func(*Conn) bool) {
	data, err := json.Marshal(v)
	if err != nil {
		reg.logger.Error("marshaling event", "error", err)
		return
	}

	// Sends happen under the read lock: remove closes send channels under
	// the write lock, so a send can never hit a closed channel.
	reg.mu.RLock()
	var slow []*Conn
	for c := range reg.conns {
		if !match(c) {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	reg.mu.RUnlock()

	for _, c := range slow {
		// Send buffer full: the client is dead or hopelessly behind.
		reg.logger.Warn("dropping slow connection", "connection_id", c.ID)
		reg.remove(c)
		c.ws.Close()
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
		c.registry.remove(c)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Conn) readPump() {
	defer func() {
		c.registry.remove(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.registry.logger.Warn("unexpected close", "connection_id", c.ID, "error", err)
			}
			return
		}
		if c.registry.onMessage != nil {
			c.registry.onMessage(c, msg)
		}
		c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
	}
}
