package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionManager owns the WebSocket plumbing for game sessions: upgrades,
// connection pools keyed by session, and the read/write pumps. What the
// messages mean is the Service's business; callbacks hand them over.
type ConnectionManager struct {
	sessionConnections map[uuid.UUID]map[*Connection]bool
	mu                 sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	// onMessage receives every inbound client frame; onDisconnect fires once
	// per connection after it is unregistered.
	onMessage    func(*Connection, []byte)
	onDisconnect func(*Connection)
}

// Connection is one client's WebSocket attachment to a session.
type Connection struct {
	ID        string
	UserID    uuid.UUID
	SessionID uuid.UUID
	conn      *websocket.Conn
	send      chan []byte
	manager   *ConnectionManager

	ConnectedAt time.Time
	lastPing    time.Time
}

// ConnectionConfig holds WebSocket tuning knobs.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns the defaults used by the server.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a manager. The message and disconnect
// callbacks may be nil.
func NewConnectionManager(config ConnectionConfig, onMessage func(*Connection, []byte), onDisconnect func(*Connection)) *ConnectionManager {
	return &ConnectionManager{
		sessionConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:       config,
		onMessage:    onMessage,
		onDisconnect: onDisconnect,
	}
}

// UpgradeConnection upgrades an HTTP request to a WebSocket and starts its
// pumps. The returned connection is already registered.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID, sessionID uuid.UUID) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		SessionID:   sessionID,
		conn:        conn,
		send:        make(chan []byte, 256),
		manager:     cm,
		ConnectedAt: time.Now(),
		lastPing:    time.Now(),
	}
	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID.String()).
		Str("session_id", sessionID.String()).
		Msg("WebSocket connection established")
	return connection, nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.sessionConnections[conn.SessionID] == nil {
		cm.sessionConnections[conn.SessionID] = make(map[*Connection]bool)
	}
	cm.sessionConnections[conn.SessionID][conn] = true
}

// unregisterConnection removes the connection and fires onDisconnect exactly
// once.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	connections, exists := cm.sessionConnections[conn.SessionID]
	if !exists || !connections[conn] {
		cm.mu.Unlock()
		return
	}
	delete(connections, conn)
	close(conn.send)
	if len(connections) == 0 {
		delete(cm.sessionConnections, conn.SessionID)
	}
	cm.mu.Unlock()

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID.String()).
		Str("session_id", conn.SessionID.String()).
		Msg("connection unregistered")

	if cm.onDisconnect != nil {
		cm.onDisconnect(conn)
	}
}

// ConnectionStats reports active sessions and their connection counts.
func (cm *ConnectionManager) ConnectionStats() (total int, sessions int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	for _, connections := range cm.sessionConnections {
		total += len(connections)
	}
	return total, len(cm.sessionConnections)
}

// Push marshals v and queues it on the connection. A full buffer means the
// client stopped draining; the connection is dropped rather than blocking
// every other player in the session.
func (c *Connection) Push(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal outbound message")
		return
	}
	select {
	case c.send <- data:
	default:
		log.Warn().
			Str("connection_id", c.ID).
			Str("user_id", c.UserID.String()).
			Msg("connection send buffer full, closing connection")
		c.manager.unregisterConnection(c)
		c.conn.Close()
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			c.lastPing = time.Now()
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.manager.unregisterConnection(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.manager.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
		c.lastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close error")
			}
			break
		}
		if c.manager.onMessage != nil {
			c.manager.onMessage(c, message)
		}
		c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	}
}
