// Package progress delivers live notifications to connected users.
package progress

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mikepea/tagmark/pkg/tagmark/logger"
)

// TypeImportProgress is the message type emitted while an import runs
const TypeImportProgress = "import-progress"

// EventName is the socket event every message is emitted under
const EventName = "message"

// ErrAlreadyConnected is returned when a user already has a live connection
var ErrAlreadyConnected = errors.New("user already has a live connection")

// Message is the envelope sent to clients
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ImportProgress is the payload of TypeImportProgress messages
type ImportProgress struct {
	Progress float64 `json:"progress"`
}

// NewImportProgress builds an import progress message for a 0-100 value
func NewImportProgress(progress float64) Message {
	return Message{Type: TypeImportProgress, Data: ImportProgress{Progress: progress}}
}

// Conn is a live client connection. socket.io connections satisfy it.
type Conn interface {
	ID() string
	Emit(event string, v ...interface{})
	Close() error
}

// Hub tracks at most one connection per user
type Hub struct {
	mu    sync.RWMutex
	conns map[uint]Conn

	// serializes sends so messages reach a client in emission order
	sendMu sync.Mutex
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{conns: make(map[uint]Conn)}
}

// Register records c as userID's connection. A user who is already connected
// keeps the existing connection and ErrAlreadyConnected is returned.
func (h *Hub) Register(userID uint, c Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.conns[userID]; exists {
		return ErrAlreadyConnected
	}
	h.conns[userID] = c
	return nil
}

// Unregister removes userID's entry if it still points at c
func (h *Hub) Unregister(userID uint, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.conns[userID]; ok && current.ID() == c.ID() {
		delete(h.conns, userID)
	}
}

// ConnectionFor returns the live connection of userID, if any
func (h *Hub) ConnectionFor(userID uint) (Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.conns[userID]
	return c, ok
}

// Count returns the number of connected users
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Send emits msg on c. Delivery is best effort: failures are logged and
// returned, never raised.
func (h *Hub) Send(c Conn, msg Message) (err error) {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("send %s: %v", msg.Type, r)
			logger.Log.Warn().Str("conn_id", c.ID()).Err(err).Msg("progress message not delivered")
		}
	}()

	c.Emit(EventName, msg)
	return nil
}

// Notify sends msg to userID's connection if there is one
func (h *Hub) Notify(userID uint, msg Message) {
	c, ok := h.ConnectionFor(userID)
	if !ok {
		logger.Log.Warn().Uint("user_id", userID).Str("type", msg.Type).Msg("no live connection for user")
		return
	}
	_ = h.Send(c, msg)
}
