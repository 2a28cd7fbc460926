package hub

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Event is the JSON envelope for messages in both directions.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Conn is one authenticated client connection. The transport layer
// drains Outbound and feeds inbound events to the hub.
type Conn struct {
	ID       string
	UserID   string
	Username string

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

// NewConn creates a connection for a verified identity.
func NewConn(userID, username string) *Conn {
	return &Conn{
		ID:       uuid.NewString(),
		UserID:   userID,
		Username: username,
		send:     make(chan []byte, 64),
	}
}

// Outbound is the channel of serialized events to write to the client.
func (c *Conn) Outbound() <-chan []byte {
	return c.send
}

// trySend queues a message, dropping it if the buffer is full or the
// connection is closed.
func (c *Conn) trySend(msg []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		// drop message if buffer full
	}
}

func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
