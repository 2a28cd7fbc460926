package lobby

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"arcade/internal/game"
)

// Code is a single-use join code binding a host to a game type.
type Code struct {
	Code      string
	HostID    string
	GameType  game.Type
	CreatedAt time.Time

	expiry *time.Timer
}

// Codes issues and redeems join codes. Every code expires after the TTL
// unless consumed or canceled first.
type Codes struct {
	ttl       time.Duration
	onExpired func(code, hostID string)

	mu    sync.Mutex
	codes map[string]*Code
}

// NewCodes creates the code table. onExpired runs off the timer
// goroutine when a code lapses without being used.
func NewCodes(ttl time.Duration, onExpired func(code, hostID string)) *Codes {
	return &Codes{
		ttl:       ttl,
		onExpired: onExpired,
		codes:     make(map[string]*Code),
	}
}

// Create issues a fresh code for the host. Any code the host already
// holds is invalidated first, so a host has at most one live code.
func (c *Codes) Create(hostID string, gameType game.Type) *Code {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelByHostLocked(hostID)

	code := &Code{
		Code:      generateCode(),
		HostID:    hostID,
		GameType:  gameType,
		CreatedAt: time.Now(),
	}
	c.codes[code.Code] = code
	code.expiry = time.AfterFunc(c.ttl, func() {
		if c.expire(code.Code) && c.onExpired != nil {
			c.onExpired(code.Code, hostID)
		}
	})
	return code
}

// Lookup returns a live code without consuming it.
func (c *Codes) Lookup(code string) (*Code, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.codes[code]
	return entry, ok
}

// Consume invalidates a code on successful join. Only the first caller
// wins; later calls report false.
func (c *Codes) Consume(code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.codes[code]
	if !ok {
		return false
	}
	entry.expiry.Stop()
	delete(c.codes, code)
	return true
}

// Cancel invalidates a code at the host's request.
func (c *Codes) Cancel(code, hostID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.codes[code]
	if !ok || entry.HostID != hostID {
		return false
	}
	entry.expiry.Stop()
	delete(c.codes, code)
	return true
}

// CancelByHost invalidates any code the host holds, as on disconnect.
func (c *Codes) CancelByHost(hostID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelByHostLocked(hostID)
}

func (c *Codes) cancelByHostLocked(hostID string) {
	for k, entry := range c.codes {
		if entry.HostID == hostID {
			entry.expiry.Stop()
			delete(c.codes, k)
		}
	}
}

func (c *Codes) expire(code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.codes[code]; !ok {
		return false
	}
	delete(c.codes, code)
	return true
}

func generateCode() string {
	b := make([]byte, 3) // 6 hex chars
	rand.Read(b)
	return hex.EncodeToString(b)
}
