package lobby

import "sync"

// PresenceEntry is one online user as shown in the lobby list.
type PresenceEntry struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	InMatch  bool   `json:"inMatch"`
	ConnID   string `json:"-"`
}

// Presence maps user ids to their online status. One entry per user;
// a newer connection for the same user replaces the older one, and a
// stale disconnect cannot evict the replacement.
type Presence struct {
	mu     sync.RWMutex
	online map[string]*PresenceEntry
}

// NewPresence creates an empty tracker.
func NewPresence() *Presence {
	return &Presence{online: make(map[string]*PresenceEntry)}
}

// Upsert records a user as online through the given connection.
func (p *Presence) Upsert(userID, username, connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID] = &PresenceEntry{UserID: userID, Username: username, ConnID: connID}
}

// Remove drops the entry only if connID is still the user's current
// connection. Reports whether the user went offline.
func (p *Presence) Remove(userID, connID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	cur, ok := p.online[userID]
	if !ok || cur.ConnID != connID {
		return false
	}
	delete(p.online, userID)
	return true
}

// SetInMatch flips a user's availability flag. Reports whether the user
// was online.
func (p *Presence) SetInMatch(userID string, inMatch bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.online[userID]
	if !ok {
		return false
	}
	e.InMatch = inMatch
	return true
}

// Get returns a copy of a user's entry.
func (p *Presence) Get(userID string) (PresenceEntry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.online[userID]
	if !ok {
		return PresenceEntry{}, false
	}
	return *e, true
}

// List returns a snapshot of everyone online.
func (p *Presence) List() []PresenceEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	list := make([]PresenceEntry, 0, len(p.online))
	for _, e := range p.online {
		list = append(list, *e)
	}
	return list
}
