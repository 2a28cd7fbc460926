package lobby

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceUpsertAndList(t *testing.T) {
	p := NewPresence()

	p.Upsert("u1", "alice", "c1")
	p.Upsert("u2", "bob", "c2")

	e, ok := p.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "alice", e.Username)
	assert.False(t, e.InMatch)
	assert.Len(t, p.List(), 2)
}

func TestPresenceLastConnectionWins(t *testing.T) {
	p := NewPresence()

	p.Upsert("u1", "alice", "c1")
	p.Upsert("u1", "alice", "c2")
	assert.Len(t, p.List(), 1)

	// the stale connection's disconnect must not evict the new one
	assert.False(t, p.Remove("u1", "c1"))
	_, ok := p.Get("u1")
	assert.True(t, ok)

	assert.True(t, p.Remove("u1", "c2"))
	_, ok = p.Get("u1")
	assert.False(t, ok)
}

func TestPresenceSetInMatch(t *testing.T) {
	p := NewPresence()

	assert.False(t, p.SetInMatch("ghost", true))

	p.Upsert("u1", "alice", "c1")
	require.True(t, p.SetInMatch("u1", true))
	e, _ := p.Get("u1")
	assert.True(t, e.InMatch)

	require.True(t, p.SetInMatch("u1", false))
	e, _ = p.Get("u1")
	assert.False(t, e.InMatch)
}

func TestPresenceGetReturnsCopy(t *testing.T) {
	p := NewPresence()
	p.Upsert("u1", "alice", "c1")

	e, _ := p.Get("u1")
	e.InMatch = true

	fresh, _ := p.Get("u1")
	assert.False(t, fresh.InMatch)
}
