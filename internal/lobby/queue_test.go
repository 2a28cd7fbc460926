package lobby

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcade/internal/game"
)

func TestEnqueuePairsOldestTwo(t *testing.T) {
	q := NewQueue(zerolog.Nop(), time.Hour, nil)

	_, paired := q.Enqueue(game.TicTacToe, "p1")
	assert.False(t, paired)
	pair, paired := q.Enqueue(game.TicTacToe, "p2")
	require.True(t, paired)
	assert.Equal(t, [2]string{"p1", "p2"}, pair)
	assert.Equal(t, 0, q.Waiting(game.TicTacToe))
}

func TestEnqueueFIFOOrder(t *testing.T) {
	q := NewQueue(zerolog.Nop(), time.Hour, nil)

	q.Enqueue(game.RPS, "p1")
	pair, paired := q.Enqueue(game.RPS, "p2")
	require.True(t, paired)
	assert.Equal(t, [2]string{"p1", "p2"}, pair)
}

func TestEnqueueThirdPlayerStaysQueued(t *testing.T) {
	q := NewQueue(zerolog.Nop(), time.Hour, nil)

	q.Enqueue(game.TicTacToe, "p1")
	q.Enqueue(game.TicTacToe, "p2") // pairs with p1
	_, paired := q.Enqueue(game.TicTacToe, "p3")
	assert.False(t, paired)
	assert.Equal(t, 1, q.Waiting(game.TicTacToe))
}

func TestEnqueueDedupes(t *testing.T) {
	q := NewQueue(zerolog.Nop(), time.Hour, nil)

	q.Enqueue(game.TicTacToe, "p1")
	_, paired := q.Enqueue(game.TicTacToe, "p1")
	assert.False(t, paired)
	assert.Equal(t, 1, q.Waiting(game.TicTacToe))
}

func TestQueuesAreIndependentPerGame(t *testing.T) {
	q := NewQueue(zerolog.Nop(), time.Hour, nil)

	q.Enqueue(game.TicTacToe, "p1")
	_, paired := q.Enqueue(game.RPS, "p2")
	assert.False(t, paired)
	assert.Equal(t, 1, q.Waiting(game.TicTacToe))
	assert.Equal(t, 1, q.Waiting(game.RPS))
}

func TestSuggestFiresForLongWait(t *testing.T) {
	var (
		mu        sync.Mutex
		suggested []string
	)
	done := make(chan struct{})
	q := NewQueue(zerolog.Nop(), 10*time.Millisecond, func(userID string, gt game.Type) {
		mu.Lock()
		suggested = append(suggested, userID)
		mu.Unlock()
		close(done)
	})

	q.Enqueue(game.TicTacToe, "p1")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("suggestion never fired")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"p1"}, suggested)
}

func TestLeaveCancelsSuggestion(t *testing.T) {
	fired := make(chan string, 1)
	q := NewQueue(zerolog.Nop(), 20*time.Millisecond, func(userID string, gt game.Type) {
		fired <- userID
	})

	q.Enqueue(game.TicTacToe, "p1")
	require.True(t, q.Leave(game.TicTacToe, "p1"))
	assert.Equal(t, 0, q.Waiting(game.TicTacToe))

	select {
	case id := <-fired:
		t.Fatalf("suggestion fired for %s after leave", id)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestLeaveUnknownUser(t *testing.T) {
	q := NewQueue(zerolog.Nop(), time.Hour, nil)
	assert.False(t, q.Leave(game.TicTacToe, "ghost"))
}

func TestLeaveAll(t *testing.T) {
	q := NewQueue(zerolog.Nop(), time.Hour, nil)

	q.Enqueue(game.TicTacToe, "p1")
	q.Enqueue(game.RPS, "p1")
	q.Enqueue(game.RPS, "p2") // pairs with p1

	q.Enqueue(game.RPS, "p1")
	q.LeaveAll("p1")
	assert.Equal(t, 0, q.Waiting(game.TicTacToe))
	assert.Equal(t, 0, q.Waiting(game.RPS))
}
