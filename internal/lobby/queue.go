// Package lobby holds the pre-match coordination state: the matchmaking
// queues, the presence tracker and the join codes.
package lobby

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"arcade/internal/game"
)

type queueEntry struct {
	userID     string
	enqueuedAt time.Time
	suggest    *time.Timer
}

// Queue is the per-game-type matchmaking wait list. Pairing is strictly
// FIFO; a player waiting past the suggestion delay is offered a bot
// opponent but stays queued until they leave or accept.
type Queue struct {
	logger       zerolog.Logger
	suggestAfter time.Duration
	onSuggest    func(userID string, gameType game.Type)

	mu      sync.Mutex
	waiting map[game.Type][]*queueEntry
}

// NewQueue creates the queue. onSuggest runs off the timer goroutine
// when a player has waited suggestAfter without being paired.
func NewQueue(logger zerolog.Logger, suggestAfter time.Duration, onSuggest func(userID string, gameType game.Type)) *Queue {
	return &Queue{
		logger:       logger.With().Str("component", "queue").Logger(),
		suggestAfter: suggestAfter,
		onSuggest:    onSuggest,
		waiting:      make(map[game.Type][]*queueEntry),
	}
}

// Enqueue adds a user to a game's wait list, replacing any entry they
// already hold there. When two or more players wait, the two oldest are
// dequeued and returned as a pair (older first).
func (q *Queue) Enqueue(gameType game.Type, userID string) (pair [2]string, paired bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.removeLocked(gameType, userID)
	e := &queueEntry{userID: userID, enqueuedAt: time.Now()}
	q.waiting[gameType] = append(q.waiting[gameType], e)

	if len(q.waiting[gameType]) >= 2 {
		a, b := q.waiting[gameType][0], q.waiting[gameType][1]
		q.waiting[gameType] = q.waiting[gameType][2:]
		a.stopTimer()
		b.stopTimer()
		q.logger.Debug().Str("game", string(gameType)).Str("p0", a.userID).Str("p1", b.userID).Msg("paired")
		return [2]string{a.userID, b.userID}, true
	}

	e.suggest = time.AfterFunc(q.suggestAfter, func() {
		if q.stillQueued(gameType, userID) {
			q.onSuggest(userID, gameType)
		}
	})
	return pair, false
}

// Leave removes a pending entry and cancels its suggestion timer.
func (q *Queue) Leave(gameType game.Type, userID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(gameType, userID)
}

// LeaveAll removes the user from every game's wait list, as on
// disconnect.
func (q *Queue) LeaveAll(userID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for gt := range q.waiting {
		q.removeLocked(gt, userID)
	}
}

// Waiting reports how many players are queued for a game type.
func (q *Queue) Waiting(gameType game.Type) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting[gameType])
}

func (q *Queue) stillQueued(gameType game.Type, userID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.waiting[gameType] {
		if e.userID == userID {
			return true
		}
	}
	return false
}

func (q *Queue) removeLocked(gameType game.Type, userID string) bool {
	list := q.waiting[gameType]
	for i, e := range list {
		if e.userID == userID {
			e.stopTimer()
			q.waiting[gameType] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

func (e *queueEntry) stopTimer() {
	if e.suggest != nil {
		e.suggest.Stop()
	}
}
