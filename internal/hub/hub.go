// Package hub is the protocol layer: it receives client events, drives
// the queue, registries and rules, and fans the resulting events back
// out to the connections that need them.
package hub

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"arcade/internal/game"
	"arcade/internal/lobby"
	"arcade/internal/match"
	"arcade/internal/rating"
	"arcade/internal/storage"
)

// Store is the persistence surface the hub depends on.
type Store interface {
	CreateMatch(id string, gameType game.Type, player0 string, player1 *string, playedVs string, difficulty game.Difficulty) error
	GetMatch(id string) (*storage.MatchRow, error)
	FinalizeMatch(id string, winner *string) (bool, error)
	GetRating(userID string, gameType game.Type) (int, error)
	ApplyOutcome(userID string, gameType game.Type, outcome string, newElo int) error
	GetUsername(userID string) (string, error)
}

// Options tune hub timers and randomness.
type Options struct {
	QueueSuggestAfter time.Duration
	CodeTTL           time.Duration
	RematchWindow     time.Duration
	// NewRand supplies the random source for each new session's bot.
	NewRand func() *rand.Rand
}

func (o *Options) fill() {
	if o.QueueSuggestAfter == 0 {
		o.QueueSuggestAfter = 12 * time.Second
	}
	if o.CodeTTL == 0 {
		o.CodeTTL = 5 * time.Minute
	}
	if o.RematchWindow == 0 {
		o.RematchWindow = time.Minute
	}
	if o.NewRand == nil {
		o.NewRand = func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		}
	}
}

// Hub owns the process-wide lobby and match state.
type Hub struct {
	logger   zerolog.Logger
	store    Store
	registry *match.Registry
	queue    *lobby.Queue
	presence *lobby.Presence
	codes    *lobby.Codes

	rematchWindow time.Duration
	newRand       func() *rand.Rand

	mu     sync.RWMutex
	conns  map[string]*Conn // conn id -> conn
	byUser map[string]*Conn // user id -> current conn
}

// New wires up a hub.
func New(logger zerolog.Logger, store Store, opts Options) *Hub {
	opts.fill()
	h := &Hub{
		logger:        logger.With().Str("component", "hub").Logger(),
		store:         store,
		registry:      match.NewRegistry(),
		presence:      lobby.NewPresence(),
		rematchWindow: opts.RematchWindow,
		newRand:       opts.NewRand,
		conns:         make(map[string]*Conn),
		byUser:        make(map[string]*Conn),
	}
	h.queue = lobby.NewQueue(logger, opts.QueueSuggestAfter, func(userID string, gameType game.Type) {
		h.sendToUser(userID, "suggest.ai", map[string]any{"gameType": gameType})
	})
	h.codes = lobby.NewCodes(opts.CodeTTL, func(code, hostID string) {
		h.sendToUser(hostID, "code.expired", map[string]any{"code": code})
	})
	return h
}

// Register adds a connection, announces the user online and sends them
// the current presence list. A newer connection for the same user
// replaces the older one.
func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	h.conns[c.ID] = c
	h.byUser[c.UserID] = c
	h.mu.Unlock()

	h.presence.Upsert(c.UserID, c.Username, c.ID)
	h.send(c, "presence.list", h.presence.List())
	h.broadcastExcept(c, "presence.update", map[string]any{
		"id": c.UserID, "username": c.Username, "inMatch": false, "online": true,
	})
	h.logger.Info().Str("user", c.UserID).Str("conn", c.ID).Msg("connected")
}

// Unregister removes a connection, dequeuing the user and canceling
// their join codes. When a newer connection has already taken over for
// the user, a stale disconnect must not touch their queue entries or
// codes, and the offline broadcast is skipped.
func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c.ID)
	current := h.byUser[c.UserID] == c
	if current {
		delete(h.byUser, c.UserID)
	}
	h.mu.Unlock()

	if current {
		h.queue.LeaveAll(c.UserID)
		h.codes.CancelByHost(c.UserID)
	}

	if h.presence.Remove(c.UserID, c.ID) {
		h.broadcastExcept(c, "presence.update", map[string]any{
			"id": c.UserID, "online": false,
		})
	}
	c.close()
	h.logger.Info().Str("user", c.UserID).Str("conn", c.ID).Msg("disconnected")
}

// OnlineCount reports how many users are currently connected.
func (h *Hub) OnlineCount() int {
	return len(h.presence.List())
}

func (h *Hub) send(c *Conn, eventType string, payload any) {
	p, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", eventType).Msg("marshal payload")
		return
	}
	msg, _ := json.Marshal(Event{Type: eventType, Payload: p})
	c.trySend(msg)
}

func (h *Hub) sendToUser(userID, eventType string, payload any) {
	h.mu.RLock()
	c, ok := h.byUser[userID]
	h.mu.RUnlock()
	if ok {
		h.send(c, eventType, payload)
	}
}

func (h *Hub) sendError(c *Conn, message string) {
	h.send(c, "error", map[string]string{"message": message})
}

// broadcastExcept fans an event to every connection but the given one.
func (h *Hub) broadcastExcept(skip *Conn, eventType string, payload any) {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		if c != skip {
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range conns {
		h.send(c, eventType, payload)
	}
}

// createMatch persists a new match record and registers its session.
func (h *Hub) createMatch(gameType game.Type, playedVs match.PlayedVs, players []string, difficulty game.Difficulty) (*match.Session, error) {
	id := uuid.NewString()
	var player1 *string
	if len(players) == 2 {
		player1 = &players[1]
	}
	if err := h.store.CreateMatch(id, gameType, players[0], player1, string(playedVs), difficulty); err != nil {
		h.logger.Error().Err(err).Str("game", string(gameType)).Msg("create match record")
		return nil, fmt.Errorf("create match record: %w", err)
	}
	sess := match.New(id, gameType, playedVs, players, difficulty, h.newRand())
	h.registry.Put(sess)
	h.logger.Info().Str("match", id).Str("game", string(gameType)).Str("vs", string(playedVs)).Msg("match created")
	return sess, nil
}

// createHumanMatch pairs two users and tells both where to go. Seat 0
// belongs to the first (older queue entry, inviter, or code host).
func (h *Hub) createHumanMatch(gameType game.Type, p0, p1 string) {
	sess, err := h.createMatch(gameType, match.VsHuman, []string{p0, p1}, "")
	if err != nil {
		h.sendToUser(p0, "error", map[string]string{"message": "server error"})
		h.sendToUser(p1, "error", map[string]string{"message": "server error"})
		return
	}
	found := map[string]any{"matchId": sess.ID, "vs": "human"}
	h.sendToUser(p0, "match.found", found)
	h.sendToUser(p1, "match.found", found)
}

// playersInfo resolves display names for the session's seats.
func (h *Hub) playersInfo(sess *match.Session) []match.PlayerInfo {
	info := make([]match.PlayerInfo, 0, 2)
	for i, id := range sess.Players {
		name, err := h.store.GetUsername(id)
		if err != nil {
			name = fmt.Sprintf("Player %d", i+1)
		}
		info = append(info, match.PlayerInfo{ID: id, Username: name})
	}
	if sess.PlayedVs == match.VsBot {
		info = append(info, match.PlayerInfo{ID: match.BotID, Username: "Bot"})
	}
	return info
}

// broadcastState sends each participant their own view of the session.
func (h *Hub) broadcastState(sess *match.Session) {
	players := h.playersInfo(sess)
	for _, p := range sess.Players {
		h.mu.RLock()
		c, ok := h.byUser[p]
		h.mu.RUnlock()
		if !ok {
			continue
		}
		view := sess.ViewFor(p)
		view.Players = players
		h.send(c, "state.update", view)
	}
}

// sendToSession fans one event to every participant of a session.
func (h *Hub) sendToSession(sess *match.Session, eventType string, payload any) {
	for _, p := range sess.Players {
		h.sendToUser(p, eventType, payload)
	}
}

type endPayload struct {
	Winner  *string `json:"winner"`
	Result  string  `json:"result"`
	BotHand string  `json:"botHand,omitempty"`
}

// finishMatch persists the outcome exactly once, applies rating updates
// and announces the end. A duplicate trigger (quit racing a terminal
// move) is a silent no-op thanks to the finalize guard.
func (h *Hub) finishMatch(sess *match.Session, winner, result, botHand string) {
	var winnerPtr *string
	if winner != "" {
		winnerPtr = &winner
	}
	applied, err := h.store.FinalizeMatch(sess.ID, winnerPtr)
	if err != nil {
		h.logger.Error().Err(err).Str("match", sess.ID).Msg("finalize match")
		h.sendToSession(sess, "error", map[string]string{"message": "server error"})
		return
	}
	if !applied {
		return
	}

	h.applyRatings(sess, winner)

	for _, p := range sess.Players {
		if h.presence.SetInMatch(p, false) {
			h.broadcastExcept(nil, "presence.update", map[string]any{"id": p, "inMatch": false})
		}
	}
	h.sendToSession(sess, "match.end", endPayload{Winner: winnerPtr, Result: result, BotHand: botHand})
	h.registry.RemoveAfter(sess.ID, h.rematchWindow)
	h.logger.Info().Str("match", sess.ID).Str("result", result).Msg("match finished")
}

func (h *Hub) applyRatings(sess *match.Session, winner string) {
	if sess.PlayedVs == match.VsHuman {
		p0, p1 := sess.Players[0], sess.Players[1]
		ra, err := h.store.GetRating(p0, sess.GameType)
		if err != nil {
			h.logger.Error().Err(err).Str("user", p0).Msg("load rating")
			return
		}
		rb, err := h.store.GetRating(p1, sess.GameType)
		if err != nil {
			h.logger.Error().Err(err).Str("user", p1).Msg("load rating")
			return
		}
		sa := rating.Draw
		switch winner {
		case p0:
			sa = rating.Win
		case p1:
			sa = rating.Loss
		}
		newRa, newRb := rating.UpdatePair(ra, rb, sa, rating.KHuman)
		h.applyOutcome(p0, sess.GameType, outcomeFor(sa), newRa)
		h.applyOutcome(p1, sess.GameType, outcomeFor(1-sa), newRb)
		return
	}

	// Bot match: only the human's rating moves, against the fixed
	// baseline opponent.
	p0 := sess.Players[0]
	ra, err := h.store.GetRating(p0, sess.GameType)
	if err != nil {
		h.logger.Error().Err(err).Str("user", p0).Msg("load rating")
		return
	}
	sa := rating.Draw
	switch winner {
	case p0:
		sa = rating.Win
	case match.BotID:
		sa = rating.Loss
	}
	h.applyOutcome(p0, sess.GameType, outcomeFor(sa), rating.Update(ra, rating.Baseline, sa, rating.KBot))
}

func (h *Hub) applyOutcome(userID string, gameType game.Type, outcome string, newElo int) {
	if err := h.store.ApplyOutcome(userID, gameType, outcome, newElo); err != nil {
		h.logger.Error().Err(err).Str("user", userID).Msg("apply outcome")
	}
}

func outcomeFor(s rating.Score) string {
	switch s {
	case rating.Win:
		return "win"
	case rating.Loss:
		return "loss"
	}
	return "draw"
}
