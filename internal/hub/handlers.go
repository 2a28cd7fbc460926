package hub

import (
	"encoding/json"
	"errors"
	"time"

	"arcade/internal/game"
	"arcade/internal/game/rps"
	"arcade/internal/game/tictactoe"
	"arcade/internal/match"
)

type queuePayload struct {
	GameType string `json:"gameType"`
}

type acceptBotPayload struct {
	GameType   string `json:"gameType"`
	Difficulty string `json:"difficulty"`
}

type matchRefPayload struct {
	MatchID string `json:"matchId"`
}

type movePayload struct {
	MatchID string `json:"matchId"`
	Payload struct {
		CellIdx *int   `json:"cellIdx"`
		Choice  string `json:"choice"`
	} `json:"payload"`
}

type inviteSendPayload struct {
	ToUserID string `json:"toUserId"`
	GameType string `json:"gameType"`
}

type inviteAcceptPayload struct {
	FromUserID string `json:"fromUserId"`
	GameType   string `json:"gameType"`
}

type codeCreatePayload struct {
	GameType string `json:"gameType"`
}

type codeRefPayload struct {
	Code string `json:"code"`
}

type chatPayload struct {
	MatchID string `json:"matchId"`
	Text    string `json:"text"`
}

// HandleEvent dispatches one inbound client event. The connection is
// already authenticated by the transport layer.
func (h *Hub) HandleEvent(c *Conn, ev Event) {
	h.logger.Debug().Str("user", c.UserID).Str("event", ev.Type).Msg("event")
	switch ev.Type {
	case "queue.join":
		var p queuePayload
		if !h.decode(c, ev.Payload, &p) {
			return
		}
		h.handleQueueJoin(c, game.Type(p.GameType))
	case "queue.leave":
		var p queuePayload
		if !h.decode(c, ev.Payload, &p) {
			return
		}
		h.queue.Leave(game.Type(p.GameType), c.UserID)
	case "ai.accept":
		var p acceptBotPayload
		if !h.decode(c, ev.Payload, &p) {
			return
		}
		h.handleAcceptBot(c, game.Type(p.GameType), game.ParseDifficulty(p.Difficulty))
	case "match.join":
		var p matchRefPayload
		if !h.decode(c, ev.Payload, &p) {
			return
		}
		h.handleMatchJoin(c, p.MatchID)
	case "move.submit":
		var p movePayload
		if !h.decode(c, ev.Payload, &p) {
			return
		}
		h.handleMove(c, p)
	case "match.quit":
		var p matchRefPayload
		if !h.decode(c, ev.Payload, &p) {
			return
		}
		h.handleQuit(c, p.MatchID)
	case "rematch.request":
		var p matchRefPayload
		if !h.decode(c, ev.Payload, &p) {
			return
		}
		h.handleRematch(c, p.MatchID)
	case "invite.send":
		var p inviteSendPayload
		if !h.decode(c, ev.Payload, &p) {
			return
		}
		h.handleInviteSend(c, p)
	case "invite.accept":
		var p inviteAcceptPayload
		if !h.decode(c, ev.Payload, &p) {
			return
		}
		h.handleInviteAccept(c, p)
	case "code.create":
		var p codeCreatePayload
		if !h.decode(c, ev.Payload, &p) {
			return
		}
		h.handleCodeCreate(c, game.Type(p.GameType))
	case "code.join":
		var p codeRefPayload
		if !h.decode(c, ev.Payload, &p) {
			return
		}
		h.handleCodeJoin(c, p.Code)
	case "code.cancel":
		var p codeRefPayload
		if !h.decode(c, ev.Payload, &p) {
			return
		}
		h.handleCodeCancel(c, p.Code)
	case "chat.send":
		var p chatPayload
		if !h.decode(c, ev.Payload, &p) {
			return
		}
		h.handleChat(c, p)
	default:
		h.sendError(c, "unknown event type: "+ev.Type)
	}
}

func (h *Hub) decode(c *Conn, raw json.RawMessage, v any) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		h.sendError(c, "invalid payload")
		return false
	}
	return true
}

func (h *Hub) handleQueueJoin(c *Conn, gameType game.Type) {
	if !gameType.Valid() {
		h.sendError(c, "unknown game type")
		return
	}
	if pair, paired := h.queue.Enqueue(gameType, c.UserID); paired {
		h.createHumanMatch(gameType, pair[0], pair[1])
	}
}

func (h *Hub) handleAcceptBot(c *Conn, gameType game.Type, difficulty game.Difficulty) {
	if !gameType.Valid() {
		h.sendError(c, "unknown game type")
		return
	}
	h.queue.Leave(gameType, c.UserID)
	sess, err := h.createMatch(gameType, match.VsBot, []string{c.UserID}, difficulty)
	if err != nil {
		h.sendError(c, "server error")
		return
	}
	h.send(c, "match.found", map[string]any{"matchId": sess.ID, "vs": "bot"})
}

func (h *Hub) handleMatchJoin(c *Conn, matchID string) {
	sess, ok := h.registry.Get(matchID)
	if !ok {
		// Rehydrate from the record so a participant can rejoin after
		// the session map lost it (e.g. a restart).
		row, err := h.store.GetMatch(matchID)
		if err != nil || row.Status == "finished" {
			h.sendError(c, "match not found")
			return
		}
		playedVs := match.VsHuman
		if row.PlayedVs == string(match.VsBot) {
			playedVs = match.VsBot
		}
		sess = match.New(row.ID, row.GameType, playedVs, row.Players(), row.Difficulty, h.newRand())
		h.registry.Put(sess)
	}

	if _, err := sess.Join(c.UserID); err != nil {
		h.sendError(c, "not a participant")
		return
	}
	if h.presence.SetInMatch(c.UserID, true) {
		h.broadcastExcept(c, "presence.update", map[string]any{"id": c.UserID, "inMatch": true})
	}
	h.broadcastState(sess)
}

func (h *Hub) handleMove(c *Conn, p movePayload) {
	sess, ok := h.registry.Get(p.MatchID)
	if !ok {
		h.sendError(c, "match not found")
		return
	}

	var res match.MoveResult
	var err error
	switch sess.GameType {
	case game.TicTacToe:
		if p.Payload.CellIdx == nil {
			h.reject(c, "invalid-move")
			return
		}
		res, err = sess.PlaceMark(c.UserID, *p.Payload.CellIdx)
	case game.RPS:
		hand, valid := rps.ParseHand(p.Payload.Choice)
		if !valid {
			h.reject(c, "invalid-hand")
			return
		}
		res, err = sess.PlayHand(c.UserID, hand)
	}
	if err != nil {
		h.reject(c, rejectReason(err))
		return
	}

	h.broadcastState(sess)
	if res.Ended {
		h.finishMatch(sess, res.Winner, res.Result, string(res.BotHand))
	}
}

func (h *Hub) reject(c *Conn, reason string) {
	h.send(c, "move.rejected", map[string]string{"reason": reason})
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, tictactoe.ErrNotYourTurn):
		return "not-your-turn"
	case errors.Is(err, tictactoe.ErrCellOccupied):
		return "cell-occupied"
	case errors.Is(err, tictactoe.ErrOutOfRange):
		return "index-out-of-range"
	case errors.Is(err, match.ErrAlreadyChosen):
		return "already-chosen"
	case errors.Is(err, match.ErrNotParticipant):
		return "not-a-participant"
	case errors.Is(err, match.ErrNotActive):
		return "match-not-active"
	}
	return "rejected"
}

func (h *Hub) handleQuit(c *Conn, matchID string) {
	sess, ok := h.registry.Get(matchID)
	if !ok {
		h.sendError(c, "match not found")
		return
	}
	winner, forfeited, err := sess.Quit(c.UserID)
	if err != nil {
		h.sendError(c, "not a participant")
		return
	}
	if !forfeited {
		// Already finished. Re-run the finalize with the recorded
		// outcome so a quit resubmitted after a persistence failure
		// completes the match; once the store agrees it is finished
		// this stays a silent no-op.
		if w, result, botHand, done := sess.Outcome(); done {
			h.finishMatch(sess, w, result, string(botHand))
		}
		return
	}
	h.finishMatch(sess, winner, "forfeit", "")
}

func (h *Hub) handleRematch(c *Conn, matchID string) {
	sess, ok := h.registry.Get(matchID)
	if !ok {
		h.sendError(c, "match not found")
		return
	}
	if _, isP := sess.Seat(c.UserID); !isP {
		h.sendError(c, "not a participant")
		return
	}

	if sess.PlayedVs == match.VsBot {
		// Bot rematches start immediately, carrying the difficulty.
		next, err := h.createMatch(sess.GameType, match.VsBot, []string{c.UserID}, sess.Difficulty)
		if err != nil {
			h.sendError(c, "server error")
			return
		}
		h.send(c, "rematch.created", map[string]any{"matchId": next.ID, "vs": "bot"})
		return
	}

	both, err := sess.RequestRematch(c.UserID)
	if err != nil {
		h.sendError(c, "not a participant")
		return
	}
	if !both {
		h.sendToSession(sess, "rematch.pending", map[string]string{"requester": c.UserID})
		return
	}
	next, err := h.createMatch(sess.GameType, match.VsHuman, sess.Players, "")
	if err != nil {
		h.sendToSession(sess, "error", map[string]string{"message": "server error"})
		return
	}
	h.sendToSession(sess, "rematch.created", map[string]any{"matchId": next.ID, "vs": "human"})
}

func (h *Hub) handleInviteSend(c *Conn, p inviteSendPayload) {
	gameType := game.Type(p.GameType)
	if !gameType.Valid() || p.ToUserID == "" || p.ToUserID == c.UserID {
		h.send(c, "invite.error", map[string]string{"message": "invalid invite"})
		return
	}
	target, online := h.presence.Get(p.ToUserID)
	if !online {
		h.send(c, "invite.error", map[string]string{"message": "user offline"})
		return
	}
	if target.InMatch {
		h.send(c, "invite.error", map[string]string{"message": "user is in a match"})
		return
	}
	if me, ok := h.presence.Get(c.UserID); ok && me.InMatch {
		h.send(c, "invite.error", map[string]string{"message": "you are in a match"})
		return
	}
	h.sendToUser(p.ToUserID, "invite.received", map[string]any{
		"from":     map[string]string{"id": c.UserID, "username": c.Username},
		"gameType": gameType,
	})
	h.send(c, "invite.sent", map[string]any{
		"to":       map[string]string{"id": p.ToUserID, "username": target.Username},
		"gameType": gameType,
	})
}

func (h *Hub) handleInviteAccept(c *Conn, p inviteAcceptPayload) {
	gameType := game.Type(p.GameType)
	if !gameType.Valid() {
		h.send(c, "invite.error", map[string]string{"message": "invalid invite"})
		return
	}
	from, fromOnline := h.presence.Get(p.FromUserID)
	me, meOnline := h.presence.Get(c.UserID)
	if !fromOnline || !meOnline || from.InMatch || me.InMatch {
		h.send(c, "invite.error", map[string]string{"message": "invite no longer valid"})
		return
	}
	// Inviter takes seat 0, as the match creator.
	h.createHumanMatch(gameType, p.FromUserID, c.UserID)
}

func (h *Hub) handleCodeCreate(c *Conn, gameType game.Type) {
	if !gameType.Valid() {
		h.send(c, "code.error", map[string]string{"message": "unknown game type"})
		return
	}
	code := h.codes.Create(c.UserID, gameType)
	h.send(c, "code.created", map[string]any{"code": code.Code, "gameType": code.GameType})
}

func (h *Hub) handleCodeJoin(c *Conn, code string) {
	entry, ok := h.codes.Lookup(code)
	if !ok {
		h.send(c, "code.error", map[string]string{"message": "invalid or expired code"})
		return
	}
	if entry.HostID == c.UserID {
		h.send(c, "code.error", map[string]string{"message": "cannot join your own code"})
		return
	}
	host, online := h.presence.Get(entry.HostID)
	me, meOnline := h.presence.Get(c.UserID)
	if !online || host.InMatch || (meOnline && me.InMatch) {
		h.send(c, "code.error", map[string]string{"message": "host unavailable"})
		return
	}
	// Only the first joiner consumes the code.
	if !h.codes.Consume(code) {
		h.send(c, "code.error", map[string]string{"message": "invalid or expired code"})
		return
	}
	h.createHumanMatch(entry.GameType, entry.HostID, c.UserID)
}

func (h *Hub) handleCodeCancel(c *Conn, code string) {
	if !h.codes.Cancel(code, c.UserID) {
		h.send(c, "code.error", map[string]string{"message": "unknown code"})
		return
	}
	h.send(c, "code.canceled", map[string]string{"code": code})
}

func (h *Hub) handleChat(c *Conn, p chatPayload) {
	if p.Text == "" {
		return
	}
	sess, ok := h.registry.Get(p.MatchID)
	if !ok {
		h.sendError(c, "match not found")
		return
	}
	if _, isP := sess.Seat(c.UserID); !isP {
		h.sendError(c, "not a participant")
		return
	}
	msg := map[string]any{
		"from": map[string]string{"id": c.UserID, "username": c.Username},
		"text": p.Text,
		"ts":   time.Now().UnixMilli(),
	}
	for _, participant := range sess.Players {
		if participant != c.UserID {
			h.sendToUser(participant, "chat.message", msg)
		}
	}
}
