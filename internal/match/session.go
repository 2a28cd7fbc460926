// Package match owns the authoritative in-memory state of live matches.
package match

import (
	"errors"
	"math/rand"
	"sync"

	"arcade/internal/game"
	"arcade/internal/game/rps"
	"arcade/internal/game/tictactoe"
)

// Status is the session lifecycle.
type Status string

const (
	StatusAwaitingJoin Status = "awaiting-join"
	StatusLobbyWait    Status = "lobby-wait"
	StatusActive       Status = "active"
	StatusFinished     Status = "finished"
)

// PlayedVs tags the opponent kind.
type PlayedVs string

const (
	VsHuman PlayedVs = "human"
	VsBot   PlayedVs = "bot"
)

// BotID is the winner sentinel recorded when the bot wins.
const BotID = "bot"

// Session rejection reasons.
var (
	ErrNotParticipant = errors.New("not a participant")
	ErrNotActive      = errors.New("match is not active")
	ErrAlreadyChosen  = errors.New("already chose this round")
)

// Session is one in-progress match. All mutation goes through its
// methods; the mutex serializes them so moves, quits and finalize
// triggers cannot interleave.
type Session struct {
	mu sync.Mutex

	ID         string
	GameType   game.Type
	PlayedVs   PlayedVs
	Players    []string // seat order; seat 0 is the creator / first queued
	Difficulty game.Difficulty

	board tictactoe.Board
	turn  int

	choices map[string]rps.Hand

	status  Status
	joined  map[string]bool
	rematch map[string]bool

	finalWinner  string
	finalResult  string
	finalBotHand rps.Hand

	rng *rand.Rand
}

// New creates a session awaiting its first join. The random source
// drives all bot decisions and is injected for testability.
func New(id string, gameType game.Type, playedVs PlayedVs, players []string, difficulty game.Difficulty, rng *rand.Rand) *Session {
	return &Session{
		ID:         id,
		GameType:   gameType,
		PlayedVs:   playedVs,
		Players:    players,
		Difficulty: difficulty,
		choices:    make(map[string]rps.Hand),
		status:     StatusAwaitingJoin,
		joined:     make(map[string]bool),
		rematch:    make(map[string]bool),
		rng:        rng,
	}
}

// State returns the current lifecycle status.
func (s *Session) State() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Seat returns a participant's seat index.
func (s *Session) Seat(userID string) (int, bool) {
	for i, p := range s.Players {
		if p == userID {
			return i, true
		}
	}
	return 0, false
}

// Join records a participant's arrival and returns their seat. Repeat
// joins by the same participant are idempotent. The session activates
// once every human seat has joined; bot matches need only the one human.
func (s *Session) Join(userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat, ok := s.Seat(userID)
	if !ok {
		return 0, ErrNotParticipant
	}
	s.joined[userID] = true

	if s.status == StatusAwaitingJoin || s.status == StatusLobbyWait {
		if len(s.joined) == len(s.Players) {
			s.status = StatusActive
		} else {
			s.status = StatusLobbyWait
		}
	}
	return seat, nil
}

// MoveResult describes the session after an accepted move.
type MoveResult struct {
	BotMoved bool
	BotCell  int      // ttt only
	BotHand  rps.Hand // rps only

	Ended  bool
	Winner string // winning user id, BotID, or "" for a draw
	Result string // "X" | "O" | "a" | "b" | "draw"
}

// PlaceMark applies a tic-tac-toe move. In bot matches an accepted human
// move that leaves the game open is answered synchronously by the bot,
// so one result already reflects the reply; if the human's move ends the
// game the bot never moves.
func (s *Session) PlaceMark(userID string, cell int) (MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return MoveResult{}, ErrNotActive
	}
	seat, ok := s.Seat(userID)
	if !ok {
		return MoveResult{}, ErrNotParticipant
	}
	if err := tictactoe.LegalMove(s.board, cell, s.turn, seat); err != nil {
		return MoveResult{}, err
	}

	s.board[cell] = seatMark(seat)
	s.turn = 1 - s.turn

	res := MoveResult{BotCell: -1}
	if done := s.settleBoard(&res); done {
		return res, nil
	}

	if s.PlayedVs == VsBot && s.turn == 1 {
		botCell := tictactoe.BotMove(s.board, tictactoe.MarkO, tictactoe.MarkX, s.Difficulty.RandomChance(), s.rng)
		if botCell >= 0 {
			s.board[botCell] = tictactoe.MarkO
			s.turn = 1 - s.turn
			res.BotMoved = true
			res.BotCell = botCell
			s.settleBoard(&res)
		}
	}
	return res, nil
}

// settleBoard checks for a terminal board and, when found, flips the
// session to finished and fills in the result. Caller holds the lock.
func (s *Session) settleBoard(res *MoveResult) bool {
	switch tictactoe.CheckWinner(s.board) {
	case tictactoe.ResultXWins:
		res.Ended, res.Winner, res.Result = true, s.Players[0], "X"
	case tictactoe.ResultOWins:
		res.Ended, res.Winner, res.Result = true, s.seat1ID(), "O"
	case tictactoe.ResultDraw:
		res.Ended, res.Winner, res.Result = true, "", "draw"
	default:
		return false
	}
	s.status = StatusFinished
	s.finalWinner, s.finalResult = res.Winner, res.Result
	return true
}

// PlayHand applies a rock-paper-scissors choice. Against the bot the
// round resolves immediately; against a human it resolves once both
// choices are in.
func (s *Session) PlayHand(userID string, hand rps.Hand) (MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return MoveResult{}, ErrNotActive
	}
	if _, ok := s.Seat(userID); !ok {
		return MoveResult{}, ErrNotParticipant
	}
	if _, chosen := s.choices[userID]; chosen {
		return MoveResult{}, ErrAlreadyChosen
	}
	s.choices[userID] = hand

	res := MoveResult{BotCell: -1}
	if s.PlayedVs == VsBot {
		botHand := rps.BotChoice(s.rng)
		res.BotMoved = true
		res.BotHand = botHand
		s.resolveRound(hand, botHand, &res)
		return res, nil
	}

	if len(s.choices) == len(s.Players) {
		s.resolveRound(s.choices[s.Players[0]], s.choices[s.Players[1]], &res)
	}
	return res, nil
}

func (s *Session) resolveRound(a, b rps.Hand, res *MoveResult) {
	switch rps.Resolve(a, b) {
	case rps.ResultAWins:
		res.Ended, res.Winner, res.Result = true, s.Players[0], "a"
	case rps.ResultBWins:
		res.Ended, res.Winner, res.Result = true, s.seat1ID(), "b"
	default:
		res.Ended, res.Winner, res.Result = true, "", "draw"
	}
	s.status = StatusFinished
	s.finalWinner, s.finalResult = res.Winner, res.Result
	s.finalBotHand = res.BotHand
}

// Quit forfeits the match: the remaining participant (or the bot) wins.
// Quitting a finished match reports ok=false and changes nothing.
func (s *Session) Quit(userID string) (winner string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat, isP := s.Seat(userID)
	if !isP {
		return "", false, ErrNotParticipant
	}
	if s.status == StatusFinished {
		return "", false, nil
	}
	if s.PlayedVs == VsBot {
		winner = BotID
	} else {
		winner = s.Players[1-seat]
	}
	s.status = StatusFinished
	s.finalWinner, s.finalResult = winner, "forfeit"
	return winner, true, nil
}

// Outcome reports the terminal result once the session has finished.
// The bot's hand is included for rps bot matches.
func (s *Session) Outcome() (winner, result string, botHand rps.Hand, finished bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusFinished {
		return "", "", "", false
	}
	return s.finalWinner, s.finalResult, s.finalBotHand, true
}

// RequestRematch records a participant's rematch request. both reports
// whether every participant has now requested one; the caller creates
// the new session and the record is cleared.
func (s *Session) RequestRematch(userID string) (both bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.Seat(userID); !ok {
		return false, ErrNotParticipant
	}
	s.rematch[userID] = true
	for _, p := range s.Players {
		if !s.rematch[p] {
			return false, nil
		}
	}
	s.rematch = make(map[string]bool)
	return true, nil
}

func (s *Session) seat1ID() string {
	if s.PlayedVs == VsBot {
		return BotID
	}
	return s.Players[1]
}

func seatMark(seat int) tictactoe.Mark {
	if seat == 0 {
		return tictactoe.MarkX
	}
	return tictactoe.MarkO
}

// PlayerInfo pairs a participant id with a display name.
type PlayerInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// View is the full session state as sent to one participant. Open rps
// rounds mask the opponent's concrete hand behind a chosen flag.
type View struct {
	MatchID    string             `json:"matchId"`
	GameType   game.Type          `json:"gameType"`
	PlayedVs   PlayedVs           `json:"playedVs"`
	Status     Status             `json:"status"`
	Seat       int                `json:"seat"`
	Players    []PlayerInfo       `json:"players"`
	Difficulty game.Difficulty    `json:"difficulty,omitempty"`
	Board      *tictactoe.Board   `json:"board,omitempty"`
	Turn       int                `json:"turn"`
	Chosen     map[string]bool     `json:"chosen,omitempty"`
	Hands      map[string]rps.Hand `json:"hands,omitempty"`
}

// ViewFor builds the state snapshot for one participant. Display names
// are filled in by the caller.
func (s *Session) ViewFor(userID string) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat, _ := s.Seat(userID)
	v := View{
		MatchID:  s.ID,
		GameType: s.GameType,
		PlayedVs: s.PlayedVs,
		Status:   s.status,
		Seat:     seat,
		Turn:     s.turn,
	}
	if s.PlayedVs == VsBot {
		v.Difficulty = s.Difficulty
	}
	switch s.GameType {
	case game.TicTacToe:
		board := s.board
		v.Board = &board
	case game.RPS:
		if s.status == StatusFinished {
			v.Hands = make(map[string]rps.Hand, len(s.choices))
			for id, h := range s.choices {
				v.Hands[id] = h
			}
		} else {
			v.Chosen = make(map[string]bool, len(s.choices))
			for id := range s.choices {
				v.Chosen[id] = true
			}
		}
	}
	return v
}
