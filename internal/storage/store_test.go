package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"arcade/internal/game"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndFindUser(t *testing.T) {
	s := newTestStore(t)

	if err := s.CreateUser("u1", "alice@example.com", "alice", "hash"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	byEmail, err := s.FindUser("alice@example.com")
	if err != nil {
		t.Fatalf("FindUser by email: %v", err)
	}
	if byEmail.ID != "u1" || byEmail.Username != "alice" {
		t.Errorf("got %+v", byEmail)
	}

	byName, err := s.FindUser("alice")
	if err != nil {
		t.Fatalf("FindUser by username: %v", err)
	}
	if byName.ID != "u1" {
		t.Errorf("got id %q, want u1", byName.ID)
	}

	if _, err := s.FindUser("nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUserExists(t *testing.T) {
	s := newTestStore(t)

	if err := s.CreateUser("u1", "alice@example.com", "alice", "hash"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	for _, tc := range []struct {
		email, username string
		want            bool
	}{
		{"alice@example.com", "other", true},
		{"other@example.com", "alice", true},
		{"other@example.com", "other", false},
	} {
		got, err := s.UserExists(tc.email, tc.username)
		if err != nil {
			t.Fatalf("UserExists(%s, %s): %v", tc.email, tc.username, err)
		}
		if got != tc.want {
			t.Errorf("UserExists(%s, %s) = %v, want %v", tc.email, tc.username, got, tc.want)
		}
	}
}

func TestGetUsername(t *testing.T) {
	s := newTestStore(t)

	if err := s.CreateUser("u1", "alice@example.com", "alice", "hash"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	name, err := s.GetUsername("u1")
	if err != nil || name != "alice" {
		t.Errorf("GetUsername = %q, %v", name, err)
	}
	if _, err := s.GetUsername("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMatchLifecycle(t *testing.T) {
	s := newTestStore(t)

	p1 := "u2"
	if err := s.CreateMatch("m1", game.TicTacToe, "u1", &p1, "human", ""); err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}

	m, err := s.GetMatch("m1")
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if m.Status != "active" || m.Winner != nil {
		t.Errorf("new match should be active with no winner, got %+v", m)
	}
	if got := m.Players(); len(got) != 2 || got[0] != "u1" || got[1] != "u2" {
		t.Errorf("Players() = %v", got)
	}

	winner := "u1"
	applied, err := s.FinalizeMatch("m1", &winner)
	if err != nil {
		t.Fatalf("FinalizeMatch: %v", err)
	}
	if !applied {
		t.Fatal("first finalize should apply")
	}

	// the second finalize loses, even with a different winner
	other := "u2"
	applied, err = s.FinalizeMatch("m1", &other)
	if err != nil {
		t.Fatalf("FinalizeMatch again: %v", err)
	}
	if applied {
		t.Error("second finalize should be a no-op")
	}

	m, err = s.GetMatch("m1")
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if m.Status != "finished" || m.Winner == nil || *m.Winner != "u1" {
		t.Errorf("first result must stand, got %+v", m)
	}
}

func TestBotMatchPlayers(t *testing.T) {
	s := newTestStore(t)

	if err := s.CreateMatch("m1", game.RPS, "u1", nil, "bot", game.Hard); err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	m, err := s.GetMatch("m1")
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if got := m.Players(); len(got) != 1 || got[0] != "u1" {
		t.Errorf("Players() = %v", got)
	}
	if m.Difficulty != game.Hard {
		t.Errorf("difficulty = %q, want hard", m.Difficulty)
	}
}

func TestFinalizeDraw(t *testing.T) {
	s := newTestStore(t)

	if err := s.CreateMatch("m1", game.RPS, "u1", nil, "bot", game.Easy); err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	if _, err := s.FinalizeMatch("m1", nil); err != nil {
		t.Fatalf("FinalizeMatch: %v", err)
	}
	m, err := s.GetMatch("m1")
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if m.Winner != nil {
		t.Errorf("draw should persist a NULL winner, got %q", *m.Winner)
	}
}

func TestGetMatchNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetMatch("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRatingDefaultsToBaseline(t *testing.T) {
	s := newTestStore(t)

	elo, err := s.GetRating("u1", game.TicTacToe)
	if err != nil {
		t.Fatalf("GetRating: %v", err)
	}
	if elo != 1000 {
		t.Errorf("got %d, want 1000", elo)
	}
}

func TestApplyOutcomeAccumulates(t *testing.T) {
	s := newTestStore(t)

	if err := s.CreateUser("u1", "alice@example.com", "alice", "hash"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := s.ApplyOutcome("u1", game.TicTacToe, "win", 1016); err != nil {
		t.Fatalf("ApplyOutcome: %v", err)
	}
	if err := s.ApplyOutcome("u1", game.TicTacToe, "loss", 1001); err != nil {
		t.Fatalf("ApplyOutcome: %v", err)
	}
	if err := s.ApplyOutcome("u1", game.TicTacToe, "draw", 1002); err != nil {
		t.Fatalf("ApplyOutcome: %v", err)
	}

	rows, err := s.Leaderboard(game.TicTacToe, "elo", 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows", len(rows))
	}
	r := rows[0]
	if r.Wins != 1 || r.Losses != 1 || r.Draws != 1 || r.GamesPlayed != 3 || r.Elo != 1002 {
		t.Errorf("got %+v", r)
	}

	if err := s.ApplyOutcome("u1", game.TicTacToe, "bogus", 1000); err == nil {
		t.Error("unknown outcome should error")
	}
}

func TestOutcomesSeparatePerGame(t *testing.T) {
	s := newTestStore(t)

	if err := s.CreateUser("u1", "alice@example.com", "alice", "hash"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.ApplyOutcome("u1", game.TicTacToe, "win", 1016); err != nil {
		t.Fatalf("ApplyOutcome: %v", err)
	}

	elo, err := s.GetRating("u1", game.RPS)
	if err != nil {
		t.Fatalf("GetRating: %v", err)
	}
	if elo != 1000 {
		t.Errorf("rps rating should stay at baseline, got %d", elo)
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	s := newTestStore(t)

	users := []struct {
		id, name string
		elo      int
		wins     int
	}{
		{"u1", "alice", 1100, 2},
		{"u2", "bob", 1200, 1},
		{"u3", "carol", 1050, 5},
	}
	for _, u := range users {
		if err := s.CreateUser(u.id, u.name+"@example.com", u.name, "hash"); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		for i := 0; i < u.wins; i++ {
			if err := s.ApplyOutcome(u.id, game.TicTacToe, "win", u.elo); err != nil {
				t.Fatalf("ApplyOutcome: %v", err)
			}
		}
	}

	byElo, err := s.Leaderboard(game.TicTacToe, "elo", 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if byElo[0].Username != "bob" || byElo[1].Username != "alice" || byElo[2].Username != "carol" {
		t.Errorf("elo order wrong: %+v", byElo)
	}

	byWins, err := s.Leaderboard(game.TicTacToe, "wins", 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if byWins[0].Username != "carol" || byWins[1].Username != "alice" || byWins[2].Username != "bob" {
		t.Errorf("wins order wrong: %+v", byWins)
	}
}

func TestLeaderboardIncludesUnrankedUsers(t *testing.T) {
	s := newTestStore(t)

	if err := s.CreateUser("u1", "alice@example.com", "alice", "hash"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	rows, err := s.Leaderboard(game.TicTacToe, "elo", 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[0].Elo != 1000 || rows[0].GamesPlayed != 0 {
		t.Errorf("unranked user should sit at baseline, got %+v", rows[0])
	}
}

func TestLeaderboardLimitCaps(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 120; i++ {
		id := fmt.Sprintf("u%03d", i)
		if err := s.CreateUser(id, id+"@example.com", id, "hash"); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}

	rows, err := s.Leaderboard(game.TicTacToe, "elo", 500)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(rows) != 100 {
		t.Errorf("limit 500 should cap at 100 rows, got %d", len(rows))
	}

	rows, err = s.Leaderboard(game.TicTacToe, "elo", 0)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(rows) != 50 {
		t.Errorf("limit 0 should default to 50 rows, got %d", len(rows))
	}
}

func TestGlobalStats(t *testing.T) {
	s := newTestStore(t)

	if err := s.CreateUser("u1", "alice@example.com", "alice", "hash"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.CreateUser("u2", "bob@example.com", "bob", "hash"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.ApplyOutcome("u1", game.TicTacToe, "win", 1100); err != nil {
		t.Fatalf("ApplyOutcome: %v", err)
	}
	if err := s.ApplyOutcome("u1", game.RPS, "win", 1100); err != nil {
		t.Fatalf("ApplyOutcome: %v", err)
	}

	wins, avg, err := s.GlobalStats()
	if err != nil {
		t.Fatalf("GlobalStats: %v", err)
	}
	if wins != 2 {
		t.Errorf("total wins = %d, want 2", wins)
	}
	// u1 averages 1100, u2 sits at the 1000 baseline
	if avg != 1050 {
		t.Errorf("avg rating = %v, want 1050", avg)
	}
}
