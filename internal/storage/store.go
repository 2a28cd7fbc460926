// Package storage persists users, per-game records and match outcomes
// in SQLite.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"arcade/internal/game"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// User is an account row.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// MatchRow is a persisted match record.
type MatchRow struct {
	ID         string
	GameType   game.Type
	Status     string          // "active" or "finished"
	Player0    string
	Player1    *string         // nil for bot matches
	PlayedVs   string          // "human" or "bot"
	Difficulty game.Difficulty // empty for human matches
	Winner     *string         // user id, the bot sentinel, or nil for a draw
	CreatedAt  time.Time
}

// Players returns the seat-ordered participant ids.
func (m *MatchRow) Players() []string {
	if m.Player1 == nil {
		return []string{m.Player0}
	}
	return []string{m.Player0, *m.Player1}
}

// LeaderboardRow is one leaderboard entry.
type LeaderboardRow struct {
	Username    string `json:"username"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
	Draws       int    `json:"draws"`
	Elo         int    `json:"elo"`
	GamesPlayed int    `json:"gamesPlayed"`
}

// Store handles SQLite persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS stats (
			user_id      TEXT NOT NULL REFERENCES users(id),
			game_type    TEXT NOT NULL,
			wins         INTEGER NOT NULL DEFAULT 0,
			losses       INTEGER NOT NULL DEFAULT 0,
			draws        INTEGER NOT NULL DEFAULT 0,
			games_played INTEGER NOT NULL DEFAULT 0,
			elo          INTEGER NOT NULL DEFAULT 1000,
			PRIMARY KEY (user_id, game_type)
		);
		CREATE TABLE IF NOT EXISTS matches (
			id         TEXT PRIMARY KEY,
			game_type  TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'active',
			player0    TEXT NOT NULL,
			player1    TEXT,
			played_vs  TEXT NOT NULL,
			difficulty TEXT NOT NULL DEFAULT '',
			winner     TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

// CreateUser inserts a new account.
func (s *Store) CreateUser(id, email, username, passwordHash string) error {
	_, err := s.db.Exec(
		"INSERT INTO users (id, email, username, password_hash) VALUES (?, ?, ?, ?)",
		id, email, username, passwordHash,
	)
	return err
}

// FindUser looks up an account by email or username.
func (s *Store) FindUser(identifier string) (*User, error) {
	row := s.db.QueryRow(
		"SELECT id, email, username, password_hash, created_at FROM users WHERE email = ? OR username = ?",
		identifier, identifier,
	)
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UserExists reports whether an account with the email or username exists.
func (s *Store) UserExists(email, username string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM users WHERE email = ? OR username = ?",
		email, username,
	).Scan(&n)
	return n > 0, err
}

// GetUsername returns the display name for a user id.
func (s *Store) GetUsername(userID string) (string, error) {
	var name string
	err := s.db.QueryRow("SELECT username FROM users WHERE id = ?", userID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return name, err
}

// CreateMatch inserts an active match record.
func (s *Store) CreateMatch(id string, gameType game.Type, player0 string, player1 *string, playedVs string, difficulty game.Difficulty) error {
	_, err := s.db.Exec(
		"INSERT INTO matches (id, game_type, status, player0, player1, played_vs, difficulty) VALUES (?, ?, 'active', ?, ?, ?, ?)",
		id, string(gameType), player0, player1, playedVs, string(difficulty),
	)
	return err
}

// GetMatch retrieves a match record.
func (s *Store) GetMatch(id string) (*MatchRow, error) {
	row := s.db.QueryRow(
		"SELECT id, game_type, status, player0, player1, played_vs, difficulty, winner, created_at FROM matches WHERE id = ?",
		id,
	)
	var m MatchRow
	var gt, diff string
	if err := row.Scan(&m.ID, &gt, &m.Status, &m.Player0, &m.Player1, &m.PlayedVs, &diff, &m.Winner, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	m.GameType = game.Type(gt)
	m.Difficulty = game.Difficulty(diff)
	return &m, nil
}

// FinalizeMatch marks a match finished with its winner (nil for a draw).
// Idempotent: once finished, later calls change nothing and report false.
func (s *Store) FinalizeMatch(id string, winner *string) (bool, error) {
	res, err := s.db.Exec(
		"UPDATE matches SET status = 'finished', winner = ? WHERE id = ? AND status != 'finished'",
		winner, id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetRating returns a player's rating for a game type, defaulting to the
// baseline when no record exists.
func (s *Store) GetRating(userID string, gameType game.Type) (int, error) {
	var elo int
	err := s.db.QueryRow(
		"SELECT elo FROM stats WHERE user_id = ? AND game_type = ?",
		userID, string(gameType),
	).Scan(&elo)
	if errors.Is(err, sql.ErrNoRows) {
		return 1000, nil
	}
	return elo, err
}

// ApplyOutcome increments a player's win/loss/draw counters for one game
// and sets the new rating.
func (s *Store) ApplyOutcome(userID string, gameType game.Type, outcome string, newElo int) error {
	var w, l, d int
	switch outcome {
	case "win":
		w = 1
	case "loss":
		l = 1
	case "draw":
		d = 1
	default:
		return fmt.Errorf("unknown outcome %q", outcome)
	}
	_, err := s.db.Exec(`
		INSERT INTO stats (user_id, game_type, wins, losses, draws, games_played, elo)
		VALUES (?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(user_id, game_type) DO UPDATE SET
			wins = wins + excluded.wins,
			losses = losses + excluded.losses,
			draws = draws + excluded.draws,
			games_played = games_played + 1,
			elo = excluded.elo
	`, userID, string(gameType), w, l, d, newElo)
	return err
}

// Leaderboard returns the top players for a game type, sorted by elo or
// wins. Players without a record rank at the baseline with zero games.
func (s *Store) Leaderboard(gameType game.Type, sortKey string, limit int) ([]LeaderboardRow, error) {
	if sortKey != "wins" {
		sortKey = "elo"
	}
	if limit <= 0 {
		limit = 50
	} else if limit > 100 {
		limit = 100
	}
	// sortKey is constrained above, safe to interpolate
	q := fmt.Sprintf(`
		SELECT u.username,
		       COALESCE(s.wins, 0), COALESCE(s.losses, 0), COALESCE(s.draws, 0),
		       COALESCE(s.elo, 1000), COALESCE(s.games_played, 0)
		FROM users u
		LEFT JOIN stats s ON s.user_id = u.id AND s.game_type = ?
		ORDER BY COALESCE(s.%s, %d) DESC, COALESCE(s.games_played, 0) DESC, u.username ASC
		LIMIT ?
	`, sortKey, defaultFor(sortKey))
	rows, err := s.db.Query(q, string(gameType), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []LeaderboardRow
	for rows.Next() {
		var r LeaderboardRow
		if err := rows.Scan(&r.Username, &r.Wins, &r.Losses, &r.Draws, &r.Elo, &r.GamesPlayed); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func defaultFor(sortKey string) int {
	if sortKey == "elo" {
		return 1000
	}
	return 0
}

// GlobalStats aggregates totals for the public stats endpoint: wins
// across both games and the average of each user's mean rating.
func (s *Store) GlobalStats() (totalWins int, avgRating float64, err error) {
	rows, err := s.db.Query(`
		SELECT COALESCE(t.wins, 0) + COALESCE(r.wins, 0),
		       (COALESCE(t.elo, 1000) + COALESCE(r.elo, 1000)) / 2.0
		FROM users u
		LEFT JOIN stats t ON t.user_id = u.id AND t.game_type = 'ttt'
		LEFT JOIN stats r ON r.user_id = u.id AND r.game_type = 'rps'
	`)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()
	var sum float64
	var n int
	for rows.Next() {
		var wins int
		var mean float64
		if err := rows.Scan(&wins, &mean); err != nil {
			return 0, 0, err
		}
		totalWins += wins
		sum += mean
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, 0, err
	}
	avgRating = 1000
	if n > 0 {
		avgRating = float64(int(sum/float64(n)*10+0.5)) / 10
	}
	return totalWins, avgRating, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
