// Package server exposes the HTTP surface: account endpoints, the
// leaderboard and stats reads, and the websocket the hub speaks over.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"arcade/internal/auth"
	"arcade/internal/game"
	"arcade/internal/hub"
	"arcade/internal/storage"
)

// Server is the HTTP server.
type Server struct {
	mux     *http.ServeMux
	logger  zerolog.Logger
	hub     *hub.Hub
	store   *storage.Store
	tokens  *auth.Tokens
	origins []string
}

// New creates a server with all routes.
func New(logger zerolog.Logger, h *hub.Hub, store *storage.Store, tokens *auth.Tokens, origins []string) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger.With().Str("component", "http").Logger(),
		hub:     h,
		store:   store,
		tokens:  tokens,
		origins: origins,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /stats", s.handleStats)
	s.mux.HandleFunc("POST /auth/signup", s.handleSignup)
	s.mux.HandleFunc("POST /auth/login", s.handleLogin)
	s.mux.HandleFunc("GET /leaderboard", s.handleLeaderboard)
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if origin := r.Header.Get("Origin"); origin != "" && s.originAllowed(origin) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) originAllowed(origin string) bool {
	for _, o := range s.origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"service": "arcade",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	totalWins, avgRating, err := s.store.GlobalStats()
	if err != nil {
		s.logger.Error().Err(err).Msg("global stats")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"activePlayers": s.hub.OnlineCount(),
		"totalWins":     totalWins,
		"avgRating":     avgRating,
	})
}

type signupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "missing fields"})
		return
	}

	exists, err := s.store.UserExists(req.Email, req.Username)
	if err != nil {
		s.serverError(w, err, "check user")
		return
	}
	if exists {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "user exists"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.serverError(w, err, "hash password")
		return
	}
	id := uuid.NewString()
	if err := s.store.CreateUser(id, req.Email, req.Username, hash); err != nil {
		s.serverError(w, err, "create user")
		return
	}
	token, err := s.tokens.Issue(id, req.Username)
	if err != nil {
		s.serverError(w, err, "issue token")
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{
		Token: token,
		User:  userResponse{ID: id, Email: req.Email, Username: req.Username},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}
	identifier := strings.TrimSpace(req.Email)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Username)
	}
	if identifier == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "missing fields"})
		return
	}

	user, err := s.store.FindUser(identifier)
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
		return
	}
	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		s.serverError(w, err, "issue token")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		Token: token,
		User:  userResponse{ID: user.ID, Email: user.Email, Username: user.Username},
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	gameType := game.RPS
	if r.URL.Query().Get("game") != "rps" {
		gameType = game.TicTacToe
	}
	sortKey := "elo"
	if r.URL.Query().Get("sort") == "wins" {
		sortKey = "wins"
	}
	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}

	rows, err := s.store.Leaderboard(gameType, sortKey, limit)
	if err != nil {
		s.serverError(w, err, "leaderboard")
		return
	}
	if rows == nil {
		rows = []storage.LeaderboardRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"game": gameType,
		"sort": sortKey,
		"rows": rows,
	})
}

func (s *Server) serverError(w http.ResponseWriter, err error, msg string) {
	s.logger.Error().Err(err).Msg(msg)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "server error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
