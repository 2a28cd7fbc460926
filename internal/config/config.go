// Package config reads server settings from the environment.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all server settings.
type Config struct {
	Addr        string
	DBPath      string
	JWTSecret   string
	TokenTTL    time.Duration
	CORSOrigins []string

	// QueueSuggestAfter is how long a player waits in the matchmaking
	// queue before a bot opponent is suggested.
	QueueSuggestAfter time.Duration
	// CodeTTL is the lifetime of an unused join code.
	CodeTTL time.Duration
	// RematchWindow is how long a finished session stays around to
	// accept rematch requests.
	RematchWindow time.Duration
}

// Load reads configuration, taking an optional .env file into account.
func Load() Config {
	godotenv.Load()

	return Config{
		Addr:              ":" + getenv("PORT", "8080"),
		DBPath:            getenv("DB_PATH", "arcade.db"),
		JWTSecret:         getenv("JWT_SECRET", "change_me_access"),
		TokenTTL:          getduration("TOKEN_TTL", 2*time.Hour),
		CORSOrigins:       getlist("CORS_ORIGIN", []string{"http://localhost:3000"}),
		QueueSuggestAfter: getduration("QUEUE_SUGGEST_AFTER", 12*time.Second),
		CodeTTL:           getduration("CODE_TTL", 5*time.Minute),
		RematchWindow:     getduration("REMATCH_WINDOW", time.Minute),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getlist(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
