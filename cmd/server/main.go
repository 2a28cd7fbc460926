package main

import (
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"arcade/internal/auth"
	"arcade/internal/config"
	"arcade/internal/hub"
	"arcade/internal/server"
	"arcade/internal/storage"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	cfg := config.Load()

	store, err := storage.New(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer store.Close()

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	h := hub.New(logger, store, hub.Options{
		QueueSuggestAfter: cfg.QueueSuggestAfter,
		CodeTTL:           cfg.CodeTTL,
		RematchWindow:     cfg.RematchWindow,
	})

	srv := server.New(logger, h, store, tokens, cfg.CORSOrigins)

	logger.Info().Str("addr", cfg.Addr).Msg("listening")
	if err := http.ListenAndServe(cfg.Addr, srv); err != nil {
		logger.Fatal().Err(err).Msg("server")
	}
}
