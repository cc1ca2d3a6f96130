package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"premiere-bridge/internal/bootstrap"
)

const listenAddr = "127.0.0.1:3001"

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(log)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}

	log.Info().Str("version", bootstrap.Version).Msg("premiere bridge starting")
	if err := app.Run(ctx, listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("bridge exited")
	}
}
