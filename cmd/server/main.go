package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/iPrq/RealChatApp/internal/broker"
	"github.com/iPrq/RealChatApp/internal/config"
	"github.com/iPrq/RealChatApp/internal/relay"
	"github.com/iPrq/RealChatApp/internal/server"
	"github.com/iPrq/RealChatApp/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	logger := newLogger(cfg)

	ctx := context.Background()

	messageStore, err := store.OpenSQLite(ctx, cfg.DatabasePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("opening message store failed")
	}
	defer func() {
		if err := messageStore.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing message store failed")
		}
	}()

	topic := broker.NewTopic(logger)
	relaySvc := relay.NewRelay(messageStore, topic, logger)
	history := relay.NewHistory(messageStore)
	sessions := server.NewSessionManager(topic, relaySvc, cfg, logger)

	handler := server.NewHandler(sessions, history, messageStore, cfg.AllowedOrigins, logger)
	router := server.NewRouter(handler, cfg.AllowedOrigins, logger)
	srv := server.NewHTTPServer(cfg.Port, router)

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("database", cfg.DatabasePath).
			Msg("starting chat relay")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	if err := server.ShutdownHTTPServer(srv, shutdownTimeout); err != nil {
		logger.Warn().Err(err).Msg("http shutdown incomplete")
	}
	if err := sessions.Shutdown(shutdownTimeout); err != nil {
		logger.Warn().Err(err).Msg("session shutdown incomplete")
	}

	logger.Info().Msg("shutdown complete")
}

// newLogger builds the process logger: console output in development, JSON
// otherwise, with optional file rotation when LOG_FILE is set.
func newLogger(cfg *config.Config) zerolog.Logger {
	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    25,
			MaxBackups: 10,
			MaxAge:     14,
			Compress:   true,
		}
	} else if cfg.IsDevelopment() {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
