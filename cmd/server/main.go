package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/courier/internal/adapters"
	router "github.com/dkeye/courier/internal/adapters/http"
	"github.com/dkeye/courier/internal/app"
	"github.com/dkeye/courier/internal/auth"
	"github.com/dkeye/courier/internal/config"
	"github.com/dkeye/courier/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := badger.Open(badger.DefaultOptions(cfg.DataDir).WithLogger(nil))
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("failed to open store")
	}
	defer db.Close()

	messages := storage.NewMessageStore(db)
	notifications := storage.NewNotificationStore(db)
	directory := storage.NewDirectory(db)

	registry := app.NewRegistry()
	rooms := app.NewRooms(registry)
	notifier := app.NewNotifier(registry, directory, notifications)
	msgRouter := app.NewRouter(registry, rooms, messages, directory, notifier)
	coordinator := app.NewCoordinator(
		auth.NewVerifier(cfg.Secret),
		registry,
		rooms,
		msgRouter,
		app.NewReadState(messages),
		app.NewSignaling(registry, rooms),
	)

	ctl := adapters.NewWSController(coordinator, cfg)
	r := router.SetupRouter(ctx, cfg, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Courier server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
