package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/apibillme/biller/internal/broadcast"
	"github.com/apibillme/biller/internal/config"
	"github.com/apibillme/biller/internal/domain"
	"github.com/apibillme/biller/internal/logging"
	"github.com/apibillme/biller/internal/platform/retry"
	"github.com/apibillme/biller/internal/server"
	"github.com/apibillme/biller/internal/store"
	"github.com/apibillme/biller/internal/websocket"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupStore(cfg *config.Config) *store.Cell {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// A stale LOCK file after an unclean restart clears within a few
	// attempts; everything else is worth retrying once or twice too.
	policy := retry.Policy{
		MaxAttempts:    5,
		InitialBackoff: 200 * time.Millisecond,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Retrying store open", "attempt", attempt, "error", err, "backoff", backoff)
		},
	}
	classify := func(error) retry.Action { return retry.Retry }

	cell, err := retry.Do(ctx, policy, classify, func() (*store.Cell, error) {
		return store.Open(store.Config{
			Logger:    slog.Default(),
			Directory: cfg.DataDir,
		})
	})
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}

	if err := cell.Init(domain.RecordKey); err != nil {
		slog.Error("Failed to initialize record", "error", err)
		os.Exit(1)
	}

	return cell
}

func runGracefulShutdown(srv *server.Server, broadcaster *broadcast.Broadcaster, hub *websocket.Hub, cell *store.Cell) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		broadcaster.Stop()
		hub.Stop()

		if err := cell.Close(); err != nil {
			slog.Error("Failed to close store", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	cell := setupStore(cfg)

	broadcaster := broadcast.NewBroadcaster(clock)
	hub := websocket.NewHub(clock)

	srv := server.NewServer(cfg, cell, broadcaster, hub)

	done := runGracefulShutdown(srv, broadcaster, hub, cell)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
