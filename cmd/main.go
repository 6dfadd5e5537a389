/*
Package main is the entry point for the Lounge chat server.

It loads configuration, initializes the global logger, opens the Directory, starts the chat
Gateway behind the HTTP router and gracefully handles SIGINT and SIGTERM: the HTTP server stops
accepting requests, open chat connections are closed with their leave broadcasts, and the
Directory is released last.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"lounge/internal/app/chat"
	"lounge/internal/app/db"
	"lounge/internal/app/directory"
	"lounge/internal/app/presence"
	"lounge/internal/app/room"
	"lounge/internal/configs"
	"lounge/internal/handler"
	"lounge/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment(), cfg.LogLevel)
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("directory_driver", cfg.DirectoryDriver).
		Strs("rooms", cfg.Rooms).
		Bool("token_binding", cfg.IdentityTokenSecret != "").
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir, err := openDirectory(ctx, cfg)
	if err != nil {
		logx.Fatal(err, "Failed to open directory")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gateway := chat.NewGateway(chat.Options{
		Rooms:      room.NewRegistry(cfg.Rooms),
		Directory:  dir,
		Presence:   presence.NewTable(),
		Registerer: registry,
	})

	handshakeLimiter := handler.NewHandshakeLimiter()
	defer handshakeLimiter.Stop()

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Gateway:          gateway,
		Config:           cfg,
		Metrics:          registry,
		HandshakeLimiter: handshakeLimiter,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Lounge chat server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	// Hijacked WebSocket connections are not tracked by the server; the gateway closes them.
	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "HTTP server forced to shutdown")
	}

	if err := gateway.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Gateway forced to shutdown")
	}

	if err := dir.Close(); err != nil {
		logx.Error(err, "Failed to close directory")
	}

	logx.Info("Server gracefully stopped.")
}

// openDirectory connects the Directory selected by cfg.DirectoryDriver.
func openDirectory(ctx context.Context, cfg *configs.AppConfig) (directory.Directory, error) {
	switch cfg.DirectoryDriver {
	case configs.DirectoryPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return directory.NewPostgres(pool), nil

	case configs.DirectorySQLite:
		return directory.OpenSQLite(cfg.SQLitePath)

	default:
		return nil, fmt.Errorf("unsupported directory driver %q", cfg.DirectoryDriver)
	}
}
