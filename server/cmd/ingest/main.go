package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/obsidianstack/logship/pkg/sharedkey"
	"github.com/obsidianstack/logship/server/internal/api"
	"github.com/obsidianstack/logship/server/internal/auth"
	"github.com/obsidianstack/logship/server/internal/config"
	"github.com/obsidianstack/logship/server/internal/receiver"
	"github.com/obsidianstack/logship/server/internal/store"
	"github.com/obsidianstack/logship/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("logship-ingest starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"customer_id", cfg.Server.Auth.CustomerID,
		"record_ttl", cfg.Server.Records.TTL,
		"fail_first", cfg.Server.FailFirst,
	)

	// Signature verification is skipped entirely in "none" mode.
	var signer *sharedkey.Signer
	if cfg.Server.Auth.Enabled() {
		signer, err = sharedkey.New(cfg.Server.Auth.CustomerID, cfg.Server.Auth.Key())
		if err != nil {
			slog.Error("invalid shared key", "err", err)
			os.Exit(1)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Record store with background TTL eviction.
	st := store.New(cfg.Server.Records.TTL, cfg.Server.Records.Max)
	go st.Run(ctx)

	// WebSocket hub: accepted records live, health every 5 seconds.
	hub := ws.New(st, 5*time.Second)
	go hub.Run(ctx)

	rcv := receiver.New(st, cfg.Server.FailFirst)
	rcv.SetPublisher(hub)

	mux := http.NewServeMux()
	mux.Handle("/api/logs", auth.SharedKey(signer, cfg.Server.Auth.MaxSkew)(rcv))
	mux.Handle("/api/v1/", api.New(st))
	mux.Handle("/ws/stream", hub)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("logship-ingest shutting down", "records_accepted", st.Total())
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	httpSrv.Shutdown(shutCtx) //nolint:errcheck
}
