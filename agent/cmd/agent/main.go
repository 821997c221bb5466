package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/obsidianstack/logship/agent/internal/config"
	"github.com/obsidianstack/logship/agent/internal/logsink"
	"github.com/obsidianstack/logship/agent/internal/metrics"
	"github.com/obsidianstack/logship/agent/internal/security"
	"github.com/obsidianstack/logship/agent/internal/shipper"
	"github.com/obsidianstack/logship/agent/internal/tail"
	"github.com/obsidianstack/logship/pkg/types"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional; AZURE_LOG_* env vars are always read)")
	flag.Parse()

	console := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(console))

	slog.Info("logship-agent starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	console = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)})
	base := slog.New(console)
	slog.SetDefault(base)

	slog.Info("config loaded",
		"customer_id", cfg.Workspace.CustomerID,
		"endpoint", cfg.Workspace.BaseURL(),
		"sources", len(cfg.Sources),
		"send_frequency", cfg.Shipper.SendFrequency,
		"max_concurrent_requests", cfg.Shipper.MaxConcurrentRequests,
	)

	ship, err := shipper.New(cfg,
		shipper.WithLogger(base),
		shipper.WithErrorHandler(func(rec types.Record, err error) {
			slog.Debug("delivery failed, will retry", "record", rec.ID, "err", err)
		}),
	)
	if err != nil {
		slog.Error("failed to build shipper", "err", err)
		os.Exit(1)
	}

	// The shipper itself keeps logging to the console only, so its own
	// failures never feed back into the queue.
	if cfg.Log.Ship {
		sink := logsink.NewHandler(ship, &logsink.Options{Level: slog.LevelWarn, LogType: cfg.Log.LogType})
		slog.SetDefault(slog.New(logsink.Tee(console, sink)))
		slog.Info("shipping agent warnings and errors", "log_type", cfg.Log.LogType)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Certificate preflight. Delivery starts regardless; failures are retried.
	go func() {
		cs := security.Check(ctx, cfg.Workspace, cfg.Shipper.TLS)
		switch {
		case cs == nil:
		case cs.Status == "valid":
			slog.Info("endpoint certificate ok", "endpoint", cs.Endpoint, "issuer", cs.Issuer, "days_left", cs.DaysLeft)
		default:
			slog.Warn("endpoint certificate problem",
				"endpoint", cs.Endpoint,
				"status", cs.Status,
				"days_left", cs.DaysLeft,
			)
		}
	}()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ship.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("shipper stopped", "err", err)
		}
	}()

	for _, src := range cfg.Sources {
		f := tail.ForSource(src, ship)
		slog.Info("registered source", "id", src.ID, "path", src.Path, "log_type", src.LogType)
		wg.Add(1)
		go func(src config.Source) {
			defer wg.Done()
			if err := f.Run(ctx); err != nil {
				slog.Error("source stopped", "source", src.ID, "err", err)
			}
		}(src)
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(ship))
		metricsSrv = &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("metrics listening", "addr", cfg.Metrics.Listen)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server error", "err", err)
			}
		}()
	}

	<-ctx.Done()
	slog.Info("logship-agent shutting down", "pending", ship.Pending())
	wg.Wait()

	if metricsSrv != nil {
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsSrv.Shutdown(shutCtx)
		shutCancel()
	}

	// Give queued records one last chance. Anything still pending is lost.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), cfg.Shipper.ShutdownFlushTimeout)
	defer flushCancel()
	res := ship.Flush(flushCtx)
	slog.Info("final flush",
		"delivered", res.Delivered,
		"failed", res.Failed,
		"pending", ship.Pending(),
	)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
