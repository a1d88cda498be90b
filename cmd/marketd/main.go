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
	"strings"
	"syscall"
	"time"

	"marketd/config"
	"marketd/core/events"
	"marketd/core/types"
	"marketd/native/counter"
	"marketd/native/custody"
	"marketd/native/ledger"
	"marketd/native/market"
	"marketd/native/pricing"
	"marketd/observability/logging"
	"marketd/rpc"
	"marketd/state"
	"marketd/storage"
)

const envVar = "MARKETD_ENV"

// logEmitter forwards engine events to the structured logger.
type logEmitter struct {
	logger *slog.Logger
}

func (e logEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	args := []any{"type", evt.EventType()}
	if carrier, ok := evt.(interface{ Event() *types.Event }); ok {
		if inner := carrier.Event(); inner != nil {
			for key, value := range inner.Attributes {
				args = append(args, key, value)
			}
		}
	}
	e.logger.Info("event", args...)
}

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envVar))

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if env == "" {
		env = cfg.Env
	}

	var logger *slog.Logger
	if strings.TrimSpace(cfg.LogPath) != "" {
		logger = logging.SetupWithRotation("marketd", env, cfg.LogPath)
	} else {
		logger = logging.Setup("marketd", env)
	}

	policy, err := cfg.Snapshot()
	if err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	manager := state.NewManager(db)
	counters := counter.NewAllocator(manager)
	for _, namespace := range []string{"asset", "hold", market.KindSale, market.KindAuction, market.KindBuyOffer} {
		if last, err := counters.Peek(namespace); err == nil && last > 0 {
			logger.Info("restored id counter", "namespace", namespace, "last", last)
		}
	}
	emitter := logEmitter{logger: logger.With("component", "events")}

	ledgerEngine := ledger.NewEngine()
	ledgerEngine.SetState(manager)
	ledgerEngine.SetEmitter(emitter)

	registry := custody.NewRegistry(counters)
	registry.SetState(manager)
	registry.SetEmitter(emitter)

	feed := pricing.NewTableFeed()
	for _, pair := range cfg.Pairs {
		feed.RegisterPair(strings.TrimSpace(pair.ID), pair.QuotePrecision)
	}

	marketEngine := market.NewEngine(ledgerEngine, pricing.NewAdapter(feed), counters)
	marketEngine.SetState(manager)
	marketEngine.SetCustody(registry)
	marketEngine.SetCollections(registry)
	marketEngine.SetEmitter(emitter)

	server := rpc.NewServer(ledgerEngine, marketEngine, registry, feed, policy, logger)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting JSON-RPC server", "addr", cfg.ListenAddress)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("JSON-RPC server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
	logger.Info("marketd stopped")
}
