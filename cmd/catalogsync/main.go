package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/catalogsync/internal/cloud"
	"github.com/iudanet/catalogsync/internal/config"
	"github.com/iudanet/catalogsync/internal/crdt"
	"github.com/iudanet/catalogsync/internal/logger"
	"github.com/iudanet/catalogsync/internal/metrics"
	"github.com/iudanet/catalogsync/internal/server"
	"github.com/iudanet/catalogsync/internal/server/handlers"
	"github.com/iudanet/catalogsync/internal/storage/boltdb"
	"github.com/iudanet/catalogsync/internal/storage/sqlite"
	syncmgr "github.com/iudanet/catalogsync/internal/sync"
	"github.com/iudanet/catalogsync/internal/transport/peer"
	"github.com/iudanet/catalogsync/internal/transport/ws"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if cfg.ShowVersion {
		printVersion()
		os.Exit(0)
	}

	log, err := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Instance stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	state, err := boltdb.New(ctx, cfg.StatePath)
	if err != nil {
		return fmt.Errorf("failed to open state: %w", err)
	}
	defer func() {
		if err := state.Close(); err != nil {
			log.Error("Failed to close state", "error", err)
		}
	}()

	store, err := sqlite.New(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close catalog", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	met := metrics.New(reg)

	manager, err := syncmgr.New(ctx, syncmgr.Deps{
		Local:    store.Local(),
		Cloud:    store.Cloud(),
		Ingester: store,
		State:    state,
	}, log, syncmgr.WithMetrics(met), syncmgr.WithClockOptions(crdt.WithMaxDrift(cfg.MaxClockDrift)))
	if err != nil {
		return fmt.Errorf("failed to start sync manager: %w", err)
	}
	defer func() {
		if err := manager.Close(); err != nil {
			log.Error("Failed to close sync manager", "error", err)
		}
	}()

	if err := store.RegisterInstance(ctx, manager.Instance(), cfg.InstanceName); err != nil {
		return err
	}
	log = log.With("instance", manager.Instance(), "name", cfg.InstanceName)
	log.Info("Starting catalogsync", "version", Version, "listen", cfg.ListenAddr, "peers", len(cfg.Peers))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return manager.Run(ctx) })

	routes := server.Routes{
		Health:  handlers.NewHealthHandler(log, store.DB(), manager.Instance(), Version),
		Ops:     handlers.NewOpsHandler(log, manager, cfg.BatchSize),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}

	if cfg.Cloud.Enabled {
		bridge := cloud.NewBridge(manager, log,
			cloud.WithMetrics(met),
			cloud.WithCycleLimit(cfg.Cloud.Interval, 1),
			cloud.WithBatchSize(cfg.Cloud.BatchSize))
		routes.Relay = handlers.NewRelayHandler(log, cloud.NewReceiver(store.Cloud(), manager.Clock(), bridge, log, met))
		g.Go(func() error { return bridge.Run(ctx) })
	}

	peers := ws.NewServer(manager, log, ws.WithMaxCount(cfg.BatchSize), ws.WithName(cfg.InstanceName))
	routes.Peers = peers
	router := server.NewRouter(routes, log, cfg.RateLimit)
	srv := server.New(cfg.ListenAddr, router, peers, log)
	g.Go(func() error { return srv.Run(ctx) })

	for _, url := range cfg.Peers {
		link := ws.NewLink(url, manager, log,
			ws.WithSessionOptions(
				peer.WithBatchSize(cfg.BatchSize),
				peer.WithRequestTimeout(cfg.RequestTimeout),
			),
			ws.WithOnConnect(func(ctx context.Context, remote uuid.UUID, name string) error {
				return store.RegisterInstance(ctx, remote, name)
			}))
		g.Go(func() error { return link.Run(ctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("Catalogsync stopped")
	return nil
}

func printVersion() {
	fmt.Printf("catalogsync\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
