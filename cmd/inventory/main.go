package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/abgdnv/retailinventory/internal/app"
	"github.com/abgdnv/retailinventory/internal/config"
	"github.com/abgdnv/retailinventory/pkg/bootstrap"
	pkgconfig "github.com/abgdnv/retailinventory/pkg/config"
	"github.com/abgdnv/retailinventory/pkg/messaging"
	natsutil "github.com/abgdnv/retailinventory/pkg/nats"
	"github.com/abgdnv/retailinventory/pkg/server"
	"github.com/abgdnv/retailinventory/pkg/telemetry"
	"golang.org/x/sync/errgroup"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run loads the configuration, wires the stores, broker and services, and serves HTTP until ctx is cancelled.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	shutdownTracing, err := telemetry.Setup(ctx, app.ServiceName, version, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("Failed to flush traces", slog.String("error", err.Error()))
		}
	}()

	var stores app.Stores
	switch cfg.Database.Driver {
	case pkgconfig.DriverMemory:
		logger.Warn("Using the in-memory store, data is lost on restart")
		stores = app.NewInMemoryStores()
	default:
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return err
		}
		defer dbPool.Close()
		logger.Info("Successfully connected to the database!")
		stores = app.NewPgStores(dbPool)
	}

	var publisher messaging.Publisher
	if cfg.Nats.Enabled {
		nc, err := natsutil.NewClient(cfg.Nats, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := nc.Drain(); err != nil {
				logger.Error("Failed to drain NATS connection", slog.String("error", err.Error()))
			}
		}()
		js, err := natsutil.NewJetStreamContext(nc)
		if err != nil {
			return err
		}
		subjects := []string{
			messaging.ProductsDeletedSubject,
			messaging.ProductsRestoredSubject,
			messaging.StoresDeletedSubject,
			messaging.StoresRestoredSubject,
		}
		if err := natsutil.EnsureStream(ctx, js, cfg.Nats, subjects); err != nil {
			return err
		}
		publisher = messaging.NewResilientPublisher(natsutil.NewNatsPublisher(js), cfg.Resilience, logger)
		logger.Info("Publishing lifecycle events", slog.String("stream", cfg.Nats.Stream))
	} else {
		logger.Info("NATS is disabled, lifecycle events are not published")
	}

	deps, err := app.SetupDependencies(ctx, cfg, stores, publisher, logger)
	if err != nil {
		return err
	}
	httpServer := app.SetupHttpServer(deps, cfg)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if cfg.PProf.Enabled {
		pprofServer := server.NewPprofServer(cfg.PProf)
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}
