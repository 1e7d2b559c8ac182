// Package main is the entry point for the service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jsamuelsen/meme-exchange/internal/adapters/clients"
	"github.com/jsamuelsen/meme-exchange/internal/adapters/clients/acl"
	"github.com/jsamuelsen/meme-exchange/internal/adapters/events"
	"github.com/jsamuelsen/meme-exchange/internal/adapters/flags"
	"github.com/jsamuelsen/meme-exchange/internal/adapters/http"
	"github.com/jsamuelsen/meme-exchange/internal/adapters/http/handlers"
	"github.com/jsamuelsen/meme-exchange/internal/adapters/store"
	"github.com/jsamuelsen/meme-exchange/internal/adapters/store/sqlite"
	"github.com/jsamuelsen/meme-exchange/internal/app"
	"github.com/jsamuelsen/meme-exchange/internal/platform/config"
	"github.com/jsamuelsen/meme-exchange/internal/platform/logging"
	"github.com/jsamuelsen/meme-exchange/internal/platform/telemetry"
	"github.com/jsamuelsen/meme-exchange/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the service.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// 1. Determine profile from environment
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	// 2. Load and validate configuration (fail fast)
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 3. Initialize logging
	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	// 4. Initialize telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(ctx); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	// 5. Create health registry
	healthRegistry := ports.NewHealthRegistry()

	// 6. Open the meme store
	repo, closeStore, err := openStore(cfg, healthRegistry, logger)
	if err != nil {
		return fmt.Errorf("opening meme store: %w", err)
	}
	defer closeStore()

	// 7. Start the event broadcaster
	broadcaster := events.NewBroadcaster(events.Config{
		SubscriberBuffer: cfg.Events.SubscriberBuffer,
		Logger:           logger,
	})
	defer broadcaster.Stop()

	// 8. Create caption client adapter (ACL pattern)
	captionHTTP, err := clients.New(&clients.Config{
		BaseURL:     cfg.Services.Caption.BaseURL,
		ServiceName: cfg.Services.Caption.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("creating caption HTTP client: %w", err)
	}

	captionClient := acl.NewCaptionClient(acl.CaptionClientConfig{
		Client: captionHTTP,
		Logger: logger,
	})

	if err := healthRegistry.Register(captionClient); err != nil {
		return fmt.Errorf("registering caption client health check: %w", err)
	}

	// 9. Create application services sharing one keyed mutex so bid, vote
	// and delete paths serialize per meme
	locks := app.NewKeyedMutex()
	featureFlags := flags.NewStaticBools(cfg.Features)

	memeService := app.NewMemeService(app.MemeServiceConfig{
		Repo:     repo,
		Broker:   broadcaster,
		Captions: captionClient,
		Flags:    featureFlags,
		Locks:    locks,
		Logger:   logger,
	})
	auctionService := app.NewAuctionService(app.AuctionServiceConfig{
		Repo:   repo,
		Broker: broadcaster,
		Locks:  locks,
		Logger: logger,
	})
	voteService := app.NewVoteService(app.VoteServiceConfig{
		Repo:   repo,
		Broker: broadcaster,
		Locks:  locks,
		Logger: logger,
	})
	rankingService := app.NewRankingService(app.RankingServiceConfig{
		Repo:   repo,
		Logger: logger,
	})

	// 10. Create handlers
	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)
	healthHandler := handlers.NewHealthHandler(healthRegistry, buildInfo)
	memeHandler := handlers.NewMemeHandler(
		memeService, auctionService, voteService, rankingService, &cfg.Auth,
	)
	streamHandler := handlers.NewStreamHandler(broadcaster, logger)

	// 11. Create HTTP server
	server := http.New(&cfg.Server, logger)

	// 12. Setup router with all middleware and routes
	routerCfg := http.RouterConfig{
		Logger:        logger,
		AuthConfig:    &cfg.Auth,
		AppConfig:     &cfg.App,
		HealthHandler: healthHandler,
		MemeHandler:   memeHandler,
		StreamHandler: streamHandler,
		Timeout:       http.DefaultRequestTimeout,
	}
	http.SetupRouter(server.Engine(), routerCfg)

	// 13. Start server (non-blocking)
	serverErr := server.Start()

	// 14. Wait for shutdown signal
	return waitForShutdown(ctx, logger, server, serverErr, cfg.Server.ShutdownTimeout)
}

// openStore builds the configured meme repository. The sqlite store doubles
// as a health checker; the in-memory store has nothing to probe.
func openStore(
	cfg *config.Config,
	registry ports.HealthRegistry,
	logger *slog.Logger,
) (ports.MemeRepository, func(), error) {
	switch cfg.Store.Driver {
	case "sqlite":
		sqlStore, err := sqlite.New(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}

		if err := registry.Register(sqlStore); err != nil {
			_ = sqlStore.Close()
			return nil, nil, fmt.Errorf("registering store health check: %w", err)
		}

		logger.Info("using sqlite meme store", slog.String("path", cfg.Store.Path))

		return sqlStore, func() {
			if err := sqlStore.Close(); err != nil {
				logger.Error("store close error", slog.Any("error", err))
			}
		}, nil

	default:
		logger.Info("using in-memory meme store")
		return store.NewMemoryStore(), func() {}, nil
	}
}

// waitForShutdown blocks until a shutdown signal is received or server error occurs.
// It then performs graceful shutdown of the HTTP server.
func waitForShutdown(
	ctx context.Context,
	logger *slog.Logger,
	server *http.Server,
	serverErr <-chan error,
	shutdownTimeout time.Duration,
) error {
	// Listen for OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		// Server error during startup or runtime
		return fmt.Errorf("server error: %w", err)

	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	// Graceful shutdown sequence
	logger.Info("initiating graceful shutdown",
		slog.Duration("timeout", shutdownTimeout),
	)

	// Stop accepting new requests, drain in-flight
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
