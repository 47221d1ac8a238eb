package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcoot/reflexpool/internal/api"
	"github.com/mcoot/reflexpool/internal/config"
	"github.com/mcoot/reflexpool/internal/factory"
	"github.com/mcoot/reflexpool/internal/web"
)

// cleanupInterval is how often expired challenges, revocations, nonces and idle
// SSE hubs are swept
const cleanupInterval = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// Create application factory
	app, err := factory.New(cfg.Factory(logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close application", slog.String("error", err.Error()))
		}
	}()

	logger.Info("application ready",
		slog.String("storage", cfg.StorageType),
		slog.String("factory", app.PoolFactory.Address().String()),
		slog.String("token", app.Token.Symbol()),
		slog.Bool("faucet", cfg.FaucetAmount > 0))

	// Create API router
	apiRouter := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		AuthService:     app.AuthService,
		StatsService:    app.StatsService,
		VerifierService: app.VerifierService,
		PoolFactory:     app.PoolFactory,
		PoolService:     app.PoolService,
		ScenarioService: app.ScenarioService,
		Token:           app.Token,
		HubManager:      app.HubManager,
		FaucetAmount:    cfg.FaucetAmount,
	})

	// Create web router
	webRouter := web.NewRouter(web.RouterConfig{
		Logger:     logger,
		Players:    app.StatsService,
		Pools:      app.PoolFactory,
		Token:      app.Token,
		HubManager: app.HubManager,
	})

	// Combine routers
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("/", webRouter)

	server := api.NewServer(mux, cfg.Server, logger)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweep(ctx, app, logger)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started", slog.String("addr", server.Addr()))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
		}
	}

	logger.Info("server stopped")
}

func sweep(ctx context.Context, app *factory.App, logger *slog.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.AuthService.CleanExpired()
			app.HubManager.CleanupEmptyHubs()
			if _, err := app.VerifierService.PruneNonces(ctx); err != nil {
				logger.Warn("nonce prune failed", slog.String("error", err.Error()))
			}
		}
	}
}
