package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/handler"
	"github.com/segyhp/loan-ledger/internal/identity"
	"github.com/segyhp/loan-ledger/internal/logger"
	"github.com/segyhp/loan-ledger/internal/platform"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Init("loan-ledger", "info", "json")
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init("loan-ledger", cfg.Logging.Level, cfg.Logging.Format)

	// Initialize store backend
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Health.Timeout)
	backend, err := platform.OpenStores(ctx, cfg)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("Failed to open store")
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close store")
		}
	}()

	// Initialize service
	ledgerService := platform.NewLedger(cfg, backend, identity.ContextProvider{})
	ledgerHandler := handler.NewLedgerHandler(ledgerService)
	healthHandler := handler.NewHealthHandler(backend.Name, backend.Checks, cfg.Health.Timeout)

	// Start server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler.NewRouter(ledgerHandler, healthHandler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Str("store", backend.Name).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	logger.Info().Msg("Server exited")
}
