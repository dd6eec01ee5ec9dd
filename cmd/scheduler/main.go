package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/logger"
	"github.com/segyhp/loan-ledger/internal/scheduler"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Init("loan-ledger-scheduler", "info", "json")
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init("loan-ledger-scheduler", cfg.Logging.Level, cfg.Logging.Format)
	logger.Info().Str("server", cfg.Scheduler.ServerURL).Str("as", cfg.Business.SystemIdentity).Msg("Starting ledger scheduler...")

	// Sweeps run inside the server so its service stays the only writer.
	sweeper := scheduler.NewClient(cfg.Scheduler.ServerURL, cfg.Business.SystemIdentity,
		&http.Client{Timeout: cfg.Scheduler.JobTimeout})

	c := scheduler.New(cfg.Location())
	if err := scheduler.Register(c, scheduler.Jobs(cfg.Scheduler, sweeper), cfg.Scheduler.JobTimeout); err != nil {
		logger.Fatal().Err(err).Msg("Failed to schedule sweeps")
	}

	c.Start()
	logger.Info().Int("jobs", len(c.Entries())).Msg("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down scheduler...")
	<-c.Stop().Done()
	logger.Info().Msg("Scheduler stopped")
}
