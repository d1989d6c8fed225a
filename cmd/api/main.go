package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Yuan922/MoneyMemoAI/internal/api/handlers"
	"github.com/Yuan922/MoneyMemoAI/internal/app"
	"github.com/Yuan922/MoneyMemoAI/internal/config"
	"github.com/Yuan922/MoneyMemoAI/internal/jobs"
	"github.com/Yuan922/MoneyMemoAI/internal/jobs/inmemory"
	"github.com/Yuan922/MoneyMemoAI/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "config file (default: ./moneymemo.yaml or $HOME/.config/moneymemo/moneymemo.yaml)")
	flag.Parse()

	boot := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot.Fatal().Err(err).Msg("Failed to load config")
	}

	log, err := logger.NewWithConfig(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		boot.Fatal().Err(err).Msg("Invalid log settings")
	}

	ctx := logger.WithContext(context.Background(), log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	svc, err := a.Service(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create submit service")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Server.QueueSize, cfg.Server.Workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	submit := jobs.SubmitHandler(svc)
	go func() {
		log.Info().Int("workers", cfg.Server.Workers).Msg("Starting job workers")
		if err := jobQueue.Start(workerCtx, submit); err != nil {
			log.Error().Err(err).Msg("Job workers stopped with error")
		}
	}()

	handler := handlers.NewRouter(
		handlers.NewSubmissionsHandler(svc, jobQueue, log),
		handlers.NewLedgerHandler(a.Store, cfg.Ledger.Currency, log),
		handlers.NewJobsHandler(jobStore, log),
		cfg.Server.AllowedOrigins,
		log,
	)

	// The write timeout covers a full model round trip.
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Gemini.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let in-flight jobs finish before their context is cancelled.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
