package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledger-service/internal/app"
	"ledger-service/pkg/config"
	"ledger-service/pkg/logger"

	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: "ledger-service",
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()
	log.Info("Starting ledger service...", cfg.LogConfig()...)

	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("Failed to build service", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Start()
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("Shutting down...", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("Server stopped", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		log.Error("Shutdown error", zap.Error(err))
	}
	log.Info("Service stopped")
}
