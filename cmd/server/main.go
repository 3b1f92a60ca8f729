package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dronesight/dronesight-backend/internal/app"
	"github.com/dronesight/dronesight-backend/internal/config"
	"github.com/dronesight/dronesight-backend/internal/logger"
)

func main() {
	log := logger.For("server")

	// Load env
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found")
	}
	// Load configuration
	cfg := config.Load()
	logger.Configure(cfg.IsProduction(), cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, time.Minute)
	a, err := app.Open(connectCtx, cfg)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("Failed to start application")
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("🚀 DroneSight backend running on :%s (docstore: %s)", cfg.Port, cfg.DocstoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Graceful shutdown failed")
	}
}
