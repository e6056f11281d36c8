package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/learnhub/learnhub/src/internal/app"
	"github.com/learnhub/learnhub/src/internal/config"
	"github.com/learnhub/learnhub/src/internal/platform/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("LEARNHUB_CONFIG"), "path to a YAML or JSON config file")
	flag.Parse()

	cfg, err := config.LoadWebFrontend(*configPath)
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Starting LearnHub web frontend...", "backend", cfg.BackendURL, "storage", cfg.Storage.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	learner, err := app.New(ctx, cfg.ClientConfig, log)
	if err != nil {
		log.Fatal("Failed to initialise client", "error", err)
	}
	defer learner.Close()

	// Pages render the restoring state until this finishes.
	go learner.Session.Restore(ctx)

	fe, err := newFrontend(learner)
	if err != nil {
		log.Fatal("Failed to build frontend", "error", err)
	}
	defer fe.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           fe.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Web frontend listening", "addr", "http://0.0.0.0:"+cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Shutdown failed", "error", err)
	}
}
