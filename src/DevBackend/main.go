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

	"github.com/learnhub/learnhub/src/internal/adapters/devbackend"
	"github.com/learnhub/learnhub/src/internal/config"
	"github.com/learnhub/learnhub/src/internal/platform/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("LEARNHUB_DEV_BACKEND_CONFIG"), "path to a YAML or JSON config file")
	seed := flag.Bool("seed", true, "load the demo catalogue and accounts")
	flag.Parse()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.LoadDevBackend(*configPath)
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	state := devbackend.NewState()
	if *seed {
		devbackend.Seed(state)
		log.Info("Seeded demo data", "student", devbackend.DemoStudent, "teacher", devbackend.DemoTeacher)
	}

	srv := devbackend.NewServer(state, log, cfg.ClientID, cfg.ClientSecret)
	mux := http.NewServeMux()
	srv.RegisterHandlers(mux)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("Dev backend listening", "addr", "http://0.0.0.0:"+cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Shutdown failed", "error", err)
	}
}
