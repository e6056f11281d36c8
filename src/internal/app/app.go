// Package app wires the learner client together from a ClientConfig.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/learnhub/learnhub/src/internal/adapters/backend"
	"github.com/learnhub/learnhub/src/internal/adapters/memory"
	"github.com/learnhub/learnhub/src/internal/adapters/postgres"
	"github.com/learnhub/learnhub/src/internal/adapters/redis"
	"github.com/learnhub/learnhub/src/internal/adapters/sqlite"
	"github.com/learnhub/learnhub/src/internal/adapters/storage"
	"github.com/learnhub/learnhub/src/internal/config"
	"github.com/learnhub/learnhub/src/internal/domain"
	"github.com/learnhub/learnhub/src/internal/observability"
	"github.com/learnhub/learnhub/src/internal/platform/logger"
	"github.com/learnhub/learnhub/src/internal/ports"
	"github.com/learnhub/learnhub/src/internal/progress"
	"github.com/learnhub/learnhub/src/internal/querycache"
	"github.com/learnhub/learnhub/src/internal/services"
	"github.com/learnhub/learnhub/src/internal/session"
)

// App holds every long-lived component of a learner client process.
type App struct {
	Config   config.ClientConfig
	Log      *logger.Logger
	Metrics  *observability.Metrics
	Storage  ports.KeyValueStore
	Backend  *backend.Client
	Session  *session.Store
	Progress *progress.Client
	Accounts *services.AccountService
	// Federated is nil when OIDC is not configured.
	Federated *services.FederatedSignIn

	unsubscribe func()
}

// New builds the component graph. It does not restore the session; callers
// decide when to call Session.Restore.
func New(ctx context.Context, cfg config.ClientConfig, log *logger.Logger) (*App, error) {
	metrics := observability.New()

	kv, err := OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	api := backend.NewClient(cfg.BackendURL,
		backend.WithTimeout(time.Duration(cfg.RequestTimeoutSeconds)*time.Second),
		backend.WithClientCredentials(cfg.ClientID, cfg.ClientSecret),
		backend.WithLogger(log),
		backend.WithMetrics(metrics),
	)

	store := session.NewStore(kv, api, log).WithMetrics(metrics)
	api.SetUnauthorizedHook(store.HandleUnauthorized)

	cache := querycache.New[*domain.CourseLearnData](time.Duration(cfg.Progress.StaleSeconds)*time.Second, metrics)
	progressClient := progress.NewClient(api, store, cache, log, metrics)

	a := &App{
		Config:   cfg,
		Log:      log,
		Metrics:  metrics,
		Storage:  kv,
		Backend:  api,
		Session:  store,
		Progress: progressClient,
		Accounts: services.NewAccountService(api, api, store, log),
	}

	// Progress belongs to whoever is signed in; a different (or no) user
	// must never see the previous one's cached records.
	var lastUser atomic.Int64
	a.unsubscribe = store.Subscribe(func(s session.Session) {
		var id int64
		if s.User != nil {
			id = s.User.ID
		}
		if lastUser.Swap(id) != id {
			progressClient.Reset()
		}
	})

	if cfg.OIDC.Enabled() {
		fed, err := services.NewFederatedSignIn(ctx, cfg.OIDC, api, store, log)
		if err != nil {
			log.Warn("Federated sign-in unavailable", "provider", cfg.OIDC.ProviderURL, "error", err)
		} else {
			a.Federated = fed
		}
	}
	return a, nil
}

// OpenStorage opens the session slot store selected by cfg.Driver.
func OpenStorage(ctx context.Context, cfg config.StorageConfig) (ports.KeyValueStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "memory":
		return memory.NewKVStore(), nil
	case "", "file":
		kv, err := storage.NewFilesystemKVStore(filepath.Join(cfg.Dir, "session"))
		if err != nil {
			return nil, fmt.Errorf("open file storage: %w", err)
		}
		return kv, nil
	case "sqlite":
		path := cfg.DSN
		if path == "" {
			path = filepath.Join(cfg.Dir, "client.db")
		}
		kv, err := sqlite.NewKVStore(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		return kv, nil
	case "postgres":
		db, err := postgres.NewConnection(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres storage: %w", err)
		}
		repo := postgres.NewKVRepo(db, cfg.Namespace)
		if err := repo.InitSchema(); err != nil {
			db.Close()
			return nil, fmt.Errorf("init postgres storage: %w", err)
		}
		return repo, nil
	case "redis":
		kv, err := redis.NewKVStore(ctx, cfg.DSN, cfg.Namespace)
		if err != nil {
			return nil, fmt.Errorf("open redis storage: %w", err)
		}
		return kv, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Close waits for background progress reports, then releases storage.
func (a *App) Close() error {
	a.Progress.Wait()
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	a.Session.Close()
	return a.Storage.Close()
}
