package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultBackendURL     = "http://localhost:8000"
	DefaultRequestTimeout = 15
	DefaultStaleSeconds   = 30
	DefaultWebPort        = "3000"
	DefaultDevBackendPort = "8000"
)

// DefaultClientConfig returns the built-in defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BackendURL:            DefaultBackendURL,
		RequestTimeoutSeconds: DefaultRequestTimeout,
		Storage: StorageConfig{
			Driver: "file",
			Dir:    defaultDataDir(),
		},
		Progress: ProgressConfig{StaleSeconds: DefaultStaleSeconds},
		LogMode:  "dev",
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "learnhub")
	}
	return ".learnhub"
}

// LoadClient builds a ClientConfig from defaults, an optional file, a .env
// file in the working directory and LEARNHUB_* environment variables, in
// that order of precedence (last wins).
func LoadClient(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if path != "" {
		if err := Load(path, &cfg); err != nil {
			return cfg, err
		}
	}
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()
	ApplyEnv(&cfg)
	return cfg, cfg.Validate()
}

// LoadWebFrontend is LoadClient for the dashboard binary.
func LoadWebFrontend(path string) (WebFrontendConfig, error) {
	cfg := WebFrontendConfig{ClientConfig: DefaultClientConfig(), Port: DefaultWebPort}
	if path != "" {
		if err := Load(path, &cfg); err != nil {
			return cfg, err
		}
	}
	_ = godotenv.Load()
	ApplyEnv(&cfg.ClientConfig)
	cfg.Port = getenv("PORT", cfg.Port)
	return cfg, cfg.Validate()
}

// LoadDevBackend reads the dev backend settings.
func LoadDevBackend(path string) (DevBackendConfig, error) {
	cfg := DevBackendConfig{Port: DefaultDevBackendPort, ClientID: "learnhub-dev", ClientSecret: "learnhub-dev-secret"}
	if path != "" {
		if err := Load(path, &cfg); err != nil {
			return cfg, err
		}
	}
	_ = godotenv.Load()
	cfg.Port = getenv("PORT", cfg.Port)
	cfg.ClientID = getenv("LEARNHUB_CLIENT_ID", cfg.ClientID)
	cfg.ClientSecret = getenv("LEARNHUB_CLIENT_SECRET", cfg.ClientSecret)
	return cfg, nil
}

// ApplyEnv overlays environment variables onto cfg.
func ApplyEnv(cfg *ClientConfig) {
	cfg.BackendURL = getenv("LEARNHUB_BACKEND_URL", cfg.BackendURL)
	cfg.ClientID = getenv("LEARNHUB_CLIENT_ID", cfg.ClientID)
	cfg.ClientSecret = getenv("LEARNHUB_CLIENT_SECRET", cfg.ClientSecret)
	cfg.RequestTimeoutSeconds = getenvInt("LEARNHUB_REQUEST_TIMEOUT_SECONDS", cfg.RequestTimeoutSeconds)
	cfg.Storage.Driver = getenv("LEARNHUB_STORAGE", cfg.Storage.Driver)
	cfg.Storage.Dir = getenv("LEARNHUB_DATA_DIR", cfg.Storage.Dir)
	cfg.Storage.DSN = getenv("LEARNHUB_STORAGE_DSN", cfg.Storage.DSN)
	cfg.Storage.Namespace = getenv("LEARNHUB_STORAGE_NAMESPACE", cfg.Storage.Namespace)
	cfg.Progress.StaleSeconds = getenvInt("LEARNHUB_PROGRESS_STALE_SECONDS", cfg.Progress.StaleSeconds)
	cfg.OIDC.ProviderURL = getenv("OIDC_PROVIDER", cfg.OIDC.ProviderURL)
	cfg.OIDC.ClientID = getenv("OIDC_CLIENT_ID", cfg.OIDC.ClientID)
	cfg.OIDC.ClientSecret = getenv("OIDC_CLIENT_SECRET", cfg.OIDC.ClientSecret)
	cfg.OIDC.RedirectURL = getenv("OIDC_REDIRECT_URL", cfg.OIDC.RedirectURL)
	cfg.LogMode = getenv("LOG_MODE", cfg.LogMode)
}

// Validate rejects configurations the client cannot start with.
func (c ClientConfig) Validate() error {
	var errs []error
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend_url %q is not an absolute URL", c.BackendURL))
	}
	if c.RequestTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("request_timeout_seconds must be positive"))
	}
	if c.Progress.StaleSeconds < 0 {
		errs = append(errs, errors.New("progress.stale_seconds must not be negative"))
	}
	switch strings.ToLower(c.Storage.Driver) {
	case "memory":
	case "file":
		if c.Storage.Dir == "" {
			errs = append(errs, errors.New("storage.dir is required for the file driver"))
		}
	case "sqlite", "postgres", "redis":
		if c.Storage.DSN == "" && c.Storage.Driver != "sqlite" {
			errs = append(errs, fmt.Errorf("storage.dsn is required for the %s driver", c.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	return errors.Join(errs...)
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
