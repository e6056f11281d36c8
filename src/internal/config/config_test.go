package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0600))
	return p
}

func TestLoad_YAML(t *testing.T) {
	p := writeFile(t, "client.yaml", `
backend_url: https://api.example.edu
client_id: web
storage:
  driver: sqlite
  dir: /tmp/lh
oidc:
  provider_url: https://accounts.google.com
  client_id: g-123
`)
	cfg := DefaultClientConfig()
	require.NoError(t, Load(p, &cfg))

	assert.Equal(t, "https://api.example.edu", cfg.BackendURL)
	assert.Equal(t, "web", cfg.ClientID)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.True(t, cfg.OIDC.Enabled())
	// untouched defaults survive
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeoutSeconds)
}

func TestLoad_JSON(t *testing.T) {
	p := writeFile(t, "client.json", `{"backend_url":"http://10.0.0.2:8000","progress":{"stale_seconds":5}}`)
	cfg := DefaultClientConfig()
	require.NoError(t, Load(p, &cfg))
	assert.Equal(t, "http://10.0.0.2:8000", cfg.BackendURL)
	assert.Equal(t, 5, cfg.Progress.StaleSeconds)
}

func TestLoad_MissingFile(t *testing.T) {
	var cfg ClientConfig
	assert.Error(t, Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg))
}

func TestApplyEnv_Overrides(t *testing.T) {
	t.Setenv("LEARNHUB_BACKEND_URL", "https://override.example.edu")
	t.Setenv("LEARNHUB_STORAGE", "memory")
	t.Setenv("LEARNHUB_REQUEST_TIMEOUT_SECONDS", "3")
	t.Setenv("LEARNHUB_PROGRESS_STALE_SECONDS", "not-a-number")

	cfg := DefaultClientConfig()
	ApplyEnv(&cfg)

	assert.Equal(t, "https://override.example.edu", cfg.BackendURL)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 3, cfg.RequestTimeoutSeconds)
	assert.Equal(t, DefaultStaleSeconds, cfg.Progress.StaleSeconds)
}

func TestValidate(t *testing.T) {
	cfg := DefaultClientConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.BackendURL = "not a url"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Storage.Driver = "postgres"
	assert.Error(t, bad.Validate(), "postgres needs a DSN")

	bad = cfg
	bad.Storage.Driver = "floppy"
	assert.Error(t, bad.Validate())
}
