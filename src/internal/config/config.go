package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ClientConfig holds configuration shared by every learner-side binary
type ClientConfig struct {
	BackendURL            string         `json:"backend_url" yaml:"backend_url"`
	ClientID              string         `json:"client_id" yaml:"client_id"`
	ClientSecret          string         `json:"client_secret" yaml:"client_secret"`
	RequestTimeoutSeconds int            `json:"request_timeout_seconds" yaml:"request_timeout_seconds"`
	Storage               StorageConfig  `json:"storage" yaml:"storage"`
	Progress              ProgressConfig `json:"progress" yaml:"progress"`
	OIDC                  OIDCConfig     `json:"oidc" yaml:"oidc"`
	LogMode               string         `json:"log_mode" yaml:"log_mode"`
}

// StorageConfig selects where the session slots are kept.
type StorageConfig struct {
	Driver    string `json:"driver" yaml:"driver"` // file, memory, sqlite, postgres, redis
	Dir       string `json:"dir" yaml:"dir"`
	DSN       string `json:"dsn" yaml:"dsn"`
	Namespace string `json:"namespace" yaml:"namespace"`
}

type ProgressConfig struct {
	StaleSeconds int `json:"stale_seconds" yaml:"stale_seconds"`
}

// WebFrontendConfig holds configuration for the local learner dashboard
type WebFrontendConfig struct {
	ClientConfig `yaml:",inline"`
	Port         string `json:"port" yaml:"port"`
}

// DevBackendConfig holds configuration for the in-memory development backend
type DevBackendConfig struct {
	Port         string `json:"port" yaml:"port"`
	ClientID     string `json:"client_id" yaml:"client_id"`
	ClientSecret string `json:"client_secret" yaml:"client_secret"`
}

type OIDCConfig struct {
	ProviderURL  string `json:"provider_url" yaml:"provider_url"`
	ClientID     string `json:"client_id" yaml:"client_id"`
	ClientSecret string `json:"client_secret" yaml:"client_secret"`
	RedirectURL  string `json:"redirect_url" yaml:"redirect_url"`
}

// Enabled reports whether federated sign-in is configured.
func (o OIDCConfig) Enabled() bool {
	return o.ProviderURL != "" && o.ClientID != ""
}

// Load loads the configuration from a file (YAML or JSON)
func Load(path string, cfg interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(cfg); err != nil {
			return fmt.Errorf("failed to decode YAML config file %s: %w", path, err)
		}
	} else {
		// Default to JSON for compatibility or other extensions
		decoder := json.NewDecoder(file)
		if err := decoder.Decode(cfg); err != nil {
			return fmt.Errorf("failed to decode JSON config file %s: %w", path, err)
		}
	}

	return nil
}
