package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Domain: Configuration Management
// This file contains the workspace config and its initialization

// ConfigPath is the workspace configuration file
const ConfigPath = ".dotpipe/config.yml"

// Config represents the workspace configuration
type Config struct {
	DefaultPage  string            `yaml:"defaultPage,omitempty"`
	LogLevel     string            `yaml:"logLevel"`
	Attribute    string            `yaml:"attribute,omitempty"`
	Script       string            `yaml:"script,omitempty"`
	Environment  string            `yaml:"environment,omitempty"`
	FetchTimeout time.Duration     `yaml:"fetchTimeout"`
	Auth         []AuthConfig      `yaml:"auth,omitempty"`
	Cache        CacheConfig       `yaml:"cache"`
	Secrets      SecretsConfig     `yaml:"secrets"`
	Variables    map[string]string `yaml:"variables,omitempty"`
}

// CacheConfig controls the response cache and state snapshots
type CacheConfig struct {
	Path     string        `yaml:"path,omitempty"`
	TTL      time.Duration `yaml:"ttl"`
	Disabled bool          `yaml:"disabled"`
}

// SecretsConfig controls where the secret verb reads credentials
type SecretsConfig struct {
	Namespace string `yaml:"namespace"`
	Fallback  bool   `yaml:"fallback"`
	Path      string `yaml:"path,omitempty"`
}

// AuthConfig attaches credentials from the secret store to requests for a host
type AuthConfig struct {
	Host   string `yaml:"host"`
	Type   string `yaml:"type"`
	Name   string `yaml:"name,omitempty"`
	Secret string `yaml:"secret"`
}

// DefaultConfig returns the configuration used when no file exists
func DefaultConfig() Config {
	return Config{
		LogLevel:     "warn",
		FetchTimeout: 30 * time.Second,
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Secrets: SecretsConfig{
			Namespace: "default",
		},
	}
}

// LoadConfig reads the configuration at path over the defaults. A missing
// file is only an error when explicit is set.
func LoadConfig(path string, explicit bool) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config '%s': %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config '%s': %w", path, err)
	}
	if cfg.Variables == nil {
		cfg.Variables = map[string]string{}
	}
	return cfg, nil
}

// InitializeConfig writes the default configuration to path
func InitializeConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config '%s' already exists (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	header := "# dotpipe workspace configuration\n"
	return os.WriteFile(path, append([]byte(header), data...), 0o644)
}

// page returns the page argument, or the configured default page
func (c Config) page(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if c.DefaultPage != "" {
		return c.DefaultPage, nil
	}
	return "", errors.New("no page given and no defaultPage configured")
}
