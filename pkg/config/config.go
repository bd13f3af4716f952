// Package config provides environment-based configuration with an optional
// YAML overlay file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the service.
type Config struct {
	// Database configuration
	DatabaseDSN string

	// GitHub OAuth application and webhook configuration
	GitHub GitHubConfig

	// Server configuration
	APIHost string
	APIPort int

	// Poller configuration
	PollInterval time.Duration

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration
}

// GitHubConfig holds the GitHub OAuth application credentials and the shared
// webhook secret.
type GitHubConfig struct {
	ClientID      string
	ClientSecret  string
	RedirectURI   string
	WebhookSecret string
}

// fileConfig is the YAML overlay shape. Only set fields override the
// environment-derived values.
type fileConfig struct {
	DatabaseDSN string `yaml:"database_dsn"`
	GitHub      struct {
		ClientID      string `yaml:"client_id"`
		ClientSecret  string `yaml:"client_secret"`
		RedirectURI   string `yaml:"redirect_uri"`
		WebhookSecret string `yaml:"webhook_secret"`
	} `yaml:"github"`
	APIHost         string `yaml:"api_host"`
	APIPort         int    `yaml:"api_port"`
	PollInterval    string `yaml:"poll_interval"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// Load reads configuration from environment variables, applies the optional
// YAML file named by GITBRIDGE_CONFIG, and validates the result.
func Load() (*Config, error) {
	cfg := loadEnv()

	if path := os.Getenv("GITBRIDGE_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration without validating required fields.
// Useful for testing.
func LoadWithDefaults() *Config {
	return loadEnv()
}

func loadEnv() *Config {
	return &Config{
		DatabaseDSN: getEnv("DATABASE_URL", "postgres://localhost:5432/gitbridge?sslmode=disable"),
		GitHub: GitHubConfig{
			ClientID:      getEnv("GITHUB_CLIENT_ID", ""),
			ClientSecret:  getEnv("GITHUB_CLIENT_SECRET", ""),
			RedirectURI:   getEnv("GITHUB_REDIRECT_URI", "http://localhost:8080/login/oauth2/code/github"),
			WebhookSecret: getEnv("GITHUB_WEBHOOK_SECRET", ""),
		},
		APIHost:         getEnv("API_HOST", "0.0.0.0"),
		APIPort:         getIntEnv("API_PORT", 8080),
		PollInterval:    getDurationEnv("POLL_INTERVAL", 1*time.Minute),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if fc.DatabaseDSN != "" {
		c.DatabaseDSN = fc.DatabaseDSN
	}
	if fc.GitHub.ClientID != "" {
		c.GitHub.ClientID = fc.GitHub.ClientID
	}
	if fc.GitHub.ClientSecret != "" {
		c.GitHub.ClientSecret = fc.GitHub.ClientSecret
	}
	if fc.GitHub.RedirectURI != "" {
		c.GitHub.RedirectURI = fc.GitHub.RedirectURI
	}
	if fc.GitHub.WebhookSecret != "" {
		c.GitHub.WebhookSecret = fc.GitHub.WebhookSecret
	}
	if fc.APIHost != "" {
		c.APIHost = fc.APIHost
	}
	if fc.APIPort != 0 {
		c.APIPort = fc.APIPort
	}
	if fc.PollInterval != "" {
		d, err := time.ParseDuration(fc.PollInterval)
		if err != nil {
			return fmt.Errorf("parsing poll_interval: %w", err)
		}
		c.PollInterval = d
	}
	if fc.ShutdownTimeout != "" {
		d, err := time.ParseDuration(fc.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("parsing shutdown_timeout: %w", err)
		}
		c.ShutdownTimeout = d
	}

	return nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.GitHub.ClientID == "" {
		return fmt.Errorf("GITHUB_CLIENT_ID is required")
	}
	if c.GitHub.ClientSecret == "" {
		return fmt.Errorf("GITHUB_CLIENT_SECRET is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
