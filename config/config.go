// Package config loads the single configuration value that every component
// is built from. Settings come from a YAML file; credentials come from the
// environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/everydev1618/fincoach/errdefs"
	"github.com/everydev1618/fincoach/retry"
)

// Providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Credential environment variables.
const (
	EnvGoogleAPIKey    = "GOOGLE_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvPolygonAPIKey   = "POLYGON_API_KEY"
	EnvCoinGeckoAPIKey = "COINGECKO_API_KEY"
)

// Config is the fincoach configuration.
type Config struct {
	DBPath        string       `yaml:"db_path"`
	Provider      string       `yaml:"provider"`
	Model         string       `yaml:"model"`
	BaseURL       string       `yaml:"base_url,omitempty"`
	LogLevel      string       `yaml:"log_level"`
	MaxIterations int          `yaml:"max_iterations"`
	Retry         retry.Policy `yaml:"retry"`
	Market        Market       `yaml:"market"`

	// Credentials are read from the environment and never written to disk.
	Credentials Credentials `yaml:"-"`
}

// Market configures the market-data providers.
type Market struct {
	CryptoBaseURL string        `yaml:"crypto_base_url"`
	Timeout       time.Duration `yaml:"timeout"`
}

// Credentials hold the API keys of the remote services.
type Credentials struct {
	GoogleAPIKey    string
	OpenAIAPIKey    string
	PolygonAPIKey   string
	CoinGeckoAPIKey string
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DBPath:        DefaultDBPath(),
		Provider:      ProviderGemini,
		Model:         "gemini-2.5-flash",
		LogLevel:      "info",
		MaxIterations: 10,
		Retry:         retry.Default(),
		Market: Market{
			CryptoBaseURL: "https://api.coingecko.com/api/v3",
			Timeout:       30 * time.Second,
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error. Credentials are loaded from the environment after any .env file
// in the working directory or the fincoach home.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		log.WithField("path", path).Debug("config file not found, using defaults")
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	loadDotEnv(".env", filepath.Join(Home(), ".env"))
	cfg.Credentials = CredentialsFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads each existing file. Variables already set win.
func loadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			log.WithField("path", p).WithError(err).Warn("could not load env file")
		}
	}
}

// CredentialsFromEnv reads API keys from the environment.
func CredentialsFromEnv() Credentials {
	return Credentials{
		GoogleAPIKey:    os.Getenv(EnvGoogleAPIKey),
		OpenAIAPIKey:    os.Getenv(EnvOpenAIAPIKey),
		PolygonAPIKey:   os.Getenv(EnvPolygonAPIKey),
		CoinGeckoAPIKey: os.Getenv(EnvCoinGeckoAPIKey),
	}
}

// Save writes cfg as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errdefs.Invalid("db_path", "is required")
	}
	switch c.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return errdefs.Invalid("provider", "must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, c.Provider)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return &errdefs.ValidationError{Field: "log_level", Message: "unknown level", Err: err}
	}
	if c.MaxIterations < 1 {
		return errdefs.Invalid("max_iterations", "must be a positive integer, got %d", c.MaxIterations)
	}
	if c.Market.Timeout < 0 {
		return errdefs.Invalid("market.timeout", "must not be negative")
	}
	return c.Retry.Validate()
}

// ModelAPIKey returns the credential for the configured provider.
func (c *Config) ModelAPIKey() string {
	if c.Provider == ProviderOpenAI {
		return c.Credentials.OpenAIAPIKey
	}
	return c.Credentials.GoogleAPIKey
}

// ModelAPIKeyEnv names the environment variable holding ModelAPIKey.
func (c *Config) ModelAPIKeyEnv() string {
	if c.Provider == ProviderOpenAI {
		return EnvOpenAIAPIKey
	}
	return EnvGoogleAPIKey
}
