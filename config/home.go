package config

import (
	"os"
	"path/filepath"
)

// HomeEnv overrides the fincoach home directory.
const HomeEnv = "FINCOACH_HOME"

// Home returns the fincoach home directory.
// It defaults to ~/.fincoach but can be overridden with the FINCOACH_HOME environment variable.
func Home() string {
	if v := os.Getenv(HomeEnv); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".fincoach")
}

// DefaultDBPath returns the default SQLite database path (~/.fincoach/fincoach.db).
func DefaultDBPath() string {
	return filepath.Join(Home(), "fincoach.db")
}

// DefaultConfigPath returns the default config file path (~/.fincoach/config.yaml).
func DefaultConfigPath() string {
	return filepath.Join(Home(), "config.yaml")
}

// EnsureHome creates the fincoach home directory if it doesn't exist.
func EnsureHome() error {
	return os.MkdirAll(Home(), 0o755)
}
