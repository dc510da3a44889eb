package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everydev1618/fincoach/errdefs"
)

func TestHomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)

	assert.Equal(t, dir, Home())
	assert.Equal(t, filepath.Join(dir, "fincoach.db"), DefaultDBPath())
	assert.Equal(t, filepath.Join(dir, "config.yaml"), DefaultConfigPath())

	require.NoError(t, EnsureHome())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())
	t.Setenv(EnvGoogleAPIKey, "g-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.Model)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 7.0, cfg.Retry.BaseMultiplier)
	assert.Equal(t, time.Second, cfg.Retry.InitialDelay)
	assert.Equal(t, []int{429, 500, 503, 504}, cfg.Retry.RetryableStatusCodes)
	assert.Equal(t, "g-key", cfg.ModelAPIKey())
	assert.Equal(t, EnvGoogleAPIKey, cfg.ModelAPIKeyEnv())
}

func TestLoadFile(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())
	t.Setenv(EnvOpenAIAPIKey, "o-key")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_path: /tmp/ledger.db
provider: openai
model: gpt-4o-mini
log_level: debug
max_iterations: 4
retry:
  max_attempts: 3
  base_multiplier: 2
  initial_delay: 250ms
  retryable_status_codes: [429, 503]
market:
  timeout: 5s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/ledger.db", cfg.DBPath)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, 4, cfg.MaxIterations)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialDelay)
	assert.Equal(t, []int{429, 503}, cfg.Retry.RetryableStatusCodes)
	assert.Equal(t, 5*time.Second, cfg.Market.Timeout)
	assert.Equal(t, "https://api.coingecko.com/api/v3", cfg.Market.CryptoBaseURL, "unset keys keep defaults")
	assert.Equal(t, "o-key", cfg.ModelAPIKey())
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())

	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"provider", "provider: claude\n", "provider"},
		{"attempts", "retry:\n  max_attempts: 0\n", "max_attempts"},
		{"multiplier", "retry:\n  base_multiplier: 0.5\n", "base_multiplier"},
		{"delay", "retry:\n  initial_delay: -1s\n", "initial_delay"},
		{"log level", "log_level: loud\n", "log_level"},
		{"iterations", "max_iterations: 0\n", "max_iterations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := Load(path)
			require.Error(t, err)
			var v *errdefs.ValidationError
			require.ErrorAs(t, err, &v)
			assert.Equal(t, tt.field, v.Field)
		})
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retry: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())
	t.Setenv(EnvGoogleAPIKey, "secret")

	cfg := Default()
	cfg.Model = "gemini-2.5-pro"
	cfg.Credentials.GoogleAPIKey = "secret"

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", loaded.Model)
	assert.Equal(t, cfg.Retry, loaded.Retry)
}

func TestDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)
	t.Setenv(EnvPolygonAPIKey, "from-env")
	t.Setenv(EnvCoinGeckoAPIKey, "")
	os.Unsetenv(EnvCoinGeckoAPIKey)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".env"),
		[]byte("POLYGON_API_KEY=from-file\nCOINGECKO_API_KEY=cg-file\n"), 0o600))

	cfg, err := Load(filepath.Join(home, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Credentials.PolygonAPIKey)
	assert.Equal(t, "cg-file", cfg.Credentials.CoinGeckoAPIKey)
}
