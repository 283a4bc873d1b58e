package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnv sets an environment variable for the duration of a test.
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, existed := os.LookupEnv(key)
	require.NoError(t, os.Setenv(key, value))
	t.Cleanup(func() {
		if existed {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

// clearEnv clears an environment variable for the duration of a test.
func clearEnv(t *testing.T, key string) {
	t.Helper()
	old, existed := os.LookupEnv(key)
	os.Unsetenv(key)
	t.Cleanup(func() {
		if existed {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	// Clear all relevant env vars to test defaults
	envVars := []string{
		"APP_ENV", "LOG_LEVEL",
		"SERVER_HOST", "SERVER_PORT", "SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT", "SERVER_SHUTDOWN_TIMEOUT",
		"SUITE_PARALLELISM", "SUITE_FILTER", "SUITE_TIMEOUT", "REPORT_FORMAT",
		"HISTORY_BACKEND", "HISTORY_CACHE", "HISTORY_CACHE_TTL",
		"DB_HOST", "DB_PORT", "REDIS_HOST", "REDIS_PORT",
	}
	for _, v := range envVars {
		clearEnv(t, v)
	}

	cfg, err := Load()
	require.NoError(t, err)

	// App defaults
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	// Suite defaults
	assert.Equal(t, 1, cfg.Suite.Parallelism)
	assert.Equal(t, "", cfg.Suite.Filter)
	assert.Equal(t, time.Minute, cfg.Suite.Timeout)
	assert.Equal(t, "text", cfg.Suite.Format)

	// History defaults
	assert.Equal(t, BackendMemory, cfg.History.Backend)
	assert.False(t, cfg.History.Cache)
	assert.Equal(t, 24*time.Hour, cfg.History.CacheTTL)

	// Storage defaults
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 6379, cfg.Redis.Port)
}

func TestLoad_ServerConfig(t *testing.T) {
	setEnv(t, "SERVER_HOST", "127.0.0.1")
	setEnv(t, "SERVER_PORT", "9090")
	setEnv(t, "SERVER_SHUTDOWN_TIMEOUT", "2s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Address())
	assert.Equal(t, 2*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoad_SuiteConfig(t *testing.T) {
	setEnv(t, "SUITE_PARALLELISM", "4")
	setEnv(t, "SUITE_FILTER", "^RobotArm")
	setEnv(t, "SUITE_TIMEOUT", "10s")
	setEnv(t, "REPORT_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Suite.Parallelism)
	assert.Equal(t, "^RobotArm", cfg.Suite.Filter)
	assert.Equal(t, 10*time.Second, cfg.Suite.Timeout)
	assert.Equal(t, "json", cfg.Suite.Format)
}

func TestLoad_HistoryConfig(t *testing.T) {
	setEnv(t, "HISTORY_BACKEND", "postgres")
	setEnv(t, "HISTORY_CACHE", "true")
	setEnv(t, "HISTORY_CACHE_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.History.Backend)
	assert.True(t, cfg.History.Cache)
	assert.Equal(t, time.Hour, cfg.History.CacheTTL)
}

func TestLoad_AppConfig(t *testing.T) {
	setEnv(t, "APP_ENV", "production")
	setEnv(t, "LOG_LEVEL", "error")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Env)
	assert.Equal(t, "error", cfg.App.LogLevel)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"SERVER_PORT", "http"},
		{"SERVER_READ_TIMEOUT", "soon"},
		{"SUITE_PARALLELISM", "many"},
		{"SUITE_TIMEOUT", "invalid"},
		{"HISTORY_CACHE", "maybe"},
		{"HISTORY_CACHE_TTL", "forever"},
		{"DB_PORT", "not-a-number"},
		{"REDIS_PORT", "not-a-number"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			setEnv(t, tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_OutOfRange(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"SERVER_PORT", "70000"},
		{"SUITE_PARALLELISM", "-1"},
		{"SUITE_TIMEOUT", "-5s"},
		{"HISTORY_BACKEND", "sqlite"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			setEnv(t, tt.key, tt.value)

			_, err := Load()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestConfig_Enabled(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Host: "localhost"},
		Redis:    RedisConfig{Host: "localhost"},
	}
	assert.False(t, cfg.DatabaseEnabled())
	assert.True(t, cfg.RedisEnabled())

	cfg.Database.Password = "secret"
	assert.True(t, cfg.DatabaseEnabled())
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		expected bool
	}{
		{"development", "development", true},
		{"dev", "dev", true},
		{"production", "production", false},
		{"staging", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{App: AppConfig{Env: tt.env}}
			assert.Equal(t, tt.expected, cfg.App.IsDevelopment())
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		expected bool
	}{
		{"production", "production", true},
		{"prod", "prod", true},
		{"development", "development", false},
		{"staging", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{App: AppConfig{Env: tt.env}}
			assert.Equal(t, tt.expected, cfg.App.IsProduction())
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SUITE_FILTER=^Math\nREPORT_FORMAT=yaml\n"), 0o600))

	clearEnv(t, "SUITE_FILTER")
	setEnv(t, "REPORT_FORMAT", "json")

	require.NoError(t, LoadEnvFile(path))
	t.Cleanup(func() { os.Unsetenv("SUITE_FILTER") })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "^Math", cfg.Suite.Filter)
	assert.Equal(t, "json", cfg.Suite.Format, "existing environment must win")
}

func TestLoadEnvFile_Missing(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")))
	assert.NoError(t, LoadEnvFile(""))
}

func TestLoadEnvFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BAD-KEY=1\n"), 0o600))

	assert.Error(t, LoadEnvFile(path))
}
