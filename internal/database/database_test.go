package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotarm/armsuite/internal/config"
)

func skipIfNoPostgres(t *testing.T) {
	t.Helper()
	if os.Getenv("TEST_POSTGRES") != "true" {
		t.Skip("Skipping: TEST_POSTGRES not set")
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func testDBConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Host:            getEnvOrDefault("DB_HOST", "localhost"),
		Port:            5432,
		User:            getEnvOrDefault("DB_USER", "armsuite"),
		Password:        getEnvOrDefault("DB_PASSWORD", "armsuite_dev_password"),
		DBName:          getEnvOrDefault("DB_NAME", "armsuite"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    1,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.DatabaseConfig
		expected string
	}{
		{
			name: "plain",
			cfg: config.DatabaseConfig{
				Host: "db", Port: 5432, User: "armsuite", Password: "secret",
				DBName: "history", SSLMode: "disable",
			},
			expected: "postgres://armsuite:secret@db:5432/history?sslmode=disable",
		},
		{
			name: "escaped password",
			cfg: config.DatabaseConfig{
				Host: "db", Port: 5433, User: "arm", Password: "p@ss/word",
				DBName: "history", SSLMode: "require",
			},
			expected: "postgres://arm:p%40ss%2Fword@db:5433/history?sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildDSN(&tt.cfg))
		})
	}
}

func TestNewPool(t *testing.T) {
	skipIfNoPostgres(t)

	ctx := context.Background()
	pool, err := NewPool(ctx, testDBConfig())
	require.NoError(t, err)
	defer pool.Close()

	assert.NoError(t, pool.HealthCheck(ctx))
}

func TestNewPool_InvalidConfig(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:     "invalid-host-that-does-not-exist",
		Port:     5432,
		User:     "invalid",
		Password: "invalid",
		DBName:   "invalid",
		SSLMode:  "disable",
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewPool(ctx, cfg)
	assert.Error(t, err)
}
