package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_DefaultsWithSecret(t *testing.T) {
	t.Setenv("SNIP_JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "sqlite", cfg.StoreBackend)
	assert.Equal(t, "./snippets.db", cfg.DBPath)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.GitHubEnabled())
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SNIP_JWT_SECRET", testSecret)
	t.Setenv("SNIP_ADDR", ":9090")
	t.Setenv("SNIP_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MongoBackend(t *testing.T) {
	t.Setenv("SNIP_JWT_SECRET", testSecret)
	t.Setenv("SNIP_STORE_BACKEND", "mongo")

	t.Run("requires URI", func(t *testing.T) {
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("accepts URI", func(t *testing.T) {
		t.Setenv("SNIP_MONGO_URI", "mongodb://localhost:27017")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "mongo", cfg.StoreBackend)
		assert.Equal(t, "snippets", cfg.MongoDatabase)
	})
}

func TestLoad_InvalidBackend(t *testing.T) {
	t.Setenv("SNIP_JWT_SECRET", testSecret)
	t.Setenv("SNIP_STORE_BACKEND", "postgres")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	t.Setenv("SNIP_JWT_SECRET", testSecret)
	t.Setenv("SNIP_LOG_LEVEL", "verbose")

	_, err := Load()
	assert.Error(t, err)
}

func TestGitHubEnabled(t *testing.T) {
	cfg := DefaultAppConfig
	assert.False(t, cfg.GitHubEnabled())

	cfg.GitHubClientID = "id"
	cfg.GitHubClientSecret = "secret"
	assert.False(t, cfg.GitHubEnabled())

	cfg.GitHubCallbackURL = "http://localhost:8080/auth/github/callback"
	assert.True(t, cfg.GitHubEnabled())
}
