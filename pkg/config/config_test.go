package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plaenen/catalog/pkg/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, 5*time.Second, cfg.CommandTimeout)
	assert.Equal(t, 25, cfg.MaxDrainPasses)
	assert.Empty(t, cfg.PostgresDSN)
	assert.Equal(t, ":memory:", cfg.ViewDSN)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CATALOG_ENV", "production")
	t.Setenv("CATALOG_COMMAND_TIMEOUT", "750ms")
	t.Setenv("CATALOG_MAX_DRAIN_PASSES", "10")
	t.Setenv("CATALOG_POSTGRES_DSN", "postgres://localhost/catalog")
	t.Setenv("CATALOG_VIEW_DSN", "/var/lib/catalog/view.db")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 750*time.Millisecond, cfg.CommandTimeout)
	assert.Equal(t, 10, cfg.MaxDrainPasses)
	assert.Equal(t, "postgres://localhost/catalog", cfg.PostgresDSN)
	assert.Equal(t, "/var/lib/catalog/view.db", cfg.ViewDSN)
}

func TestLoadRejectsNonPositiveValues(t *testing.T) {
	t.Setenv("CATALOG_COMMAND_TIMEOUT", "0s")
	_, err := config.Load()
	assert.Error(t, err)
}
