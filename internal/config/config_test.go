package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 10_000, cfg.MaxInMemory)
	assert.Equal(t, 64, cfg.MaxConcurrentExecuting)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("MAX_IN_MEMORY", "42")
	t.Setenv("POLL_INTERVAL", "5s")

	cfg := Load()
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 42, cfg.MaxInMemory)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
}

func TestGetEnvInt_IgnoresNonPositiveValues(t *testing.T) {
	t.Setenv("MAX_IN_MEMORY", "-5")
	cfg := Load()
	assert.Equal(t, 10_000, cfg.MaxInMemory, "non-positive override should fall back to default")
}
