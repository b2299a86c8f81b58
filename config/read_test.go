package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadConfigAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `{"chat_backend": "local"}`)

	cfg, err := ReadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "0026123", cfg.SecretCode)
	assert.Equal(t, "CLEAR_ALL_ROOMS", cfg.AdminCode)
	assert.Equal(t, 300, cfg.RemovalDelayMS)
	assert.Equal(t, BackendLocal, cfg.ChatBackend)
}

func TestReadConfigOverrides(t *testing.T) {
	path := writeConfigFile(t, `{
		"port": 9000,
		"log_level": "debug",
		"chat_backend": "remote",
		"nats_url": "nats://example:4222",
		"redis_url": "redis://example:6379/0",
		"removal_delay_ms": 50
	}`)

	cfg, err := ReadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, BackendRemote, cfg.ChatBackend)
	assert.Equal(t, "nats://example:4222", cfg.NATSURL)
	assert.Equal(t, 50, cfg.RemovalDelayMS)
}

func TestReadConfigRejectsUnknownBackend(t *testing.T) {
	path := writeConfigFile(t, `{"chat_backend": "cloud"}`)

	_, err := ReadConfig(path)
	assert.ErrorContains(t, err, "unknown chat_backend")
}

func TestReadConfigMissingFile(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
