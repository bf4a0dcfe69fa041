package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "token", cfg.DiscordToken)
	assert.Equal(t, "datastore.json", cfg.StoragePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.SyncOnReady)
	assert.Equal(t, 5.0, cfg.RegisterRate)
	assert.Nil(t, cfg.DevGuildIDs)
	assert.NoError(t, cfg.Validate())
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("STORAGE_PATH", "/tmp/x.json")
	t.Setenv("DEV_GUILD_IDS", "1, 2,,3")
	t.Setenv("SYNC_ON_READY", "false")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.json", cfg.StoragePath)
	assert.Equal(t, []string{"1", "2", "3"}, cfg.DevGuildIDs)
	assert.False(t, cfg.SyncOnReady)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParseRejectsBadValues(t *testing.T) {
	t.Setenv("SYNC_ON_READY", "maybe")
	_, err := Parse()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{LogLevel: "info", RegisterRate: 1}
	assert.ErrorIs(t, cfg.Validate(), ErrNoToken)

	cfg.DiscordToken = "token"
	cfg.LogLevel = "loud"
	assert.Error(t, cfg.Validate())

	cfg.LogLevel = "warn"
	cfg.RegisterRate = 0
	assert.Error(t, cfg.Validate())
}
