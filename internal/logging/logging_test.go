package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConsoleRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log, closer, err := New(Options{Level: "warn", Console: &buf, NoColor: true})
	require.NoError(t, err)
	defer closer.Close()

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New(Options{Level: "chatty"})
	assert.Error(t, err)
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	var buf bytes.Buffer
	log, closer, err := New(Options{File: path, Console: &buf, MaxSizeMB: 1})
	require.NoError(t, err)

	log.Info().Str("guild", "g1").Msg("synced")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"guild":"g1"`)
	assert.Contains(t, string(data), `"message":"synced"`)
}

func TestDiscordgoAdapter(t *testing.T) {
	var buf bytes.Buffer
	log, _, err := New(Options{Level: "info", Console: &buf, NoColor: true})
	require.NoError(t, err)

	fn := Discordgo(log)
	fn(discordgo.LogError, 1, "heartbeat %s", "failed")
	fn(discordgo.LogDebug, 1, "noise")

	assert.Contains(t, buf.String(), "heartbeat failed")
	assert.Contains(t, buf.String(), "component=discordgo")
	assert.NotContains(t, buf.String(), "noise")
}

func TestDiscordgoLevel(t *testing.T) {
	assert.Equal(t, discordgo.LogDebug, DiscordgoLevel(zerolog.TraceLevel))
	assert.Equal(t, discordgo.LogInformational, DiscordgoLevel(zerolog.InfoLevel))
	assert.Equal(t, discordgo.LogWarning, DiscordgoLevel(zerolog.WarnLevel))
	assert.Equal(t, discordgo.LogError, DiscordgoLevel(zerolog.ErrorLevel))
}
