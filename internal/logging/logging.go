// /internal/logging/logging.go
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int

	// Console defaults to stderr.
	Console io.Writer
	NoColor bool
}

// New builds a logger writing human readable lines to the console and, when
// File is set, JSON lines to a rotated file. The returned closer flushes the
// file and is a no-op without one.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("log level: %w", err)
		}
		level = l
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.DateTime,
		NoColor:    opts.NoColor,
	}}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		}
		writers = append(writers, rotated)
		closer = rotated
	}

	log := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Logger()
	return log, closer, nil
}

// Discordgo routes the library's internal messages into log under the
// "discordgo" component.
func Discordgo(log zerolog.Logger) func(msgL, caller int, format string, a ...any) {
	log = log.With().Str("component", "discordgo").Logger()
	return func(msgL, caller int, format string, a ...any) {
		var evt *zerolog.Event
		switch msgL {
		case discordgo.LogError:
			evt = log.Error()
		case discordgo.LogWarning:
			evt = log.Warn()
		case discordgo.LogInformational:
			evt = log.Info()
		default:
			evt = log.Debug()
		}
		evt.Msgf(format, a...)
	}
}

// DiscordgoLevel is the session log level that lets through what l keeps.
func DiscordgoLevel(l zerolog.Level) int {
	switch {
	case l <= zerolog.DebugLevel:
		return discordgo.LogDebug
	case l == zerolog.InfoLevel:
		return discordgo.LogInformational
	case l == zerolog.WarnLevel:
		return discordgo.LogWarning
	}
	return discordgo.LogError
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
