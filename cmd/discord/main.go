// cmd/discord/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/appcmd/internal/config"
	"github.com/keshon/appcmd/internal/discord"
	"github.com/keshon/appcmd/internal/logging"
	"github.com/keshon/appcmd/internal/storage"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		zlog.Fatal().Err(err).Msg("invalid config")
	}

	log, closer, err := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to set up logging")
	}
	zlog.Logger = log
	discordgo.Logger = logging.Discordgo(log)

	code := run(cfg, log)
	closer.Close()
	os.Exit(code)
}

func run(cfg *config.Config, log zerolog.Logger) int {
	log.Info().Msg("starting bot")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(ctx, cfg.StoragePath)
	if err != nil {
		log.Error().Err(err).Msg("failed to open storage")
		return 1
	}
	defer store.Close()

	bot, err := discord.NewBot(ctx, cfg, store, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to create bot")
		return 1
	}

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	code := 0
	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("discord bot error")
			code = 1
		}
		cancel()
	}

	log.Info().Msg("discord bot exited cleanly")
	return code
}
