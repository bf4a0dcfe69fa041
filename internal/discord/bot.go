package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/appcmd/internal/config"
	"github.com/keshon/appcmd/internal/logging"
	"github.com/keshon/appcmd/internal/storage"
	"github.com/keshon/appcmd/pkg/appcmd"
	"github.com/rs/zerolog"
)

// Bot is a Discord session with the application command client bound to it.
type Bot struct {
	dg      *discordgo.Session
	client  *appcmd.Client
	storage *storage.Storage
	cfg     *config.Config
	log     zerolog.Logger
}

// NewBot creates the session and the command client with every bundled
// extension added. Nothing connects until Run.
func NewBot(ctx context.Context, cfg *config.Config, store *storage.Storage, log zerolog.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds
	dg.LogLevel = logging.DiscordgoLevel(log.GetLevel())

	b := &Bot{dg: dg, storage: store, cfg: cfg, log: log}
	b.client = appcmd.NewForSession(ctx, dg, ClientOptions(cfg, store, log)...)

	exts, err := Extensions(cfg, b.client, store, dg.HeartbeatLatency, log)
	if err != nil {
		return nil, err
	}
	for _, ext := range exts {
		if err := b.client.AddExtension(ext); err != nil {
			return nil, fmt.Errorf("add extension %s: %w", ext.Name(), err)
		}
	}

	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onGuildDelete)
	return b, nil
}

// Client exposes the command client.
func (b *Bot) Client() *appcmd.Client { return b.client }

// Run opens the session and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	go b.watchEvents(ctx)

	<-ctx.Done()
	b.log.Info().Msg("shutdown signal received, cleaning up")
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info().
		Str("user", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Msg("discord bot is running")
}

// onGuildDelete drops the sync ledger of guilds the bot was removed from.
// Outages also raise GuildDelete, with Unavailable set.
func (b *Bot) onGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Guild == nil || g.Unavailable {
		return
	}
	b.log.Info().Str("guild", g.ID).Msg("removed from guild")
	if err := b.storage.ForgetScope(g.ID); err != nil {
		b.log.Error().Err(err).Str("guild", g.ID).Msg("failed to forget guild sync record")
	}
}

func (b *Bot) watchEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-b.client.Events():
			logEvent(b.log, evt)
		}
	}
}

func logEvent(log zerolog.Logger, evt appcmd.Event) {
	switch evt.Type {
	case appcmd.EventGuildRegisterFail:
		names := make([]string, len(evt.Payload))
		for i, ac := range evt.Payload {
			names[i] = ac.Name
		}
		log.Warn().Err(evt.Err).
			Str("guild", evt.GuildID).
			Strs("commands", names).
			Msg("guild rejected its commands")
	case appcmd.EventSynced:
		if evt.Report == nil {
			return
		}
		log.Info().
			Int("global", len(evt.Report.Global)).
			Int("guilds", len(evt.Report.Guilds)).
			Int("failures", len(evt.Report.Failures)).
			Dur("took", evt.Report.FinishedAt.Sub(evt.Report.StartedAt)).
			Msg("commands synced")
	}
}
