package appcmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/appcmd/pkg/retrylimit"
	"github.com/rs/zerolog"
)

// Platform is the part of the Discord API the synchronizer needs.
type Platform interface {
	GlobalCommands(ctx context.Context) ([]*discordgo.ApplicationCommand, error)
	BulkUpsertGlobalCommands(ctx context.Context, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error)
	BulkUpsertGuildCommands(ctx context.Context, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error)
	BulkEditGuildPermissions(ctx context.Context, guildID string, perms []*discordgo.GuildApplicationCommandPermissions) error
	CurrentGuilds(ctx context.Context) ([]string, error)
}

// SyncReport describes one sync cycle.
type SyncReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Global     []*discordgo.ApplicationCommand
	Guilds     map[string][]*discordgo.ApplicationCommand
	Failures   map[string]error
}

// Synchronizer pushes the registry's pending commands to the platform.
type Synchronizer struct {
	registry *Registry
	platform Platform
	events   *EventBus
	log      zerolog.Logger
	limiter  *retrylimit.AdaptiveLimiter
	retry    retrylimit.Config
}

// SyncOption configures a Synchronizer.
type SyncOption func(*Synchronizer)

// WithSyncLogger sets the logger.
func WithSyncLogger(log zerolog.Logger) SyncOption {
	return func(s *Synchronizer) { s.log = log }
}

// WithSyncEvents publishes diagnostics to bus.
func WithSyncEvents(bus *EventBus) SyncOption {
	return func(s *Synchronizer) { s.events = bus }
}

// WithRetry sets how failed platform calls are retried.
func WithRetry(cfg retrylimit.Config) SyncOption {
	return func(s *Synchronizer) { s.retry = cfg }
}

// WithRateLimiter shares a limiter across platform calls.
func WithRateLimiter(lim *retrylimit.AdaptiveLimiter) SyncOption {
	return func(s *Synchronizer) { s.limiter = lim }
}

// NewSynchronizer returns a synchronizer for reg.
func NewSynchronizer(reg *Registry, p Platform, opts ...SyncOption) *Synchronizer {
	s := &Synchronizer{
		registry: reg,
		platform: p,
		log:      zerolog.Nop(),
		limiter:  retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5),
		retry:    retrylimit.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.retry.Logger = s.log
	return s
}

func (s *Synchronizer) call(ctx context.Context, fn func() error) error {
	return retrylimit.Do(ctx, s.limiter, s.retry, fn)
}

func (s *Synchronizer) publish(evt Event) {
	if s.events != nil && !s.events.Publish(evt) {
		s.log.Warn().Str("event", string(evt.Type)).Msg("event bus full, event dropped")
	}
}

// Sync runs one registration cycle over the pending queue. Guild failures are
// logged, published as EventGuildRegisterFail and skipped; a global failure
// is returned. The pending commands are dequeued either way.
func (s *Synchronizer) Sync(ctx context.Context) (*SyncReport, error) {
	report := &SyncReport{
		StartedAt: time.Now(),
		Guilds:    make(map[string][]*discordgo.ApplicationCommand),
		Failures:  make(map[string]error),
	}
	pending := s.registry.Pending()
	defer s.registry.clearPending(pending)
	defer func() { report.FinishedAt = time.Now() }()

	var global, scoped []*Command
	for _, c := range pending {
		if c.Scope().IsGlobal() {
			global = append(global, c)
		} else {
			scoped = append(scoped, c)
		}
	}

	var remote []*discordgo.ApplicationCommand
	err := s.call(ctx, func() (err error) {
		remote, err = s.platform.GlobalCommands(ctx)
		return err
	})
	if err != nil {
		return report, fmt.Errorf("fetch global commands: %w", err)
	}
	globalPayload := make([]*discordgo.ApplicationCommand, 0, len(global))
	for _, c := range global {
		ac := c.ApplicationCommand()
		for _, r := range remote {
			if r.Name == ac.Name && r.Type == ac.Type {
				ac.ID = r.ID
				break
			}
		}
		globalPayload = append(globalPayload, ac)
	}

	guildOrder, perGuild, err := s.groupByGuild(ctx, scoped)
	if err != nil {
		return report, err
	}
	for _, guildID := range guildOrder {
		s.syncGuild(ctx, guildID, perGuild[guildID], report)
	}

	var registered []*discordgo.ApplicationCommand
	err = s.call(ctx, func() (err error) {
		registered, err = s.platform.BulkUpsertGlobalCommands(ctx, globalPayload)
		return err
	})
	if err != nil {
		return report, fmt.Errorf("upsert global commands: %w", err)
	}
	report.Global = registered
	if perms := s.assign(registered, global, ""); len(perms) > 0 {
		s.log.Warn().Int("commands", len(perms)).Msg("permission overlays on global commands are ignored")
	}

	s.log.Info().
		Int("global", len(registered)).
		Int("guilds", len(report.Guilds)).
		Int("failed", len(report.Failures)).
		Msg("application commands synced")
	s.publish(Event{Type: EventSynced, Report: report})
	return report, nil
}

// groupByGuild expands scopes into per-guild command lists. The live guild
// list is only fetched when an all-guilds command is pending.
func (s *Synchronizer) groupByGuild(ctx context.Context, scoped []*Command) ([]string, map[string][]*Command, error) {
	var live []string
	for _, c := range scoped {
		if !c.Scope().IsAllGuilds() {
			continue
		}
		err := s.call(ctx, func() (err error) {
			live, err = s.platform.CurrentGuilds(ctx)
			return err
		})
		if err != nil {
			return nil, nil, fmt.Errorf("list guilds: %w", err)
		}
		break
	}

	var order []string
	per := make(map[string][]*Command)
	for _, c := range scoped {
		for _, guildID := range c.Scope().resolve(live) {
			if _, ok := per[guildID]; !ok {
				order = append(order, guildID)
			}
			per[guildID] = append(per[guildID], c)
		}
	}
	return order, per, nil
}

func (s *Synchronizer) syncGuild(ctx context.Context, guildID string, cmds []*Command, report *SyncReport) {
	if len(cmds) == 0 {
		return
	}
	payload := make([]*discordgo.ApplicationCommand, len(cmds))
	for i, c := range cmds {
		payload[i] = c.ApplicationCommand()
	}

	var registered []*discordgo.ApplicationCommand
	err := s.call(ctx, func() (err error) {
		registered, err = s.platform.BulkUpsertGuildCommands(ctx, guildID, payload)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			s.log.Error().Err(err).Str("guild", guildID).
				Msg("guild did not grant the applications.commands scope, skipping")
		} else {
			s.log.Error().Err(err).Str("guild", guildID).Msg("failed to register guild commands")
		}
		report.Failures[guildID] = err
		s.publish(Event{Type: EventGuildRegisterFail, GuildID: guildID, Payload: payload, Err: err})
		return
	}
	report.Guilds[guildID] = registered

	perms := s.assign(registered, cmds, guildID)
	if len(perms) == 0 {
		return
	}
	err = s.call(ctx, func() error {
		return s.platform.BulkEditGuildPermissions(ctx, guildID, perms)
	})
	if err != nil {
		s.log.Error().Err(err).Str("guild", guildID).Msg("failed to edit command permissions")
		report.Failures[guildID] = err
	}
}

// assign matches returned descriptors to commands by name and kind, records
// ids and collects permission overlays.
func (s *Synchronizer) assign(registered []*discordgo.ApplicationCommand, cmds []*Command, guildID string) []*discordgo.GuildApplicationCommandPermissions {
	var perms []*discordgo.GuildApplicationCommandPermissions
	for _, ac := range registered {
		var c *Command
		for _, candidate := range cmds {
			if candidate.name == ac.Name && candidate.kind.ApplicationCommandType() == ac.Type {
				c = candidate
				break
			}
		}
		if c == nil {
			s.log.Warn().Str("name", ac.Name).Str("guild", guildID).Msg("platform returned an unknown command")
			continue
		}

		c.setID(ac.ID)
		s.registry.index(ac.ID, c)

		overlays := c.Permissions()
		if len(overlays) == 0 {
			continue
		}
		wire := make([]*discordgo.ApplicationCommandPermissions, len(overlays))
		for i, p := range overlays {
			wire[i] = p.wire()
		}
		perms = append(perms, &discordgo.GuildApplicationCommandPermissions{
			ID:            ac.ID,
			ApplicationID: ac.ApplicationID,
			GuildID:       guildID,
			Permissions:   wire,
		})
	}
	return perms
}
