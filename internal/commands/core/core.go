// Package core is the built-in extension: help, latency, id lookups and
// per-guild command toggles.
package core

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/appcmd/internal/middleware"
	"github.com/keshon/appcmd/internal/storage"
	"github.com/keshon/appcmd/pkg/appcmd"
)

const EmbedColor = 0xb01e66

// Catalog lists the commands help can describe. *appcmd.Client implements it.
type Catalog interface {
	Registry() *appcmd.Registry
	Lookup(fullName string) (*appcmd.Command, bool)
}

type Core struct {
	catalog Catalog
	storage *storage.Storage
	latency func() time.Duration
	scope   appcmd.Scope
	started time.Time
}

type Option func(*Core)

// WithLatency sets the source of the heartbeat latency shown by /ping.
func WithLatency(fn func() time.Duration) Option {
	return func(c *Core) { c.latency = fn }
}

// WithScope registers the extension's commands in scope instead of globally.
func WithScope(s appcmd.Scope) Option {
	return func(c *Core) { c.scope = s }
}

func New(catalog Catalog, store *storage.Storage, opts ...Option) *Core {
	c := &Core{
		catalog: catalog,
		storage: store,
		scope:   appcmd.GlobalScope(),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Core) Name() string { return "core" }

func (c *Core) AppCommands() []*appcmd.Command {
	in := appcmd.WithScope(c.scope)

	commands := appcmd.Must(appcmd.NewGroup(middleware.ToggleCommand, "Manage commands on this server",
		in,
		appcmd.GuildOnly(),
		appcmd.WithMemberPermissions(discordgo.PermissionManageServer),
	))
	appcmd.Must(commands.Subcommand("status", "List disabled commands", (*Core).Status))
	appcmd.Must(commands.Subcommand("toggle", "Turn a command on or off", (*Core).Toggle))
	appcmd.Must(commands.Subcommand("log", "Review recently used commands", (*Core).Log))

	return []*appcmd.Command{
		appcmd.Must(appcmd.NewSlash("help", "Get a list of available commands", (*Core).Help, in)),
		appcmd.Must(appcmd.NewSlash("ping", "Check bot latency", (*Core).Ping, in)),
		appcmd.Must(appcmd.NewSlash("id", "Show the id of a user", (*Core).UserID, in)),
		appcmd.Must(appcmd.NewUserCommand("id", (*Core).TargetID, in)),
		appcmd.Must(appcmd.NewMessageCommand("id", (*Core).MessageID, in)),
		commands,
	}
}

func embed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       EmbedColor,
	}
}
