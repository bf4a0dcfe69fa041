package appcmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/appcmd/pkg/jobmgr"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const syncJob = "sync"

// Backend is everything a Client needs from Discord. SessionPlatform
// implements it.
type Backend interface {
	Platform
	EntityResolver
	Responder
}

// ErrorHandler receives errors returned by command handlers.
type ErrorHandler func(ic *InteractionContext, err error)

// Client ties the registry, synchronizer and dispatcher together.
type Client struct {
	backend    Backend
	registry   *Registry
	syncer     *Synchronizer
	dispatcher *Dispatcher
	events     *EventBus
	jobs       *jobmgr.Manager
	log        zerolog.Logger

	onError     ErrorHandler
	syncOnReady bool
	observers   []func(*SyncReport, error)

	mu         sync.Mutex
	extensions map[string][]*Command
	extOrder   []string

	ready sync.Once
}

type clientConfig struct {
	log         zerolog.Logger
	middlewares []Middleware
	syncOpts    []SyncOption
	eventBuffer int
	onError     ErrorHandler
	syncOnReady bool
	observers   []func(*SyncReport, error)
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

// WithLogger sets the logger. The default is zerolog's global logger.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *clientConfig) { c.log = l }
}

// WithMiddleware wraps every command invocation.
func WithMiddleware(mws ...Middleware) ClientOption {
	return func(c *clientConfig) { c.middlewares = append(c.middlewares, mws...) }
}

// WithErrorHandler replaces the default handler error reporting.
func WithErrorHandler(h ErrorHandler) ClientOption {
	return func(c *clientConfig) { c.onError = h }
}

// WithSyncOnReady controls the automatic sync on the first Ready event.
func WithSyncOnReady(enabled bool) ClientOption {
	return func(c *clientConfig) { c.syncOnReady = enabled }
}

// WithSyncObserver is called after every sync cycle.
func WithSyncObserver(fn func(*SyncReport, error)) ClientOption {
	return func(c *clientConfig) { c.observers = append(c.observers, fn) }
}

// WithSyncOptions configures the synchronizer.
func WithSyncOptions(opts ...SyncOption) ClientOption {
	return func(c *clientConfig) { c.syncOpts = append(c.syncOpts, opts...) }
}

// WithEventBuffer sets how many undelivered events the bus holds.
func WithEventBuffer(n int) ClientOption {
	return func(c *clientConfig) { c.eventBuffer = n }
}

// New returns a client on top of b.
func New(b Backend, opts ...ClientOption) *Client {
	cfg := clientConfig{
		log:         log.Logger,
		eventBuffer: 64,
		syncOnReady: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Client{
		backend:     b,
		registry:    NewRegistry(),
		events:      NewEventBus(cfg.eventBuffer),
		log:         cfg.log,
		onError:     cfg.onError,
		syncOnReady: cfg.syncOnReady,
		observers:   cfg.observers,
		extensions:  make(map[string][]*Command),
	}
	c.jobs = jobmgr.NewManager(c.log)

	syncOpts := append([]SyncOption{WithSyncLogger(c.log), WithSyncEvents(c.events)}, cfg.syncOpts...)
	c.syncer = NewSynchronizer(c.registry, b, syncOpts...)
	c.dispatcher = NewDispatcher(c.registry, b, b, c.log, cfg.middlewares...)
	if c.onError == nil {
		c.onError = c.reportError
	}
	return c
}

// NewForSession builds a client for s and binds it to the session events.
func NewForSession(ctx context.Context, s *discordgo.Session, opts ...ClientOption) *Client {
	c := New(NewSessionPlatform(s), opts...)
	c.Bind(ctx, s)
	return c
}

// Bind subscribes the client to Ready and InteractionCreate events of s.
// The returned func unsubscribes.
func (c *Client) Bind(ctx context.Context, s *discordgo.Session) func() {
	removeReady := s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		if sp, ok := c.backend.(*SessionPlatform); ok && r.Application != nil && r.Application.ID != "" {
			sp.SetApplicationID(r.Application.ID)
		}
		c.HandleReady(ctx)
	})
	removeInteraction := s.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		c.HandleInteraction(ctx, i.Interaction)
	})
	return func() {
		removeReady()
		removeInteraction()
	}
}

// HandleReady runs the first sync. Later Ready events (reconnects) do nothing.
func (c *Client) HandleReady(ctx context.Context) {
	c.ready.Do(func() {
		if !c.syncOnReady {
			c.log.Info().Msg("command sync on ready is disabled")
			return
		}
		if _, err := c.Sync(ctx); err != nil {
			c.log.Error().Err(err).Msg("initial command sync failed")
		}
	})
}

// HandleInteraction dispatches i and reports handler errors.
func (c *Client) HandleInteraction(ctx context.Context, i *discordgo.Interaction) {
	ic, err := c.dispatcher.Dispatch(ctx, i)
	if err != nil && ic != nil {
		c.onError(ic, err)
	}
}

func (c *Client) reportError(ic *InteractionContext, err error) {
	ic.Logger().Error().Err(err).Msg("error running command")

	embed := &discordgo.MessageEmbed{
		Description: fmt.Sprintf("Error running command: %v", err),
		Color:       0xb01e66,
	}
	var rerr error
	if ic.Responded() {
		_, rerr = ic.Followup(&discordgo.WebhookParams{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		})
	} else {
		rerr = ic.ReplyEmbed(embed, true)
	}
	if rerr != nil {
		ic.Logger().Warn().Err(rerr).Msg("failed to report command error")
	}
}

// Sync pushes the pending commands now.
func (c *Client) Sync(ctx context.Context) (*SyncReport, error) {
	var report *SyncReport
	err := c.jobs.Run(ctx, syncJob, func(ctx context.Context) error {
		var err error
		report, err = c.syncer.Sync(ctx)
		return err
	})
	for _, fn := range c.observers {
		fn(report, err)
	}
	return report, err
}

// Resync queues every known command again and syncs. Bulk upserts replace
// the whole remote set, so this is the way to apply removals.
func (c *Client) Resync(ctx context.Context) (*SyncReport, error) {
	c.registry.AddPending(c.registry.Roots()...)
	return c.Sync(ctx)
}

// Add queues top-level commands for the next sync.
func (c *Client) Add(cmds ...*Command) {
	c.registry.AddPending(cmds...)
}

// Remove forgets cmd locally. It disappears from Discord on the next Resync.
func (c *Client) Remove(cmd *Command) {
	c.registry.Remove(cmd)
}

// Slash declares and queues a slash command.
func (c *Client) Slash(name, description string, handler any, opts ...CommandOption) (*Command, error) {
	cmd, err := NewSlash(name, description, handler, opts...)
	if err != nil {
		return nil, err
	}
	c.Add(cmd)
	return cmd, nil
}

// User declares and queues a user context-menu command.
func (c *Client) User(name string, handler any, opts ...CommandOption) (*Command, error) {
	cmd, err := NewUserCommand(name, handler, opts...)
	if err != nil {
		return nil, err
	}
	c.Add(cmd)
	return cmd, nil
}

// Message declares and queues a message context-menu command.
func (c *Client) Message(name string, handler any, opts ...CommandOption) (*Command, error) {
	cmd, err := NewMessageCommand(name, handler, opts...)
	if err != nil {
		return nil, err
	}
	c.Add(cmd)
	return cmd, nil
}

// SlashGroup declares and queues a subcommand group.
func (c *Client) SlashGroup(name, description string, opts ...CommandOption) (*Command, error) {
	g, err := NewGroup(name, description, opts...)
	if err != nil {
		return nil, err
	}
	c.Add(g)
	return g, nil
}

// AddExtension collects ext's commands and queues them.
func (c *Client) AddExtension(ext Extension) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.extensions[ext.Name()]; ok {
		return fmt.Errorf("%s: %w", ext.Name(), ErrExtensionExists)
	}
	cmds, err := Collect(ext)
	if err != nil {
		return err
	}
	c.extensions[ext.Name()] = cmds
	c.extOrder = append(c.extOrder, ext.Name())
	c.registry.AddPending(cmds...)
	c.log.Debug().Str("extension", ext.Name()).Int("commands", len(cmds)).Msg("extension added")
	return nil
}

// RemoveExtension forgets every command of the named extension.
func (c *Client) RemoveExtension(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cmds, ok := c.extensions[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrNoExtension)
	}
	for _, cmd := range cmds {
		c.registry.Remove(cmd)
	}
	delete(c.extensions, name)
	for i, n := range c.extOrder {
		if n == name {
			c.extOrder = append(c.extOrder[:i], c.extOrder[i+1:]...)
			break
		}
	}
	return nil
}

// Extensions returns the names of added extensions in order.
func (c *Client) Extensions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.extOrder...)
}

// Lookup finds a slash command by full name, e.g. "docs search".
func (c *Client) Lookup(fullName string) (*Command, bool) {
	return c.registry.LookupByName(fullName)
}

// Registry exposes the command indexes.
func (c *Client) Registry() *Registry { return c.registry }

// Dispatcher exposes the dispatcher, e.g. to add middlewares late.
func (c *Client) Dispatcher() *Dispatcher { return c.dispatcher }

// Events returns diagnostic events such as EventGuildRegisterFail.
func (c *Client) Events() <-chan Event { return c.events.Events() }
