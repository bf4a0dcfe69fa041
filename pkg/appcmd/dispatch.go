package appcmd

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Dispatcher routes application command interactions to their commands.
type Dispatcher struct {
	registry  *Registry
	responder Responder
	resolver  EntityResolver
	log       zerolog.Logger

	mu          sync.RWMutex
	middlewares []Middleware
}

// NewDispatcher returns a dispatcher over reg. Middlewares wrap every
// invocation, the first being the outermost.
func NewDispatcher(reg *Registry, responder Responder, resolver EntityResolver, log zerolog.Logger, mws ...Middleware) *Dispatcher {
	return &Dispatcher{
		registry:    reg,
		responder:   responder,
		resolver:    resolver,
		middlewares: mws,
		log:         log,
	}
}

// Use appends middlewares. It is safe to call while interactions are being
// dispatched; invocations already in flight keep the chain they started with.
func (d *Dispatcher) Use(mws ...Middleware) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.middlewares = slices.Concat(d.middlewares, mws)
}

func (d *Dispatcher) chain() []Middleware {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.middlewares
}

// Resolve finds the command an interaction targets. Group invocations are
// resolved to the leaf by walking the subcommand option nodes.
func (d *Dispatcher) Resolve(i *discordgo.Interaction) (*Command, bool) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return nil, false
	}
	data := i.ApplicationCommandData()

	if d.registry.HasSubcommands(data.ID) && len(data.Options) > 0 {
		node := data.Options[0]
		path := []string{node.Name}
		for node.Type == OptionSubCommandGroup && len(node.Options) > 0 {
			node = node.Options[0]
			path = append(path, node.Name)
		}
		if c, ok := d.registry.LookupSubcommand(data.ID, strings.Join(path, " ")); ok {
			return c, true
		}
	}

	c, ok := d.registry.LookupByID(data.ID)
	if !ok || c.group {
		return nil, false
	}
	return c, true
}

// Dispatch invokes the command targeted by i. Interactions that are not
// application commands, or that target unknown commands, are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, i *discordgo.Interaction) (*InteractionContext, error) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return nil, nil
	}
	cmd, ok := d.Resolve(i)
	if !ok {
		data := i.ApplicationCommandData()
		d.log.Debug().Str("id", data.ID).Str("name", data.Name).Msg("no command for interaction")
		return nil, nil
	}

	ic := newInteractionContext(ctx, i, d)
	ic.log = d.log.With().Str("interaction", i.ID).Str("guild", i.GuildID).Logger()
	return ic, ic.Invoke(cmd)
}
