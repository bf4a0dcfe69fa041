// Package appcmdtest provides an in-memory Discord backend for testing code
// built on appcmd.
package appcmdtest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/appcmd/pkg/appcmd"
	"github.com/keshon/appcmd/pkg/retrylimit"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned for entities the backend does not know.
var ErrNotFound = errors.New("appcmdtest: not found")

// Backend implements appcmd.Backend in memory. Registered commands keep their
// id across upserts while name and type stay the same.
type Backend struct {
	mu     sync.Mutex
	nextID int

	Global    []*discordgo.ApplicationCommand
	GuildCmds map[string][]*discordgo.ApplicationCommand
	Guilds    []string

	Users    map[string]*discordgo.User
	Members  map[string]*discordgo.Member
	Channels map[string]*discordgo.Channel
	Roles    map[string]*discordgo.Role

	Responses []*discordgo.InteractionResponse
	Followups []*discordgo.WebhookParams
	Edits     []*discordgo.WebhookEdit
	Sent      []*discordgo.MessageSend
}

var _ appcmd.Backend = (*Backend)(nil)

func NewBackend() *Backend {
	return &Backend{
		GuildCmds: make(map[string][]*discordgo.ApplicationCommand),
		Users:     make(map[string]*discordgo.User),
		Members:   make(map[string]*discordgo.Member),
		Channels:  make(map[string]*discordgo.Channel),
		Roles:     make(map[string]*discordgo.Role),
	}
}

func (b *Backend) overwrite(prefix string, have, payload []*discordgo.ApplicationCommand) []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(payload))
	for _, p := range payload {
		cp := *p
		for _, h := range have {
			if h.Name == cp.Name && h.Type == cp.Type {
				cp.ID = h.ID
			}
		}
		if cp.ID == "" {
			b.nextID++
			cp.ID = fmt.Sprintf("%s%d", prefix, b.nextID)
		}
		out = append(out, &cp)
	}
	return out
}

func (b *Backend) GlobalCommands(ctx context.Context) ([]*discordgo.ApplicationCommand, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*discordgo.ApplicationCommand(nil), b.Global...), nil
}

func (b *Backend) BulkUpsertGlobalCommands(ctx context.Context, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Global = b.overwrite("g", b.Global, cmds)
	return b.Global, nil
}

func (b *Backend) BulkUpsertGuildCommands(ctx context.Context, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.GuildCmds[guildID] = b.overwrite(guildID+"-", b.GuildCmds[guildID], cmds)
	return b.GuildCmds[guildID], nil
}

func (b *Backend) BulkEditGuildPermissions(ctx context.Context, guildID string, perms []*discordgo.GuildApplicationCommandPermissions) error {
	return nil
}

func (b *Backend) CurrentGuilds(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.Guilds...), nil
}

func (b *Backend) User(ctx context.Context, id string) (*discordgo.User, error) {
	if u, ok := b.Users[id]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

func (b *Backend) Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if m, ok := b.Members[userID]; ok {
		return m, nil
	}
	return nil, ErrNotFound
}

func (b *Backend) Channel(ctx context.Context, id string) (*discordgo.Channel, error) {
	if ch, ok := b.Channels[id]; ok {
		return ch, nil
	}
	return nil, ErrNotFound
}

func (b *Backend) Role(ctx context.Context, guildID, id string) (*discordgo.Role, error) {
	if r, ok := b.Roles[id]; ok {
		return r, nil
	}
	return nil, ErrNotFound
}

func (b *Backend) DMChannel(ctx context.Context, userID string) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: "dm-" + userID, Type: discordgo.ChannelTypeDM}, nil
}

func (b *Backend) Respond(ctx context.Context, i *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Responses = append(b.Responses, resp)
	return nil
}

func (b *Backend) EditResponse(ctx context.Context, i *discordgo.Interaction, edit *discordgo.WebhookEdit) (*discordgo.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Edits = append(b.Edits, edit)
	return &discordgo.Message{}, nil
}

func (b *Backend) Followup(ctx context.Context, i *discordgo.Interaction, params *discordgo.WebhookParams) (*discordgo.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Followups = append(b.Followups, params)
	return &discordgo.Message{}, nil
}

func (b *Backend) SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Sent = append(b.Sent, msg)
	return &discordgo.Message{ChannelID: channelID}, nil
}

// LastResponse returns the most recent interaction response, or nil.
func (b *Backend) LastResponse() *discordgo.InteractionResponseData {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.Responses) == 0 {
		return nil
	}
	return b.Responses[len(b.Responses)-1].Data
}

// NewClient returns a client on b that logs nothing and syncs without
// retries or rate limiting.
func NewClient(b *Backend, opts ...appcmd.ClientOption) *appcmd.Client {
	retry := retrylimit.DefaultConfig()
	retry.MaxAttempts = 1
	retry.InitialDelay = time.Millisecond
	base := []appcmd.ClientOption{
		appcmd.WithLogger(zerolog.Nop()),
		appcmd.WithSyncOptions(
			appcmd.WithRetry(retry),
			appcmd.WithRateLimiter(retrylimit.NewAdaptiveLimiter(1000, 1000, 1000, 0, 1)),
		),
	}
	return appcmd.New(b, append(base, opts...)...)
}

// Caller is the member invoking commands built by Slash and friends.
var Caller = &discordgo.Member{
	User:        &discordgo.User{ID: "caller", Username: "caller"},
	Permissions: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
}

// Interaction builds a guild interaction from guild "guild" and channel
// "channel".
func Interaction(data discordgo.ApplicationCommandInteractionData) *discordgo.Interaction {
	member := *Caller
	return &discordgo.Interaction{
		ID:        "interaction",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "guild",
		ChannelID: "channel",
		Member:    &member,
		Data:      data,
	}
}

// Slash builds the interaction of the slash command at path, e.g. "docs
// search", with opts as the leaf's options. The root must be registered.
func Slash(c *appcmd.Client, path string, opts ...*discordgo.ApplicationCommandInteractionDataOption) (*discordgo.Interaction, error) {
	parts := strings.Fields(path)
	if len(parts) == 0 {
		return nil, errors.New("appcmdtest: empty command path")
	}
	root, ok := c.Lookup(parts[0])
	if !ok || root.ID() == "" {
		return nil, fmt.Errorf("appcmdtest: %s is not registered", parts[0])
	}

	// Wrap leaf options in subcommand and group nodes from the inside out.
	nodes := opts
	for i := len(parts) - 1; i >= 1; i-- {
		typ := appcmd.OptionSubCommand
		if i < len(parts)-1 {
			typ = appcmd.OptionSubCommandGroup
		}
		nodes = []*discordgo.ApplicationCommandInteractionDataOption{{
			Name:    parts[i],
			Type:    typ,
			Options: nodes,
		}}
	}
	return Interaction(discordgo.ApplicationCommandInteractionData{
		ID:          root.ID(),
		Name:        root.Name(),
		CommandType: discordgo.ChatApplicationCommand,
		Options:     nodes,
	}), nil
}

// Opt builds a leaf option value.
func Opt(name string, typ appcmd.OptionType, value any) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: typ, Value: value}
}

// Run syncs pending commands and dispatches the slash command at path.
func Run(ctx context.Context, c *appcmd.Client, path string, opts ...*discordgo.ApplicationCommandInteractionDataOption) error {
	if len(c.Registry().Pending()) > 0 {
		if _, err := c.Sync(ctx); err != nil {
			return err
		}
	}
	i, err := Slash(c, path, opts...)
	if err != nil {
		return err
	}
	c.HandleInteraction(ctx, i)
	return nil
}
