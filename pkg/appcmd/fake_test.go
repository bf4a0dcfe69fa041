package appcmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/appcmd/pkg/retrylimit"
	"github.com/rs/zerolog"
)

var errNotFound = errors.New("not found")

// fakeBackend keeps remote command state in memory the way bulk overwrite
// does: commands keep their id while name and type stay the same.
type fakeBackend struct {
	mu     sync.Mutex
	nextID int

	global      []*discordgo.ApplicationCommand
	guildCmds   map[string][]*discordgo.ApplicationCommand
	guilds      []string
	guildErrs   map[string]error
	globalErr   error
	guildCalls  []string
	guildLists  int
	permEdits   map[string][]*discordgo.GuildApplicationCommandPermissions
	globalCalls int

	users    map[string]*discordgo.User
	members  map[string]*discordgo.Member
	channels map[string]*discordgo.Channel
	roles    map[string]*discordgo.Role
	dms      map[string]*discordgo.Channel

	responses []*discordgo.InteractionResponse
	followups []*discordgo.WebhookParams
	sent      []*discordgo.MessageSend
	edits     []*discordgo.WebhookEdit
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		guildCmds: make(map[string][]*discordgo.ApplicationCommand),
		guildErrs: make(map[string]error),
		permEdits: make(map[string][]*discordgo.GuildApplicationCommandPermissions),
		users:     make(map[string]*discordgo.User),
		members:   make(map[string]*discordgo.Member),
		channels:  make(map[string]*discordgo.Channel),
		roles:     make(map[string]*discordgo.Role),
		dms:       make(map[string]*discordgo.Channel),
	}
}

func forbidden() error {
	return &RESTError{Status: http.StatusForbidden, Err: errors.New("Missing Access")}
}

func (f *fakeBackend) overwrite(prefix string, have, payload []*discordgo.ApplicationCommand) []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(payload))
	for _, p := range payload {
		cp := *p
		cp.ApplicationID = "app"
		for _, h := range have {
			if h.Name == cp.Name && h.Type == cp.Type {
				cp.ID = h.ID
			}
		}
		if cp.ID == "" {
			f.nextID++
			cp.ID = fmt.Sprintf("%s%d", prefix, f.nextID)
		}
		out = append(out, &cp)
	}
	return out
}

func (f *fakeBackend) GlobalCommands(ctx context.Context) ([]*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*discordgo.ApplicationCommand(nil), f.global...), nil
}

func (f *fakeBackend) BulkUpsertGlobalCommands(ctx context.Context, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.globalCalls++
	if f.globalErr != nil {
		return nil, f.globalErr
	}
	// The payload already carries ids for known commands.
	f.global = f.overwrite("global-", nil, cmds)
	return f.global, nil
}

func (f *fakeBackend) BulkUpsertGuildCommands(ctx context.Context, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guildCalls = append(f.guildCalls, guildID)
	if err := f.guildErrs[guildID]; err != nil {
		return nil, err
	}
	f.guildCmds[guildID] = f.overwrite(guildID+"-", f.guildCmds[guildID], cmds)
	return f.guildCmds[guildID], nil
}

func (f *fakeBackend) BulkEditGuildPermissions(ctx context.Context, guildID string, perms []*discordgo.GuildApplicationCommandPermissions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permEdits[guildID] = append(f.permEdits[guildID], perms...)
	return nil
}

func (f *fakeBackend) CurrentGuilds(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guildLists++
	return append([]string(nil), f.guilds...), nil
}

func (f *fakeBackend) User(ctx context.Context, id string) (*discordgo.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, errNotFound
}

func (f *fakeBackend) Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if m, ok := f.members[userID]; ok {
		return m, nil
	}
	return nil, errNotFound
}

func (f *fakeBackend) Channel(ctx context.Context, id string) (*discordgo.Channel, error) {
	if ch, ok := f.channels[id]; ok {
		return ch, nil
	}
	return nil, errNotFound
}

func (f *fakeBackend) Role(ctx context.Context, guildID, id string) (*discordgo.Role, error) {
	if r, ok := f.roles[id]; ok {
		return r, nil
	}
	return nil, errNotFound
}

func (f *fakeBackend) DMChannel(ctx context.Context, userID string) (*discordgo.Channel, error) {
	if ch, ok := f.dms[userID]; ok {
		return ch, nil
	}
	return nil, errNotFound
}

func (f *fakeBackend) Respond(ctx context.Context, i *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeBackend) EditResponse(ctx context.Context, i *discordgo.Interaction, edit *discordgo.WebhookEdit) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edit)
	return &discordgo.Message{}, nil
}

func (f *fakeBackend) Followup(ctx context.Context, i *discordgo.Interaction, params *discordgo.WebhookParams) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followups = append(f.followups, params)
	return &discordgo.Message{}, nil
}

func (f *fakeBackend) SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return &discordgo.Message{ChannelID: channelID}, nil
}

func testRetry() retrylimit.Config {
	cfg := retrylimit.DefaultConfig()
	cfg.MaxAttempts = 1
	cfg.InitialDelay = time.Millisecond
	return cfg
}

func testSyncOptions() []SyncOption {
	return []SyncOption{
		WithRetry(testRetry()),
		WithRateLimiter(retrylimit.NewAdaptiveLimiter(1000, 1000, 1000, 0, 1)),
	}
}

func newTestClient(t *testing.T, fb *fakeBackend, opts ...ClientOption) *Client {
	t.Helper()
	base := []ClientOption{
		WithLogger(zerolog.Nop()),
		WithSyncOptions(testSyncOptions()...),
	}
	return New(fb, append(base, opts...)...)
}

func slashInteraction(id, name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:        "interaction",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "guild",
		ChannelID: "channel",
		Member:    &discordgo.Member{User: &discordgo.User{ID: "caller", Username: "caller"}},
		Data: discordgo.ApplicationCommandInteractionData{
			ID:          id,
			Name:        name,
			CommandType: discordgo.ChatApplicationCommand,
			Options:     opts,
		},
	}
}
