package appcmd

import (
	"context"
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// SessionPlatform implements Platform, EntityResolver and Responder on top of
// a discordgo session. Lookups try the session state before REST.
type SessionPlatform struct {
	s *discordgo.Session

	mu    sync.Mutex
	appID string
}

// NewSessionPlatform wraps s.
func NewSessionPlatform(s *discordgo.Session) *SessionPlatform {
	return &SessionPlatform{s: s}
}

// SetApplicationID overrides the application id, which otherwise is the
// bot user's id.
func (p *SessionPlatform) SetApplicationID(id string) {
	p.mu.Lock()
	p.appID = id
	p.mu.Unlock()
}

// ApplicationID returns the application id, asking Discord when the session
// state does not know it yet.
func (p *SessionPlatform) ApplicationID(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.appID != "" {
		return p.appID, nil
	}
	if st := p.s.State; st != nil && st.User != nil && st.User.ID != "" {
		p.appID = st.User.ID
		return p.appID, nil
	}
	u, err := p.s.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return "", errors.Join(ErrNoApplicationID, restError(err))
	}
	p.appID = u.ID
	return p.appID, nil
}

// restError exposes the HTTP status of discordgo REST failures.
func restError(err error) error {
	var re *discordgo.RESTError
	if errors.As(err, &re) && re.Response != nil {
		return &RESTError{Status: re.Response.StatusCode, Err: err}
	}
	return err
}

// GlobalCommands lists the application's global commands.
func (p *SessionPlatform) GlobalCommands(ctx context.Context) ([]*discordgo.ApplicationCommand, error) {
	appID, err := p.ApplicationID(ctx)
	if err != nil {
		return nil, err
	}
	cmds, err := p.s.ApplicationCommands(appID, "", discordgo.WithContext(ctx))
	return cmds, restError(err)
}

// BulkUpsertGlobalCommands replaces every global command with cmds.
func (p *SessionPlatform) BulkUpsertGlobalCommands(ctx context.Context, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	return p.BulkUpsertGuildCommands(ctx, "", cmds)
}

// BulkUpsertGuildCommands replaces every command of one guild with cmds. An
// empty guildID targets the global scope.
func (p *SessionPlatform) BulkUpsertGuildCommands(ctx context.Context, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	appID, err := p.ApplicationID(ctx)
	if err != nil {
		return nil, err
	}
	if cmds == nil {
		cmds = []*discordgo.ApplicationCommand{}
	}
	out, err := p.s.ApplicationCommandBulkOverwrite(appID, guildID, cmds, discordgo.WithContext(ctx))
	return out, restError(err)
}

// BulkEditGuildPermissions overwrites the per-command permissions of a guild.
func (p *SessionPlatform) BulkEditGuildPermissions(ctx context.Context, guildID string, perms []*discordgo.GuildApplicationCommandPermissions) error {
	appID, err := p.ApplicationID(ctx)
	if err != nil {
		return err
	}
	return restError(p.s.ApplicationCommandPermissionsBatchEdit(appID, guildID, perms, discordgo.WithContext(ctx)))
}

// CurrentGuilds pages through every guild the bot is in.
func (p *SessionPlatform) CurrentGuilds(ctx context.Context) ([]string, error) {
	const page = 200
	var (
		ids   []string
		after string
	)
	for {
		guilds, err := p.s.UserGuilds(page, "", after, false, discordgo.WithContext(ctx))
		if err != nil {
			return nil, restError(err)
		}
		for _, g := range guilds {
			ids = append(ids, g.ID)
		}
		if len(guilds) < page {
			return ids, nil
		}
		after = guilds[len(guilds)-1].ID
	}
}

// User fetches a user over REST.
func (p *SessionPlatform) User(ctx context.Context, userID string) (*discordgo.User, error) {
	u, err := p.s.User(userID, discordgo.WithContext(ctx))
	return u, restError(err)
}

// Member returns a guild member from state, falling back to REST.
func (p *SessionPlatform) Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if st := p.s.State; st != nil {
		if m, err := st.Member(guildID, userID); err == nil {
			return m, nil
		}
	}
	m, err := p.s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	return m, restError(err)
}

// Channel returns a channel from state, falling back to REST.
func (p *SessionPlatform) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if st := p.s.State; st != nil {
		if ch, err := st.Channel(channelID); err == nil {
			return ch, nil
		}
	}
	ch, err := p.s.Channel(channelID, discordgo.WithContext(ctx))
	return ch, restError(err)
}

// Role returns a guild role from state, falling back to listing the guild's
// roles over REST.
func (p *SessionPlatform) Role(ctx context.Context, guildID, roleID string) (*discordgo.Role, error) {
	if st := p.s.State; st != nil {
		if r, err := st.Role(guildID, roleID); err == nil {
			return r, nil
		}
	}
	roles, err := p.s.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, restError(err)
	}
	for _, r := range roles {
		if r.ID == roleID {
			return r, nil
		}
	}
	return nil, discordgo.ErrStateNotFound
}

// DMChannel opens, or reuses, the DM channel with a user.
func (p *SessionPlatform) DMChannel(ctx context.Context, userID string) (*discordgo.Channel, error) {
	ch, err := p.s.UserChannelCreate(userID, discordgo.WithContext(ctx))
	return ch, restError(err)
}

// Respond sends the initial interaction response.
func (p *SessionPlatform) Respond(ctx context.Context, i *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	return restError(p.s.InteractionRespond(i, resp, discordgo.WithContext(ctx)))
}

// EditResponse edits the original interaction response.
func (p *SessionPlatform) EditResponse(ctx context.Context, i *discordgo.Interaction, edit *discordgo.WebhookEdit) (*discordgo.Message, error) {
	m, err := p.s.InteractionResponseEdit(i, edit, discordgo.WithContext(ctx))
	return m, restError(err)
}

// Followup sends a followup message to an interaction.
func (p *SessionPlatform) Followup(ctx context.Context, i *discordgo.Interaction, params *discordgo.WebhookParams) (*discordgo.Message, error) {
	m, err := p.s.FollowupMessageCreate(i, true, params, discordgo.WithContext(ctx))
	return m, restError(err)
}

// SendMessage posts a message to a channel outside the interaction.
func (p *SessionPlatform) SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	m, err := p.s.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
	return m, restError(err)
}
