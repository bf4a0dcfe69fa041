package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/appcmd/pkg/appcmd"
	"github.com/keshon/appcmd/pkg/appcmd/appcmdtest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDisabled struct {
	disabled map[string]bool
	err      error
}

func (f *fakeDisabled) IsCommandDisabled(guildID, name string) (bool, error) {
	return f.disabled[guildID+"/"+name], f.err
}

func TestWithDisabledCheck(t *testing.T) {
	store := &fakeDisabled{disabled: map[string]bool{"guild/ping": true, "guild/commands": true}}
	b := appcmdtest.NewBackend()
	c := appcmdtest.NewClient(b, appcmd.WithMiddleware(WithDisabledCheck(store, zerolog.Nop())))

	var ran []string
	record := func(name string) func(*appcmd.InteractionContext) error {
		return func(ic *appcmd.InteractionContext) error {
			ran = append(ran, name)
			return ic.Reply(name)
		}
	}
	_, err := c.Slash("ping", "Pong", record("ping"))
	require.NoError(t, err)
	_, err = c.Slash("echo", "Echo", record("echo"))
	require.NoError(t, err)
	_, err = c.Slash(ToggleCommand, "Toggle", record(ToggleCommand))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, appcmdtest.Run(ctx, c, "ping"))
	assert.Empty(t, ran)
	require.NotNil(t, b.LastResponse())
	assert.Contains(t, b.LastResponse().Embeds[0].Description, "disabled on this server")
	assert.Equal(t, discordgo.MessageFlagsEphemeral, b.LastResponse().Flags)

	require.NoError(t, appcmdtest.Run(ctx, c, "echo"))
	require.NoError(t, appcmdtest.Run(ctx, c, ToggleCommand))
	assert.Equal(t, []string{"echo", ToggleCommand}, ran)

	store.err = errors.New("disk on fire")
	require.NoError(t, appcmdtest.Run(ctx, c, "ping"))
	assert.Equal(t, []string{"echo", ToggleCommand, "ping"}, ran)
}

func TestWithUserPermissionCheck(t *testing.T) {
	b := appcmdtest.NewBackend()
	c := appcmdtest.NewClient(b, appcmd.WithMiddleware(WithUserPermissionCheck("dev")))
	ran := 0
	cmd, err := c.Slash("purge", "Purge", func(ic *appcmd.InteractionContext) error {
		ran++
		return nil
	}, appcmd.WithMemberPermissions(discordgo.PermissionManageMessages|discordgo.PermissionManageServer))
	require.NoError(t, err)
	_, err = c.Sync(context.Background())
	require.NoError(t, err)

	run := func(userID string, perms int64) {
		i, err := appcmdtest.Slash(c, "purge")
		require.NoError(t, err)
		i.Member.User = &discordgo.User{ID: userID}
		i.Member.Permissions = perms
		c.HandleInteraction(context.Background(), i)
	}

	run("u1", discordgo.PermissionSendMessages)
	assert.Zero(t, ran)
	require.NotNil(t, b.LastResponse())
	assert.Contains(t, b.LastResponse().Embeds[0].Description, "`Manage Server`, `Manage Messages`")

	run("u1", discordgo.PermissionManageMessages)
	run("u2", discordgo.PermissionAdministrator)
	run("dev", 0)
	assert.Equal(t, 3, ran)

	require.NotNil(t, b.Global[0].DefaultMemberPermissions)
	assert.Equal(t, cmd.MemberPermissions(), *b.Global[0].DefaultMemberPermissions)
}

func TestPermissionList(t *testing.T) {
	assert.Equal(t, []string{"Kick Members", "Ban Members"}, PermissionList(discordgo.PermissionKickMembers|discordgo.PermissionBanMembers))
	assert.Equal(t, []string{"0x8000000000000"}, PermissionList(1<<51))
	assert.Empty(t, PermissionList(0))
}
