package appcmd

import (
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchArgs struct {
	Query   string                       `description:"What to look for"`
	Limit   int                          `default:"5"`
	Exact   *bool
	Target  Optional[*discordgo.Member]
	Channel *discordgo.Channel
	Size    string                       `choices:"small,large"`
	Weight  float64                      `name:"w"`
	Role    *discordgo.Role
	Who     *Mentionable
	File    *discordgo.MessageAttachment
	Since   time.Time
	skipped string
}

func noop(*InteractionContext) error { return nil }

func TestInferOptionsFromArgs(t *testing.T) {
	c, err := NewSlash("search", "Search things", func(ic *InteractionContext, args searchArgs) error { return nil })
	require.NoError(t, err)

	opts := c.Options()
	require.Len(t, opts, 11)

	want := []struct {
		name     string
		typ      OptionType
		required bool
	}{
		{"query", OptionString, true},
		{"limit", OptionInteger, false},
		{"exact", OptionBoolean, false},
		{"target", OptionUser, false},
		{"channel", OptionChannel, true},
		{"size", OptionString, true},
		{"w", OptionNumber, true},
		{"role", OptionRole, true},
		{"who", OptionMentionable, true},
		{"file", OptionAttachment, true},
		{"since", OptionString, true},
	}
	for i, w := range want {
		assert.Equal(t, w.name, opts[i].Name, "option %d", i)
		assert.Equal(t, w.typ, opts[i].Type, "option %s", w.name)
		assert.Equal(t, w.required, opts[i].Required, "option %s", w.name)
	}

	assert.Equal(t, "What to look for", opts[0].Description)
	assert.Equal(t, defaultDescription, opts[1].Description)
	assert.Equal(t, []Choice{{Name: "small", Value: "small"}, {Name: "large", Value: "large"}}, opts[5].Choices)
}

func TestHiCommandScenario(t *testing.T) {
	type hiArgs struct {
		User Optional[*discordgo.Member]
	}
	c, err := NewSlash("hi", "Say hi", func(ic *InteractionContext, args hiArgs) error { return nil })
	require.NoError(t, err)

	opts := c.Options()
	require.Len(t, opts, 1)
	assert.Equal(t, "user", opts[0].Name)
	assert.Equal(t, OptionUser, opts[0].Type)
	assert.False(t, opts[0].Required)

	ac := c.ApplicationCommand()
	assert.Equal(t, "hi", ac.Name)
	assert.Equal(t, discordgo.ChatApplicationCommand, ac.Type)
	assert.Equal(t, "Say hi", ac.Description)
	require.Len(t, ac.Options, 1)
	assert.Equal(t, discordgo.ApplicationCommandOptionUser, ac.Options[0].Type)
	assert.Empty(t, ac.ID)
}

func TestNoArgsHandlerHasNoOptions(t *testing.T) {
	c, err := NewSlash("ping", "Pong", noop)
	require.NoError(t, err)
	assert.Empty(t, c.Options())
	assert.Nil(t, c.ApplicationCommand().Options)
}

func TestDeclarationErrors(t *testing.T) {
	existing, err := NewSlash("ping", "Pong", noop)
	require.NoError(t, err)

	cases := []struct {
		name  string
		build func() error
		want  error
	}{
		{"nil handler", func() error { _, err := NewSlash("a", "b", nil); return err }, ErrHandlerSignature},
		{"not a func", func() error { _, err := NewSlash("a", "b", "nope"); return err }, ErrHandlerSignature},
		{"no error result", func() error {
			_, err := NewSlash("a", "b", func(*InteractionContext) {})
			return err
		}, ErrHandlerSignature},
		{"no context", func() error {
			_, err := NewSlash("a", "b", func() error { return nil })
			return err
		}, ErrHandlerSignature},
		{"already a command", func() error { _, err := NewSlash("a", "b", existing); return err }, ErrAlreadyCommand},
		{"missing name", func() error { _, err := NewSlash("", "b", noop); return err }, ErrMissingName},
		{"upper case name", func() error { _, err := NewSlash("Ping", "b", noop); return err }, ErrInvalidName},
		{"spaces in name", func() error { _, err := NewSlash("pi ng", "b", noop); return err }, ErrInvalidName},
		{"missing description", func() error { _, err := NewSlash("a", "", noop); return err }, ErrMissingDescription},
		{"scalar argument", func() error {
			_, err := NewSlash("a", "b", func(*InteractionContext, string) error { return nil })
			return err
		}, ErrHandlerSignature},
		{"long description", func() error {
			_, err := NewSlash("a", strings.Repeat("x", 101), noop)
			return err
		}, ErrInvalidDescription},
		{"slice field", func() error {
			_, err := NewSlash("a", "b", func(*InteractionContext, struct{ Tags []string }) error { return nil })
			return err
		}, ErrHandlerSignature},
		{"map field", func() error {
			_, err := NewSlash("a", "b", func(*InteractionContext, struct{ Meta map[string]string }) error { return nil })
			return err
		}, ErrHandlerSignature},
		{"plain struct field", func() error {
			_, err := NewSlash("a", "b", func(*InteractionContext, struct{ Pos struct{ X int } }) error { return nil })
			return err
		}, ErrHandlerSignature},
		{"optional slice field", func() error {
			_, err := NewSlash("a", "b", func(*InteractionContext, struct{ Tags Optional[[]string] }) error { return nil })
			return err
		}, ErrHandlerSignature},
		{"user command options", func() error {
			_, err := NewUserCommand("Info", noop, WithOptions(Option{Name: "x", Type: OptionString}))
			return err
		}, ErrContextOptions},
		{"user command argument", func() error {
			_, err := NewUserCommand("Info", func(*InteractionContext, *discordgo.Message) error { return nil })
			return err
		}, ErrHandlerSignature},
		{"message command argument", func() error {
			_, err := NewMessageCommand("Quote", func(*InteractionContext, *UserTarget) error { return nil })
			return err
		}, ErrHandlerSignature},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.build(), tc.want)
		})
	}
}

func TestContextMenuCommandsAllowMixedCase(t *testing.T) {
	u, err := NewUserCommand("Show ID", func(*InteractionContext, *UserTarget) error { return nil })
	require.NoError(t, err)
	ac := u.ApplicationCommand()
	assert.Equal(t, discordgo.UserApplicationCommand, ac.Type)
	assert.Empty(t, ac.Description)
	assert.Nil(t, ac.Options)

	m, err := NewMessageCommand("Quote", func(*InteractionContext, *discordgo.Message) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, discordgo.MessageApplicationCommand, m.ApplicationCommand().Type)
}

func TestGroupNesting(t *testing.T) {
	docs, err := NewGroup("docs", "Documentation")
	require.NoError(t, err)
	_, err = docs.Subcommand("search", "Search docs", func(ic *InteractionContext, args struct{ Query string }) error { return nil })
	require.NoError(t, err)
	tags, err := docs.Group("tags", "Tags")
	require.NoError(t, err)
	list, err := tags.Subcommand("list", "List tags", noop)
	require.NoError(t, err)

	_, err = tags.Group("deeper", "Too deep")
	assert.ErrorIs(t, err, ErrGroupDepth)

	assert.Equal(t, "docs tags list", list.FullName())
	assert.Same(t, docs, list.Root())
	assert.Same(t, tags, list.Parent())

	ac := docs.ApplicationCommand()
	require.Len(t, ac.Options, 2)
	assert.Equal(t, discordgo.ApplicationCommandOptionSubCommand, ac.Options[0].Type)
	assert.Equal(t, "query", ac.Options[0].Options[0].Name)
	assert.Equal(t, discordgo.ApplicationCommandOptionSubCommandGroup, ac.Options[1].Type)
	require.Len(t, ac.Options[1].Options, 1)
	assert.Equal(t, discordgo.ApplicationCommandOptionSubCommand, ac.Options[1].Options[0].Type)
	assert.Equal(t, "list", ac.Options[1].Options[0].Name)

	assert.Equal(t, map[string]*Command{"search": docs.children[0], "tags list": list}, docs.leaves())
}

func TestSubcommandNeedsGroup(t *testing.T) {
	ping, err := NewSlash("ping", "Pong", noop)
	require.NoError(t, err)
	_, err = ping.Subcommand("x", "y", noop)
	assert.Error(t, err)
}

func TestOptionOverrideKeepsFieldName(t *testing.T) {
	type args struct {
		Count int
	}
	c, err := NewSlash("roll", "Roll dice", func(*InteractionContext, args) error { return nil },
		WithOptionOverride("Count", Option{
			Name:        "ignored",
			Description: "How many dice",
			Type:        OptionInteger,
			Required:    false,
			Choices:     []Choice{{Name: "one", Value: 1}, {Name: "two", Value: 2}},
		}))
	require.NoError(t, err)

	opts := c.Options()
	require.Len(t, opts, 1)
	assert.Equal(t, "count", opts[0].Name)
	assert.Equal(t, "How many dice", opts[0].Description)
	assert.False(t, opts[0].Required)
	assert.Len(t, opts[0].Choices, 2)
}

func TestExplicitOptionsReplaceInference(t *testing.T) {
	type args struct{ Query string }
	c, err := NewSlash("find", "Find", func(*InteractionContext, args) error { return nil },
		WithOptions(Option{Name: "query", Description: "Text", Type: OptionString, Required: true}))
	require.NoError(t, err)
	assert.Equal(t, []Option{{Name: "query", Description: "Text", Type: OptionString, Required: true}}, c.Options())
	assert.NotNil(t, c.args)
}

func TestEqualComparesNameAndDescription(t *testing.T) {
	a := Must(NewSlash("ping", "Pong", noop))
	b := Must(NewSlash("ping", "Pong", func(ic *InteractionContext) error { return ic.Reply("x") }, WithGuilds("1")))
	c := Must(NewSlash("ping", "Ping pong", noop))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestMustPanics(t *testing.T) {
	assert.Panics(t, func() { Must(NewSlash("", "x", noop)) })
}

func TestPermissions(t *testing.T) {
	c, err := NewSlash("admin", "Admin only", noop,
		WithGuilds("g1"),
		AllowRoles("r1", "r1"),
		DenyUsers("u1"))
	require.NoError(t, err)

	assert.Equal(t, []Permission{
		{ID: "r1", Type: PermissionRole, Allow: true},
		{ID: "u1", Type: PermissionUser, Allow: false},
	}, c.Permissions())

	require.True(t, c.setID("123"))
	assert.ErrorIs(t, c.AddPermission(Permission{ID: "r2", Type: PermissionRole}), ErrRegistered)
	assert.False(t, c.setID("456"))
	assert.Equal(t, "123", c.ID())
}

func TestScopes(t *testing.T) {
	assert.True(t, GuildScope().IsGlobal())
	s := GuildScope("1", "2", "1", "")
	assert.Equal(t, []string{"1", "2"}, s.GuildIDs())
	assert.Equal(t, "guilds:1,2", s.String())
	assert.Equal(t, []string{"a", "b"}, AllGuildsScope().resolve([]string{"a", "b"}))
	assert.Nil(t, GlobalScope().resolve([]string{"a"}))
}

func TestGuildOnlyDisablesDMs(t *testing.T) {
	c := Must(NewSlash("mod", "Moderation", noop, GuildOnly()))
	ac := c.ApplicationCommand()
	require.NotNil(t, ac.DMPermission)
	assert.False(t, *ac.DMPermission)
}

func TestSnakeCase(t *testing.T) {
	cases := map[string]string{
		"User":         "user",
		"UserID":       "user_id",
		"TargetUserID": "target_user_id",
		"HTTPServer":   "http_server",
		"Page2":        "page2",
		"already":      "already",
	}
	for in, want := range cases {
		assert.Equal(t, want, snakeCase(in), in)
	}
}

func TestMethodName(t *testing.T) {
	c := Must(NewSlash("hi", "Hi", (*greeter).Hi))
	assert.Equal(t, "Hi", c.Method())
	assert.Empty(t, Must(NewSlash("ping", "Pong", noop)).Method())
}
