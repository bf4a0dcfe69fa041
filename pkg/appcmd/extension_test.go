package appcmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listExt struct {
	name string
	cmds []*Command
}

func (e *listExt) Name() string            { return e.name }
func (e *listExt) AppCommands() []*Command { return e.cmds }

type stranger struct{}

func (s *stranger) Wave(ic *InteractionContext) error { return nil }

func names(cmds []*Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Kind().String() + ":" + c.Name()
	}
	return out
}

func TestCollectLaterCommandWins(t *testing.T) {
	first := Must(NewSlash("a", "First", noop))
	second := Must(NewSlash("b", "B", noop))
	override := Must(NewSlash("a", "Override", noop))
	userA := Must(NewUserCommand("a", noop))

	ext := &listExt{name: "x", cmds: []*Command{first, second, userA, override, nil}}
	got, err := Collect(ext)
	require.NoError(t, err)
	assert.Equal(t, []string{"slash:b", "user:a", "slash:a"}, names(got))
	assert.Same(t, override, got[2])
	for _, c := range got {
		assert.Same(t, ext, c.Extension())
	}
}

func TestCollectRejectsSubcommands(t *testing.T) {
	g := Must(NewGroup("docs", "Docs"))
	sub := Must(g.Subcommand("search", "Search", noop))

	_, err := Collect(&listExt{name: "x", cmds: []*Command{sub}})
	assert.Error(t, err)
}

func TestCollectRejectsForeignReceiver(t *testing.T) {
	wave := Must(NewSlash("wave", "Wave", (*stranger).Wave))
	_, err := Collect(&listExt{name: "x", cmds: []*Command{wave}})
	assert.Error(t, err)
}

func TestCollectBindsSubcommandExtension(t *testing.T) {
	g := Must(NewGroup("docs", "Docs"))
	sub := Must(g.Subcommand("search", "Search", noop))
	ext := &listExt{name: "docs", cmds: []*Command{g}}

	_, err := Collect(ext)
	require.NoError(t, err)
	assert.Same(t, ext, sub.Extension())
}

func TestAddAndRemoveExtension(t *testing.T) {
	fb := newFakeBackend()
	c := newTestClient(t, fb)

	g := &greeter{greeting: "hi"}
	require.NoError(t, c.AddExtension(g))
	assert.ErrorIs(t, c.AddExtension(&greeter{}), ErrExtensionExists)
	assert.Len(t, c.Registry().Pending(), 2)

	require.NoError(t, c.AddExtension(&listExt{name: "misc", cmds: []*Command{Must(NewSlash("ping", "Pong", noop))}}))
	assert.Equal(t, []string{"greeter", "misc"}, c.Extensions())

	_, err := c.Sync(context.Background())
	require.NoError(t, err)
	_, ok := c.Lookup("hi")
	require.True(t, ok)

	require.NoError(t, c.RemoveExtension("greeter"))
	_, ok = c.Lookup("hi")
	assert.False(t, ok)
	assert.Equal(t, []string{"misc"}, c.Extensions())
	assert.ErrorIs(t, c.RemoveExtension("greeter"), ErrNoExtension)

	// Resync applies the removal remotely.
	_, err = c.Resync(context.Background())
	require.NoError(t, err)
	require.Len(t, fb.global, 1)
	assert.Equal(t, "ping", fb.global[0].Name)
}

func TestRemoveExtensionBeforeSync(t *testing.T) {
	fb := newFakeBackend()
	c := newTestClient(t, fb)
	require.NoError(t, c.AddExtension(&greeter{}))
	require.NoError(t, c.RemoveExtension("greeter"))
	assert.Empty(t, c.Registry().Pending())
}

func TestHandleReadySyncsOnce(t *testing.T) {
	fb := newFakeBackend()
	var reports int
	c := newTestClient(t, fb, WithSyncObserver(func(r *SyncReport, err error) {
		require.NoError(t, err)
		reports++
	}))
	_, err := c.Slash("ping", "Pong", noop)
	require.NoError(t, err)

	c.HandleReady(context.Background())
	c.HandleReady(context.Background())
	assert.Equal(t, 1, reports)
	assert.Equal(t, 1, fb.globalCalls)
}

func TestHandleReadyRespectsSyncOnReady(t *testing.T) {
	fb := newFakeBackend()
	c := newTestClient(t, fb, WithSyncOnReady(false))
	_, err := c.Slash("ping", "Pong", noop)
	require.NoError(t, err)

	c.HandleReady(context.Background())
	assert.Zero(t, fb.globalCalls)
	assert.Len(t, c.Registry().Pending(), 1)
}
