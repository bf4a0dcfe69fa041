package appcmd

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryPendingOrderAndDedup(t *testing.T) {
	r := NewRegistry()
	a := Must(NewSlash("a", "A", noop))
	b := Must(NewSlash("b", "B", noop))
	g := Must(NewGroup("g", "G"))
	sub := Must(g.Subcommand("s", "S", noop))

	r.AddPending(b, a, b, sub, nil)
	assert.Equal(t, []*Command{b, a}, r.Pending())

	r.clearPending([]*Command{b})
	assert.Equal(t, []*Command{a}, r.Pending())
}

func TestRegistryIndexAndRemove(t *testing.T) {
	r := NewRegistry()
	g := Must(NewGroup("docs", "Docs"))
	search := Must(g.Subcommand("search", "Search", noop))
	user := Must(NewUserCommand("Info", noop))

	g.setID("1")
	r.index("1", g)
	r.index("2", g)
	r.index("3", user)

	c, ok := r.LookupByID("2")
	require.True(t, ok)
	assert.Same(t, g, c)
	leaf, ok := r.LookupSubcommand("1", "search")
	require.True(t, ok)
	assert.Same(t, search, leaf)
	assert.Len(t, r.SlashCommands(), 2)
	assert.Len(t, r.UserCommands(), 1)
	assert.Len(t, r.Subcommands(), 2)

	r.Remove(g)
	_, ok = r.LookupByID("1")
	assert.False(t, ok)
	_, ok = r.LookupByID("2")
	assert.False(t, ok)
	assert.Empty(t, r.Subcommands())
	assert.Empty(t, g.ID())

	// Removing again, or removing something never indexed, is a no-op.
	r.Remove(g)
	r.Remove(Must(NewSlash("ghost", "Ghost", noop)))
	assert.Len(t, r.Commands(), 1)
}

func TestRegistryLookupByName(t *testing.T) {
	r := NewRegistry()
	g := Must(NewGroup("docs", "Docs"))
	tags := Must(g.Group("tags", "Tags"))
	list := Must(tags.Subcommand("list", "List", noop))
	r.AddPending(g)

	c, ok := r.LookupByName("docs tags list")
	require.True(t, ok)
	assert.Same(t, list, c)

	c, ok = r.LookupByName("docs")
	require.True(t, ok)
	assert.Same(t, g, c)

	_, ok = r.LookupByName("docs nope")
	assert.False(t, ok)
	_, ok = r.LookupByName("")
	assert.False(t, ok)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	cmd := Must(NewSlash("ping", "Pong", noop))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.index("1", cmd)
			r.AddPending(cmd)
		}()
		go func() {
			defer wg.Done()
			r.LookupByID("1")
			r.Roots()
		}()
	}
	wg.Wait()
	assert.Len(t, r.Roots(), 1)
}
