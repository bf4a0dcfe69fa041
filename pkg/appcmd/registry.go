package appcmd

import (
	"slices"
	"sort"
	"strings"
	"sync"
)

// Registry indexes commands by platform id and keeps the queue of commands
// waiting for the next sync. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	pending     []*Command
	byID        map[string]*Command
	slash       map[string]*Command
	user        map[string]*Command
	message     map[string]*Command
	subcommands map[string]map[string]*Command
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:        make(map[string]*Command),
		slash:       make(map[string]*Command),
		user:        make(map[string]*Command),
		message:     make(map[string]*Command),
		subcommands: make(map[string]map[string]*Command),
	}
}

// AddPending queues top-level commands for the next sync, in order. Commands
// already queued and subcommands are skipped.
func (r *Registry) AddPending(cmds ...*Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cmds {
		if c == nil || c.parent != nil || slices.Contains(r.pending, c) {
			continue
		}
		r.pending = append(r.pending, c)
	}
}

// Pending returns a copy of the queue.
func (r *Registry) Pending() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.pending)
}

// clearPending drops the given commands from the queue. Commands queued while
// a sync was running stay for the next one.
func (r *Registry) clearPending(done []*Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = slices.DeleteFunc(r.pending, func(c *Command) bool {
		return slices.Contains(done, c)
	})
}

// index records id for c. Groups also get their leaves indexed under id.
func (r *Registry) index(id string, c *Command) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[id] = c
	switch c.kind {
	case KindSlash:
		r.slash[id] = c
	case KindUser:
		r.user[id] = c
	case KindMessage:
		r.message[id] = c
	}
	if c.group {
		r.subcommands[id] = c.leaves()
	}
}

// Remove forgets every id of c and drops it from the queue. Unknown commands
// are ignored.
func (r *Registry) Remove(c *Command) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, have := range r.byID {
		if have != c {
			continue
		}
		delete(r.byID, id)
		delete(r.slash, id)
		delete(r.user, id)
		delete(r.message, id)
		delete(r.subcommands, id)
	}
	r.pending = slices.DeleteFunc(r.pending, func(p *Command) bool { return p == c })
	c.clearID()
}

// LookupByID returns the top-level command registered under id.
func (r *Registry) LookupByID(id string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	return c, ok
}

// LookupSubcommand returns the leaf at path ("search", "tags search") under
// the group registered as groupID.
func (r *Registry) LookupSubcommand(groupID, path string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subs, ok := r.subcommands[groupID]
	if !ok {
		return nil, false
	}
	c, ok := subs[path]
	return c, ok
}

// HasSubcommands reports whether id belongs to a group.
func (r *Registry) HasSubcommands(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.subcommands[id]
	return ok
}

// LookupByName finds a registered or pending slash command by its full name,
// e.g. "docs tags search".
func (r *Registry) LookupByName(fullName string) (*Command, bool) {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return nil, false
	}

	for _, root := range r.Roots() {
		if root.kind != KindSlash || root.name != parts[0] {
			continue
		}
		c := root
		for _, p := range parts[1:] {
			var next *Command
			for _, child := range c.children {
				if child.name == p {
					next = child
					break
				}
			}
			if next == nil {
				return nil, false
			}
			c = next
		}
		return c, true
	}
	return nil, false
}

// Roots returns every known top-level command, registered or pending, sorted
// by kind and name.
func (r *Registry) Roots() []*Command {
	r.mu.RLock()
	seen := make(map[*Command]bool)
	var out []*Command
	for _, c := range r.byID {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, c := range r.pending {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].kind != out[j].kind {
			return out[i].kind < out[j].kind
		}
		return out[i].name < out[j].name
	})
	return out
}

// Commands returns a copy of the id index.
func (r *Registry) Commands() map[string]*Command { return r.snapshot(r.byID) }

// SlashCommands returns a copy of the slash command index.
func (r *Registry) SlashCommands() map[string]*Command { return r.snapshot(r.slash) }

// UserCommands returns a copy of the user command index.
func (r *Registry) UserCommands() map[string]*Command { return r.snapshot(r.user) }

// MessageCommands returns a copy of the message command index.
func (r *Registry) MessageCommands() map[string]*Command { return r.snapshot(r.message) }

// Subcommands returns a copy of the group leaf index keyed by group id.
func (r *Registry) Subcommands() map[string]map[string]*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]map[string]*Command, len(r.subcommands))
	for id, subs := range r.subcommands {
		cp := make(map[string]*Command, len(subs))
		for k, v := range subs {
			cp[k] = v
		}
		out[id] = cp
	}
	return out
}

func (r *Registry) snapshot(m map[string]*Command) map[string]*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*Command, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
