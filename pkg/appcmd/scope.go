package appcmd

import (
	"slices"
	"strings"
)

type scopeKind int

const (
	scopeGlobal scopeKind = iota
	scopeGuilds
	scopeAllGuilds
)

// Scope says where a command is registered: globally, in a fixed set of
// guilds, or in every guild the bot is in at sync time.
type Scope struct {
	kind   scopeKind
	guilds []string
}

// GlobalScope registers the command for every guild and DM.
func GlobalScope() Scope { return Scope{kind: scopeGlobal} }

// GuildScope registers the command in the listed guilds only. An empty list
// is the global scope.
func GuildScope(ids ...string) Scope {
	var guilds []string
	for _, id := range ids {
		if id != "" && !slices.Contains(guilds, id) {
			guilds = append(guilds, id)
		}
	}
	if len(guilds) == 0 {
		return GlobalScope()
	}
	return Scope{kind: scopeGuilds, guilds: guilds}
}

// AllGuildsScope registers the command as a guild command in each guild the
// bot belongs to. The guild list is fetched on every sync.
func AllGuildsScope() Scope { return Scope{kind: scopeAllGuilds} }

func (s Scope) IsGlobal() bool    { return s.kind == scopeGlobal }
func (s Scope) IsAllGuilds() bool { return s.kind == scopeAllGuilds }

// GuildIDs returns the fixed guild list. It is empty for the global and
// all-guilds scopes.
func (s Scope) GuildIDs() []string { return slices.Clone(s.guilds) }

// resolve returns the guilds to register in, given the live guild list.
func (s Scope) resolve(live []string) []string {
	switch s.kind {
	case scopeGuilds:
		return s.guilds
	case scopeAllGuilds:
		return live
	}
	return nil
}

func (s Scope) String() string {
	switch s.kind {
	case scopeGuilds:
		return "guilds:" + strings.Join(s.guilds, ",")
	case scopeAllGuilds:
		return "all-guilds"
	}
	return "global"
}
