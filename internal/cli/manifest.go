package cli

import (
	"sort"

	"github.com/keshon/appcmd/internal/storage"
	"github.com/keshon/appcmd/pkg/appcmd"
)

const (
	StateInSync    = "in sync"
	StateChanged   = "changed"
	StateNotSynced = "not synced"
	StateStale     = "stale"
	StateDynamic   = "per guild"
)

const allGuildsScope = "all-guilds"

// ManifestEntry is one local command compared against the ledger.
type ManifestEntry struct {
	Scope       string `json:"scope"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Fingerprint string `json:"fingerprint"`
	State       string `json:"state"`
}

// Ledger is the part of storage the manifest reads.
type Ledger interface {
	SyncRecordFor(scope string) (storage.SyncRecord, bool, error)
}

type ledgerKey struct {
	scope, name, kind string
}

// BuildManifest lists every root in reg per scope, and commands the ledger
// still holds for those scopes that reg no longer defines.
func BuildManifest(reg *appcmd.Registry, ledger Ledger) ([]ManifestEntry, error) {
	var entries []ManifestEntry
	local := make(map[ledgerKey]bool)
	scopes := make(map[string]bool)

	for _, cmd := range reg.Roots() {
		fp := appcmd.Fingerprint(cmd.ApplicationCommand())
		kind := cmd.Kind().String()

		var targets []string
		switch s := cmd.Scope(); {
		case s.IsGlobal():
			targets = []string{"global"}
		case s.IsAllGuilds():
			entries = append(entries, ManifestEntry{allGuildsScope, cmd.Name(), kind, fp, StateDynamic})
			continue
		default:
			targets = s.GuildIDs()
		}

		for _, scope := range targets {
			scopes[scope] = true
			local[ledgerKey{scope, cmd.Name(), kind}] = true
			state, err := stateOf(ledger, scope, cmd.Name(), kind, fp)
			if err != nil {
				return nil, err
			}
			entries = append(entries, ManifestEntry{scope, cmd.Name(), kind, fp, state})
		}
	}

	for scope := range scopes {
		rec, ok, err := ledger.SyncRecordFor(scope)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		for _, rc := range rec.Commands {
			if !local[ledgerKey{scope, rc.Name, rc.Kind}] {
				entries = append(entries, ManifestEntry{scope, rc.Name, rc.Kind, rc.Fingerprint, StateStale})
			}
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Scope != b.Scope {
			return a.Scope < b.Scope
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Name < b.Name
	})
	return entries, nil
}

func stateOf(ledger Ledger, scope, name, kind, fp string) (string, error) {
	rec, ok, err := ledger.SyncRecordFor(scope)
	if err != nil || !ok {
		return StateNotSynced, err
	}
	for _, rc := range rec.Commands {
		if rc.Name == name && rc.Kind == kind {
			if rc.Fingerprint == fp {
				return StateInSync, nil
			}
			return StateChanged, nil
		}
	}
	return StateNotSynced, nil
}
