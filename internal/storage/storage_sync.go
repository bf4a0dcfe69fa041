package storage

import (
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/appcmd/pkg/appcmd"
)

const (
	scopesKey   = "_scopes"
	globalScope = "global"
)

// RegisteredCommand is one command as the platform last acknowledged it.
type RegisteredCommand struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Fingerprint string `json:"fingerprint"`
}

// SyncRecord is the outcome of the last sync for one scope, either "global"
// or a guild id. A failed sync keeps the commands of the last good one.
type SyncRecord struct {
	Scope    string              `json:"scope"`
	SyncedAt time.Time           `json:"synced_at"`
	Commands []RegisteredCommand `json:"commands"`
	Error    string              `json:"error,omitempty"`
}

func syncKey(scope string) string { return "sync:" + scope }

// RecordSync stores the outcome of a sync cycle. It matches the signature of
// appcmd sync observers.
func (s *Storage) RecordSync(report *appcmd.SyncReport, syncErr error) error {
	if report == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	at := report.FinishedAt
	if at.IsZero() {
		at = time.Now()
	}

	var err error
	if syncErr != nil && report.Global == nil {
		err = s.putFailure(globalScope, at, syncErr)
	} else {
		err = s.putCommands(globalScope, at, report.Global)
	}
	if err != nil {
		return err
	}
	for guildID, cmds := range report.Guilds {
		if err := s.putCommands(guildID, at, cmds); err != nil {
			return err
		}
	}
	for guildID, failure := range report.Failures {
		if err := s.putFailure(guildID, at, failure); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) putCommands(scope string, at time.Time, cmds []*discordgo.ApplicationCommand) error {
	rec := SyncRecord{Scope: scope, SyncedAt: at, Commands: make([]RegisteredCommand, 0, len(cmds))}
	for _, ac := range cmds {
		rec.Commands = append(rec.Commands, RegisteredCommand{
			ID:          ac.ID,
			Name:        ac.Name,
			Kind:        appcmd.Kind(ac.Type).String(),
			Fingerprint: appcmd.Fingerprint(ac),
		})
	}
	if err := s.ds.Set(syncKey(scope), rec); err != nil {
		return fmt.Errorf("record sync of %s: %w", scope, err)
	}
	return s.addScope(scope)
}

func (s *Storage) putFailure(scope string, at time.Time, failure error) error {
	rec, ok, err := s.syncRecord(scope)
	if err != nil {
		return err
	}
	if !ok {
		rec = SyncRecord{Scope: scope}
	}
	rec.SyncedAt = at
	rec.Error = failure.Error()
	if err := s.ds.Set(syncKey(scope), rec); err != nil {
		return fmt.Errorf("record sync failure of %s: %w", scope, err)
	}
	return s.addScope(scope)
}

func (s *Storage) scopes() ([]string, error) {
	var scopes []string
	if _, err := s.ds.Get(scopesKey, &scopes); err != nil {
		return nil, fmt.Errorf("read scopes: %w", err)
	}
	return scopes, nil
}

func (s *Storage) addScope(scope string) error {
	scopes, err := s.scopes()
	if err != nil {
		return err
	}
	i := sort.SearchStrings(scopes, scope)
	if i < len(scopes) && scopes[i] == scope {
		return nil
	}
	scopes = append(scopes, "")
	copy(scopes[i+1:], scopes[i:])
	scopes[i] = scope
	return s.ds.Set(scopesKey, scopes)
}

func (s *Storage) syncRecord(scope string) (SyncRecord, bool, error) {
	var rec SyncRecord
	ok, err := s.ds.Get(syncKey(scope), &rec)
	if err != nil || !ok {
		return SyncRecord{}, false, err
	}
	return rec, true, nil
}

// SyncRecordFor returns the last sync outcome of one scope.
func (s *Storage) SyncRecordFor(scope string) (SyncRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncRecord(scope)
}

// SyncStatus returns the last sync outcome of every known scope, "global"
// first and guilds in id order.
func (s *Storage) SyncStatus() ([]SyncRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scopes, err := s.scopes()
	if err != nil {
		return nil, err
	}
	var out []SyncRecord
	for _, scope := range scopes {
		rec, ok, err := s.syncRecord(scope)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Scope == globalScope && out[j].Scope != globalScope
	})
	return out, nil
}

// ForgetScope drops the ledger entry of a scope, e.g. after leaving a guild.
func (s *Storage) ForgetScope(scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ds.Delete(syncKey(scope)); err != nil {
		return err
	}
	scopes, err := s.scopes()
	if err != nil {
		return err
	}
	kept := scopes[:0]
	for _, sc := range scopes {
		if sc != scope {
			kept = append(kept, sc)
		}
	}
	return s.ds.Set(scopesKey, kept)
}
