package storage

import "slices"

// DisableCommand turns a top-level command off for a guild.
func (s *Storage) DisableCommand(guildID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}
	if slices.Contains(record.CommandsDisabled, name) {
		return nil
	}
	record.CommandsDisabled = append(record.CommandsDisabled, name)
	return s.ds.Set(guildID, record)
}

func (s *Storage) EnableCommand(guildID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}
	updated := make([]string, 0, len(record.CommandsDisabled))
	for _, c := range record.CommandsDisabled {
		if c != name {
			updated = append(updated, c)
		}
	}
	record.CommandsDisabled = updated
	return s.ds.Set(guildID, record)
}

func (s *Storage) IsCommandDisabled(guildID, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return false, err
	}
	return slices.Contains(record.CommandsDisabled, name), nil
}

func (s *Storage) GetDisabledCommands(guildID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.CommandsDisabled, nil
}
