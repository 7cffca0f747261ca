package statstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Roster returns the tracked player list in display order. A missing or
// malformed document yields an empty roster.
func (s *Store) Roster(ctx context.Context) []Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadRosterLocked(ctx)
}

func (s *Store) loadRosterLocked(ctx context.Context) []Player {
	buf, err := os.ReadFile(filepath.Join(s.dir, rosterFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to read roster document", "err", err)
		return nil
	}

	var roster []Player
	err = json.Unmarshal(buf, &roster)
	if err != nil {
		slog.WarnContext(ctx, "discarding malformed roster document", "err", err)
		return nil
	}
	return roster
}

func (s *Store) saveRosterLocked(roster []Player) error {
	buf, err := json.MarshalIndent(roster, "", "\t")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, rosterFile), buf, 0644)
}

// AddToRoster appends a player, or overwrites the existing entry when the
// identity is already tracked.
func (s *Store) AddToRoster(ctx context.Context, player Player) ([]Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roster := s.loadRosterLocked(ctx)
	replaced := false
	for i, existing := range roster {
		if player.SameIdentity(existing) {
			roster[i] = overlayProfile(existing, player)
			replaced = true
			break
		}
	}
	if !replaced {
		roster = append(roster, player)
	}

	err := s.saveRosterLocked(roster)
	if err != nil {
		return nil, err
	}
	return roster, nil
}

// RemoveFromRoster drops a player from the roster by identity.
func (s *Store) RemoveFromRoster(ctx context.Context, identity Player) ([]Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roster := s.loadRosterLocked(ctx)
	var kept []Player
	for _, existing := range roster {
		if identity.SameIdentity(existing) {
			continue
		}
		kept = append(kept, existing)
	}

	err := s.saveRosterLocked(kept)
	if err != nil {
		return nil, err
	}
	return kept, nil
}

// RenameInRoster changes a roster entry's display name.
func (s *Store) RenameInRoster(ctx context.Context, identity Player, displayName string) ([]Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roster := s.loadRosterLocked(ctx)
	found := false
	for i, existing := range roster {
		if identity.SameIdentity(existing) {
			roster[i].DisplayName = displayName
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("no roster entry matches identity %q/%q", identity.SteamId, identity.SteamUrl)
	}

	err := s.saveRosterLocked(roster)
	if err != nil {
		return nil, err
	}
	return roster, nil
}

// SetRosterOrder rewrites the roster in the given order. Every entry must
// already be tracked; the order list is matched by identity.
func (s *Store) SetRosterOrder(ctx context.Context, order []Player) ([]Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roster := s.loadRosterLocked(ctx)

	var reordered []Player
	taken := make([]bool, len(roster))
	for _, want := range order {
		for i, existing := range roster {
			if taken[i] || !want.SameIdentity(existing) {
				continue
			}
			reordered = append(reordered, existing)
			taken[i] = true
			break
		}
	}
	// entries the caller forgot keep their place at the end
	for i, existing := range roster {
		if !taken[i] {
			reordered = append(reordered, existing)
		}
	}

	err := s.saveRosterLocked(reordered)
	if err != nil {
		return nil, err
	}
	return reordered, nil
}
