package tracker

import (
	"context"
	"errors"

	"ruststats-backend/lib/scrapers/steam"
	"ruststats-backend/lib/statstore"
)

// AddPlayer resolves a steam id or profile url and appends the player to the
// roster. Resolution failure is non-fatal, the entry falls back to
// placeholder identity values.
func (s *Service) AddPlayer(ctx context.Context, idOrUrl string) (statstore.Player, error) {
	ctx, span := tracer.Start(ctx, "AddPlayer")
	defer span.End()

	if idOrUrl == "" {
		return statstore.Player{}, errors.New("empty steam id or profile url")
	}

	profile := steam.Placeholder(idOrUrl)
	if s.steam != nil {
		profile = s.steam.ResolveProfile(ctx, idOrUrl)
	}

	player := statstore.Player{
		SteamId:     profile.SteamId,
		SteamUrl:    profile.SteamUrl,
		DisplayName: profile.DisplayName,
		AvatarUrl:   profile.AvatarUrl,
		Color:       profile.Color,
	}
	_, err := s.store.AddToRoster(ctx, player)
	if err != nil {
		return statstore.Player{}, err
	}
	return player, nil
}

// RemovePlayer drops the player from the roster and purges their traces from
// every server's cache.
func (s *Service) RemovePlayer(ctx context.Context, identity statstore.Player) error {
	ctx, span := tracer.Start(ctx, "RemovePlayer")
	defer span.End()

	_, err := s.store.RemoveFromRoster(ctx, identity)
	if err != nil {
		return err
	}
	return s.store.RemovePlayer(ctx, identity)
}

// RenamePlayer changes the display name in the roster and in every cached
// profile. Stat bodies keep their original keys.
func (s *Service) RenamePlayer(ctx context.Context, identity statstore.Player, displayName string) error {
	ctx, span := tracer.Start(ctx, "RenamePlayer")
	defer span.End()

	if displayName == "" {
		return errors.New("empty display name")
	}

	_, err := s.store.RenameInRoster(ctx, identity, displayName)
	if err != nil {
		return err
	}
	return s.store.RenamePlayer(ctx, identity, displayName)
}

// ReorderRoster rewrites the roster order; cached profile lists follow.
func (s *Service) ReorderRoster(ctx context.Context, order []statstore.Player) ([]statstore.Player, error) {
	ctx, span := tracer.Start(ctx, "ReorderRoster")
	defer span.End()

	roster, err := s.store.SetRosterOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	err = s.store.ReorderProfiles(ctx, roster)
	if err != nil {
		return nil, err
	}
	return roster, nil
}

// Roster returns the tracked players in display order.
func (s *Service) Roster(ctx context.Context) []statstore.Player {
	return s.store.Roster(ctx)
}

// Servers lists the configured scrape targets.
func (s *Service) Servers() []ServerTarget {
	return s.servers
}
