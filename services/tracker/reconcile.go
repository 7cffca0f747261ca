package tracker

import (
	"context"
	"time"

	"ruststats-backend/lib/scrapers/steam"
	"ruststats-backend/lib/statstore"
)

type PlayerView struct {
	statstore.Player
	// Stats maps tab key to that player's metric values.
	Stats   map[string]statstore.PlayerStats `json:"stats,omitempty"`
	Missing *statstore.MissingEntry          `json:"missing,omitempty"`
}

type ViewResponse struct {
	ServerName string               `json:"serverName"`
	ServerInfo statstore.ServerInfo `json:"serverInfo"`
	Metrics    map[string][]string  `json:"metrics,omitempty"`
	Players    []PlayerView         `json:"players"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}

// View returns the cached stats reconciled against the live roster: roster
// order wins, and roster players the cache has never seen show up as
// placeholders instead of disappearing.
func (s *Service) View(ctx context.Context, serverName string) ViewResponse {
	ctx, span := tracer.Start(ctx, "View")
	defer span.End()

	cache := s.store.Cache(ctx, serverName)
	roster := s.store.Roster(ctx)
	return reconcile(cache, roster)
}

func reconcile(cache statstore.ServerCache, roster []statstore.Player) ViewResponse {
	res := ViewResponse{
		ServerName: cache.ServerName,
		ServerInfo: cache.ServerInfo,
		UpdatedAt:  cache.UpdatedAt,
	}
	if len(cache.Tabs) > 0 {
		res.Metrics = map[string][]string{}
		for key, tab := range cache.Tabs {
			res.Metrics[key] = tab.Metrics
		}
	}

	for _, member := range roster {
		profile := member
		for _, cached := range cache.Profiles {
			if member.SameIdentity(cached) {
				profile = cached
				break
			}
		}
		fillPlaceholder(&profile)

		view := PlayerView{Player: profile}
		for key, tab := range cache.Tabs {
			stats, ok := lookupStats(tab, profile)
			if !ok {
				continue
			}
			if view.Stats == nil {
				view.Stats = map[string]statstore.PlayerStats{}
			}
			view.Stats[key] = stats
		}
		for i, entry := range cache.Missing {
			asPlayer := statstore.Player{SteamId: entry.SteamId, SteamUrl: entry.SteamUrl}
			if profile.SameIdentity(asPlayer) || asPlayer.SameIdentity(profile) {
				view.Missing = &cache.Missing[i]
				break
			}
		}
		res.Players = append(res.Players, view)
	}
	return res
}

// fillPlaceholder papers over roster entries that never resolved: the
// display name falls back to whatever identity key exists.
func fillPlaceholder(p *statstore.Player) {
	if p.DisplayName == "" {
		if p.SteamId != "" {
			p.DisplayName = p.SteamId
		} else {
			p.DisplayName = p.SteamUrl
		}
	}
	if p.AvatarUrl == "" {
		p.AvatarUrl = steam.FallbackAvatarUrl
	}
	if p.Color == "" {
		key := p.SteamId
		if key == "" {
			key = p.SteamUrl
		}
		p.Color = steam.ColorFor(key)
	}
}

// stat bodies are keyed by the label the dashboard displayed, which may lag
// behind a rename, so fall back to the identity keys
func lookupStats(tab *statstore.TabCache, profile statstore.Player) (statstore.PlayerStats, bool) {
	for _, key := range []string{profile.DisplayName, profile.SteamId, profile.SteamUrl} {
		if key == "" {
			continue
		}
		if stats, ok := tab.Stats[key]; ok {
			return stats, true
		}
	}
	return nil, false
}
