package tracker

import (
	"context"
	"testing"
	"time"

	"ruststats-backend/lib/scrapers/ruststats"
	"ruststats-backend/lib/scrapers/steam"
	"ruststats-backend/lib/statstore"
	"ruststats-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const (
	aliceId = "76561198000000001"
	bobId   = "76561198000000002"
)

func testService(t *testing.T) (*Service, context.Context) {
	cleanup := telemetry.SetupForTesting(t, "test:tracker")
	t.Cleanup(cleanup)

	store, err := statstore.NewStore(t.TempDir())
	require.NoError(t, err)

	s := NewService(ServiceOptions{
		Store: store,
		Servers: []ServerTarget{
			{Name: "rusty shores", Url: "https://stats.example/rusty-shores"},
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	t.Cleanup(cancel)
	return s, ctx
}

func TestConcurrentRefreshIsRejected(t *testing.T) {
	s, ctx := testService(t)

	s.inflight.Store(true)
	_, err := s.Refresh(ctx, "rusty shores", ruststats.StrategyPerTab, nil)
	require.ErrorIs(t, err, ErrScrapeInFlight)

	s.inflight.Store(false)
	_, err = s.Refresh(ctx, "nonexistent server", ruststats.StrategyPerTab, nil)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrScrapeInFlight)
}

func TestAddPlayerWithoutResolverUsesPlaceholder(t *testing.T) {
	s, ctx := testService(t)

	player, err := s.AddPlayer(ctx, aliceId)
	require.NoError(t, err)
	require.Equal(t, aliceId, player.SteamId)
	require.Equal(t, aliceId, player.DisplayName)
	require.Equal(t, steam.FallbackAvatarUrl, player.AvatarUrl)

	_, err = s.AddPlayer(ctx, "")
	require.Error(t, err)

	roster := s.Roster(ctx)
	require.Len(t, roster, 1)
}

func TestRemovePlayerPurgesCaches(t *testing.T) {
	s, ctx := testService(t)

	_, err := s.AddPlayer(ctx, aliceId)
	require.NoError(t, err)
	_, err = s.AddPlayer(ctx, bobId)
	require.NoError(t, err)

	_, err = s.store.Merge(ctx, "rusty shores", statstore.Snapshot{
		Profiles: []statstore.Player{
			{SteamId: aliceId, DisplayName: "alice"},
			{SteamId: bobId, DisplayName: "bob"},
		},
		Tabs: map[string]statstore.TabSnapshot{
			"pvp": {Stats: map[string]statstore.PlayerStats{
				"alice": {"PvP Kills": 5},
				"bob":   {"PvP Kills": 3},
			}},
		},
	})
	require.NoError(t, err)

	err = s.RemovePlayer(ctx, statstore.Player{SteamId: bobId})
	require.NoError(t, err)

	require.Len(t, s.Roster(ctx), 1)
	cache := s.store.Cache(ctx, "rusty shores")
	require.Len(t, cache.Profiles, 1)
	require.NotContains(t, cache.Tabs["pvp"].Stats, "bob")
}

func TestSnapshotFromResult(t *testing.T) {
	roster := []statstore.Player{{SteamId: aliceId, DisplayName: "alice"}}
	result := &ruststats.Result{
		Tabs: map[string]*ruststats.TabResult{
			"pvp": {
				Key:       "pvp",
				Metrics:   []string{"PvP Kills"},
				ColumnMap: map[string]int{"PvP Kills": 1},
				Stats: map[string]ruststats.PlayerStats{
					"alice": {"PvP Kills": 5},
				},
			},
		},
		Missing: []ruststats.MissingPlayer{
			{Label: "bob", SteamId: bobId, Reason: "no row matched"},
		},
		ServerInfo: ruststats.ServerInfo{Title: "Rusty Shores EU"},
	}

	snap := snapshotFromResult(roster, result)
	require.Equal(t, roster, snap.Profiles)
	require.Equal(t, "Rusty Shores EU", snap.ServerInfo.Title)
	require.Equal(t, float64(5), snap.Tabs["pvp"].Stats["alice"]["PvP Kills"])
	require.Equal(t, map[string]int{"PvP Kills": 1}, snap.Tabs["pvp"].ColumnMap)
	require.Len(t, snap.Missing, 1)
	require.Equal(t, bobId, snap.Missing[0].SteamId)
}
