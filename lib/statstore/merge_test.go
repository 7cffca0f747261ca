package statstore

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const (
	aliceId = "76561198000000001"
	bobId   = "76561198000000002"
)

func baseCache() ServerCache {
	return ServerCache{
		ServerName: "rusty shores",
		Profiles: []Player{
			{SteamId: aliceId, DisplayName: "alice", AvatarUrl: "a.jpg", Color: "#e6194b"},
			{SteamId: bobId, DisplayName: "bob", AvatarUrl: "b.jpg", Color: "#3cb44b"},
		},
		Tabs: map[string]*TabCache{
			"pvp": {
				Metrics: []string{"PvP Kills", "PvP Deaths"},
				Stats: map[string]PlayerStats{
					"alice": {"PvP Kills": 10, "PvP Deaths": 4},
					"bob":   {"PvP Kills": 2, "PvP Deaths": 9},
				},
			},
		},
	}
}

func TestMergeLeavesUnrelatedEntriesUntouched(t *testing.T) {
	cache := baseCache()
	mergeSnapshot(&cache, Snapshot{
		Profiles: []Player{{SteamId: aliceId, DisplayName: "alice", AvatarUrl: "a2.jpg"}},
		Tabs: map[string]TabSnapshot{
			"pvp": {Stats: map[string]PlayerStats{
				"alice": {"PvP Kills": 12, "PvP Deaths": 4},
			}},
		},
	})

	want := baseCache()
	require.Empty(t, cmp.Diff(want.Profiles[1], cache.Profiles[1]))
	require.Empty(t, cmp.Diff(want.Tabs["pvp"].Stats["bob"], cache.Tabs["pvp"].Stats["bob"]))

	require.Equal(t, "a2.jpg", cache.Profiles[0].AvatarUrl)
	require.Equal(t, float64(12), cache.Tabs["pvp"].Stats["alice"]["PvP Kills"])
}

func TestMergeIsIdempotent(t *testing.T) {
	snap := Snapshot{
		Profiles: []Player{{SteamId: aliceId, DisplayName: "alice"}},
		Tabs: map[string]TabSnapshot{
			"pvp": {
				Metrics: []string{"PvP Kills"},
				Stats:   map[string]PlayerStats{"alice": {"PvP Kills": 3}},
			},
		},
		Missing: []MissingEntry{{Label: "bob", SteamId: bobId, Reason: "no row matched"}},
	}

	once := baseCache()
	mergeSnapshot(&once, snap)
	twice := baseCache()
	mergeSnapshot(&twice, snap)
	mergeSnapshot(&twice, snap)

	require.Empty(t, cmp.Diff(once, twice))
}

func TestMergeMatchesBySteamUrlWithoutLosingSteamId(t *testing.T) {
	cache := baseCache()
	cache.Profiles[0].SteamUrl = "https://steamcommunity.com/id/alice/"

	mergeSnapshot(&cache, Snapshot{
		Profiles: []Player{{
			SteamUrl:    "https://steamcommunity.com/id/alice/",
			DisplayName: "alice v2",
		}},
	})

	require.Len(t, cache.Profiles, 2)
	require.Equal(t, "alice v2", cache.Profiles[0].DisplayName)
	require.Equal(t, aliceId, cache.Profiles[0].SteamId)
}

func TestMergeNeverMatchesByDisplayName(t *testing.T) {
	cache := baseCache()
	mergeSnapshot(&cache, Snapshot{
		Profiles: []Player{{SteamId: "76561198000000099", DisplayName: "alice"}},
	})
	require.Len(t, cache.Profiles, 3)
}

func TestMergeKeepsFirstSeenMetricOrder(t *testing.T) {
	cache := baseCache()
	mergeSnapshot(&cache, Snapshot{
		Tabs: map[string]TabSnapshot{
			"pvp": {Metrics: []string{"PvP Deaths", "PvP Kills"}},
		},
	})
	require.Equal(t, []string{"PvP Kills", "PvP Deaths"}, cache.Tabs["pvp"].Metrics)

	mergeSnapshot(&cache, Snapshot{
		Tabs: map[string]TabSnapshot{
			"farming": {Metrics: []string{"Corn Harvested"}},
		},
	})
	require.Equal(t, []string{"Corn Harvested"}, cache.Tabs["farming"].Metrics)
}

func TestMergeDeduplicatesMissingByIdentity(t *testing.T) {
	cache := baseCache()
	mergeSnapshot(&cache, Snapshot{
		Missing: []MissingEntry{{Label: "bob", SteamId: bobId, Reason: "no row matched"}},
	})
	mergeSnapshot(&cache, Snapshot{
		Missing: []MissingEntry{{Label: "bobby", SteamId: bobId, Reason: "filter timed out"}},
	})

	require.Len(t, cache.Missing, 1)
	require.Equal(t, "filter timed out", cache.Missing[0].Reason)
	require.Equal(t, "bobby", cache.Missing[0].Label)
}

func TestPurgePlayerRemovesEveryTrace(t *testing.T) {
	cache := baseCache()
	cache.Tabs["pvp"].Stats[bobId] = PlayerStats{"PvP Kills": 1}
	cache.Missing = []MissingEntry{
		{Label: "bob", SteamId: bobId, Reason: "no row matched"},
		{Label: "carol", Reason: "no row matched"},
	}

	changed := purgePlayer(&cache, Player{SteamId: bobId})
	require.True(t, changed)

	require.Len(t, cache.Profiles, 1)
	require.Equal(t, aliceId, cache.Profiles[0].SteamId)

	require.NotContains(t, cache.Tabs["pvp"].Stats, "bob")
	require.NotContains(t, cache.Tabs["pvp"].Stats, bobId)
	require.Contains(t, cache.Tabs["pvp"].Stats, "alice")

	require.Len(t, cache.Missing, 1)
	require.Equal(t, "carol", cache.Missing[0].Label)
}

func TestPurgeUnknownPlayerChangesNothing(t *testing.T) {
	cache := baseCache()
	changed := purgePlayer(&cache, Player{SteamId: "76561198000000099"})
	require.False(t, changed)
	require.Empty(t, cmp.Diff(baseCache(), cache))
}

func TestReorderProfilesFollowsRoster(t *testing.T) {
	cache := baseCache()
	cache.Profiles = append(cache.Profiles, Player{SteamId: "76561198000000003", DisplayName: "carol"})

	reorderProfiles(&cache, []Player{
		{SteamId: bobId},
		{SteamId: aliceId},
	})

	require.Equal(t, bobId, cache.Profiles[0].SteamId)
	require.Equal(t, aliceId, cache.Profiles[1].SteamId)
	// unknown to the roster, stays last
	require.Equal(t, "carol", cache.Profiles[2].DisplayName)
}
