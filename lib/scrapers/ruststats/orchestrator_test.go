package ruststats

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const (
	aliceId = "76561198000000001"
	bobId   = "76561198000000002"
)

var pvpHeaders = []string{"Name", "PvP Kills", "PvP Deaths", "KDR", "Headshots", "Shots Fired", "Shots Hit", "Headshot %"}
var pveHeaders = []string{"Name", "Scientists Killed", "Animals Killed"}

func testTabs() []*TabSpec {
	var tabs []*TabSpec
	for _, tab := range DefaultTabs() {
		if tab.Key == TabPvp || tab.Key == TabPve {
			tabs = append(tabs, tab)
		}
	}
	return tabs
}

func aliceRows() (pvp, pve *fakeRow) {
	pvp = &fakeRow{cells: []string{"alice", "84", "30", "2.8", "50", "600", "200", "-"}}
	pve = &fakeRow{cells: []string{"alice", "12", "44"}}
	return pvp, pve
}

func scrapeSurface() *fakeSurface {
	s := newFakeSurface()
	s.headers[TabPvp] = pvpHeaders
	s.headers[TabPve] = pveHeaders
	alicePvp, alicePve := aliceRows()
	s.rows[TabPvp] = map[string]*fakeRow{aliceId: alicePvp}
	s.rows[TabPve] = map[string]*fakeRow{aliceId: alicePve}
	return s
}

func players() []Identity {
	return []Identity{
		{SteamId: aliceId, Label: "alice"},
		{SteamId: bobId, Label: "bob"},
	}
}

func TestMissingOnPrimaryTabSkipsOtherTabs(t *testing.T) {
	s := scrapeSurface()
	o := NewOrchestrator(s, Options{Tabs: testTabs()})

	result, err := o.Run(context.Background(), players(), StrategyPerTab)
	require.NoError(t, err)

	require.Len(t, result.Missing, 1)
	require.Equal(t, "bob", result.Missing[0].Label)
	require.Equal(t, bobId, result.Missing[0].SteamId)
	require.NotEmpty(t, result.Missing[0].Reason)

	_, ok := result.Tabs[TabPve].Stats["bob"]
	require.False(t, ok, "a primary-tab miss must leave no stats on other tabs")

	require.Contains(t, result.Tabs[TabPvp].Stats, "alice")
	require.Contains(t, result.Tabs[TabPve].Stats, "alice")
}

func TestExtractedValues(t *testing.T) {
	s := scrapeSurface()
	o := NewOrchestrator(s, Options{Tabs: testTabs()})

	result, err := o.Run(context.Background(), players(), StrategyPerTab)
	require.NoError(t, err)

	alice := result.Tabs[TabPvp].Stats["alice"]
	require.Equal(t, float64(84), alice["PvP Kills"])
	require.Equal(t, 2.8, alice["KDR"])
	// recomputed from 50/200, regardless of the dash in the cell
	require.Equal(t, 25.00, alice["Headshot %"])

	require.Equal(t, "Test Server", result.ServerInfo.Title)
	require.Equal(t, string(StrategyPerTab), result.Timings.Strategy)
	require.Contains(t, result.Timings.PerTab, TabPvp)
}

func TestStrategiesProduceEquivalentResults(t *testing.T) {
	perTab, err := NewOrchestrator(scrapeSurface(), Options{Tabs: testTabs()}).
		Run(context.Background(), players(), StrategyPerTab)
	require.NoError(t, err)

	perPlayer, err := NewOrchestrator(scrapeSurface(), Options{Tabs: testTabs()}).
		Run(context.Background(), players(), StrategyPerPlayer)
	require.NoError(t, err)

	require.Equal(t, string(StrategyPerPlayer), perPlayer.Timings.Strategy)

	if diff := cmp.Diff(perTab.Tabs, perPlayer.Tabs); diff != "" {
		t.Fatalf("tab results differ between strategies:\n%s", diff)
	}
	if diff := cmp.Diff(perTab.Missing, perPlayer.Missing); diff != "" {
		t.Fatalf("missing lists differ between strategies:\n%s", diff)
	}
}

func TestNonPrimaryFailureDoesNotMarkMissing(t *testing.T) {
	s := scrapeSurface()
	// alice disappears from the pve table only
	delete(s.rows[TabPve], aliceId)

	o := NewOrchestrator(s, Options{Tabs: testTabs()})
	result, err := o.Run(context.Background(), []Identity{{SteamId: aliceId, Label: "alice"}}, StrategyPerTab)
	require.NoError(t, err)

	require.Empty(t, result.Missing)
	require.Contains(t, result.Tabs[TabPvp].Stats, "alice")
	_, ok := result.Tabs[TabPve].Stats["alice"]
	require.False(t, ok)
}

func TestEscalationLadderReselectsTab(t *testing.T) {
	s := scrapeSurface()
	s.headers[TabPvp] = []string{"loading", "placeholder"}
	s.headersAfterReselect = map[string][]string{TabPvp: pvpHeaders}

	o := NewOrchestrator(s, Options{Tabs: testTabs()})
	result, err := o.Run(context.Background(), []Identity{{SteamId: aliceId, Label: "alice"}}, StrategyPerTab)
	require.NoError(t, err)

	require.GreaterOrEqual(t, s.selectCalls[TabPvp], 2, "ladder must reselect the tab")
	require.Contains(t, result.Tabs[TabPvp].ColumnMap, "KDR")
	require.Contains(t, result.Tabs[TabPvp].Stats, "alice")
}

func TestEscalationLadderExactEquality(t *testing.T) {
	tab := &TabSpec{
		Key:           TabPvp,
		Label:         "PvP",
		HeaderMarkers: []string{"Raw"},
		Metrics: []MetricPattern{
			// the pattern misses but the label equals the header
			{Label: "Raw Kills", Patterns: pat(`^frags$`)},
		},
	}
	s := newFakeSurface()
	s.headers[TabPvp] = []string{"Name", "raw kills"}
	s.rows[TabPvp] = map[string]*fakeRow{aliceId: {cells: []string{"alice", "7"}}}

	o := NewOrchestrator(s, Options{Tabs: []*TabSpec{tab}})
	result, err := o.Run(context.Background(), []Identity{{SteamId: aliceId, Label: "alice"}}, StrategyPerTab)
	require.NoError(t, err)

	require.Equal(t, map[string]int{"Raw Kills": 1}, result.Tabs[TabPvp].ColumnMap)
	require.Equal(t, float64(7), result.Tabs[TabPvp].Stats["alice"]["Raw Kills"])
}

func TestExhaustedLadderYieldsEmptyStats(t *testing.T) {
	tab := &TabSpec{
		Key:           TabPvp,
		Label:         "PvP",
		HeaderMarkers: []string{"Kills"},
		Metrics: []MetricPattern{
			{Label: "Raw Kills", Patterns: pat(`^frags$`)},
		},
	}
	s := newFakeSurface()
	s.headers[TabPvp] = []string{"Name", "something else"}

	o := NewOrchestrator(s, Options{Tabs: []*TabSpec{tab}})
	result, err := o.Run(context.Background(), []Identity{{SteamId: aliceId, Label: "alice"}}, StrategyPerTab)
	require.NoError(t, err)

	// an exhausted ladder is not an error: the tab reads zero for
	// every metric and never touches the filter
	require.Empty(t, result.Tabs[TabPvp].ColumnMap)
	require.Empty(t, result.Tabs[TabPvp].Stats["alice"])
	require.Empty(t, s.locateCalls)
	require.Empty(t, result.Missing)
}

func TestProgressCallback(t *testing.T) {
	var updates []string
	o := NewOrchestrator(scrapeSurface(), Options{
		Tabs:     testTabs(),
		Progress: func(status string) { updates = append(updates, status) },
	})
	_, err := o.Run(context.Background(), []Identity{{SteamId: aliceId, Label: "alice"}}, StrategyPerTab)
	require.NoError(t, err)
	require.NotEmpty(t, updates)
}
