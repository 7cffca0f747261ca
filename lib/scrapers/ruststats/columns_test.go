package ruststats

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapColumnsPattern(t *testing.T) {
	headers := []string{"Name", "KDR", "PvP Kills"}
	spec := []MetricPattern{
		{Label: "KDR", Patterns: []*regexp.Regexp{regexp.MustCompile(`(?i)^kdr$`)}},
	}

	mapping := MapColumns(headers, spec)
	require.Equal(t, map[string]int{"KDR": 1}, mapping.ColumnMap)
	require.Equal(t, []string{"KDR"}, mapping.Metrics)
}

func TestMapColumnsPatternFirstMatchWins(t *testing.T) {
	headers := []string{"Kills", "PvP Kills"}
	spec := []MetricPattern{
		{Label: "PvP Kills", Patterns: pat(`^pvp kills$`, `^kills$`)},
	}

	mapping := MapColumns(headers, spec)
	// the first *header* matching any pattern takes the slot
	require.Equal(t, 0, mapping.ColumnMap["PvP Kills"])
}

func TestMapColumnsNormalizesWhitespace(t *testing.T) {
	headers := []string{"  PvP\n  Kills "}
	spec := []MetricPattern{
		{Label: "PvP Kills", Patterns: pat(`^pvp kills$`)},
	}

	mapping := MapColumns(headers, spec)
	require.Equal(t, map[string]int{"PvP Kills": 0}, mapping.ColumnMap)
}

func TestMapColumnsUnmatchedAbsent(t *testing.T) {
	headers := []string{"Name", "KDR"}
	spec := []MetricPattern{
		{Label: "KDR", Patterns: pat(`^kdr$`)},
		{Label: "Headshots", Patterns: pat(`^headshots$`)},
	}

	mapping := MapColumns(headers, spec)
	require.Equal(t, []string{"KDR"}, mapping.Metrics)
	_, ok := mapping.ColumnMap["Headshots"]
	require.False(t, ok)
}

func TestMapColumnsGeneric(t *testing.T) {
	headers := []string{"Player", "Wood", "Stone", " Metal  Ore ", "SteamID"}

	mapping := MapColumns(headers, nil)
	require.Equal(t, []string{"Wood", "Stone", "Metal Ore"}, mapping.Metrics)
	require.Equal(t, map[string]int{
		"Wood":      1,
		"Stone":     2,
		"Metal Ore": 3,
	}, mapping.ColumnMap)
}

func TestMapColumnsGenericDuplicateHeaders(t *testing.T) {
	headers := []string{"Wood", "Wood"}

	mapping := MapColumns(headers, nil)
	require.Equal(t, []string{"Wood"}, mapping.Metrics)
	require.Equal(t, 0, mapping.ColumnMap["Wood"])
}

func TestMapColumnsExact(t *testing.T) {
	headers := []string{"Name", "headshot %", "KDR"}
	spec := []MetricPattern{
		// a pattern that will never match, exact equality still should
		{Label: "Headshot %", Patterns: pat(`^hs ratio$`)},
	}

	require.True(t, MapColumns(headers, spec).Empty())

	mapping := MapColumnsExact(headers, spec)
	require.Equal(t, map[string]int{"Headshot %": 1}, mapping.ColumnMap)
}
