// Package ruststats extracts per-player stats out of the live server
// dashboard. The dashboard has no API: everything is read straight from its
// auto-re-rendering table UI, so every interaction goes through a bounded
// retry envelope and every wait has an explicit timeout.
package ruststats

import (
	"fmt"
	"regexp"
	"time"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/ruststats")

// Identity is the set of attributes used to recognize a player on the
// dashboard. Either SteamId or SteamUrl may independently be authoritative,
// both may be present and inconsistent. Label is display-only.
type Identity struct {
	SteamId  string `json:"steamId,omitempty"`
	SteamUrl string `json:"steamUrl,omitempty"`
	Label    string `json:"label"`
}

// PlayerStats maps metric label to value for one (tab, player) pair.
type PlayerStats map[string]float64

type TabResult struct {
	Key       string                 `json:"key"`
	Metrics   []string               `json:"metrics"`
	ColumnMap map[string]int         `json:"columnMap"`
	Stats     map[string]PlayerStats `json:"stats"`
}

type MissingPlayer struct {
	Label    string `json:"label"`
	SteamId  string `json:"steamId,omitempty"`
	SteamUrl string `json:"steamUrl,omitempty"`
	Reason   string `json:"reason"`
}

// ServerInfo is the handful of header fields the dashboard shows for the
// selected server.
type ServerInfo struct {
	Title         string `json:"title,omitempty"`
	PlayersOnline string `json:"playersOnline,omitempty"`
	LastWipe      string `json:"lastWipe,omitempty"`
}

type Timings struct {
	Strategy string                   `json:"strategy"`
	Total    time.Duration            `json:"total"`
	PerTab   map[string]time.Duration `json:"perTab"`
}

// Result is one complete scrape pass over every tab for a set of players.
type Result struct {
	Tabs       map[string]*TabResult `json:"tabs"`
	Missing    []MissingPlayer       `json:"missing"`
	ServerInfo ServerInfo            `json:"serverInfo"`
	Timings    Timings               `json:"timings"`
}

// PlayerNotFoundError reports a player whose row could not be located on the
// primary tab. It is recorded, never fatal to the batch.
type PlayerNotFoundError struct {
	Label  string
	Reason string
}

func (e *PlayerNotFoundError) Error() string {
	return fmt.Sprintf("player %q not found: %s", e.Label, e.Reason)
}

// MetricPattern matches a semantic metric against header texts.
type MetricPattern struct {
	Label    string
	Patterns []*regexp.Regexp
}

// DerivedMetric is a metric whose value comes from a hover tooltip, with a
// recomputation rule that overrides whatever the tooltip said.
type DerivedMetric struct {
	Label            string
	TooltipSelectors []string
	// FallbackLabel names the column to read plainly when no tooltip
	// appears. Empty means default to 0.
	FallbackLabel string
	// Recompute inputs: Label = Numerator / Denominator * 100 when the
	// denominator was read and is > 0.
	NumeratorLabel   string
	DenominatorLabel string
}

// TabSpec describes one switchable stat category of the dashboard.
type TabSpec struct {
	Key           string
	Label         string
	HeaderMarkers []string
	// Metrics is the ordered pattern spec; nil means map generically
	// (every non-identity column becomes a metric).
	Metrics []MetricPattern
	Derived []DerivedMetric
}

const (
	TabPvp       = "pvp"
	TabPve       = "pve"
	TabResources = "resources"
	TabFarming   = "farming"
	TabBuilding  = "building"
)

// PrimaryTab is where row lookup decides whether a player is missing for
// the whole pass.
const PrimaryTab = TabPvp

var tooltipSelectors = []string{
	".tooltip-inner",
	".popover-body",
	"[role=tooltip]",
	".tippy-content",
}

func pat(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile("(?i)" + e)
	}
	return out
}

// DefaultTabs is the dashboard's five stat categories. PvP and PvE carry
// explicit pattern specs because their derived metrics need stable labels;
// the gathering tabs map generically off whatever columns the site renders.
func DefaultTabs() []*TabSpec {
	return []*TabSpec{
		{
			Key:           TabPvp,
			Label:         "PvP",
			HeaderMarkers: []string{"Kills", "KDR"},
			Metrics: []MetricPattern{
				{Label: "PvP Kills", Patterns: pat(`^pvp kills$`, `^kills$`)},
				{Label: "PvP Deaths", Patterns: pat(`^pvp deaths$`, `^deaths$`)},
				{Label: "KDR", Patterns: pat(`^kdr$`, `^k/d`)},
				{Label: "Headshots", Patterns: pat(`^headshots$`)},
				{Label: "Shots Fired", Patterns: pat(`^shots fired$`, `^bullets fired$`)},
				{Label: "Shots Hit", Patterns: pat(`^shots hit$`, `^bullets hit$`)},
				{Label: "Headshot %", Patterns: pat(`^headshot %$`, `^hs%$`)},
			},
			Derived: []DerivedMetric{
				{
					Label:            "Headshot %",
					TooltipSelectors: tooltipSelectors,
					FallbackLabel:    "Headshot %",
					NumeratorLabel:   "Headshots",
					DenominatorLabel: "Shots Hit",
				},
			},
		},
		{
			Key:           TabPve,
			Label:         "PvE",
			HeaderMarkers: []string{"Scientists"},
			Metrics: []MetricPattern{
				{Label: "Scientists Killed", Patterns: pat(`^scientists? killed$`, `^scientists?$`)},
				{Label: "Animals Killed", Patterns: pat(`^animals? killed$`, `^animals?$`)},
				{Label: "Helicopters Downed", Patterns: pat(`^helicopters? downed$`, `^patrol heli`)},
				{Label: "PvE Deaths", Patterns: pat(`^pve deaths$`, `^deaths to npcs$`)},
			},
		},
		{
			Key:           TabResources,
			Label:         "Resources",
			HeaderMarkers: []string{"Stone", "Wood"},
		},
		{
			Key:           TabFarming,
			Label:         "Farming",
			HeaderMarkers: []string{"Cloth", "Corn"},
		},
		{
			Key:           TabBuilding,
			Label:         "Building",
			HeaderMarkers: []string{"Placed"},
		},
	}
}
