package statstore

import "sort"

// Snapshot is the output of one scrape pass in storable form.
type Snapshot struct {
	Profiles   []Player
	Tabs       map[string]TabSnapshot
	Missing    []MissingEntry
	ServerInfo ServerInfo
}

type TabSnapshot struct {
	Metrics   []string
	ColumnMap map[string]int
	Stats     map[string]PlayerStats
}

// mergeSnapshot folds a snapshot into a cache. Entries unrelated to the
// snapshot's identities are never touched.
func mergeSnapshot(cache *ServerCache, snap Snapshot) {
	for _, incoming := range snap.Profiles {
		mergeProfile(cache, incoming)
	}

	if cache.Tabs == nil && len(snap.Tabs) > 0 {
		cache.Tabs = map[string]*TabCache{}
	}
	for key, tab := range snap.Tabs {
		mergeTab(cache, key, tab)
	}

	for _, entry := range snap.Missing {
		mergeMissing(cache, entry)
	}

	if snap.ServerInfo != (ServerInfo{}) {
		cache.ServerInfo = snap.ServerInfo
	}
}

// mergeProfile matches by SteamId or SteamUrl and overwrites, last write
// wins. Fields the incoming profile leaves empty keep their cached value so
// a url-matched update cannot erase a known steam id.
func mergeProfile(cache *ServerCache, incoming Player) {
	for i, existing := range cache.Profiles {
		if !incoming.SameIdentity(existing) {
			continue
		}
		cache.Profiles[i] = overlayProfile(existing, incoming)
		return
	}
	cache.Profiles = append(cache.Profiles, incoming)
}

func overlayProfile(base, overlay Player) Player {
	if overlay.SteamId != "" {
		base.SteamId = overlay.SteamId
	}
	if overlay.SteamUrl != "" {
		base.SteamUrl = overlay.SteamUrl
	}
	if overlay.DisplayName != "" {
		base.DisplayName = overlay.DisplayName
	}
	if overlay.AvatarUrl != "" {
		base.AvatarUrl = overlay.AvatarUrl
	}
	if overlay.Color != "" {
		base.Color = overlay.Color
	}
	return base
}

func mergeTab(cache *ServerCache, key string, incoming TabSnapshot) {
	tab := cache.Tabs[key]
	if tab == nil {
		tab = &TabCache{}
		cache.Tabs[key] = tab
	}

	// metric order is frozen the first time the tab is seen so columns do
	// not shuffle in downstream views
	if len(tab.Metrics) == 0 {
		tab.Metrics = incoming.Metrics
	}
	if len(incoming.ColumnMap) > 0 {
		tab.ColumnMap = incoming.ColumnMap
	}

	if tab.Stats == nil && len(incoming.Stats) > 0 {
		tab.Stats = map[string]PlayerStats{}
	}
	for label, stats := range incoming.Stats {
		tab.Stats[label] = stats
	}
}

func mergeMissing(cache *ServerCache, incoming MissingEntry) {
	key := incoming.identityKey()
	for i, existing := range cache.Missing {
		if existing.identityKey() == key {
			cache.Missing[i] = incoming
			return
		}
	}
	cache.Missing = append(cache.Missing, incoming)
}

// purgePlayer removes every trace of an identity from a cache and reports
// whether anything changed.
func purgePlayer(cache *ServerCache, identity Player) bool {
	labels := map[string]bool{}
	if identity.SteamId != "" {
		labels[identity.SteamId] = true
	}
	if identity.SteamUrl != "" {
		labels[identity.SteamUrl] = true
	}
	if identity.DisplayName != "" {
		labels[identity.DisplayName] = true
	}

	changed := false

	var kept []Player
	for _, profile := range cache.Profiles {
		if identity.SameIdentity(profile) {
			labels[profile.DisplayName] = true
			labels[profile.SteamId] = true
			labels[profile.SteamUrl] = true
			changed = true
			continue
		}
		kept = append(kept, profile)
	}
	cache.Profiles = kept
	delete(labels, "")

	for _, tab := range cache.Tabs {
		for label := range tab.Stats {
			if labels[label] {
				delete(tab.Stats, label)
				changed = true
			}
		}
	}

	var missing []MissingEntry
	for _, entry := range cache.Missing {
		asPlayer := Player{SteamId: entry.SteamId, SteamUrl: entry.SteamUrl}
		if identity.SameIdentity(asPlayer) || asPlayer.SameIdentity(identity) || labels[entry.Label] {
			changed = true
			continue
		}
		missing = append(missing, entry)
	}
	cache.Missing = missing

	return changed
}

// reorderProfiles sorts cached profiles into roster order. Profiles the
// roster does not know stay behind the known ones in their existing order.
func reorderProfiles(cache *ServerCache, roster []Player) {
	rank := func(p Player) int {
		for i, r := range roster {
			if r.SameIdentity(p) || p.SameIdentity(r) {
				return i
			}
		}
		return len(roster)
	}

	ordered := make([]Player, len(cache.Profiles))
	copy(ordered, cache.Profiles)
	sort.SliceStable(ordered, func(i, j int) bool {
		return rank(ordered[i]) < rank(ordered[j])
	})
	cache.Profiles = ordered
}
