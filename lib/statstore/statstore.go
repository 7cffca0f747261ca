// Package statstore persists per-server stat caches and the player roster as
// whole-document JSON files under a configured directory. All writes go
// through a single mutex so roster edits and scrape merges cannot interleave.
package statstore

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("statstore")

// Player is a roster/cache profile. Identity is multi-key: SteamId or
// SteamUrl may independently identify the same person, and DisplayName is
// never identity.
type Player struct {
	SteamId     string `json:"steamId,omitempty"`
	SteamUrl    string `json:"steamUrl,omitempty"`
	DisplayName string `json:"displayName"`
	AvatarUrl   string `json:"avatarUrl,omitempty"`
	Color       string `json:"color,omitempty"`
}

// SameIdentity reports whether two profiles refer to the same player: exact
// SteamId match first, then exact SteamUrl match. Display names never count.
func (p Player) SameIdentity(other Player) bool {
	if p.SteamId != "" && p.SteamId == other.SteamId {
		return true
	}
	if p.SteamUrl != "" && p.SteamUrl == other.SteamUrl {
		return true
	}
	return false
}

type PlayerStats map[string]float64

type TabCache struct {
	Metrics   []string               `json:"metrics,omitempty"`
	ColumnMap map[string]int         `json:"columnMap,omitempty"`
	Stats     map[string]PlayerStats `json:"stats,omitempty"`
}

type MissingEntry struct {
	Label    string `json:"label"`
	SteamId  string `json:"steamId,omitempty"`
	SteamUrl string `json:"steamUrl,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// identityKey collapses a missing entry to its strongest identity so the
// list can be deduplicated.
func (e MissingEntry) identityKey() string {
	if e.SteamId != "" {
		return "id:" + e.SteamId
	}
	if e.SteamUrl != "" {
		return "url:" + e.SteamUrl
	}
	return "label:" + e.Label
}

type ServerInfo struct {
	Title         string `json:"title,omitempty"`
	PlayersOnline string `json:"playersOnline,omitempty"`
	LastWipe      string `json:"lastWipe,omitempty"`
}

type ServerCache struct {
	ServerName string               `json:"serverName"`
	Profiles   []Player             `json:"profiles,omitempty"`
	Tabs       map[string]*TabCache `json:"tabs,omitempty"`
	Missing    []MissingEntry       `json:"missing,omitempty"`
	ServerInfo ServerInfo           `json:"serverInfo"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}

type Store struct {
	dir string
	mu  sync.Mutex
}

func NewStore(dir string) (*Store, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

const rosterFile = "roster.json"

func sanitizeName(server string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(server) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

func (s *Store) cachePath(server string) string {
	return filepath.Join(s.dir, "cache-"+sanitizeName(server)+".json")
}

// Cache loads the persisted cache for a server. A missing or malformed
// document yields an empty cache, never an error the caller has to handle.
func (s *Store) Cache(ctx context.Context, server string) ServerCache {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadCacheLocked(ctx, server)
}

func (s *Store) loadCacheLocked(ctx context.Context, server string) ServerCache {
	empty := ServerCache{ServerName: server}

	buf, err := os.ReadFile(s.cachePath(server))
	if errors.Is(err, fs.ErrNotExist) {
		return empty
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to read cache document", "server", server, "err", err)
		return empty
	}

	var cache ServerCache
	err = json.Unmarshal(buf, &cache)
	if err != nil {
		slog.WarnContext(ctx, "discarding malformed cache document", "server", server, "err", err)
		return empty
	}
	cache.ServerName = server
	return cache
}

func (s *Store) saveCacheLocked(cache ServerCache) error {
	buf, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return err
	}
	return os.WriteFile(s.cachePath(cache.ServerName), buf, 0644)
}

// cacheServersLocked lists every server that has a persisted cache document.
func (s *Store) cacheServersLocked(ctx context.Context) []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		slog.WarnContext(ctx, "failed to list cache directory", "err", err)
		return nil
	}

	var servers []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "cache-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		buf, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		var cache ServerCache
		if json.Unmarshal(buf, &cache) != nil || cache.ServerName == "" {
			continue
		}
		servers = append(servers, cache.ServerName)
	}
	return servers
}

// Merge folds a scrape snapshot into a server's cache document and persists
// the result.
func (s *Store) Merge(ctx context.Context, server string, snap Snapshot) (ServerCache, error) {
	ctx, span := tracer.Start(ctx, "Merge")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	cache := s.loadCacheLocked(ctx, server)
	mergeSnapshot(&cache, snap)
	cache.UpdatedAt = time.Now()

	err := s.saveCacheLocked(cache)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist cache")
		return ServerCache{}, err
	}
	return cache, nil
}

// RemovePlayer purges every trace of an identity from every server's cache:
// the profile, stat entries keyed by any of the player's labels, and missing
// entries.
func (s *Store) RemovePlayer(ctx context.Context, identity Player) error {
	ctx, span := tracer.Start(ctx, "RemovePlayer")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, server := range s.cacheServersLocked(ctx) {
		cache := s.loadCacheLocked(ctx, server)
		if !purgePlayer(&cache, identity) {
			continue
		}
		cache.UpdatedAt = time.Now()
		err := s.saveCacheLocked(cache)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to persist cache")
			return err
		}
	}
	return nil
}

// RenamePlayer updates the display fields of a cached profile in place.
// Stat bodies are left untouched.
func (s *Store) RenamePlayer(ctx context.Context, identity Player, displayName string) error {
	ctx, span := tracer.Start(ctx, "RenamePlayer")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, server := range s.cacheServersLocked(ctx) {
		cache := s.loadCacheLocked(ctx, server)

		changed := false
		for i, profile := range cache.Profiles {
			if identity.SameIdentity(profile) {
				cache.Profiles[i].DisplayName = displayName
				changed = true
			}
		}
		if !changed {
			continue
		}

		cache.UpdatedAt = time.Now()
		err := s.saveCacheLocked(cache)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to persist cache")
			return err
		}
	}
	return nil
}

// ReorderProfiles reorders each cache's profile list to mirror the given
// roster order. Profiles unknown to the roster keep their relative order at
// the end.
func (s *Store) ReorderProfiles(ctx context.Context, roster []Player) error {
	ctx, span := tracer.Start(ctx, "ReorderProfiles")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, server := range s.cacheServersLocked(ctx) {
		cache := s.loadCacheLocked(ctx, server)
		reorderProfiles(&cache, roster)
		cache.UpdatedAt = time.Now()
		err := s.saveCacheLocked(cache)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to persist cache")
			return err
		}
	}
	return nil
}
