// Package tracker ties the scraper, the cache store and the identity
// resolver together into the operations the binaries expose: refreshing a
// server's stats, viewing the reconciled cache, and editing the roster.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"ruststats-backend/lib/browser"
	"ruststats-backend/lib/scrapers/ruststats"
	"ruststats-backend/lib/scrapers/steam"
	"ruststats-backend/lib/statstore"
	"ruststats-backend/lib/statstore/history"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/tracker")

// ErrScrapeInFlight is returned when a refresh is requested while another
// one is still running. Callers are expected to retry later, not queue.
var ErrScrapeInFlight = errors.New("a scrape is already in flight")

type ServerTarget struct {
	Name string `json:"name"`
	Url  string `json:"url"`
}

type Service struct {
	store      *statstore.Store
	history    *history.Store
	steam      *steam.Client
	browserCfg browser.Config
	servers    []ServerTarget
	inflight   atomic.Bool
}

type ServiceOptions struct {
	Store   *statstore.Store
	History *history.Store
	Steam   *steam.Client
	Browser browser.Config
	Servers []ServerTarget
	// ScrapeInterval enables the background refresh daemon when positive.
	ScrapeInterval time.Duration
}

func NewService(opts ServiceOptions) *Service {
	if opts.Store == nil {
		panic("nil stat store")
	}
	s := &Service{
		store:      opts.Store,
		history:    opts.History,
		steam:      opts.Steam,
		browserCfg: opts.Browser,
		servers:    opts.Servers,
	}
	if opts.ScrapeInterval > 0 {
		go s.scrapeDaemon(context.Background(), opts.ScrapeInterval)
	}
	return s
}

func (s *Service) target(serverName string) (ServerTarget, error) {
	for _, t := range s.servers {
		if t.Name == serverName {
			return t, nil
		}
	}
	return ServerTarget{}, fmt.Errorf("unknown server %q", serverName)
}

type RefreshResult struct {
	Cache   statstore.ServerCache    `json:"cache"`
	Missing []statstore.MissingEntry `json:"missing"`
	Timings ruststats.Timings        `json:"timings"`
}

// Refresh runs one full scrape pass against a server and folds the result
// into the cache. At most one refresh runs per process; concurrent calls get
// ErrScrapeInFlight.
func (s *Service) Refresh(ctx context.Context, serverName string, strategy ruststats.Strategy, progress func(string)) (RefreshResult, error) {
	ctx, span := tracer.Start(ctx, "Refresh")
	defer span.End()

	if !s.inflight.CompareAndSwap(false, true) {
		return RefreshResult{}, ErrScrapeInFlight
	}
	defer s.inflight.Store(false)

	target, err := s.target(serverName)
	if err != nil {
		return RefreshResult{}, err
	}

	roster := s.store.Roster(ctx)
	if len(roster) == 0 {
		return RefreshResult{}, errors.New("roster is empty, nothing to scrape")
	}

	result, err := s.scrape(ctx, target, roster, strategy, progress)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scrape failed")
		return RefreshResult{}, err
	}

	cache, err := s.store.Merge(ctx, serverName, snapshotFromResult(roster, result))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "merge failed")
		return RefreshResult{}, err
	}

	s.pushHistory(ctx, serverName, result)

	return RefreshResult{
		Cache:   cache,
		Missing: cache.Missing,
		Timings: result.Timings,
	}, nil
}

// snapshotFromResult converts a scrape pass into storable form. Profile
// entries come from the roster so the cache keeps avatars and colors.
func snapshotFromResult(roster []statstore.Player, result *ruststats.Result) statstore.Snapshot {
	snap := statstore.Snapshot{
		Profiles: roster,
		Tabs:     map[string]statstore.TabSnapshot{},
		ServerInfo: statstore.ServerInfo{
			Title:         result.ServerInfo.Title,
			PlayersOnline: result.ServerInfo.PlayersOnline,
			LastWipe:      result.ServerInfo.LastWipe,
		},
	}
	for key, tab := range result.Tabs {
		stats := make(map[string]statstore.PlayerStats, len(tab.Stats))
		for label, playerStats := range tab.Stats {
			stats[label] = statstore.PlayerStats(playerStats)
		}
		snap.Tabs[key] = statstore.TabSnapshot{
			Metrics:   tab.Metrics,
			ColumnMap: tab.ColumnMap,
			Stats:     stats,
		}
	}
	for _, missing := range result.Missing {
		snap.Missing = append(snap.Missing, statstore.MissingEntry{
			Label:    missing.Label,
			SteamId:  missing.SteamId,
			SteamUrl: missing.SteamUrl,
			Reason:   missing.Reason,
		})
	}
	return snap
}

func (s *Service) pushHistory(ctx context.Context, serverName string, result *ruststats.Result) {
	if s.history == nil {
		return
	}

	perPlayer := map[string][]history.TabSnapshot{}
	for key, tab := range result.Tabs {
		for label, stats := range tab.Stats {
			metrics := make([]history.MetricValue, 0, len(stats))
			for _, metric := range tab.Metrics {
				value, ok := stats[metric]
				if !ok {
					continue
				}
				metrics = append(metrics, history.MetricValue{Metric: metric, Value: value})
			}
			if len(metrics) == 0 {
				continue
			}
			perPlayer[label] = append(perPlayer[label], history.TabSnapshot{
				Tab:     key,
				Metrics: metrics,
			})
		}
	}

	req := history.PushRequest{Time: time.Now(), Server: serverName}
	for player, tabs := range perPlayer {
		req.Players = append(req.Players, history.PlayerSnapshot{
			Player: player,
			Tabs:   tabs,
		})
	}

	err := s.history.Push(ctx, req)
	if err != nil {
		slog.WarnContext(ctx, "failed to push stat history", "server", serverName, "err", err)
	}
}

// History returns the recorded stat series for one player on one server.
func (s *Service) History(ctx context.Context, serverName, player string) ([]history.MetricSeries, error) {
	if s.history == nil {
		return nil, errors.New("stat history is not configured")
	}
	return s.history.Pull(ctx, serverName, player)
}
