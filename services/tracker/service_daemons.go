package tracker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ruststats-backend/lib/scrapers/ruststats"
)

func (s *Service) refreshAllServers(ctx context.Context) {
	for _, target := range s.servers {
		_, err := s.Refresh(ctx, target.Name, ruststats.StrategyPerTab, nil)
		if errors.Is(err, ErrScrapeInFlight) {
			slog.InfoContext(ctx, "skipping scheduled refresh, scrape in flight", "server", target.Name)
			return
		}
		if err != nil {
			slog.ErrorContext(ctx, "scheduled refresh failed", "server", target.Name, "err", err)
		}
	}
}

func (s *Service) scrapeDaemon(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(ctx, interval)
			s.refreshAllServers(ctx)
			cancel()
		}
	}
}
