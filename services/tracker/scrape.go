package tracker

import (
	"context"

	"ruststats-backend/lib/browser"
	"ruststats-backend/lib/scrapers/ruststats"
	"ruststats-backend/lib/statstore"
)

func (s *Service) scrape(ctx context.Context, target ServerTarget, roster []statstore.Player, strategy ruststats.Strategy, progress func(string)) (*ruststats.Result, error) {
	ctx, span := tracer.Start(ctx, "scrape")
	defer span.End()

	session, err := browser.Open(ctx, s.browserCfg, target.Url)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	players := make([]ruststats.Identity, len(roster))
	for i, p := range roster {
		players[i] = ruststats.Identity{
			SteamId:  p.SteamId,
			SteamUrl: p.SteamUrl,
			Label:    p.DisplayName,
		}
	}

	surface := ruststats.NewPageSurface(session.Page(), ruststats.DefaultSelectors())
	orch := ruststats.NewOrchestrator(surface, ruststats.Options{
		Progress: progress,
	})
	return orch.Run(ctx, players, strategy)
}
