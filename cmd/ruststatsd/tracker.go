package main

import (
	"database/sql"
	"time"

	"ruststats-backend/lib/scrapers/steam"
	"ruststats-backend/lib/statstore"
	"ruststats-backend/lib/statstore/history"
	"ruststats-backend/services/tracker"
)

func InitTracker(cfg Config, interval time.Duration) (*tracker.Service, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "data"
	}
	store, err := statstore.NewStore(dataDir)
	if err != nil {
		return nil, err
	}

	var historyStore *history.Store
	if cfg.HistoryDb != "" {
		db, err := sql.Open("sqlite", cfg.HistoryDb)
		if err != nil {
			return nil, err
		}
		hs, err := history.NewStore(db)
		if err != nil {
			return nil, err
		}
		historyStore = &hs
	}

	steamClient, err := steam.NewClient()
	if err != nil {
		return nil, err
	}

	return tracker.NewService(tracker.ServiceOptions{
		Store:          store,
		History:        historyStore,
		Steam:          steamClient,
		Browser:        cfg.Browser,
		Servers:        cfg.Servers,
		ScrapeInterval: interval,
	}), nil
}
