package main

import (
	"context"
	"flag"
	"net/http"
	"time"

	"ruststats-backend/lib/browser"
	"ruststats-backend/lib/configutil"
	"ruststats-backend/lib/serviceutil"
	"ruststats-backend/lib/telemetry"
	"ruststats-backend/services/tracker"
)

type Config struct {
	Port                int                    `json:"port"`
	DataDir             string                 `json:"data_dir"`
	HistoryDb           string                 `json:"history_db"`
	ScrapeIntervalHours int                    `json:"scrape_interval_hours"`
	Servers             []tracker.ServerTarget `json:"servers"`
	Browser             browser.Config         `json:"browser"`
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	t, err := telemetry.SetupFromEnv(ctx, "ruststatsd")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	defer t.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)
	telemetry.InitSlog(*verbose)

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	port := cfg.Port
	if port == 0 {
		port = 8000
	}

	service, err := InitTracker(cfg, time.Duration(cfg.ScrapeIntervalHours)*time.Hour)
	if err != nil {
		serviceutil.Fatal("init tracker", err)
	}

	mux := http.NewServeMux()
	RegisterRoutes(mux, service)

	go serviceutil.StartHttpServer(port, mux)
	<-ctx.Done()
}
