package commands

import (
	"context"
	"fmt"
	"os"

	"ruststats-backend/lib/browser"
	"ruststats-backend/lib/configutil"
	"ruststats-backend/lib/serviceutil"
	"ruststats-backend/lib/statstore"
	"ruststats-backend/services/tracker"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ruststats-cli",
	Short: "ruststats-cli scrapes and inspects rust server player stats.",
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type Config struct {
	DataDir string                 `json:"data_dir"`
	Servers []tracker.ServerTarget `json:"servers"`
	Browser browser.Config         `json:"browser"`
}

func createService() *tracker.Service {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "data"
	}
	store, err := statstore.NewStore(dataDir)
	if err != nil {
		serviceutil.Fatal("failed to open stat store", err)
	}

	return tracker.NewService(tracker.ServiceOptions{
		Store:   store,
		Browser: cfg.Browser,
		Servers: cfg.Servers,
	})
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
