package commands

import (
	"fmt"
	"log/slog"

	"ruststats-backend/lib/scrapers/ruststats"
	"ruststats-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var scrapeServer *string
var scrapeStrategy *string

func init() {
	scrapeServer = scrapeCmd.Flags().String("server", "", "The configured server name to scrape.")
	scrapeStrategy = scrapeCmd.Flags().String("strategy", string(ruststats.StrategyPerTab), "Traversal strategy: per-tab or per-player.")
	scrapeCmd.MarkFlagRequired("server")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape --server <name> [--strategy per-tab|per-player]",
	Short: "Runs one scrape pass against a server and merges it into the cache.",
	Run: func(cmd *cobra.Command, args []string) {
		service := createService()

		res, err := service.Refresh(
			cmd.Context(),
			*scrapeServer,
			ruststats.Strategy(*scrapeStrategy),
			func(status string) {
				fmt.Println(status)
			},
		)
		if err != nil {
			serviceutil.Fatal("scrape failed", err)
		}

		slog.Info("scrape finished",
			"strategy", res.Timings.Strategy,
			"seconds", res.Timings.Total.Seconds(),
		)
		for tab, d := range res.Timings.PerTab {
			slog.Info("tab timing", "tab", tab, "seconds", d.Seconds())
		}
		for _, missing := range res.Missing {
			slog.Warn("player missing from stats",
				"label", missing.Label, "reason", missing.Reason)
		}
	},
}
