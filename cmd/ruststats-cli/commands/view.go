package commands

import (
	"fmt"
	"sort"

	"ruststats-backend/services/tracker"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var viewServer *string
var viewTab *string

func init() {
	viewServer = viewCmd.Flags().String("server", "", "The configured server name to view.")
	viewTab = viewCmd.Flags().String("tab", "pvp", "The stat tab to render.")
	viewCmd.MarkFlagRequired("server")
	rootCmd.AddCommand(viewCmd)
}

var viewCmd = &cobra.Command{
	Use:   "view --server <name> [--tab pvp]",
	Short: "Renders the cached stats for a server as a table.",
	Run: func(cmd *cobra.Command, args []string) {
		service := createService()
		res := service.View(cmd.Context(), *viewServer)

		metrics := res.Metrics[*viewTab]
		if len(metrics) == 0 {
			// fall back to every metric any player carries
			seen := map[string]bool{}
			for _, player := range res.Players {
				for metric := range player.Stats[*viewTab] {
					if !seen[metric] {
						seen[metric] = true
						metrics = append(metrics, metric)
					}
				}
			}
			sort.Strings(metrics)
		}

		t := newTable()
		header := table.Row{"Player"}
		for _, metric := range metrics {
			header = append(header, metric)
		}
		t.AppendHeader(header)

		for _, player := range res.Players {
			row := table.Row{playerCell(player)}
			for _, metric := range metrics {
				if stats, ok := player.Stats[*viewTab]; ok {
					row = append(row, stats[metric])
				} else {
					row = append(row, "-")
				}
			}
			t.AppendRow(row)
		}
		t.Render()

		if res.ServerInfo.Title != "" {
			fmt.Printf("%s (online: %s, last wipe: %s)\n",
				res.ServerInfo.Title, res.ServerInfo.PlayersOnline, res.ServerInfo.LastWipe)
		}
		fmt.Printf("last updated: %s\n", res.UpdatedAt)
	},
}

func playerCell(player tracker.PlayerView) string {
	if player.Missing != nil {
		return fmt.Sprintf("%s (missing: %s)", player.DisplayName, player.Missing.Reason)
	}
	return player.DisplayName
}
