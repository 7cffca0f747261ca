package commands

import (
	"regexp"

	"ruststats-backend/lib/serviceutil"
	"ruststats-backend/lib/statstore"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var steamIdRegex = regexp.MustCompile(`^[0-9]{17}$`)

func init() {
	rosterCmd.AddCommand(rosterAddCmd)
	rosterCmd.AddCommand(rosterRmCmd)
	rosterCmd.AddCommand(rosterListCmd)
	rootCmd.AddCommand(rosterCmd)
}

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Manages the tracked player roster.",
}

var rosterListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the tracked players in display order.",
	Run: func(cmd *cobra.Command, args []string) {
		service := createService()

		t := newTable()
		t.AppendHeader(table.Row{"Display name", "Steam id", "Profile url"})
		for _, player := range service.Roster(cmd.Context()) {
			t.AppendRow(table.Row{player.DisplayName, player.SteamId, player.SteamUrl})
		}
		t.Render()
	},
}

var rosterAddCmd = &cobra.Command{
	Use:   "add <steam id or profile url>...",
	Short: "Resolves steam identities and adds them to the roster.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service := createService()

		t := newTable()
		t.AppendHeader(table.Row{"Display name", "Steam id", "Profile url"})
		for _, arg := range args {
			player, err := service.AddPlayer(cmd.Context(), arg)
			if err != nil {
				serviceutil.Fatal("failed to add player", err)
			}
			t.AppendRow(table.Row{player.DisplayName, player.SteamId, player.SteamUrl})
		}
		t.Render()
	},
}

var rosterRmCmd = &cobra.Command{
	Use:   "rm <steam id or profile url>...",
	Short: "Removes players from the roster and purges their cached stats.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service := createService()

		for _, arg := range args {
			identity := statstore.Player{SteamUrl: arg}
			if steamIdRegex.MatchString(arg) {
				identity = statstore.Player{SteamId: arg}
			}
			err := service.RemovePlayer(cmd.Context(), identity)
			if err != nil {
				serviceutil.Fatal("failed to remove player", err)
			}
		}
	},
}
