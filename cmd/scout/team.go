package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/scoutforge/scoutsync/internal/ui"
)

var teamCmd = &cobra.Command{
	Use:     "team",
	GroupID: "data",
	Short:   "Inspect and manage team records",
}

var teamListCmd = &cobra.Command{
	Use:   "list",
	Short: "List teams from the local snapshot",
	Long: `List every team in the local snapshot, offline.

Run 'scout sync' first to refresh the snapshot from the remote store.`,
	Run: func(cmd *cobra.Command, args []string) {
		settings := loadSettings()
		ctx := context.Background()

		store := openStore(settings)
		defer store.Close()

		snap, err := store.Snapshot(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading snapshot: %v\n", err)
			os.Exit(1)
		}
		if snap == nil || len(snap.Teams) == 0 {
			fmt.Println(ui.Dim("No teams in the local snapshot; run 'scout sync'."))
			return
		}

		for _, team := range snap.Teams {
			fmt.Printf("%s %s %s\n",
				ui.Accent(fmt.Sprintf("%5d", team.TeamNumber)),
				team.TeamName,
				ui.Dim(fmt.Sprintf("(%d matches)", len(team.Matches))))
		}
	},
}

var teamDeleteCmd = &cobra.Command{
	Use:   "delete <team-number>",
	Short: "Delete a team and its matches from the remote store",
	Long: `Permanently delete a team document and all of its match records
from the remote store.

This is the only destructive remote operation; sync never deletes
anything. The local snapshot keeps the team until the next sync.
Requires --force.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		teamNumber, err := strconv.Atoi(args[0])
		if err != nil || teamNumber < 1 {
			fmt.Fprintf(os.Stderr, "Error: invalid team number %q\n", args[0])
			os.Exit(1)
		}

		force, _ := cmd.Flags().GetBool("force")
		if !force {
			fmt.Fprintf(os.Stderr, "Refusing to delete team %d without --force\n", teamNumber)
			os.Exit(1)
		}

		settings := loadSettings()
		logger := newLogger(settings, "[remote] ")
		ctx := context.Background()

		gateway := openGateway(ctx, settings, logger)
		defer gateway.Close()

		if err := gateway.DeleteTeam(ctx, teamNumber); err != nil {
			fmt.Fprintf(os.Stderr, "Error deleting team: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(ui.Pass(fmt.Sprintf("Deleted team %d and its matches from the remote store", teamNumber)))
	},
}

func init() {
	teamDeleteCmd.Flags().Bool("force", false, "confirm the deletion")
	teamCmd.AddCommand(teamListCmd)
	teamCmd.AddCommand(teamDeleteCmd)
	rootCmd.AddCommand(teamCmd)
}
