package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/scoutforge/scoutsync/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show staged records and snapshot freshness",
	Long: `Show the local sync state:

  - Which records are staged and waiting for the next sync
  - When the last successful sync happened
  - How many teams and matches the local snapshot holds

This command is fully offline; it never touches the remote store.`,
	Run: func(cmd *cobra.Command, args []string) {
		settings := loadSettings()
		ctx := context.Background()

		store := openStore(settings)
		defer store.Close()

		fmt.Println(ui.Accent("Staging"))
		if info, err := os.Stat(store.Path()); err == nil {
			fmt.Printf("  store: %s (%d KB)\n", store.Path(), info.Size()/1024)
		}
		pit, err := store.StagedPit(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading staging store: %v\n", err)
			os.Exit(1)
		}
		if pit != nil {
			fmt.Printf("  pit:   team %d (%s), pending upload\n", pit.TeamNumber, pit.TeamName)
		} else {
			fmt.Println(ui.Dim("  pit:   empty"))
		}

		match, err := store.StagedMatch(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading staging store: %v\n", err)
			os.Exit(1)
		}
		if match != nil {
			fmt.Printf("  match: match %d for team %d, pending upload\n", match.MatchNumber, match.TeamNumber)
		} else {
			fmt.Println(ui.Dim("  match: empty"))
		}

		fmt.Println(ui.Accent("Snapshot"))
		snap, err := store.Snapshot(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading snapshot: %v\n", err)
			os.Exit(1)
		}
		if snap == nil {
			fmt.Println(ui.Dim("  no snapshot yet; run 'scout sync'"))
			return
		}
		fmt.Printf("  %d teams, %d matches\n", len(snap.Teams), snap.MatchCount())

		last, err := store.LastSyncTime(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading last sync time: %v\n", err)
			os.Exit(1)
		}
		if !last.IsZero() {
			age := time.Since(last).Round(time.Second)
			line := fmt.Sprintf("  last sync: %s (%s ago)", last.Local().Format(time.RFC1123), age)
			if age > time.Hour {
				fmt.Println(ui.Warn(line))
			} else {
				fmt.Println(line)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
