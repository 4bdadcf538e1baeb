package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scoutforge/scoutsync/internal/syncer"
	"github.com/scoutforge/scoutsync/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Run one sync cycle now",
	Long: `Run a single sync cycle against the remote store.

The cycle:
  1. Checks connectivity (a fast no-op failure when offline)
  2. Uploads any staged pit record, then any staged match record
  3. Fetches the full remote dataset and saves it as the local snapshot

Staged records survive any failure and are retried on the next cycle.`,
	Run: func(cmd *cobra.Command, args []string) {
		settings := loadSettings()
		logger := newLogger(settings, "[sync] ")
		ctx := context.Background()

		store, gateway, engine := buildEngine(ctx, settings, logger)
		defer store.Close()
		defer gateway.Close()

		res := engine.Sync(ctx)
		if !res.Success {
			fmt.Println(ui.Fail(res.Message))
			os.Exit(1)
		}

		if err := syncer.Commit(ctx, res, store, nil); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving snapshot: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(ui.Pass(res.Message))
		fmt.Printf("%s %d teams, %d matches\n",
			ui.Dim("Fetched:"), len(res.Dataset.Teams), res.Dataset.MatchCount())
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
