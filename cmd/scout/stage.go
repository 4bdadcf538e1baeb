package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scoutforge/scoutsync/internal/schema"
	"github.com/scoutforge/scoutsync/internal/ui"
)

var stageCmd = &cobra.Command{
	Use:     "stage <payload.json>",
	GroupID: "data",
	Short:   "Stage a scanned record for the next sync",
	Long: `Stage a scanned payload file into the local staging store.

The payload is the QR transfer envelope produced by a scouting device:

  {"kind": "pit",   "record": { ...team fields... }}
  {"kind": "match", "record": { ...match fields... }}

Each kind holds a single staging slot: staging a second record of the
same kind before a sync replaces the first (latest edit wins).
Malformed payloads are rejected and nothing is staged.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings := loadSettings()
		ctx := context.Background()

		data, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading payload: %v\n", err)
			os.Exit(1)
		}

		payload, err := schema.ParseScanned(data)
		if err != nil {
			fmt.Println(ui.Fail(fmt.Sprintf("Rejected: %v", err)))
			os.Exit(1)
		}

		store := openStore(settings)
		defer store.Close()

		switch payload.Kind {
		case schema.KindPit:
			if err := store.StagePit(ctx, payload.Team); err != nil {
				fmt.Fprintf(os.Stderr, "Error staging record: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(ui.Pass(fmt.Sprintf("Staged pit record for team %d", payload.Team.TeamNumber)))
		case schema.KindMatch:
			if err := store.StageMatch(ctx, payload.Match); err != nil {
				fmt.Fprintf(os.Stderr, "Error staging record: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(ui.Pass(fmt.Sprintf("Staged match %d for team %d",
				payload.Match.MatchNumber, payload.Match.TeamNumber)))
		}
		fmt.Println(ui.Dim("Run 'scout sync' to upload."))
	},
}

func init() {
	rootCmd.AddCommand(stageCmd)
}
