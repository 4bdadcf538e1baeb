package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scoutforge/scoutsync/internal/cache"
	"github.com/scoutforge/scoutsync/internal/daemon"
	"github.com/scoutforge/scoutsync/internal/dashboard"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "sync",
	Short:   "Run the background sync scheduler",
	Long: `Run the sync scheduler in the foreground until interrupted.

The daemon:
  1. Syncs immediately, then on the configured interval
  2. Watches the inbox directory for scanned payload files and stages them
  3. Retries sooner with backoff after failures
  4. Optionally serves a WebSocket dashboard of sync activity

Example usage:
  scout daemon                      # Use configured interval
  scout daemon --interval 2m        # Override the cadence
  scout daemon --dashboard 8723     # Also serve the dashboard`,
	Run: func(cmd *cobra.Command, args []string) {
		settings := loadSettings()
		logger := newLogger(settings, "[daemon] ")
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if interval, _ := cmd.Flags().GetDuration("interval"); interval > 0 {
			settings.SyncInterval = interval
		}
		if port, _ := cmd.Flags().GetInt("dashboard"); port > 0 {
			settings.DashboardPort = port
		}

		store, gateway, engine := buildEngine(ctx, settings, logger)
		defer store.Close()
		defer gateway.Close()

		appCache := cache.New()

		// Optional dashboard feed.
		var board *dashboard.Server
		if settings.DashboardPort > 0 {
			board = dashboard.NewServer(&dashboard.Config{
				Port:   settings.DashboardPort,
				Logger: newLogger(settings, "[dashboard] "),
			})
			if err := board.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "Error starting dashboard: %v\n", err)
				os.Exit(1)
			}
			defer board.Stop()
			fmt.Printf("Dashboard: ws://localhost:%d/ws\n", settings.DashboardPort)
		}

		cfg := daemon.DefaultConfig()
		cfg.Interval = settings.SyncInterval
		cfg.Logger = logger
		cfg.OnCycleStart = func() {
			if board != nil {
				board.NotifySyncStarted()
			}
		}
		cfg.OnOutcome = func(outcome daemon.Outcome, message string) {
			if board == nil {
				return
			}
			switch outcome {
			case daemon.OutcomeFailed:
				board.NotifySyncFailed(message)
			default:
				if ds := appCache.Dataset(); ds != nil {
					board.NotifySyncComplete(ds, string(outcome), 0)
					board.NotifyStats(ds)
				}
			}
		}

		d, err := daemon.New(engine, store, appCache, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating daemon: %v\n", err)
			os.Exit(1)
		}

		// Inbox watcher feeds scanned records into staging and kicks the
		// scheduler so they upload promptly.
		onStaged := func(kind string, teamNumber, matchNumber int) {
			if board != nil {
				board.NotifyRecordStaged(kind, teamNumber, matchNumber)
			}
			d.Kick()
		}
		watcher, err := daemon.NewInboxWatcher(store, settings.InboxDir, onStaged, newLogger(settings, "[inbox] "))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating inbox watcher: %v\n", err)
			os.Exit(1)
		}
		if err := watcher.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting inbox watcher: %v\n", err)
			os.Exit(1)
		}
		defer watcher.Stop()

		fmt.Printf("Sync daemon running (interval %s). Press Ctrl+C to stop.\n", settings.SyncInterval)
		if err := d.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Daemon error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	daemonCmd.Flags().Duration("interval", 0, "sync cadence (overrides config, min 1m)")
	daemonCmd.Flags().Int("dashboard", 0, "serve the WebSocket dashboard on this port")
	rootCmd.AddCommand(daemonCmd)
}
