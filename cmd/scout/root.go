package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/scoutforge/scoutsync/internal/config"
	"github.com/scoutforge/scoutsync/internal/netcheck"
	"github.com/scoutforge/scoutsync/internal/remote"
	"github.com/scoutforge/scoutsync/internal/staging"
	"github.com/scoutforge/scoutsync/internal/syncer"
)

var (
	cfgFile string
	logFile string
)

var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "Offline-first sync engine for scouting data",
	Long: `scout keeps a team's scouting data flowing between devices and the
shared remote database, even at venues with unreliable connectivity.

Records are staged locally while offline and drained to the remote
store on the next successful sync. The full dataset is fetched back
after every drain so each device converges on the same view.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default ~/.scoutsync/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"write logs to this file with rotation instead of stderr")

	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "data", Title: "Data Commands:"},
	)
}

// loadSettings resolves configuration or exits with an error.
func loadSettings() *config.Settings {
	s, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if logFile != "" {
		s.LogFile = logFile
	}
	return s
}

// newLogger builds a logger for the given component, rotating through
// lumberjack when a log file is configured.
func newLogger(s *config.Settings, prefix string) *log.Logger {
	var w io.Writer = os.Stderr
	if s.LogFile != "" {
		w = &lumberjack.Logger{
			Filename:   s.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	}
	return log.New(w, prefix, log.LstdFlags)
}

// openStore opens the local staging store or exits.
func openStore(s *config.Settings) *staging.Store {
	store, err := staging.Open(s.StagingPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening staging store: %v\n", err)
		os.Exit(1)
	}
	return store
}

// openGateway connects to the remote store and ensures its schema.
// Gateway logs go through the same writer as the caller's logger so
// --log-file rotation covers them.
func openGateway(ctx context.Context, s *config.Settings, logger *log.Logger) *remote.SQLGateway {
	gateway, err := remote.Open(s.DSN(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to remote store: %v\n", err)
		os.Exit(1)
	}
	if err := gateway.InitSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing remote schema: %v\n", err)
		os.Exit(1)
	}
	return gateway
}

// buildEngine wires the full sync orchestrator from settings.
func buildEngine(ctx context.Context, s *config.Settings, logger *log.Logger) (*staging.Store, *remote.SQLGateway, *syncer.Orchestrator) {
	store := openStore(s)
	gateway := openGateway(ctx, s, logger)
	checker := netcheck.NewHTTPChecker(s.ProbeURL, s.RemoteTimeout, logger)
	engine := syncer.New(store, gateway, checker, &syncer.Config{
		RemoteTimeout: s.RemoteTimeout,
		Logger:        logger,
	})
	return store, gateway, engine
}
