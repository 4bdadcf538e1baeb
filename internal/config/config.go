// Package config loads scout settings from a YAML file, environment
// variables, and defaults, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings holds the resolved configuration for the sync engine.
type Settings struct {
	// RemoteURL is the libSQL URL of the shared scouting database.
	RemoteURL string `mapstructure:"remote_url"`
	// AuthToken authenticates against the remote database, if required.
	AuthToken string `mapstructure:"auth_token"`

	// ProbeURL is hit by the connectivity check before each sync.
	ProbeURL string `mapstructure:"probe_url"`
	// RemoteTimeout bounds each individual remote call.
	RemoteTimeout time.Duration `mapstructure:"remote_timeout"`

	// DataDir holds the local staging database.
	DataDir string `mapstructure:"data_dir"`
	// InboxDir is watched for scanned payload files.
	InboxDir string `mapstructure:"inbox_dir"`

	// SyncInterval is the background scheduler cadence.
	SyncInterval time.Duration `mapstructure:"sync_interval"`

	// DashboardPort serves the WebSocket dashboard; 0 disables it.
	DashboardPort int `mapstructure:"dashboard_port"`

	// LogFile receives rotated daemon logs; empty logs to stderr.
	LogFile string `mapstructure:"log_file"`
}

// Load reads configuration from the given file (or the default search
// paths when empty), applies SCOUT_* environment overrides, and fills
// defaults.
func Load(cfgFile string) (*Settings, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to find home directory: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".scoutsync"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env cover it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if s.RemoteURL == "" {
		return nil, fmt.Errorf("remote_url is required (set SCOUT_REMOTE_URL or add it to the config file)")
	}
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()

	v.SetDefault("remote_url", "")
	v.SetDefault("auth_token", "")
	v.SetDefault("probe_url", "https://clients3.google.com/generate_204")
	v.SetDefault("remote_timeout", 15*time.Second)
	v.SetDefault("data_dir", filepath.Join(home, ".scoutsync"))
	v.SetDefault("inbox_dir", filepath.Join(home, ".scoutsync", "inbox"))
	v.SetDefault("sync_interval", 5*time.Minute)
	v.SetDefault("dashboard_port", 0)
	v.SetDefault("log_file", "")
}

// StagingPath returns the staging database location under DataDir.
func (s *Settings) StagingPath() string {
	return filepath.Join(s.DataDir, "staging.db")
}

// DSN returns the remote connection string with the auth token applied.
func (s *Settings) DSN() string {
	if s.AuthToken == "" {
		return s.RemoteURL
	}
	sep := "?"
	if strings.Contains(s.RemoteURL, "?") {
		sep = "&"
	}
	return s.RemoteURL + sep + "authToken=" + s.AuthToken
}
