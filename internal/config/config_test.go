package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
remote_url: libsql://scouting.example.turso.io
auth_token: secret
sync_interval: 2m
dashboard_port: 9000
`)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if s.RemoteURL != "libsql://scouting.example.turso.io" {
		t.Errorf("remote_url = %q", s.RemoteURL)
	}
	if s.SyncInterval != 2*time.Minute {
		t.Errorf("sync_interval = %s, want 2m", s.SyncInterval)
	}
	if s.DashboardPort != 9000 {
		t.Errorf("dashboard_port = %d, want 9000", s.DashboardPort)
	}
	// Defaults fill the gaps.
	if s.RemoteTimeout != 15*time.Second {
		t.Errorf("remote_timeout = %s, want default 15s", s.RemoteTimeout)
	}
	if s.ProbeURL == "" {
		t.Error("probe_url default missing")
	}
}

func TestLoadRequiresRemoteURL(t *testing.T) {
	path := writeConfig(t, "sync_interval: 1m\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing remote_url")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "remote_url: libsql://from-file.example\n")
	t.Setenv("SCOUT_REMOTE_URL", "libsql://from-env.example")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.RemoteURL != "libsql://from-env.example" {
		t.Errorf("remote_url = %q, want the env override", s.RemoteURL)
	}
}

func TestDSNAppendsAuthToken(t *testing.T) {
	s := &Settings{RemoteURL: "libsql://db.example", AuthToken: "tok"}
	if got := s.DSN(); got != "libsql://db.example?authToken=tok" {
		t.Errorf("DSN = %q", got)
	}

	s.AuthToken = ""
	if got := s.DSN(); got != "libsql://db.example" {
		t.Errorf("DSN without token = %q", got)
	}
}

func TestStagingPath(t *testing.T) {
	s := &Settings{DataDir: "/tmp/scout"}
	if got := s.StagingPath(); got != filepath.Join("/tmp/scout", "staging.db") {
		t.Errorf("StagingPath = %q", got)
	}
}
