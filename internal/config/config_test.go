/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsToSQLite(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBBackend != DatabaseSQLite {
		t.Fatalf("unexpected backend %q", cfg.DBBackend)
	}
	if cfg.DBDSN == "" {
		t.Fatal("expected a default DSN")
	}
	if cfg.Engine != EngineMPD {
		t.Fatalf("unexpected engine %q", cfg.Engine)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("BRAGI_DB_BACKEND", "oracle")
	if _, err := Load(); err == nil {
		t.Fatal("expected load to fail for unknown backend")
	}
}

func TestLoadRejectsUnknownEngine(t *testing.T) {
	t.Setenv("BRAGI_ENGINE", "spotify")
	if _, err := Load(); err == nil {
		t.Fatal("expected load to fail for unknown engine")
	}
}

func TestLoadReportsLegacyEnvWarnings(t *testing.T) {
	t.Setenv("MEDIALIB_DB_DSN", "legacy.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBDSN != "legacy.db" {
		t.Fatalf("expected legacy DSN to apply, got %q", cfg.DBDSN)
	}
	if len(cfg.LegacyEnvWarnings) == 0 {
		t.Fatal("expected legacy env warnings")
	}
}

func TestConfigFileOverlaysDefaultsButNotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bragi.yaml")
	body := "http_port: 9090\nmpd_host: mpd.local\ndb_dsn: file.db\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("BRAGI_CONFIG", path)
	t.Setenv("BRAGI_DB_DSN", "env.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPPort != 9090 {
		t.Fatalf("expected file port to apply, got %d", cfg.HTTPPort)
	}
	if cfg.MPDHost != "mpd.local" {
		t.Fatalf("expected file mpd host to apply, got %q", cfg.MPDHost)
	}
	if cfg.DBDSN != "env.db" {
		t.Fatalf("env DSN should win over file, got %q", cfg.DBDSN)
	}
}
