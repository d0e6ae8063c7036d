/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Playback engine selection.
type EngineBackend string

const (
	// EngineMPD drives playback through a local MPD server.
	EngineMPD EngineBackend = "mpd"
	// EngineNone runs the catalog and playlist API without a playback
	// engine. Player endpoints return 503.
	EngineNone EngineBackend = "none"
)

// Config covers process level configuration read from environment
// variables, optionally overlaid from a YAML file named by BRAGI_CONFIG.
type Config struct {
	Environment string `yaml:"environment"`
	HTTPBind    string `yaml:"http_bind"`
	HTTPPort    int    `yaml:"http_port"`

	DBBackend DatabaseBackend `yaml:"db_backend"`
	DBDSN     string          `yaml:"db_dsn"`

	Engine      EngineBackend `yaml:"engine"`
	MPDHost     string        `yaml:"mpd_host"`
	MPDPort     int           `yaml:"mpd_port"`
	MPDPassword string        `yaml:"mpd_password"`

	LegacyEnvWarnings []string `yaml:"-"`
}

// Load reads environment variables, applies defaults, overlays the YAML
// file if configured, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnvAny([]string{"BRAGI_ENV", "MEDIALIB_ENV"}, "development"),
		HTTPBind:    getEnvAny([]string{"BRAGI_HTTP_BIND", "MEDIALIB_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:    getEnvIntAny([]string{"BRAGI_HTTP_PORT", "MEDIALIB_HTTP_PORT"}, 8080),
		DBBackend:   DatabaseBackend(getEnvAny([]string{"BRAGI_DB_BACKEND", "MEDIALIB_DB_BACKEND"}, string(DatabaseSQLite))),
		DBDSN:       getEnvAny([]string{"BRAGI_DB_DSN", "MEDIALIB_DB_DSN"}, "bragi.db"),
		Engine:      EngineBackend(getEnvAny([]string{"BRAGI_ENGINE", "MEDIALIB_ENGINE"}, string(EngineMPD))),
		MPDHost:     getEnvAny([]string{"BRAGI_MPD_HOST", "MPD_HOST"}, "127.0.0.1"),
		MPDPort:     getEnvIntAny([]string{"BRAGI_MPD_PORT", "MPD_PORT"}, 6600),
		MPDPassword: getEnvAny([]string{"BRAGI_MPD_PASSWORD", "MPD_PASSWORD"}, ""),
	}

	if path := os.Getenv("BRAGI_CONFIG"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("BRAGI_DB_DSN must be provided")
	}
	if cfg.Engine != EngineMPD && cfg.Engine != EngineNone {
		return nil, fmt.Errorf("unsupported playback engine %q", cfg.Engine)
	}
	if cfg.Engine == EngineMPD && cfg.MPDHost == "" {
		return nil, fmt.Errorf("BRAGI_MPD_HOST must be provided when the mpd engine is selected")
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

// overlayFile applies non-zero values from a YAML file on top of the
// environment-derived config. File values win over env defaults but not
// over explicitly set BRAGI_* variables, so the file is parsed into a
// scratch struct and only merged where the env left the default.
func (c *Config) overlayFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var file Config
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if file.Environment != "" && os.Getenv("BRAGI_ENV") == "" {
		c.Environment = file.Environment
	}
	if file.HTTPBind != "" && os.Getenv("BRAGI_HTTP_BIND") == "" {
		c.HTTPBind = file.HTTPBind
	}
	if file.HTTPPort != 0 && os.Getenv("BRAGI_HTTP_PORT") == "" {
		c.HTTPPort = file.HTTPPort
	}
	if file.DBBackend != "" && os.Getenv("BRAGI_DB_BACKEND") == "" {
		c.DBBackend = file.DBBackend
	}
	if file.DBDSN != "" && os.Getenv("BRAGI_DB_DSN") == "" {
		c.DBDSN = file.DBDSN
	}
	if file.Engine != "" && os.Getenv("BRAGI_ENGINE") == "" {
		c.Engine = file.Engine
	}
	if file.MPDHost != "" && os.Getenv("BRAGI_MPD_HOST") == "" {
		c.MPDHost = file.MPDHost
	}
	if file.MPDPort != 0 && os.Getenv("BRAGI_MPD_PORT") == "" {
		c.MPDPort = file.MPDPort
	}
	if file.MPDPassword != "" && os.Getenv("BRAGI_MPD_PASSWORD") == "" {
		c.MPDPassword = file.MPDPassword
	}
	return nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"MEDIALIB_ENV":        "use BRAGI_ENV",
		"MEDIALIB_DB_BACKEND": "use BRAGI_DB_BACKEND",
		"MEDIALIB_DB_DSN":     "use BRAGI_DB_DSN",
		"MEDIALIB_ENGINE":     "use BRAGI_ENGINE",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}
