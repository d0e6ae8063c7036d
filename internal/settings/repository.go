/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package settings

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/bragi_media/internal/models"
)

// Setting keys. The legacy rule key is read once during migration and never
// written again.
const (
	keyAutoPlayEnabled = "auto_play_enabled"
	keyAutoPlayRule    = "auto_play_rule"
	keyAutoPlayMinMs   = "auto_play_min_ms"
	keyAutoPlayMaxMs   = "auto_play_max_ms"
	keyThemeMode       = "theme_mode"
)

// Defaults used when a key is absent.
const (
	DefaultAutoPlayEnabled = true
	DefaultAutoPlayMinMs   = int64(0)
	DefaultAutoPlayMaxMs   = int64(8 * 60 * 1000)
	DefaultThemeMode       = "dark"

	// MaxRangeMs caps every stored duration value at ten hours.
	MaxRangeMs = int64(10 * 60 * 60 * 1000)
)

// legacyRuleRanges maps the retired single-rule enum onto explicit ranges.
var legacyRuleRanges = map[string]AutoPlayRange{
	"max8min":     {MinMs: 0, MaxMs: 8 * 60 * 1000},
	"max90min":    {MinMs: 0, MaxMs: 90 * 60 * 1000},
	"min40max120": {MinMs: 40 * 60 * 1000, MaxMs: 120 * 60 * 1000},
	"max8h":       {MinMs: 0, MaxMs: 8 * 60 * 60 * 1000},
}

// AutoPlayRange bounds auto-play candidate durations, in milliseconds.
type AutoPlayRange struct {
	MinMs int64 `json:"min_ms"`
	MaxMs int64 `json:"max_ms"`
}

// Repository provides typed accessors over the key/value settings store,
// plus the ignored-folder set and the full-library clear.
type Repository struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewRepository creates a settings repository.
func NewRepository(db *gorm.DB, logger zerolog.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger.With().Str("component", "settings").Logger(),
	}
}

func (r *Repository) get(ctx context.Context, key string) (string, bool) {
	var setting models.Setting
	err := r.db.WithContext(ctx).First(&setting, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false
	}
	if err != nil {
		r.logger.Error().Err(err).Str("key", key).Msg("read setting failed")
		return "", false
	}
	return setting.Value, true
}

func (r *Repository) set(ctx context.Context, key, value string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{"value": value}),
	}).Create(&models.Setting{Key: key, Value: value}).Error
}

// clampMs clamps a duration value to [0, MaxRangeMs]. Unparseable stored
// values round to zero.
func clampMs(value int64) int64 {
	if value < 0 {
		return 0
	}
	if value > MaxRangeMs {
		return MaxRangeMs
	}
	return value
}

func parseMs(raw string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// AutoPlayEnabled reports whether auto-play is switched on.
func (r *Repository) AutoPlayEnabled(ctx context.Context) bool {
	raw, ok := r.get(ctx, keyAutoPlayEnabled)
	if !ok {
		return DefaultAutoPlayEnabled
	}
	return raw == "1"
}

// SetAutoPlayEnabled stores the auto-play switch.
func (r *Repository) SetAutoPlayEnabled(ctx context.Context, enabled bool) error {
	value := "0"
	if enabled {
		value = "1"
	}
	return r.set(ctx, keyAutoPlayEnabled, value)
}

// AutoPlayRange returns the duration range gating auto-play candidates.
// When the explicit min/max keys are absent but the legacy rule key is
// present, the rule is mapped to a concrete range, persisted, and returned;
// an inverted stored range is swapped on read.
func (r *Repository) AutoPlayRange(ctx context.Context) AutoPlayRange {
	rawMin, okMin := r.get(ctx, keyAutoPlayMinMs)
	rawMax, okMax := r.get(ctx, keyAutoPlayMaxMs)
	if okMin || okMax {
		minMs := DefaultAutoPlayMinMs
		if okMin {
			minMs = clampMs(parseMs(rawMin))
		}
		maxMs := DefaultAutoPlayMaxMs
		if okMax {
			maxMs = clampMs(parseMs(rawMax))
		}
		if maxMs < minMs {
			minMs, maxMs = maxMs, minMs
		}
		return AutoPlayRange{MinMs: minMs, MaxMs: maxMs}
	}

	if rule, ok := r.get(ctx, keyAutoPlayRule); ok {
		mapped, known := legacyRuleRanges[rule]
		if !known {
			mapped = AutoPlayRange{MinMs: DefaultAutoPlayMinMs, MaxMs: DefaultAutoPlayMaxMs}
		}
		if err := r.SetAutoPlayMinMs(ctx, mapped.MinMs); err != nil {
			r.logger.Error().Err(err).Msg("persist migrated auto-play min failed")
		}
		if err := r.SetAutoPlayMaxMs(ctx, mapped.MaxMs); err != nil {
			r.logger.Error().Err(err).Msg("persist migrated auto-play max failed")
		}
		return mapped
	}

	return AutoPlayRange{MinMs: DefaultAutoPlayMinMs, MaxMs: DefaultAutoPlayMaxMs}
}

// SetAutoPlayMinMs stores the range minimum, clamped to [0, 10h].
func (r *Repository) SetAutoPlayMinMs(ctx context.Context, valueMs int64) error {
	return r.set(ctx, keyAutoPlayMinMs, strconv.FormatInt(clampMs(valueMs), 10))
}

// SetAutoPlayMaxMs stores the range maximum, clamped to [0, 10h].
func (r *Repository) SetAutoPlayMaxMs(ctx context.Context, valueMs int64) error {
	return r.set(ctx, keyAutoPlayMaxMs, strconv.FormatInt(clampMs(valueMs), 10))
}

// ThemeMode returns "dark" or "light", defaulting to dark.
func (r *Repository) ThemeMode(ctx context.Context) string {
	raw, ok := r.get(ctx, keyThemeMode)
	if ok && (raw == "light" || raw == "dark") {
		return raw
	}
	return DefaultThemeMode
}

// SetThemeMode stores the theme; anything but "light" persists as dark.
func (r *Repository) SetThemeMode(ctx context.Context, mode string) error {
	if mode != "light" {
		mode = "dark"
	}
	return r.set(ctx, keyThemeMode, mode)
}

// ListIgnoredFolders returns the ignore patterns sorted ascending.
func (r *Repository) ListIgnoredFolders(ctx context.Context) []string {
	var patterns []string
	err := r.db.WithContext(ctx).Model(&models.IgnoredFolder{}).
		Order("pattern ASC").
		Pluck("pattern", &patterns).Error
	if err != nil {
		r.logger.Error().Err(err).Msg("list ignored folders failed")
		return nil
	}
	return patterns
}

// AddIgnoredFolder stores a pattern; duplicates and blanks are ignored.
func (r *Repository) AddIgnoredFolder(ctx context.Context, pattern string) error {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.IgnoredFolder{Pattern: pattern}).Error
}

// RemoveIgnoredFolder deletes a pattern.
func (r *Repository) RemoveIgnoredFolder(ctx context.Context, pattern string) error {
	return r.db.WithContext(ctx).
		Delete(&models.IgnoredFolder{}, "pattern = ?", strings.TrimSpace(pattern)).Error
}

// ClearLibrary wipes membership, playlists, media, and sources in one
// transaction. Settings and ignore patterns survive.
func (r *Repository) ClearLibrary(ctx context.Context) error {
	started := time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.PlaylistItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&models.Playlist{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&models.MediaItem{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&models.MediaSource{}).Error
	})
	if err == nil {
		r.logger.Info().Dur("took", time.Since(started)).Msg("library cleared")
	}
	return err
}
