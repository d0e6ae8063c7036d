/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/bragi_media/internal/models"
)

// Sort columns accepted by ListMedia.
const (
	SortByName      = "name"
	SortByDateAdded = "dateAdded"
)

// Order directions accepted by ListMedia.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ListParams filters and orders a media listing.
type ListParams struct {
	MediaType models.MediaType
	Query     string
	Sort      string
	Order     string
}

// Repository provides upsert, dedup, and search over cataloged media items.
type Repository struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewRepository creates a media catalog repository.
func NewRepository(db *gorm.DB, logger zerolog.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// UpsertMedia inserts each item or, on URI conflict, updates its metadata in
// place. Duration and size only ever coalesce: a known value is never
// overwritten with null. The whole batch commits in one transaction.
func (r *Repository) UpsertMedia(ctx context.Context, items []models.MediaItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dialect := tx.Dialector.Name()
		for i := range items {
			items[i].DisplayNameNorm = NormalizeSearchText(items[i].DisplayName)
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "uri"}},
				DoUpdates: clause.Assignments(map[string]any{
					"display_name":      upsertNewValue(dialect, "display_name"),
					"display_name_norm": upsertNewValue(dialect, "display_name_norm"),
					"mime_type":         upsertNewValue(dialect, "mime_type"),
					"media_type":        upsertNewValue(dialect, "media_type"),
					"duration_ms":       upsertCoalesce(dialect, "media_items", "duration_ms"),
					"size_bytes":        upsertCoalesce(dialect, "media_items", "size_bytes"),
					"is_available":      upsertNewValue(dialect, "is_available"),
					"source_id":         upsertNewValue(dialect, "source_id"),
				}),
			}).Create(&items[i]).Error
			if err != nil {
				return fmt.Errorf("upsert media %s: %w", items[i].URI, err)
			}
		}
		return nil
	})
}

// ListMedia returns items of one media type, optionally filtered by a
// diacritic-insensitive substring match on the normalized name. A failed
// read logs and returns an empty list rather than failing the caller.
func (r *Repository) ListMedia(ctx context.Context, params ListParams) []models.MediaItem {
	q := r.db.WithContext(ctx).Where("media_type = ?", params.MediaType)
	if params.Query != "" {
		q = q.Where("display_name_norm LIKE ?", "%"+NormalizeSearchText(params.Query)+"%")
	}

	col := "display_name_norm"
	if params.Sort == SortByDateAdded {
		col = "date_added"
	}
	dir := "ASC"
	if params.Order == OrderDesc {
		dir = "DESC"
	}

	var items []models.MediaItem
	if err := q.Order(col + " " + dir + ", date_added ASC, id ASC").Find(&items).Error; err != nil {
		r.logger.Error().Err(err).Msg("list media failed")
		return nil
	}
	return items
}

// ListMissingDurations returns up to limit items whose duration has not
// been measured yet, oldest first.
func (r *Repository) ListMissingDurations(ctx context.Context, limit int) []models.MediaItem {
	var items []models.MediaItem
	err := r.db.WithContext(ctx).
		Where("duration_ms IS NULL OR duration_ms <= 0").
		Order("date_added ASC, id ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		r.logger.Error().Err(err).Msg("list missing durations failed")
		return nil
	}
	return items
}

// GetMediaByID returns the item, or nil when no row matches.
func (r *Repository) GetMediaByID(ctx context.Context, id string) (*models.MediaItem, error) {
	var item models.MediaItem
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media %s: %w", id, err)
	}
	return &item, nil
}

// RemoveMedia hard-deletes the item and cascades to playlist membership.
func (r *Repository) RemoveMedia(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("media_id = ?", id).Delete(&models.PlaylistItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.MediaItem{}, "id = ?", id).Error
	})
}

// MarkUnavailable flags the item without deleting it, preserving its
// metadata for a later re-import.
func (r *Repository) MarkUnavailable(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.MediaItem{}).
		Where("id = ?", id).
		Update("is_available", false).Error
}

// UpdatePlaybackStats sets lastPlayed and increments playCount by one.
// A missing record is a no-op.
func (r *Repository) UpdatePlaybackStats(ctx context.Context, id string, playedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.MediaItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_played": playedAt,
			"play_count":  gorm.Expr("play_count + 1"),
		}).Error
}

// SaveDuration persists a measured duration. The value is not rewritten when
// it differs from a previously recorded one by less than a second, so lossy
// re-measurement does not thrash the row.
func (r *Repository) SaveDuration(ctx context.Context, id string, durationMs int64) error {
	if durationMs <= 0 {
		return nil
	}
	item, err := r.GetMediaByID(ctx, id)
	if err != nil || item == nil {
		return err
	}
	if item.DurationMs != nil {
		delta := *item.DurationMs - durationMs
		if delta < 0 {
			delta = -delta
		}
		if delta < 1000 {
			return nil
		}
	}
	return r.db.WithContext(ctx).Model(&models.MediaItem{}).
		Where("id = ?", id).
		Update("duration_ms", durationMs).Error
}

// ListAllURIs returns every cataloged URI, for duplicate detection before
// an import.
func (r *Repository) ListAllURIs(ctx context.Context) ([]string, error) {
	var uris []string
	err := r.db.WithContext(ctx).Model(&models.MediaItem{}).Pluck("uri", &uris).Error
	if err != nil {
		return nil, fmt.Errorf("list uris: %w", err)
	}
	return uris, nil
}
