/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/bragi_media/internal/models"
)

// SourceRepository tracks where media items were imported from.
type SourceRepository struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewSourceRepository creates a media source repository.
func NewSourceRepository(db *gorm.DB, logger zerolog.Logger) *SourceRepository {
	return &SourceRepository{
		db:     db,
		logger: logger.With().Str("component", "sources").Logger(),
	}
}

// UpsertSource inserts the source or, on URI conflict, refreshes its type
// and display name. The original dateAdded is kept.
func (r *SourceRepository) UpsertSource(ctx context.Context, source models.MediaSource) error {
	dialect := r.db.Dialector.Name()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "uri"}},
		DoUpdates: clause.Assignments(map[string]any{
			"source_type":  upsertNewValue(dialect, "source_type"),
			"display_name": upsertNewValue(dialect, "display_name"),
		}),
	}).Create(&source).Error
	if err != nil {
		return fmt.Errorf("upsert source %s: %w", source.URI, err)
	}
	return nil
}

// ListSources returns sources, optionally of one type, newest first.
func (r *SourceRepository) ListSources(ctx context.Context, sourceType models.SourceType) []models.MediaSource {
	q := r.db.WithContext(ctx)
	if sourceType != "" {
		q = q.Where("source_type = ?", sourceType)
	}
	var sources []models.MediaSource
	if err := q.Order("date_added DESC").Find(&sources).Error; err != nil {
		r.logger.Error().Err(err).Msg("list sources failed")
		return nil
	}
	return sources
}
