/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlists

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/bragi_media/internal/models"
)

// ErrEmptyName is returned when a playlist would be created or renamed with
// a blank name.
var ErrEmptyName = errors.New("playlist name must not be empty")

// Repository manages playlists and their ordered membership.
type Repository struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewRepository creates a playlist repository.
func NewRepository(db *gorm.DB, logger zerolog.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger.With().Str("component", "playlists").Logger(),
	}
}

// slugID derives a unique playlist id from the trimmed name plus a
// timestamp, so repeated names still get distinct ids.
func slugID(name string, now time.Time) string {
	slug := strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), "-")
	return slug + "-" + strconv.FormatInt(now.UnixMilli(), 10)
}

// CreatePlaylist creates an empty playlist holding one media type.
func (r *Repository) CreatePlaylist(ctx context.Context, name string, mediaType models.MediaType) (*models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	now := time.Now().UTC()
	playlist := models.Playlist{
		ID:          slugID(name, now),
		Name:        name,
		MediaType:   mediaType,
		DateCreated: now,
		DateUpdated: now,
	}
	if err := r.db.WithContext(ctx).Create(&playlist).Error; err != nil {
		return nil, fmt.Errorf("create playlist: %w", err)
	}
	return &playlist, nil
}

// RenamePlaylist updates the name and bumps dateUpdated.
func (r *Repository) RenamePlaylist(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	return r.db.WithContext(ctx).Model(&models.Playlist{}).
		Where("id = ?", id).
		Updates(map[string]any{"name": name, "date_updated": time.Now().UTC()}).Error
}

// DeletePlaylist removes the playlist and all of its membership rows.
func (r *Repository) DeletePlaylist(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_id = ?", id).Delete(&models.PlaylistItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Playlist{}, "id = ?", id).Error
	})
}

// AddToPlaylist appends the media item at position max+1. Adding an
// existing member is a no-op; dateUpdated bumps either way.
func (r *Repository) AddToPlaylist(ctx context.Context, playlistID, mediaID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPos int
		err := tx.Model(&models.PlaylistItem{}).
			Where("playlist_id = ?", playlistID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPos).Error
		if err != nil {
			return err
		}
		item := models.PlaylistItem{PlaylistID: playlistID, MediaID: mediaID, Position: maxPos + 1}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&item).Error; err != nil {
			return err
		}
		return r.touch(tx, playlistID)
	})
}

// RemoveFromPlaylist deletes the membership row and bumps dateUpdated.
// Remaining positions are not renumbered; listing sorts by position so gaps
// are harmless.
func (r *Repository) RemoveFromPlaylist(ctx context.Context, playlistID, mediaID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("playlist_id = ? AND media_id = ?", playlistID, mediaID).
			Delete(&models.PlaylistItem{}).Error
		if err != nil {
			return err
		}
		return r.touch(tx, playlistID)
	})
}

// ReorderPlaylistItems renumbers positions 1..N to match the given order.
// The renumbering is all-or-nothing: a mid-batch failure rolls back.
func (r *Repository) ReorderPlaylistItems(ctx context.Context, playlistID string, orderedMediaIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, mediaID := range orderedMediaIDs {
			err := tx.Model(&models.PlaylistItem{}).
				Where("playlist_id = ? AND media_id = ?", playlistID, mediaID).
				Update("position", i+1).Error
			if err != nil {
				return err
			}
		}
		return r.touch(tx, playlistID)
	})
}

// ListPlaylists returns playlists, optionally of one media type, most
// recently updated first.
func (r *Repository) ListPlaylists(ctx context.Context, mediaType models.MediaType) []models.Playlist {
	q := r.db.WithContext(ctx)
	if mediaType != "" {
		q = q.Where("media_type = ?", mediaType)
	}
	var lists []models.Playlist
	if err := q.Order("date_updated DESC").Find(&lists).Error; err != nil {
		r.logger.Error().Err(err).Msg("list playlists failed")
		return nil
	}
	return lists
}

// ListPlaylistItems returns the playlist's media items ordered by position.
func (r *Repository) ListPlaylistItems(ctx context.Context, playlistID string) []models.MediaItem {
	var items []models.MediaItem
	err := r.db.WithContext(ctx).
		Table("playlist_items").
		Select("media_items.*").
		Joins("JOIN media_items ON media_items.id = playlist_items.media_id").
		Where("playlist_items.playlist_id = ?", playlistID).
		Order("playlist_items.position ASC").
		Find(&items).Error
	if err != nil {
		r.logger.Error().Err(err).Str("playlist", playlistID).Msg("list playlist items failed")
		return nil
	}
	return items
}

// GetPlaylist returns the playlist, or nil when no row matches.
func (r *Repository) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	var playlist models.Playlist
	err := r.db.WithContext(ctx).First(&playlist, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get playlist %s: %w", id, err)
	}
	return &playlist, nil
}

func (r *Repository) touch(tx *gorm.DB, playlistID string) error {
	return tx.Model(&models.Playlist{}).
		Where("id = ?", playlistID).
		Update("date_updated", time.Now().UTC()).Error
}
