/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// MediaType discriminates the two supported kinds of media.
type MediaType string

const (
	MediaTypeAudio MediaType = "audio"
	MediaTypeVideo MediaType = "video"
)

// IsValid reports whether the value is one of the known media types.
func (t MediaType) IsValid() bool {
	return t == MediaTypeAudio || t == MediaTypeVideo
}

// SourceType discriminates import origins.
type SourceType string

const (
	SourceTypeFile   SourceType = "file"
	SourceTypeFolder SourceType = "folder"
)

// MediaItem is a cataloged audio or video file. The URI is the unique
// storage location; re-importing the same URI updates the row in place.
type MediaItem struct {
	ID              string `gorm:"primaryKey"`
	URI             string `gorm:"uniqueIndex;not null"`
	DisplayName     string `gorm:"not null"`
	DisplayNameNorm string `gorm:"index"`
	MimeType        string
	MediaType       MediaType `gorm:"type:varchar(8);index;not null"`
	DurationMs      *int64
	SizeBytes       *int64
	DateAdded       time.Time `gorm:"index"`
	LastPlayed      *time.Time
	PlayCount       int64 `gorm:"not null;default:0"`
	IsAvailable     bool  `gorm:"not null;default:true"`
	SourceID        *string
}

// Duration returns the known duration, or zero when it has not been
// measured yet.
func (m *MediaItem) Duration() time.Duration {
	if m.DurationMs == nil {
		return 0
	}
	return time.Duration(*m.DurationMs) * time.Millisecond
}

// MediaSource records where a batch of media items came from, so a folder
// can be re-scanned later. Sources are never deleted automatically.
type MediaSource struct {
	ID          string     `gorm:"primaryKey"`
	SourceType  SourceType `gorm:"type:varchar(8);not null"`
	URI         string     `gorm:"uniqueIndex;not null"`
	DisplayName string
	DateAdded   time.Time
}

// Playlist groups media items of a single media type.
type Playlist struct {
	ID          string    `gorm:"primaryKey"`
	Name        string    `gorm:"not null"`
	MediaType   MediaType `gorm:"type:varchar(8);index;not null"`
	DateCreated time.Time
	DateUpdated time.Time
}

// PlaylistItem is an ordered playlist membership row. Positions are
// assigned densely on reorder; gaps left by removals are tolerated because
// listing always sorts by position.
type PlaylistItem struct {
	PlaylistID string `gorm:"primaryKey"`
	MediaID    string `gorm:"primaryKey"`
	Position   int    `gorm:"not null"`
}

// IgnoredFolder is a substring pattern matched case-insensitively against
// folder names during folder scans.
type IgnoredFolder struct {
	Pattern string `gorm:"primaryKey"`
}

// Setting is an opaque key/value pair; typed accessors live in the
// settings package.
type Setting struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value string `gorm:"not null"`
}

// TableName keeps the settings table name distinct from reserved words.
func (Setting) TableName() string {
	return "app_settings"
}

// All lists every model the store migrates, leaves first.
func All() []any {
	return []any{
		&MediaItem{},
		&MediaSource{},
		&Playlist{},
		&PlaylistItem{},
		&IgnoredFolder{},
		&Setting{},
	}
}
