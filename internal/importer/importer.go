/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package importer

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/bragi_media/internal/catalog"
	"github.com/friendsincode/bragi_media/internal/events"
	"github.com/friendsincode/bragi_media/internal/models"
	"github.com/friendsincode/bragi_media/internal/settings"
	"github.com/friendsincode/bragi_media/internal/telemetry"
)

// ErrCancelled aborts an import batch without writing anything.
var ErrCancelled = errors.New("import cancelled")

// FileInfo describes a discovered file, as reported by a picker or scanner.
type FileInfo struct {
	URI         string `json:"uri"`
	DisplayName string `json:"display_name"`
	MimeType    string `json:"mime_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// Decision resolves a duplicate-import conflict.
type Decision string

const (
	DecisionSkip    Decision = "skip"
	DecisionReplace Decision = "replace"
	DecisionCancel  Decision = "cancel"
)

// DecisionFunc obtains an explicit skip/replace/cancel decision from the
// caller when an import batch collides with existing URIs. It is an explicit
// suspension point: a cancelled context must resolve as cancel.
type DecisionFunc func(ctx context.Context, duplicates []FileInfo) (Decision, error)

// Report counts the outcome of one import batch. Skipped covers both
// duplicates the caller chose to skip and unsupported files.
type Report struct {
	Found   int `json:"found"`
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

var audioExtensions = map[string]bool{
	".mp3": true, ".aac": true, ".wav": true, ".flac": true, ".m4a": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".mov": true, ".avi": true, ".webm": true, ".m4v": true,
}

func fileExtension(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "." {
		return ""
	}
	return ext
}

// IsSupportedMedia reports whether the file looks like playable media:
// mime type prefix first, extension allow-list as fallback.
func IsSupportedMedia(file FileInfo) bool {
	if strings.HasPrefix(file.MimeType, "audio/") || strings.HasPrefix(file.MimeType, "video/") {
		return true
	}
	ext := fileExtension(file.DisplayName)
	return audioExtensions[ext] || videoExtensions[ext]
}

// InferMediaType classifies a file by mime type first, extension second,
// then the caller-supplied fallback.
func InferMediaType(file FileInfo, fallback models.MediaType) models.MediaType {
	if strings.HasPrefix(file.MimeType, "video/") {
		return models.MediaTypeVideo
	}
	if strings.HasPrefix(file.MimeType, "audio/") {
		return models.MediaTypeAudio
	}
	ext := fileExtension(file.DisplayName)
	if videoExtensions[ext] {
		return models.MediaTypeVideo
	}
	if audioExtensions[ext] {
		return models.MediaTypeAudio
	}
	return fallback
}

// Workflow classifies discovered files, detects URI collisions against the
// catalog, and resolves them through an explicit caller decision before
// writing anything.
type Workflow struct {
	media    *catalog.Repository
	sources  *catalog.SourceRepository
	settings *settings.Repository
	bus      *events.Bus
	logger   zerolog.Logger
}

// NewWorkflow creates an import workflow.
func NewWorkflow(media *catalog.Repository, sources *catalog.SourceRepository, settingsRepo *settings.Repository, bus *events.Bus, logger zerolog.Logger) *Workflow {
	return &Workflow{
		media:    media,
		sources:  sources,
		settings: settingsRepo,
		bus:      bus,
		logger:   logger.With().Str("component", "importer").Logger(),
	}
}

// ImportFiles runs the import pipeline for a picked batch: filter to
// supported media, partition against cataloged URIs, resolve duplicates via
// decide, then upsert. Cancel aborts the whole batch; skip imports only new
// files; replace re-upserts everything, merging metadata for existing URIs.
func (w *Workflow) ImportFiles(ctx context.Context, files []FileInfo, fallback models.MediaType, decide DecisionFunc) (Report, error) {
	return w.runImport(ctx, files, fallback, "", decide)
}

// ImportFolder scans a folder tree, registers it as a source, and imports
// the supported files it contains, tagging each new item with the source id.
// Entries under a folder whose name contains an ignored pattern are pruned
// by the scanner before they reach the dedup step.
func (w *Workflow) ImportFolder(ctx context.Context, folderURI, displayName string, scanner Scanner, decide DecisionFunc) (Report, error) {
	source := models.MediaSource{
		ID:          uuid.NewString(),
		SourceType:  models.SourceTypeFolder,
		URI:         folderURI,
		DisplayName: displayName,
		DateAdded:   time.Now().UTC(),
	}
	if err := w.sources.UpsertSource(ctx, source); err != nil {
		return Report{}, err
	}

	ignored := w.settings.ListIgnoredFolders(ctx)
	files, err := scanner.ScanTree(ctx, folderURI, ignored)
	if err != nil {
		return Report{}, fmt.Errorf("scan folder %s: %w", folderURI, err)
	}

	return w.runImport(ctx, files, models.MediaTypeAudio, source.ID, decide)
}

func (w *Workflow) runImport(ctx context.Context, files []FileInfo, fallback models.MediaType, sourceID string, decide DecisionFunc) (Report, error) {
	report := Report{Found: len(files)}
	if len(files) == 0 {
		return report, nil
	}

	var supported []FileInfo
	for _, file := range files {
		if IsSupportedMedia(file) {
			supported = append(supported, file)
		}
	}
	unsupported := len(files) - len(supported)

	uris, err := w.media.ListAllURIs(ctx)
	if err != nil {
		return report, err
	}
	existing := make(map[string]bool, len(uris))
	for _, uri := range uris {
		existing[uri] = true
	}

	var duplicates, fresh []FileInfo
	for _, file := range supported {
		if existing[file.URI] {
			duplicates = append(duplicates, file)
		} else {
			fresh = append(fresh, file)
		}
	}

	toImport := supported
	skippedDuplicates := 0
	if len(duplicates) > 0 {
		decision, err := w.resolve(ctx, duplicates, decide)
		if err != nil {
			return report, err
		}
		switch decision {
		case DecisionCancel:
			return report, ErrCancelled
		case DecisionSkip:
			toImport = fresh
			skippedDuplicates = len(duplicates)
		case DecisionReplace:
			// Re-upsert the full batch; upsert semantics merge metadata
			// for existing URIs and preserve play history.
		default:
			return report, fmt.Errorf("unknown import decision %q", decision)
		}
	}

	items := w.buildItems(toImport, fallback, sourceID)
	if err := w.media.UpsertMedia(ctx, items); err != nil {
		return report, err
	}

	report.Added = len(items)
	report.Skipped = skippedDuplicates + unsupported
	telemetry.ImportedItemsTotal.Add(float64(report.Added))
	w.logger.Info().
		Int("found", report.Found).
		Int("added", report.Added).
		Int("skipped", report.Skipped).
		Msg("import finished")
	w.bus.Publish(events.EventMediaImported, events.Payload{
		"found":   report.Found,
		"added":   report.Added,
		"skipped": report.Skipped,
	})
	return report, nil
}

// resolve obtains the duplicate decision. A missing decider or a torn-down
// context counts as cancel: the batch is never silently resolved.
func (w *Workflow) resolve(ctx context.Context, duplicates []FileInfo, decide DecisionFunc) (Decision, error) {
	if decide == nil {
		return DecisionCancel, nil
	}
	if ctx.Err() != nil {
		return DecisionCancel, nil
	}
	decision, err := decide(ctx, duplicates)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return DecisionCancel, nil
		}
		return DecisionCancel, err
	}
	return decision, nil
}

func (w *Workflow) buildItems(files []FileInfo, fallback models.MediaType, sourceID string) []models.MediaItem {
	now := time.Now().UTC()
	items := make([]models.MediaItem, 0, len(files))
	for _, file := range files {
		name := file.DisplayName
		if name == "" {
			name = path.Base(file.URI)
		}
		item := models.MediaItem{
			ID:          uuid.NewString(),
			URI:         file.URI,
			DisplayName: name,
			MimeType:    file.MimeType,
			MediaType:   InferMediaType(file, fallback),
			DateAdded:   now,
			PlayCount:   0,
			IsAvailable: true,
		}
		if file.SizeBytes > 0 {
			size := file.SizeBytes
			item.SizeBytes = &size
		}
		if sourceID != "" {
			id := sourceID
			item.SourceID = &id
		}
		items = append(items, item)
	}
	return items
}
