/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/bragi_media/internal/catalog"
	"github.com/friendsincode/bragi_media/internal/events"
	"github.com/friendsincode/bragi_media/internal/models"
	"github.com/friendsincode/bragi_media/internal/settings"
)

type testEnv struct {
	db       *gorm.DB
	media    *catalog.Repository
	sources  *catalog.SourceRepository
	settings *settings.Repository
	workflow *Workflow
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	logger := zerolog.Nop()
	env := &testEnv{
		db:       db,
		media:    catalog.NewRepository(db, logger),
		sources:  catalog.NewSourceRepository(db, logger),
		settings: settings.NewRepository(db, logger),
	}
	env.workflow = NewWorkflow(env.media, env.sources, env.settings, events.NewBus(), logger)
	return env
}

func audioFile(name string) FileInfo {
	return FileInfo{
		URI:         "file:///music/" + name,
		DisplayName: name,
		MimeType:    "audio/mpeg",
		SizeBytes:   1024,
	}
}

func decideWith(d Decision) DecisionFunc {
	return func(ctx context.Context, duplicates []FileInfo) (Decision, error) {
		return d, nil
	}
}

func (e *testEnv) mediaCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	if err := e.db.Model(&models.MediaItem{}).Count(&count).Error; err != nil {
		t.Fatalf("count media: %v", err)
	}
	return count
}

func TestImportFilesFreshBatch(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	report, err := env.workflow.ImportFiles(ctx, []FileInfo{
		audioFile("one.mp3"),
		audioFile("two.mp3"),
	}, models.MediaTypeAudio, nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if report.Found != 2 || report.Added != 2 || report.Skipped != 0 {
		t.Fatalf("report = %+v, want found=2 added=2 skipped=0", report)
	}
	if got := env.mediaCount(t); got != 2 {
		t.Fatalf("media rows = %d, want 2", got)
	}
}

func TestImportFilesFiltersUnsupported(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	report, err := env.workflow.ImportFiles(ctx, []FileInfo{
		audioFile("one.mp3"),
		{URI: "file:///docs/readme.txt", DisplayName: "readme.txt", MimeType: "text/plain"},
		{URI: "file:///docs/notes.pdf", DisplayName: "notes.pdf"},
	}, models.MediaTypeAudio, nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if report.Found != 3 || report.Added != 1 || report.Skipped != 2 {
		t.Fatalf("report = %+v, want found=3 added=1 skipped=2", report)
	}
}

func TestImportFilesSkipKeepsExistingRow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	dup := audioFile("keeper.mp3")
	if _, err := env.workflow.ImportFiles(ctx, []FileInfo{dup}, models.MediaTypeAudio, nil); err != nil {
		t.Fatalf("seed import: %v", err)
	}
	var before models.MediaItem
	if err := env.db.First(&before, "uri = ?", dup.URI).Error; err != nil {
		t.Fatalf("load seeded row: %v", err)
	}

	report, err := env.workflow.ImportFiles(ctx, []FileInfo{
		dup,
		audioFile("fresh.mp3"),
	}, models.MediaTypeAudio, decideWith(DecisionSkip))
	if err != nil {
		t.Fatalf("import with skip: %v", err)
	}
	if report.Added != 1 || report.Skipped != 1 {
		t.Fatalf("report = %+v, want added=1 skipped=1", report)
	}

	var after models.MediaItem
	if err := env.db.First(&after, "uri = ?", dup.URI).Error; err != nil {
		t.Fatalf("reload duplicate: %v", err)
	}
	if after.ID != before.ID {
		t.Fatalf("skip rewrote the existing row: id %s -> %s", before.ID, after.ID)
	}
	if got := env.mediaCount(t); got != 2 {
		t.Fatalf("media rows = %d, want 2", got)
	}
}

func TestImportFilesReplacePreservesPlayHistory(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	dup := audioFile("played.mp3")
	if _, err := env.workflow.ImportFiles(ctx, []FileInfo{dup}, models.MediaTypeAudio, nil); err != nil {
		t.Fatalf("seed import: %v", err)
	}
	var seeded models.MediaItem
	if err := env.db.First(&seeded, "uri = ?", dup.URI).Error; err != nil {
		t.Fatalf("load seeded row: %v", err)
	}
	if err := env.media.UpdatePlaybackStats(ctx, seeded.ID, time.Now().UTC()); err != nil {
		t.Fatalf("bump play count: %v", err)
	}

	renamed := dup
	renamed.DisplayName = "played (remaster).mp3"
	report, err := env.workflow.ImportFiles(ctx, []FileInfo{renamed}, models.MediaTypeAudio, decideWith(DecisionReplace))
	if err != nil {
		t.Fatalf("import with replace: %v", err)
	}
	if report.Added != 1 || report.Skipped != 0 {
		t.Fatalf("report = %+v, want added=1 skipped=0", report)
	}

	var after models.MediaItem
	if err := env.db.First(&after, "uri = ?", dup.URI).Error; err != nil {
		t.Fatalf("reload row: %v", err)
	}
	if after.ID != seeded.ID {
		t.Fatalf("replace changed identity: id %s -> %s", seeded.ID, after.ID)
	}
	if after.DisplayName != "played (remaster).mp3" {
		t.Fatalf("display name = %q, want updated", after.DisplayName)
	}
	if after.PlayCount != 1 {
		t.Fatalf("play count = %d, want 1 preserved", after.PlayCount)
	}
}

func TestImportFilesCancelWritesNothing(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	dup := audioFile("dup.mp3")
	if _, err := env.workflow.ImportFiles(ctx, []FileInfo{dup}, models.MediaTypeAudio, nil); err != nil {
		t.Fatalf("seed import: %v", err)
	}

	_, err := env.workflow.ImportFiles(ctx, []FileInfo{
		dup,
		audioFile("would-be-new.mp3"),
	}, models.MediaTypeAudio, decideWith(DecisionCancel))
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if got := env.mediaCount(t); got != 1 {
		t.Fatalf("media rows = %d, cancel must not write", got)
	}
}

func TestImportFilesNilDeciderCancelsOnDuplicates(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	dup := audioFile("dup.mp3")
	if _, err := env.workflow.ImportFiles(ctx, []FileInfo{dup}, models.MediaTypeAudio, nil); err != nil {
		t.Fatalf("seed import: %v", err)
	}
	_, err := env.workflow.ImportFiles(ctx, []FileInfo{dup}, models.MediaTypeAudio, nil)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled without a decider", err)
	}
}

func TestImportFilesCancelledContextResolvesAsCancel(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	dup := audioFile("dup.mp3")
	if _, err := env.workflow.ImportFiles(context.Background(), []FileInfo{dup}, models.MediaTypeAudio, nil); err != nil {
		t.Fatalf("seed import: %v", err)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	_, err := env.workflow.ImportFiles(cancelled, []FileInfo{dup}, models.MediaTypeAudio,
		func(ctx context.Context, duplicates []FileInfo) (Decision, error) {
			called = true
			return DecisionReplace, nil
		})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if called {
		t.Fatal("decider must not run after context teardown")
	}
}

func TestInferMediaType(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		file     FileInfo
		fallback models.MediaType
		want     models.MediaType
	}{
		{"video mime wins", FileInfo{DisplayName: "x.mp3", MimeType: "video/mp4"}, models.MediaTypeAudio, models.MediaTypeVideo},
		{"audio mime wins", FileInfo{DisplayName: "x.mkv", MimeType: "audio/flac"}, models.MediaTypeVideo, models.MediaTypeAudio},
		{"video extension", FileInfo{DisplayName: "clip.webm"}, models.MediaTypeAudio, models.MediaTypeVideo},
		{"audio extension", FileInfo{DisplayName: "song.FLAC"}, models.MediaTypeVideo, models.MediaTypeAudio},
		{"fallback", FileInfo{DisplayName: "mystery.bin"}, models.MediaTypeVideo, models.MediaTypeVideo},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := InferMediaType(tc.file, tc.fallback); got != tc.want {
				t.Fatalf("InferMediaType = %s, want %s", got, tc.want)
			}
		})
	}
}

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("data"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestImportFolderPrunesIgnoredSubtrees(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	root := t.TempDir()
	writeFile(t, root, "top.mp3")
	sub := filepath.Join(root, "albums")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, sub, "nested.flac")
	ignoredDir := filepath.Join(root, "node_modules")
	if err := os.Mkdir(ignoredDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, ignoredDir, "hidden.mp3")
	writeFile(t, root, "cover.txt")

	if err := env.settings.AddIgnoredFolder(ctx, "node_modules"); err != nil {
		t.Fatalf("add ignore: %v", err)
	}

	report, err := env.workflow.ImportFolder(ctx, root, "Test Library", NewFSScanner(zerolog.Nop()), nil)
	if err != nil {
		t.Fatalf("import folder: %v", err)
	}
	if report.Added != 2 {
		t.Fatalf("added = %d, want 2 (ignored subtree pruned)", report.Added)
	}

	var items []models.MediaItem
	if err := env.db.Find(&items).Error; err != nil {
		t.Fatalf("load items: %v", err)
	}
	sources := env.sources.ListSources(ctx, models.SourceTypeFolder)
	if len(sources) != 1 {
		t.Fatalf("sources = %d, want 1", len(sources))
	}
	for _, item := range items {
		if item.SourceID == nil || *item.SourceID != sources[0].ID {
			t.Fatalf("item %s not tagged with source id", item.URI)
		}
		if filepath.Base(filepath.Dir(item.URI)) == "node_modules" {
			t.Fatalf("ignored file imported: %s", item.URI)
		}
	}
}
