/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/friendsincode/bragi_media/internal/models"
)

// plainEngine has no probing ability.
type plainEngine struct{ Engine }

func seedUnprobed(t *testing.T, db *gorm.DB, ids ...string) []models.MediaItem {
	t.Helper()
	items := make([]models.MediaItem, 0, len(ids))
	for _, id := range ids {
		item := models.MediaItem{
			ID:          id,
			URI:         "file:///" + id + ".mp3",
			DisplayName: id,
			MediaType:   models.MediaTypeAudio,
			DateAdded:   time.Now().UTC(),
			IsAvailable: true,
		}
		if err := db.Create(&item).Error; err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
		items = append(items, item)
	}
	return items
}

func TestBackfillDurationsStopsAtBatchSize(t *testing.T) {
	t.Parallel()
	session, engine, db := newSessionTest(t)
	items := seedUnprobed(t, db, "a", "b", "c", "d", "e", "f", "g", "h")

	probes := 0
	engine.probeFn = func(uri string) (time.Duration, error) {
		probes++
		return 3 * time.Minute, nil
	}

	probed := session.BackfillDurations(context.Background(), items)
	if probed != 6 {
		t.Fatalf("probed = %d, want batch cap 6", probed)
	}
	if probes != 6 {
		t.Fatalf("engine probes = %d, want 6", probes)
	}

	var withDuration int64
	if err := db.Model(&models.MediaItem{}).Where("duration_ms > 0").Count(&withDuration).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if withDuration != 6 {
		t.Fatalf("rows with duration = %d, want 6", withDuration)
	}
}

func TestBackfillDurationsSkipsKnownDurations(t *testing.T) {
	t.Parallel()
	session, engine, db := newSessionTest(t)
	items := seedUnprobed(t, db, "known", "missing")
	dur := int64(240000)
	items[0].DurationMs = &dur
	if err := db.Save(&items[0]).Error; err != nil {
		t.Fatalf("set duration: %v", err)
	}

	var probedURIs []string
	engine.probeFn = func(uri string) (time.Duration, error) {
		probedURIs = append(probedURIs, uri)
		return time.Minute, nil
	}

	if got := session.BackfillDurations(context.Background(), items); got != 1 {
		t.Fatalf("probed = %d, want 1", got)
	}
	if len(probedURIs) != 1 || probedURIs[0] != "file:///missing.mp3" {
		t.Fatalf("probed uris = %v, want only the missing one", probedURIs)
	}
}

func TestBackfillDurationsAdvancesPastFailures(t *testing.T) {
	t.Parallel()
	session, engine, db := newSessionTest(t)
	items := seedUnprobed(t, db, "broken", "silent", "good")

	engine.probeFn = func(uri string) (time.Duration, error) {
		switch uri {
		case "file:///broken.mp3":
			return 0, errors.New("decode failed")
		case "file:///silent.mp3":
			return 0, nil
		default:
			return 2 * time.Minute, nil
		}
	}

	if got := session.BackfillDurations(context.Background(), items); got != 1 {
		t.Fatalf("probed = %d, want 1 despite earlier failures", got)
	}

	var good models.MediaItem
	if err := db.First(&good, "id = ?", "good").Error; err != nil {
		t.Fatalf("load good: %v", err)
	}
	if good.DurationMs == nil || *good.DurationMs != 120000 {
		t.Fatalf("good duration = %v, want 120000", good.DurationMs)
	}
}

func TestBackfillDurationsFailuresConsumeBatchSlots(t *testing.T) {
	t.Parallel()
	session, engine, db := newSessionTest(t)
	items := seedUnprobed(t, db, "a", "b", "c", "d", "e", "f", "g", "h")

	attempts := 0
	engine.probeFn = func(uri string) (time.Duration, error) {
		attempts++
		return 0, errors.New("decode failed")
	}

	if got := session.BackfillDurations(context.Background(), items); got != 0 {
		t.Fatalf("probed = %d, want 0 when every probe fails", got)
	}
	if attempts != 6 {
		t.Fatalf("attempts = %d, failures must still count against the batch cap", attempts)
	}
}

func TestRunDurationBackfillWritesMissingDurations(t *testing.T) {
	t.Parallel()
	session, engine, db := newSessionTest(t)
	seedUnprobed(t, db, "a", "b", "c")

	engine.probeFn = func(uri string) (time.Duration, error) {
		return 90 * time.Second, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		session.RunDurationBackfill(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		var withDuration int64
		if err := db.Model(&models.MediaItem{}).Where("duration_ms > 0").Count(&withDuration).Error; err != nil {
			t.Fatalf("count: %v", err)
		}
		if withDuration == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("backfill wrote %d durations, want 3", withDuration)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("backfill loop did not stop after cancel")
	}
}

func TestRunDurationBackfillNoopWithoutProber(t *testing.T) {
	t.Parallel()
	session, _, db := newSessionTest(t)
	seedUnprobed(t, db, "a")

	session.engine = &plainEngine{Engine: newFakeEngine()}

	done := make(chan struct{})
	go func() {
		session.RunDurationBackfill(context.Background(), time.Millisecond)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("backfill must return immediately without a probing engine")
	}
}

func TestBackfillDurationsSupersededByNewerPass(t *testing.T) {
	t.Parallel()
	session, engine, db := newSessionTest(t)
	items := seedUnprobed(t, db, "x", "y", "z")

	probes := 0
	engine.probeFn = func(uri string) (time.Duration, error) {
		probes++
		if probes == 1 {
			// A newer backfill starts while this probe is in flight.
			go session.BackfillDurations(context.Background(), nil)
			for {
				session.mu.Lock()
				gen := session.probeGen
				session.mu.Unlock()
				if gen > 1 {
					break
				}
				time.Sleep(time.Millisecond)
			}
		}
		return time.Minute, nil
	}

	if got := session.BackfillDurations(context.Background(), items); got != 0 {
		t.Fatalf("superseded pass wrote %d durations, want 0", got)
	}
	if probes != 1 {
		t.Fatalf("probes = %d, superseded pass must stop after the in-flight probe", probes)
	}
}

func TestBackfillDurationsRequiresProbingEngine(t *testing.T) {
	t.Parallel()
	session, _, db := newSessionTest(t)
	items := seedUnprobed(t, db, "a")

	session.engine = &plainEngine{Engine: newFakeEngine()}
	if got := session.BackfillDurations(context.Background(), items); got != 0 {
		t.Fatalf("probed = %d, want 0 without a probing engine", got)
	}
}
