/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"time"

	"github.com/friendsincode/bragi_media/internal/events"
	"github.com/friendsincode/bragi_media/internal/models"
	"github.com/friendsincode/bragi_media/internal/telemetry"
)

// probeBatchSize bounds how many missing durations one backfill pass
// measures.
const probeBatchSize = 6

// RunDurationBackfill measures durations for catalog items lacking one,
// a bounded batch per pass, starting immediately and then once per
// interval until the context ends. Engines that cannot probe make this
// a no-op.
func (s *Session) RunDurationBackfill(ctx context.Context, interval time.Duration) {
	if _, ok := s.engine.(Prober); !ok {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if items := s.catalog.ListMissingDurations(ctx, probeBatchSize); len(items) > 0 {
			s.BackfillDurations(ctx, items)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// BackfillDurations probes up to six items lacking a duration and writes
// the measured values back through the catalog. Failed probes consume
// batch slots like successful ones, so one pass never touches more than
// six files regardless of outcomes. A newer backfill call supersedes an
// in-flight one; superseded results are discarded. Returns the number of
// durations written.
func (s *Session) BackfillDurations(ctx context.Context, items []models.MediaItem) int {
	prober, ok := s.engine.(Prober)
	if !ok {
		return 0
	}

	s.mu.Lock()
	s.probeGen++
	gen := s.probeGen
	s.mu.Unlock()

	attempts := 0
	probed := 0
	for _, item := range items {
		if attempts >= probeBatchSize {
			break
		}
		if item.DurationMs != nil && *item.DurationMs > 0 {
			continue
		}
		if ctx.Err() != nil {
			return probed
		}

		attempts++
		duration, err := prober.Probe(ctx, item.URI)

		s.mu.Lock()
		superseded := gen != s.probeGen
		s.mu.Unlock()
		if superseded {
			return probed
		}

		if err != nil {
			telemetry.DurationProbesTotal.WithLabelValues("error").Inc()
			s.logger.Debug().Err(err).Str("uri", item.URI).Msg("duration probe failed")
			continue
		}
		if duration <= 0 {
			telemetry.DurationProbesTotal.WithLabelValues("empty").Inc()
			continue
		}
		if err := s.catalog.SaveDuration(ctx, item.ID, duration.Milliseconds()); err != nil {
			s.logger.Error().Err(err).Str("media", item.ID).Msg("save probed duration failed")
			continue
		}
		probed++
		telemetry.DurationProbesTotal.WithLabelValues("ok").Inc()
		s.bus.Publish(events.EventDurationUpdated, events.Payload{
			"media_id":    item.ID,
			"duration_ms": duration.Milliseconds(),
		})
	}
	return probed
}
