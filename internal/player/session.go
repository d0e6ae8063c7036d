/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/bragi_media/internal/catalog"
	"github.com/friendsincode/bragi_media/internal/events"
	"github.com/friendsincode/bragi_media/internal/models"
	"github.com/friendsincode/bragi_media/internal/telemetry"
)

// TransportState is the playback transport axis of the session state
// machine.
type TransportState string

const (
	StateIdle    TransportState = "idle"
	StateLoaded  TransportState = "loaded"
	StatePlaying TransportState = "playing"
	StatePaused  TransportState = "paused"
)

// RepeatMode is the repeat axis; shuffle is an independent flag except that
// repeat-one and shuffle are mutually exclusive.
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatOne RepeatMode = "one"
	RepeatAll RepeatMode = "all"
)

// AutoPlayQueueLabel marks queues started by auto-play, distinct from any
// user-initiated queue label.
const AutoPlayQueueLabel = "Auto play"

// Status is a point-in-time snapshot of the session.
type Status struct {
	State      TransportState     `json:"state"`
	Repeat     RepeatMode         `json:"repeat"`
	Shuffle    bool               `json:"shuffle"`
	Current    *models.MediaItem  `json:"current,omitempty"`
	Queue      []models.MediaItem `json:"queue"`
	QueueLabel string             `json:"queue_label"`
	PositionMs int64              `json:"position_ms"`
	DurationMs int64              `json:"duration_ms"`
	Volume     float64            `json:"volume"`
	Speed      float64            `json:"speed"`
}

// Session owns the active playback queue and drives the external engine.
// All of its state is transient: it resets on restart except for the
// playback stats already flushed to the catalog.
type Session struct {
	engine  Engine
	catalog *catalog.Repository
	bus     *events.Bus
	logger  zerolog.Logger

	randIndex func(n int) int

	mu         sync.Mutex
	transport  TransportState
	repeatOne  bool
	repeatAll  bool
	shuffle    bool
	queue      []models.MediaItem
	queueLabel string
	current    *models.MediaItem
	position   time.Duration
	duration   time.Duration
	volume     float64
	speed      float64
	counted    map[string]struct{}
	probeGen   uint64
}

// NewSession creates the playback session orchestrator. It subscribes to the
// engine's event stream once; call Run to start consuming it.
func NewSession(engine Engine, catalogRepo *catalog.Repository, bus *events.Bus, logger zerolog.Logger) *Session {
	return &Session{
		engine:    engine,
		catalog:   catalogRepo,
		bus:       bus,
		logger:    logger.With().Str("component", "player").Logger(),
		randIndex: rand.Intn,
		transport: StateIdle,
		volume:    1,
		speed:     1,
		counted:   make(map[string]struct{}),
	}
}

// Run consumes engine events until context cancellation, translating each
// into a state transition. The queue and current item are mutated only
// here and by user commands, never by other components.
func (s *Session) Run(ctx context.Context) {
	s.logger.Info().Msg("playback session started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("playback session stopped")
			return
		case ev, ok := <-s.engine.Events():
			if !ok {
				s.logger.Info().Msg("engine event stream closed")
				return
			}
			s.handleEvent(ctx, ev)
		}
	}
}

func (s *Session) handleEvent(ctx context.Context, ev Event) {
	switch ev.Type {
	case EventState:
		s.onStateEvent(ev.Playing)
	case EventTrackChanged:
		s.onTrackChanged(ctx, ev)
	case EventProgress:
		s.onProgress(ctx, ev)
	case EventError:
		s.onEngineError(ctx, ev)
	}
}

func (s *Session) onStateEvent(playing bool) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	if playing {
		s.transport = StatePlaying
	} else {
		s.transport = StatePaused
	}
	state := s.transport
	s.mu.Unlock()

	s.bus.Publish(events.EventPlayerState, events.Payload{"state": string(state)})
}

func (s *Session) onTrackChanged(ctx context.Context, ev Event) {
	s.mu.Lock()
	item := s.findInQueue(ev.TrackID, ev.TrackURI)
	if item == nil {
		s.mu.Unlock()
		return
	}
	s.current = item
	s.position = 0
	_, alreadyCounted := s.counted[item.ID]
	if !alreadyCounted {
		s.counted[item.ID] = struct{}{}
	}
	s.mu.Unlock()

	// Count each item's first activation exactly once per session.
	if !alreadyCounted {
		telemetry.PlaybackStartsTotal.Inc()
		if err := s.catalog.UpdatePlaybackStats(ctx, item.ID, time.Now().UTC()); err != nil {
			s.logger.Error().Err(err).Str("media", item.ID).Msg("update playback stats failed")
		}
	}
	s.bus.Publish(events.EventNowPlaying, events.Payload{
		"media_id": item.ID,
		"uri":      item.URI,
		"title":    item.DisplayName,
	})
}

func (s *Session) onProgress(ctx context.Context, ev Event) {
	s.mu.Lock()
	s.position = ev.Position
	s.duration = ev.Duration
	var current *models.MediaItem
	if s.current != nil && ev.Duration > 0 {
		current = s.current
	}
	s.mu.Unlock()

	if current != nil {
		if err := s.catalog.SaveDuration(ctx, current.ID, ev.Duration.Milliseconds()); err != nil {
			s.logger.Error().Err(err).Str("media", current.ID).Msg("save duration failed")
		}
	}
	s.bus.Publish(events.EventPlayerProgress, events.Payload{
		"position_ms": ev.Position.Milliseconds(),
		"duration_ms": ev.Duration.Milliseconds(),
	})
}

// onEngineError marks the current item unavailable and surfaces a
// recoverable error. The item is neither removed nor skipped past.
func (s *Session) onEngineError(ctx context.Context, ev Event) {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()
	if current == nil {
		return
	}

	telemetry.PlaybackErrorsTotal.Inc()
	s.logger.Warn().Err(ev.Err).Str("media", current.ID).Msg("fatal playback error, marking unavailable")
	if err := s.catalog.MarkUnavailable(ctx, current.ID); err != nil {
		s.logger.Error().Err(err).Str("media", current.ID).Msg("mark unavailable failed")
	}
	s.bus.Publish(events.EventMediaUnavailable, events.Payload{"media_id": current.ID})
	s.bus.Publish(events.EventPlayerError, events.Payload{
		"media_id":    current.ID,
		"recoverable": true,
	})
}

// findInQueue matches by id or uri, mirroring the queue-equivalence rule.
func (s *Session) findInQueue(id, uri string) *models.MediaItem {
	for i := range s.queue {
		if (id != "" && s.queue[i].ID == id) || (uri != "" && s.queue[i].URI == uri) {
			return &s.queue[i]
		}
	}
	return nil
}

// sameQueue compares the engine's queue with the target by id-or-uri, in
// order.
func sameQueue(engineQueue []Track, target []models.MediaItem) bool {
	if len(engineQueue) != len(target) {
		return false
	}
	for i := range target {
		sameID := engineQueue[i].ID != "" && engineQueue[i].ID == target[i].ID
		sameURI := engineQueue[i].URI != "" && engineQueue[i].URI == target[i].URI
		if !sameID && !sameURI {
			return false
		}
	}
	return true
}

func toTracks(items []models.MediaItem) []Track {
	tracks := make([]Track, len(items))
	for i, item := range items {
		tracks[i] = Track{ID: item.ID, URI: item.URI, Title: item.DisplayName}
	}
	return tracks
}

// SetQueue replaces what is playing now. If the engine already holds an
// equivalent queue, playback continues uninterrupted and only the session's
// bookkeeping changes; otherwise the queue is handed to the engine and
// playback starts from its first item.
func (s *Session) SetQueue(ctx context.Context, items []models.MediaItem, label string) error {
	if len(items) == 0 {
		return nil
	}

	engineQueue, err := s.engine.Queue(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("engine queue read failed, replacing queue")
		engineQueue = nil
	}

	s.mu.Lock()
	s.queue = append([]models.MediaItem(nil), items...)
	s.queueLabel = label
	keepPlaying := sameQueue(engineQueue, items) && s.current != nil
	if !keepPlaying {
		s.current = &s.queue[0]
		s.position = 0
		s.duration = 0
	}
	s.mu.Unlock()

	if keepPlaying {
		return nil
	}

	if err := s.engine.ReplaceQueue(ctx, toTracks(items)); err != nil {
		s.reportControlError(ctx, "replace queue", err)
		return nil
	}
	if err := s.engine.Play(ctx); err != nil {
		s.reportControlError(ctx, "play", err)
		return nil
	}

	s.mu.Lock()
	s.transport = StatePlaying
	first := *s.current
	_, alreadyCounted := s.counted[first.ID]
	if !alreadyCounted {
		s.counted[first.ID] = struct{}{}
	}
	s.mu.Unlock()

	if !alreadyCounted {
		if err := s.catalog.UpdatePlaybackStats(ctx, first.ID, time.Now().UTC()); err != nil {
			s.logger.Error().Err(err).Str("media", first.ID).Msg("update playback stats failed")
		}
	}
	s.bus.Publish(events.EventNowPlaying, events.Payload{
		"media_id": first.ID,
		"uri":      first.URI,
		"title":    first.DisplayName,
	})
	return nil
}

// Play resumes playback. Transport failures are surfaced on the bus, not
// returned.
func (s *Session) Play(ctx context.Context) {
	s.mu.Lock()
	// Restart from zero when the track already ran to its end.
	restart := s.duration > 0 && s.position >= s.duration-time.Second
	s.mu.Unlock()

	if restart {
		if err := s.engine.SeekTo(ctx, 0); err != nil {
			s.reportControlError(ctx, "seek", err)
			return
		}
	}
	if err := s.engine.Play(ctx); err != nil {
		s.reportControlError(ctx, "play", err)
		return
	}
	s.setTransport(StatePlaying)
}

// Pause pauses playback.
func (s *Session) Pause(ctx context.Context) {
	if err := s.engine.Pause(ctx); err != nil {
		s.reportControlError(ctx, "pause", err)
		return
	}
	s.setTransport(StatePaused)
}

// SeekTo seeks within the current item.
func (s *Session) SeekTo(ctx context.Context, position time.Duration) {
	if err := s.engine.SeekTo(ctx, position); err != nil {
		s.reportControlError(ctx, "seek", err)
		return
	}
	s.mu.Lock()
	s.position = position
	s.mu.Unlock()
}

// SetSpeed adjusts playback speed.
func (s *Session) SetSpeed(ctx context.Context, speed float64) {
	if err := s.engine.SetSpeed(ctx, speed); err != nil {
		s.reportControlError(ctx, "set speed", err)
		return
	}
	s.mu.Lock()
	s.speed = speed
	s.mu.Unlock()
}

// SetVolume adjusts playback volume.
func (s *Session) SetVolume(ctx context.Context, volume float64) {
	if err := s.engine.SetVolume(ctx, volume); err != nil {
		s.reportControlError(ctx, "set volume", err)
		return
	}
	s.mu.Lock()
	s.volume = volume
	s.mu.Unlock()
}

// CycleRepeat advances off → one → all → off. Entering one disables
// shuffle.
func (s *Session) CycleRepeat() RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case !s.repeatOne && !s.repeatAll:
		s.repeatOne = true
		s.shuffle = false
	case s.repeatOne:
		s.repeatOne = false
		s.repeatAll = true
	default:
		s.repeatAll = false
	}
	return s.repeatModeLocked()
}

// ToggleShuffle flips the shuffle flag. Enabling shuffle while repeat-one
// is active downgrades repeat to off, or to all when repeat-all was
// independently set.
func (s *Session) ToggleShuffle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuffle = !s.shuffle
	if s.shuffle && s.repeatOne {
		s.repeatOne = false
	}
	return s.shuffle
}

// Repeat returns the current repeat mode.
func (s *Session) Repeat() RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repeatModeLocked()
}

// Shuffle reports whether shuffle is active.
func (s *Session) Shuffle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shuffle
}

func (s *Session) repeatModeLocked() RepeatMode {
	if s.repeatOne {
		return RepeatOne
	}
	if s.repeatAll {
		return RepeatAll
	}
	return RepeatOff
}

func (s *Session) currentIndexLocked() int {
	if s.current == nil {
		return -1
	}
	for i := range s.queue {
		if s.queue[i].ID == s.current.ID {
			return i
		}
	}
	return -1
}

// CanNext reports whether a next step exists: always under shuffle or
// repeat-all, otherwise only when not at the tail.
func (s *Session) CanNext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.currentIndexLocked()
	return s.shuffle || s.repeatAll || (idx >= 0 && idx < len(s.queue)-1)
}

// CanPrevious reports whether a previous step exists.
func (s *Session) CanPrevious() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shuffle || s.repeatAll || s.currentIndexLocked() > 0
}

// Next advances the queue. Repeat-one restarts the current item; shuffle
// picks a uniformly random other index; repeat-all wraps at the tail.
func (s *Session) Next(ctx context.Context) {
	if !s.CanNext() {
		return
	}
	s.step(ctx, 1)
}

// Previous retreats the queue, with the same mode semantics as Next.
func (s *Session) Previous(ctx context.Context) {
	if !s.CanPrevious() {
		return
	}
	s.step(ctx, -1)
}

func (s *Session) step(ctx context.Context, direction int) {
	s.mu.Lock()
	if s.repeatOne {
		s.mu.Unlock()
		if err := s.engine.SeekTo(ctx, 0); err != nil {
			s.reportControlError(ctx, "seek", err)
			return
		}
		if err := s.engine.Play(ctx); err != nil {
			s.reportControlError(ctx, "play", err)
		}
		return
	}

	length := len(s.queue)
	if length == 0 {
		s.mu.Unlock()
		return
	}
	idx := s.currentIndexLocked()

	var target int
	switch {
	case s.shuffle:
		if length == 1 {
			target = 0
		} else {
			target = s.randIndex(length)
			for target == idx {
				target = s.randIndex(length)
			}
		}
	case direction > 0:
		if idx >= length-1 {
			target = 0 // repeat-all wrap, guaranteed by CanNext
		} else {
			target = idx + 1
		}
	default:
		if idx <= 0 {
			target = length - 1
		} else {
			target = idx - 1
		}
	}
	next := s.queue[target]
	s.mu.Unlock()

	if err := s.engine.SkipTo(ctx, target); err != nil {
		s.reportControlError(ctx, "skip", err)
		return
	}
	if err := s.engine.Play(ctx); err != nil {
		s.reportControlError(ctx, "play", err)
		return
	}

	s.mu.Lock()
	s.current = &s.queue[target]
	s.position = 0
	s.transport = StatePlaying
	_, alreadyCounted := s.counted[next.ID]
	if !alreadyCounted {
		s.counted[next.ID] = struct{}{}
	}
	s.mu.Unlock()

	if !alreadyCounted {
		if err := s.catalog.UpdatePlaybackStats(ctx, next.ID, time.Now().UTC()); err != nil {
			s.logger.Error().Err(err).Str("media", next.ID).Msg("update playback stats failed")
		}
	}
	s.bus.Publish(events.EventNowPlaying, events.Payload{
		"media_id": next.ID,
		"uri":      next.URI,
		"title":    next.DisplayName,
	})
}

// autoPlayQualifies applies the duration range rule: a known duration must
// fall inside [minMs, maxMs]; an unknown duration is acceptable only when
// no lower bound is required.
func autoPlayQualifies(item models.MediaItem, minMs, maxMs int64) bool {
	duration := int64(0)
	if item.DurationMs != nil {
		duration = *item.DurationMs
	}
	if duration == 0 {
		return minMs == 0
	}
	return duration >= minMs && duration <= maxMs
}

// AutoPlay starts the first qualifying audio item from the listing in a
// one-item session queue, but only when nothing is currently playing.
// Returns true when playback was started.
func (s *Session) AutoPlay(ctx context.Context, items []models.MediaItem, enabled bool, minMs, maxMs int64) bool {
	if !enabled {
		return false
	}
	s.mu.Lock()
	playing := s.transport == StatePlaying
	s.mu.Unlock()
	if playing {
		return false
	}

	for _, item := range items {
		if item.MediaType != models.MediaTypeAudio {
			continue
		}
		if !autoPlayQualifies(item, minMs, maxMs) {
			continue
		}
		if err := s.SetQueue(ctx, []models.MediaItem{item}, AutoPlayQueueLabel); err != nil {
			s.logger.Error().Err(err).Str("media", item.ID).Msg("auto-play start failed")
			return false
		}
		return true
	}
	return false
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := Status{
		State:      s.transport,
		Repeat:     s.repeatModeLocked(),
		Shuffle:    s.shuffle,
		Queue:      append([]models.MediaItem(nil), s.queue...),
		QueueLabel: s.queueLabel,
		PositionMs: s.position.Milliseconds(),
		DurationMs: s.duration.Milliseconds(),
		Volume:     s.volume,
		Speed:      s.speed,
	}
	if s.current != nil {
		current := *s.current
		status.Current = &current
	}
	return status
}

func (s *Session) setTransport(state TransportState) {
	s.mu.Lock()
	s.transport = state
	s.mu.Unlock()
	s.bus.Publish(events.EventPlayerState, events.Payload{"state": string(state)})
}

// reportControlError logs a failed engine call and surfaces it on the bus
// instead of failing the caller.
func (s *Session) reportControlError(_ context.Context, op string, err error) {
	s.logger.Error().Err(err).Str("op", op).Msg("engine control call failed")
	s.bus.Publish(events.EventPlayerError, events.Payload{
		"op":          op,
		"recoverable": true,
	})
}
