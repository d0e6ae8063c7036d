/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"time"

	"github.com/friendsincode/bragi_media/internal/models"
)

// Track is the engine's view of a queue entry.
type Track struct {
	ID    string
	URI   string
	Title string
}

// EventType enumerates engine callbacks.
type EventType int

const (
	// EventState reports a play/pause transition.
	EventState EventType = iota
	// EventTrackChanged reports the active track.
	EventTrackChanged
	// EventProgress is a position/duration tick.
	EventProgress
	// EventError reports a fatal playback failure for the active track.
	EventError
)

// Event is one engine callback, delivered on the engine's event channel.
type Event struct {
	Type     EventType
	Playing  bool
	TrackID  string
	TrackURI string
	Position time.Duration
	Duration time.Duration
	Err      error
}

// Engine is the narrow control surface of the external playback engine.
// Each call is expected to resolve or reject; no timeouts are imposed here.
type Engine interface {
	Load(ctx context.Context, uri string, mediaType models.MediaType) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	SeekTo(ctx context.Context, position time.Duration) error
	SetSpeed(ctx context.Context, speed float64) error
	SetVolume(ctx context.Context, volume float64) error
	ReplaceQueue(ctx context.Context, tracks []Track) error
	SkipTo(ctx context.Context, index int) error
	Queue(ctx context.Context) ([]Track, error)
	Events() <-chan Event
	Close() error
}

// Prober measures a file's duration with a throwaway decode pass. Engines
// that can do this implement it alongside Engine.
type Prober interface {
	Probe(ctx context.Context, uri string) (time.Duration, error)
}
