/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package mpdengine drives playback through an MPD server using gompd.
package mpdengine

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog"

	"github.com/friendsincode/bragi_media/internal/models"
	"github.com/friendsincode/bragi_media/internal/player"
)

const progressInterval = time.Second

// Engine implements player.Engine against a running MPD server. MPD only
// knows URIs, so the queue is mirrored locally to translate MPD's song
// positions back into track identities.
type Engine struct {
	mu       sync.Mutex
	client   *mpd.Client
	host     string
	port     int
	password string

	tracks  []player.Track
	current int

	events chan player.Event
	done   chan struct{}
	logger zerolog.Logger
}

// New dials MPD and starts the watch loop. The returned engine must be
// closed to release the connection and the event channel.
func New(host string, port int, password string, logger zerolog.Logger) (*Engine, error) {
	e := &Engine{
		host:     host,
		port:     port,
		password: password,
		current:  -1,
		events:   make(chan player.Event, 16),
		done:     make(chan struct{}),
		logger:   logger.With().Str("component", "mpdengine").Logger(),
	}
	if err := e.connect(); err != nil {
		return nil, err
	}
	go e.watch()
	return e, nil
}

func (e *Engine) addr() string {
	return fmt.Sprintf("%s:%d", e.host, e.port)
}

// connect dials and authenticates. Caller must not hold e.mu.
func (e *Engine) connect() error {
	client, err := mpd.Dial("tcp", e.addr())
	if err != nil {
		return fmt.Errorf("connect to mpd: %w", err)
	}
	if e.password != "" {
		if err := client.Command("password %s", e.password).OK(); err != nil {
			client.Close()
			return fmt.Errorf("mpd authentication: %w", err)
		}
	}
	e.mu.Lock()
	e.client = client
	e.mu.Unlock()
	e.logger.Info().Str("addr", e.addr()).Msg("connected to mpd")
	return nil
}

// ensureConnected pings and reconnects on a dead connection. Caller must
// hold e.mu.
func (e *Engine) ensureConnected() error {
	if e.client != nil {
		if err := e.client.Ping(); err == nil {
			return nil
		}
		e.logger.Warn().Msg("mpd connection lost, reconnecting")
		e.client.Close()
		e.client = nil
	}
	client, err := mpd.Dial("tcp", e.addr())
	if err != nil {
		return fmt.Errorf("reconnect to mpd: %w", err)
	}
	if e.password != "" {
		if err := client.Command("password %s", e.password).OK(); err != nil {
			client.Close()
			return fmt.Errorf("mpd authentication: %w", err)
		}
	}
	e.client = client
	return nil
}

// Load replaces the queue with a single track.
func (e *Engine) Load(ctx context.Context, uri string, mediaType models.MediaType) error {
	return e.ReplaceQueue(ctx, []player.Track{{URI: uri}})
}

// Play resumes or starts the current queue position.
func (e *Engine) Play(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureConnected(); err != nil {
		return err
	}
	return e.client.Play(-1)
}

// Pause pauses playback.
func (e *Engine) Pause(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureConnected(); err != nil {
		return err
	}
	return e.client.Pause(true)
}

// SeekTo seeks within the current track.
func (e *Engine) SeekTo(ctx context.Context, position time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureConnected(); err != nil {
		return err
	}
	status, err := e.client.Status()
	if err != nil {
		return err
	}
	songPos, err := strconv.Atoi(status["song"])
	if err != nil {
		return fmt.Errorf("no current song")
	}
	return e.client.Seek(songPos, int(position/time.Second))
}

// SetSpeed is not supported by the MPD protocol; rates other than 1.0 are
// rejected so the caller can surface the limitation.
func (e *Engine) SetSpeed(ctx context.Context, speed float64) error {
	if speed != 1.0 {
		return fmt.Errorf("mpd does not support playback rate %.2f", speed)
	}
	return nil
}

// SetVolume sets volume from a 0..1 fraction.
func (e *Engine) SetVolume(ctx context.Context, volume float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureConnected(); err != nil {
		return err
	}
	vol := int(volume * 100)
	if vol < 0 {
		vol = 0
	} else if vol > 100 {
		vol = 100
	}
	return e.client.SetVolume(vol)
}

// ReplaceQueue clears MPD's queue and loads tracks in order.
func (e *Engine) ReplaceQueue(ctx context.Context, tracks []player.Track) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureConnected(); err != nil {
		return err
	}
	if err := e.client.Clear(); err != nil {
		return err
	}
	for _, track := range tracks {
		if err := e.client.Add(track.URI); err != nil {
			return fmt.Errorf("queue %s: %w", track.URI, err)
		}
	}
	e.tracks = append([]player.Track(nil), tracks...)
	e.current = -1
	return nil
}

// SkipTo jumps to the queue index and starts playback there.
func (e *Engine) SkipTo(ctx context.Context, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureConnected(); err != nil {
		return err
	}
	if index < 0 || index >= len(e.tracks) {
		return fmt.Errorf("queue index %d out of range", index)
	}
	return e.client.Play(index)
}

// Queue returns the mirrored queue.
func (e *Engine) Queue(ctx context.Context) ([]player.Track, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]player.Track(nil), e.tracks...), nil
}

// Events returns the engine event stream. Closed by Close.
func (e *Engine) Events() <-chan player.Event {
	return e.events
}

// Probe measures a file's duration via MPD's database listing.
func (e *Engine) Probe(ctx context.Context, uri string) (time.Duration, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureConnected(); err != nil {
		return 0, err
	}
	infos, err := e.client.ListInfo(uri)
	if err != nil {
		return 0, fmt.Errorf("lsinfo %s: %w", uri, err)
	}
	for _, attrs := range infos {
		if secs, err := strconv.ParseFloat(attrs["duration"], 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second)), nil
		}
	}
	return 0, fmt.Errorf("no duration for %s", uri)
}

// Close stops the watch loop and the connection.
func (e *Engine) Close() error {
	close(e.done)
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.client != nil {
		err = e.client.Close()
		e.client = nil
	}
	return err
}

// watch polls MPD status every second and translates changes into engine
// events. A subsystem watcher would be lower latency, but a poll also
// serves as the progress tick, so one loop covers both.
func (e *Engine) watch() {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	defer close(e.events)

	wasPlaying := false
	lastSongID := ""

	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
		}

		e.mu.Lock()
		if err := e.ensureConnected(); err != nil {
			e.mu.Unlock()
			continue
		}
		status, err := e.client.Status()
		if err != nil {
			e.mu.Unlock()
			continue
		}
		tracks := e.tracks
		e.mu.Unlock()

		playing := status["state"] == "play"
		songID := status["songid"]
		songPos, _ := strconv.Atoi(status["song"])

		var track player.Track
		if songPos >= 0 && songPos < len(tracks) {
			track = tracks[songPos]
		}

		if status["state"] == "stop" && status["error"] != "" {
			e.emit(player.Event{
				Type:     player.EventError,
				TrackID:  track.ID,
				TrackURI: track.URI,
				Err:      fmt.Errorf("mpd: %s", status["error"]),
			})
		}

		if songID != lastSongID && songID != "" {
			lastSongID = songID
			e.mu.Lock()
			e.current = songPos
			e.mu.Unlock()
			e.emit(player.Event{
				Type:     player.EventTrackChanged,
				TrackID:  track.ID,
				TrackURI: track.URI,
			})
		}

		if playing != wasPlaying {
			wasPlaying = playing
			e.emit(player.Event{
				Type:     player.EventState,
				Playing:  playing,
				TrackID:  track.ID,
				TrackURI: track.URI,
			})
		}

		if playing {
			elapsed, _ := strconv.ParseFloat(status["elapsed"], 64)
			duration, _ := strconv.ParseFloat(status["duration"], 64)
			e.emit(player.Event{
				Type:     player.EventProgress,
				Playing:  true,
				TrackID:  track.ID,
				TrackURI: track.URI,
				Position: time.Duration(elapsed * float64(time.Second)),
				Duration: time.Duration(duration * float64(time.Second)),
			})
		}
	}
}

func (e *Engine) emit(event player.Event) {
	select {
	case e.events <- event:
	case <-e.done:
	}
}
