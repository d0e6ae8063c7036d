/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	ws "nhooyr.io/websocket"

	"github.com/friendsincode/bragi_media/internal/catalog"
	"github.com/friendsincode/bragi_media/internal/events"
	"github.com/friendsincode/bragi_media/internal/models"
	"github.com/friendsincode/bragi_media/internal/telemetry"
)

func (a *API) handlePlayerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.session.Status())
}

func (a *API) handlePlayerSetQueue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MediaIDs []string `json:"media_ids"`
		Label    string   `json:"label"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.MediaIDs) == 0 {
		writeError(w, http.StatusBadRequest, "media_ids required")
		return
	}

	items := make([]models.MediaItem, 0, len(req.MediaIDs))
	for _, id := range req.MediaIDs {
		item, err := a.media.GetMediaByID(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "lookup failed")
			return
		}
		if item == nil {
			writeError(w, http.StatusNotFound, "media not found: "+id)
			return
		}
		items = append(items, *item)
	}

	if err := a.session.SetQueue(r.Context(), items, req.Label); err != nil {
		writeError(w, http.StatusBadGateway, "engine rejected queue")
		return
	}
	writeJSON(w, http.StatusOK, a.session.Status())
}

func (a *API) handlePlayerPlay(w http.ResponseWriter, r *http.Request) {
	a.session.Play(r.Context())
	writeJSON(w, http.StatusOK, a.session.Status())
}

func (a *API) handlePlayerPause(w http.ResponseWriter, r *http.Request) {
	a.session.Pause(r.Context())
	writeJSON(w, http.StatusOK, a.session.Status())
}

func (a *API) handlePlayerSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PositionMs int64 `json:"position_ms"`
	}
	if err := decodeBody(r, &req); err != nil || req.PositionMs < 0 {
		writeError(w, http.StatusBadRequest, "position_ms required")
		return
	}
	a.session.SeekTo(r.Context(), time.Duration(req.PositionMs)*time.Millisecond)
	writeJSON(w, http.StatusOK, a.session.Status())
}

func (a *API) handlePlayerSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := decodeBody(r, &req); err != nil || req.Speed <= 0 {
		writeError(w, http.StatusBadRequest, "speed must be positive")
		return
	}
	a.session.SetSpeed(r.Context(), req.Speed)
	writeJSON(w, http.StatusOK, a.session.Status())
}

func (a *API) handlePlayerVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Volume float64 `json:"volume"`
	}
	if err := decodeBody(r, &req); err != nil || req.Volume < 0 || req.Volume > 1 {
		writeError(w, http.StatusBadRequest, "volume must be in [0,1]")
		return
	}
	a.session.SetVolume(r.Context(), req.Volume)
	writeJSON(w, http.StatusOK, a.session.Status())
}

func (a *API) handlePlayerNext(w http.ResponseWriter, r *http.Request) {
	a.session.Next(r.Context())
	writeJSON(w, http.StatusOK, a.session.Status())
}

func (a *API) handlePlayerPrevious(w http.ResponseWriter, r *http.Request) {
	a.session.Previous(r.Context())
	writeJSON(w, http.StatusOK, a.session.Status())
}

func (a *API) handlePlayerCycleRepeat(w http.ResponseWriter, r *http.Request) {
	mode := a.session.CycleRepeat()
	writeJSON(w, http.StatusOK, map[string]any{
		"repeat":  mode,
		"shuffle": a.session.Shuffle(),
	})
}

func (a *API) handlePlayerToggleShuffle(w http.ResponseWriter, r *http.Request) {
	shuffle := a.session.ToggleShuffle()
	writeJSON(w, http.StatusOK, map[string]any{
		"repeat":  a.session.Repeat(),
		"shuffle": shuffle,
	})
}

// handlePlayerAutoPlay starts background playback when the session is idle,
// picking the first library track that fits the configured duration window.
func (a *API) handlePlayerAutoPlay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	enabled := a.settings.AutoPlayEnabled(ctx)
	rng := a.settings.AutoPlayRange(ctx)
	items := a.media.ListMedia(ctx, catalog.ListParams{MediaType: models.MediaTypeAudio})

	started := a.session.AutoPlay(ctx, items, enabled, rng.MinMs, rng.MaxMs)
	writeJSON(w, http.StatusOK, map[string]any{
		"started": started,
		"status":  a.session.Status(),
	})
}

func (a *API) handlePlayerEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.APIWebSocketConnections.Inc()
	defer telemetry.APIWebSocketConnections.Dec()

	eventTypes := parseEventTypes(r.URL.Query().Get("types"))
	if len(eventTypes) == 0 {
		eventTypes = []events.EventType{
			events.EventNowPlaying,
			events.EventPlayerState,
			events.EventPlayerProgress,
			events.EventPlayerError,
			events.EventMediaUnavailable,
		}
	}

	subscribers := make([]events.Subscriber, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		subscribers = append(subscribers, a.bus.Subscribe(eventType))
	}
	defer func() {
		for i, eventType := range eventTypes {
			a.bus.Unsubscribe(eventType, subscribers[i])
		}
	}()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "context cancelled")
			return
		case <-ticker.C:
			if err := conn.Write(ctx, ws.MessageText, []byte(`{"type":"ping"}`)); err != nil {
				conn.Close(ws.StatusInternalError, "write failed")
				return
			}
		default:
			sent := false
			for i, sub := range subscribers {
				select {
				case payload := <-sub:
					if err := a.writeEvent(ctx, conn, eventTypes[i], payload); err != nil {
						conn.Close(ws.StatusInternalError, "write failed")
						return
					}
					sent = true
				default:
				}
			}
			if !sent {
				time.Sleep(100 * time.Millisecond)
			}
		}
	}
}

func (a *API) writeEvent(ctx context.Context, conn *ws.Conn, eventType events.EventType, payload events.Payload) error {
	data := map[string]any{
		"type":    eventType,
		"payload": payload,
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.Write(ctx, ws.MessageText, raw)
}

func parseEventTypes(raw string) []events.EventType {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]events.EventType, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, events.EventType(part))
	}
	return out
}
