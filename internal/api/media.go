/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/bragi_media/internal/catalog"
	"github.com/friendsincode/bragi_media/internal/events"
	"github.com/friendsincode/bragi_media/internal/models"
)

// mediaListEntry decorates an item with the match spans for the active
// search query, mapped back to offsets in the original display name.
type mediaListEntry struct {
	models.MediaItem
	Highlights []catalog.HighlightSpan `json:"highlights,omitempty"`
}

func (a *API) handleMediaList(w http.ResponseWriter, r *http.Request) {
	mediaType := models.MediaType(r.URL.Query().Get("type"))
	if mediaType == "" {
		mediaType = models.MediaTypeAudio
	}
	if !mediaType.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid media type")
		return
	}

	params := catalog.ListParams{
		MediaType: mediaType,
		Query:     r.URL.Query().Get("q"),
		Sort:      r.URL.Query().Get("sort"),
		Order:     r.URL.Query().Get("order"),
	}
	items := a.media.ListMedia(r.Context(), params)

	entries := make([]mediaListEntry, 0, len(items))
	for _, item := range items {
		entry := mediaListEntry{MediaItem: item}
		if params.Query != "" {
			entry.Highlights = catalog.HighlightMatches(item.DisplayName, params.Query)
		}
		entries = append(entries, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

func (a *API) handleMediaGet(w http.ResponseWriter, r *http.Request) {
	item, err := a.media.GetMediaByID(r.Context(), chi.URLParam(r, "mediaID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) handleMediaRemove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "mediaID")
	if err := a.media.RemoveMedia(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "remove failed")
		return
	}
	a.bus.Publish(events.EventMediaRemoved, events.Payload{"media_id": id})
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (a *API) handleMediaMarkUnavailable(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "mediaID")
	if err := a.media.MarkUnavailable(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	a.bus.Publish(events.EventMediaUnavailable, events.Payload{"media_id": id})
	writeJSON(w, http.StatusOK, map[string]string{"status": "unavailable"})
}

func (a *API) handleMediaShare(w http.ResponseWriter, r *http.Request) {
	item, err := a.media.GetMediaByID(r.Context(), chi.URLParam(r, "mediaID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}
	if err := a.sharer.Share(r.Context(), uriToPath(item.URI), item.DisplayName); err != nil {
		// Sharing is best effort; the item itself is fine.
		writeError(w, http.StatusBadGateway, "share failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "shared"})
}

func (a *API) handleSourcesList(w http.ResponseWriter, r *http.Request) {
	sourceType := models.SourceType(r.URL.Query().Get("type"))
	sources := a.sources.ListSources(r.Context(), sourceType)
	writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
}

// uriToPath strips a file:// scheme so the sharer receives a plain path.
func uriToPath(uri string) string {
	if strings.HasPrefix(uri, "file://") {
		if u, err := url.Parse(uri); err == nil {
			return u.Path
		}
		return strings.TrimPrefix(uri, "file://")
	}
	return uri
}
