/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/bragi_media/internal/events"
	"github.com/friendsincode/bragi_media/internal/models"
	"github.com/friendsincode/bragi_media/internal/playlists"
)

func (a *API) handlePlaylistsList(w http.ResponseWriter, r *http.Request) {
	mediaType := models.MediaType(r.URL.Query().Get("type"))
	if mediaType == "" {
		mediaType = models.MediaTypeAudio
	}
	if !mediaType.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid media type")
		return
	}
	lists := a.playlists.ListPlaylists(r.Context(), mediaType)
	writeJSON(w, http.StatusOK, map[string]any{"playlists": lists})
}

func (a *API) handlePlaylistCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string           `json:"name"`
		MediaType models.MediaType `json:"media_type"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	mediaType := req.MediaType
	if mediaType == "" {
		mediaType = models.MediaTypeAudio
	}
	if !mediaType.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid media type")
		return
	}

	created, err := a.playlists.CreatePlaylist(r.Context(), req.Name, mediaType)
	if errors.Is(err, playlists.ErrEmptyName) {
		writeError(w, http.StatusBadRequest, "playlist name required")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create failed")
		return
	}
	a.publishPlaylistUpdated(created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) handlePlaylistGet(w http.ResponseWriter, r *http.Request) {
	list, err := a.playlists.GetPlaylist(r.Context(), chi.URLParam(r, "playlistID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if list == nil {
		writeError(w, http.StatusNotFound, "playlist not found")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handlePlaylistRename(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := chi.URLParam(r, "playlistID")
	err := a.playlists.RenamePlaylist(r.Context(), id, req.Name)
	if errors.Is(err, playlists.ErrEmptyName) {
		writeError(w, http.StatusBadRequest, "playlist name required")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "rename failed")
		return
	}
	a.publishPlaylistUpdated(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

func (a *API) handlePlaylistDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "playlistID")
	if err := a.playlists.DeletePlaylist(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	a.publishPlaylistUpdated(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *API) handlePlaylistItems(w http.ResponseWriter, r *http.Request) {
	items := a.playlists.ListPlaylistItems(r.Context(), chi.URLParam(r, "playlistID"))
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handlePlaylistAddItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MediaID string `json:"media_id"`
	}
	if err := decodeBody(r, &req); err != nil || req.MediaID == "" {
		writeError(w, http.StatusBadRequest, "media_id required")
		return
	}
	id := chi.URLParam(r, "playlistID")
	if err := a.playlists.AddToPlaylist(r.Context(), id, req.MediaID); err != nil {
		writeError(w, http.StatusInternalServerError, "add failed")
		return
	}
	a.publishPlaylistUpdated(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "added"})
}

func (a *API) handlePlaylistRemoveItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "playlistID")
	mediaID := chi.URLParam(r, "mediaID")
	if err := a.playlists.RemoveFromPlaylist(r.Context(), id, mediaID); err != nil {
		writeError(w, http.StatusInternalServerError, "remove failed")
		return
	}
	a.publishPlaylistUpdated(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (a *API) handlePlaylistReorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MediaIDs []string `json:"media_ids"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := chi.URLParam(r, "playlistID")
	if err := a.playlists.ReorderPlaylistItems(r.Context(), id, req.MediaIDs); err != nil {
		writeError(w, http.StatusInternalServerError, "reorder failed")
		return
	}
	a.publishPlaylistUpdated(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "reordered"})
}

func (a *API) publishPlaylistUpdated(id string) {
	a.bus.Publish(events.EventPlaylistUpdated, events.Payload{"playlist_id": id})
}
