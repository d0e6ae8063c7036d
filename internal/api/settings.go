/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"

	"github.com/friendsincode/bragi_media/internal/events"
)

type autoPlaySettings struct {
	Enabled bool  `json:"enabled"`
	MinMs   int64 `json:"min_ms"`
	MaxMs   int64 `json:"max_ms"`
}

func (a *API) handleAutoPlayGet(w http.ResponseWriter, r *http.Request) {
	rng := a.settings.AutoPlayRange(r.Context())
	writeJSON(w, http.StatusOK, autoPlaySettings{
		Enabled: a.settings.AutoPlayEnabled(r.Context()),
		MinMs:   rng.MinMs,
		MaxMs:   rng.MaxMs,
	})
}

func (a *API) handleAutoPlaySet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool  `json:"enabled"`
		MinMs   *int64 `json:"min_ms"`
		MaxMs   *int64 `json:"max_ms"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx := r.Context()
	if req.Enabled != nil {
		if err := a.settings.SetAutoPlayEnabled(ctx, *req.Enabled); err != nil {
			writeError(w, http.StatusInternalServerError, "update failed")
			return
		}
	}
	if req.MinMs != nil {
		if err := a.settings.SetAutoPlayMinMs(ctx, *req.MinMs); err != nil {
			writeError(w, http.StatusInternalServerError, "update failed")
			return
		}
	}
	if req.MaxMs != nil {
		if err := a.settings.SetAutoPlayMaxMs(ctx, *req.MaxMs); err != nil {
			writeError(w, http.StatusInternalServerError, "update failed")
			return
		}
	}
	a.handleAutoPlayGet(w, r)
}

func (a *API) handleThemeGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"mode": a.settings.ThemeMode(r.Context())})
}

func (a *API) handleThemeSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.settings.SetThemeMode(r.Context(), req.Mode); err != nil {
		writeError(w, http.StatusBadRequest, "invalid theme mode")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mode": req.Mode})
}

func (a *API) handleIgnoredFoldersList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"patterns": a.settings.ListIgnoredFolders(r.Context()),
	})
}

func (a *API) handleIgnoredFolderAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pattern string `json:"pattern"`
	}
	if err := decodeBody(r, &req); err != nil || req.Pattern == "" {
		writeError(w, http.StatusBadRequest, "pattern required")
		return
	}
	if err := a.settings.AddIgnoredFolder(r.Context(), req.Pattern); err != nil {
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	a.handleIgnoredFoldersList(w, r)
}

func (a *API) handleIgnoredFolderRemove(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		var req struct {
			Pattern string `json:"pattern"`
		}
		if err := decodeBody(r, &req); err == nil {
			pattern = req.Pattern
		}
	}
	if pattern == "" {
		writeError(w, http.StatusBadRequest, "pattern required")
		return
	}
	if err := a.settings.RemoveIgnoredFolder(r.Context(), pattern); err != nil {
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	a.handleIgnoredFoldersList(w, r)
}

func (a *API) handleLibraryClear(w http.ResponseWriter, r *http.Request) {
	if err := a.settings.ClearLibrary(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "clear failed")
		return
	}
	a.bus.Publish(events.EventLibraryCleared, events.Payload{})
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
