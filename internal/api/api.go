/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the catalog, playlists, settings and the playback
// session over a JSON HTTP surface.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/bragi_media/internal/catalog"
	"github.com/friendsincode/bragi_media/internal/events"
	"github.com/friendsincode/bragi_media/internal/importer"
	"github.com/friendsincode/bragi_media/internal/logbuffer"
	"github.com/friendsincode/bragi_media/internal/player"
	"github.com/friendsincode/bragi_media/internal/playlists"
	"github.com/friendsincode/bragi_media/internal/settings"
	"github.com/friendsincode/bragi_media/internal/share"
	"github.com/friendsincode/bragi_media/internal/version"
)

// API bundles the handlers and their collaborators.
type API struct {
	media     *catalog.Repository
	sources   *catalog.SourceRepository
	playlists *playlists.Repository
	settings  *settings.Repository
	importSvc *importer.Workflow
	scanner   importer.Scanner
	session   *player.Session
	sharer    share.Sharer
	bus       *events.Bus
	logBuffer *logbuffer.Buffer
	updates   *version.Checker
	logger    zerolog.Logger
}

// New creates the API handler set. session may be nil when the process
// runs without a playback engine; player endpoints then return 503.
func New(media *catalog.Repository, sources *catalog.SourceRepository, playlistsRepo *playlists.Repository, settingsRepo *settings.Repository, importSvc *importer.Workflow, scanner importer.Scanner, session *player.Session, sharer share.Sharer, bus *events.Bus, logBuf *logbuffer.Buffer, updates *version.Checker, logger zerolog.Logger) *API {
	if sharer == nil {
		sharer = share.NopSharer{}
	}
	return &API{
		media:     media,
		sources:   sources,
		playlists: playlistsRepo,
		settings:  settingsRepo,
		importSvc: importSvc,
		scanner:   scanner,
		session:   session,
		sharer:    sharer,
		bus:       bus,
		logBuffer: logBuf,
		updates:   updates,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// RegisterRoutes mounts all endpoints under /api/v1.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)
		r.Get("/version", a.handleVersion)
		r.Get("/logs", a.handleLogs)
		r.Get("/logs/components", a.handleLogComponents)

		r.Route("/media", func(r chi.Router) {
			r.Get("/", a.handleMediaList)
			r.Get("/sources", a.handleSourcesList)
			r.Route("/{mediaID}", func(r chi.Router) {
				r.Get("/", a.handleMediaGet)
				r.Delete("/", a.handleMediaRemove)
				r.Post("/unavailable", a.handleMediaMarkUnavailable)
				r.Post("/share", a.handleMediaShare)
			})
		})

		r.Route("/import", func(r chi.Router) {
			r.Post("/files", a.handleImportFiles)
			r.Post("/folder", a.handleImportFolder)
		})

		r.Route("/playlists", func(r chi.Router) {
			r.Get("/", a.handlePlaylistsList)
			r.Post("/", a.handlePlaylistCreate)
			r.Route("/{playlistID}", func(r chi.Router) {
				r.Get("/", a.handlePlaylistGet)
				r.Patch("/", a.handlePlaylistRename)
				r.Delete("/", a.handlePlaylistDelete)
				r.Get("/items", a.handlePlaylistItems)
				r.Post("/items", a.handlePlaylistAddItem)
				r.Delete("/items/{mediaID}", a.handlePlaylistRemoveItem)
				r.Put("/items/order", a.handlePlaylistReorder)
			})
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/autoplay", a.handleAutoPlayGet)
			r.Put("/autoplay", a.handleAutoPlaySet)
			r.Get("/theme", a.handleThemeGet)
			r.Put("/theme", a.handleThemeSet)
			r.Get("/ignored-folders", a.handleIgnoredFoldersList)
			r.Post("/ignored-folders", a.handleIgnoredFolderAdd)
			r.Delete("/ignored-folders", a.handleIgnoredFolderRemove)
		})
		r.Post("/library/clear", a.handleLibraryClear)

		r.Route("/player", func(r chi.Router) {
			r.Use(a.requireSession)
			r.Get("/status", a.handlePlayerStatus)
			r.Get("/events", a.handlePlayerEvents)
			r.Post("/queue", a.handlePlayerSetQueue)
			r.Post("/play", a.handlePlayerPlay)
			r.Post("/pause", a.handlePlayerPause)
			r.Post("/seek", a.handlePlayerSeek)
			r.Post("/speed", a.handlePlayerSpeed)
			r.Post("/volume", a.handlePlayerVolume)
			r.Post("/next", a.handlePlayerNext)
			r.Post("/previous", a.handlePlayerPrevious)
			r.Post("/repeat", a.handlePlayerCycleRepeat)
			r.Post("/shuffle", a.handlePlayerToggleShuffle)
			r.Post("/autoplay", a.handlePlayerAutoPlay)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireSession guards player routes when no engine is configured.
func (a *API) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.session == nil {
			writeError(w, http.StatusServiceUnavailable, "no playback engine configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
