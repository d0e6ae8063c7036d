/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires the repositories, the playback session and the HTTP
// surface into one process.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/bragi_media/internal/api"
	"github.com/friendsincode/bragi_media/internal/catalog"
	"github.com/friendsincode/bragi_media/internal/config"
	"github.com/friendsincode/bragi_media/internal/db"
	"github.com/friendsincode/bragi_media/internal/events"
	"github.com/friendsincode/bragi_media/internal/importer"
	"github.com/friendsincode/bragi_media/internal/logbuffer"
	"github.com/friendsincode/bragi_media/internal/player"
	"github.com/friendsincode/bragi_media/internal/player/mpdengine"
	"github.com/friendsincode/bragi_media/internal/playlists"
	"github.com/friendsincode/bragi_media/internal/settings"
	"github.com/friendsincode/bragi_media/internal/share"
	"github.com/friendsincode/bragi_media/internal/telemetry"
	"github.com/friendsincode/bragi_media/internal/version"
)

// durationBackfillInterval spaces out the periodic duration probe passes.
const durationBackfillInterval = time.Minute

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db        *gorm.DB
	bus       *events.Bus
	api       *api.API
	session   *player.Session
	engine    player.Engine
	logBuffer *logbuffer.Buffer
	updates   *version.Checker

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logBuf *logbuffer.Buffer, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.MetricsMiddleware)
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// The event stream is a long-running connection.
			if r.URL.Path == "/api/v1/player/events" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:       cfg,
		logger:    logger,
		router:    router,
		bus:       events.NewBus(),
		logBuffer: logBuf,
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		// WriteTimeout stays 0 so the websocket event stream is not cut;
		// the middleware timeout covers the JSON routes.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	media := catalog.NewRepository(database, s.logger)
	sources := catalog.NewSourceRepository(database, s.logger)
	playlistRepo := playlists.NewRepository(database, s.logger)
	settingsRepo := settings.NewRepository(database, s.logger)
	importWorkflow := importer.NewWorkflow(media, sources, settingsRepo, s.bus, s.logger)
	scanner := importer.NewFSScanner(s.logger)
	sharer := share.NewExecSharer(s.logger)

	if s.cfg.Engine == config.EngineMPD {
		engine, err := mpdengine.New(s.cfg.MPDHost, s.cfg.MPDPort, s.cfg.MPDPassword, s.logger)
		if err != nil {
			return fmt.Errorf("start mpd engine: %w", err)
		}
		s.engine = engine
		s.DeferClose(engine.Close)
		s.session = player.NewSession(engine, media, s.bus, s.logger)
	} else {
		s.logger.Warn().Msg("no playback engine configured, player endpoints disabled")
	}

	s.updates = version.NewChecker(s.logger)

	s.api = api.New(media, sources, playlistRepo, settingsRepo, importWorkflow, scanner, s.session, sharer, s.bus, s.logBuffer, s.updates, s.logger)
	return nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.api.RegisterRoutes(s.router)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.updates.Start(ctx)

	if s.session != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.session.Run(ctx)
		}()
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.session.RunDurationBackfill(ctx, durationBackfillInterval)
		}()
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

// HTTPServer exposes the configured http.Server for the serve command.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}
