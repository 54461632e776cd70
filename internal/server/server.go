// Package server assembles the engine: the shared bus, the RTMP listeners,
// the HTTP mux with FLV transport and the API, and the lifecycle observers.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"brook/internal/config"
	"brook/internal/core/bus"
	"brook/internal/svc/api"
	"brook/internal/svc/health"
	"brook/internal/svc/hls"
	"brook/internal/svc/httpflv"
	"brook/internal/svc/notify"
	"brook/internal/svc/rtmp"
	"brook/internal/svc/wsflv"
)

// Server owns every service and the state they share.
type Server struct {
	cfg *config.Config

	events   *bus.Events
	registry *bus.Registry
	sessions *bus.SessionTable

	rtmpServer *rtmp.Server
	httpServer *http.Server
	hlsService *hls.Service
}

// New wires the services together. Listeners are not opened until Start.
func New(cfg *config.Config) (*Server, error) {
	events := bus.NewEvents()
	registry := bus.NewRegistry(bus.AuthOptions{
		Play:    cfg.Auth.Play,
		Publish: cfg.Auth.Publish,
		Secret:  cfg.Auth.Secret,
	}, events)
	sessions := bus.NewSessionTable()

	s := &Server{
		cfg:      cfg,
		events:   events,
		registry: registry,
		sessions: sessions,
	}

	if cfg.Notify.URL != "" {
		events.Subscribe(notify.New(cfg.Notify.URL))
	}
	if cfg.HLS.Active {
		hlsService, err := hls.New(cfg, sessions)
		if err != nil {
			return nil, err
		}
		s.hlsService = hlsService
		events.Subscribe(hlsService)
	}

	s.rtmpServer = rtmp.New(cfg, registry, sessions)
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Bind, cfg.HTTP.Port),
		Handler: s.buildMux(),
	}
	return s, nil
}

// buildMux assembles the HTTP routing: health and API endpoints, the static
// root for HLS output, and the FLV stream paths on everything else.
func (s *Server) buildMux() http.Handler {
	mux := http.NewServeMux()

	health.New().RegisterRoutes(mux)
	api.New(s.cfg, s.sessions).RegisterRoutes(mux)

	staticPrefix := s.cfg.Static.Router
	if staticPrefix != "" {
		mux.Handle(staticPrefix+"/", http.StripPrefix(staticPrefix,
			http.FileServer(http.Dir(s.cfg.Static.Root))))
	}

	flvHandler := httpflv.NewHandler(s.registry, s.sessions)
	wsHandler := wsflv.NewHandler(s.registry, s.sessions)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case wsflv.Match(r):
			wsHandler.ServeHTTP(w, r)
		case httpflv.Match(r.URL.Path):
			flvHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})

	return withCORS(mux)
}

// withCORS lets browser players on other origins reach the streams and API.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start opens the RTMP listeners and begins serving HTTP. It blocks until the
// HTTP server stops.
func (s *Server) Start() error {
	if err := s.rtmpServer.Start(); err != nil {
		return err
	}
	slog.Info("http server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the listeners, the running transcodes, and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rtmpServer.Shutdown()
	if s.hlsService != nil {
		s.hlsService.Shutdown()
	}
	return s.httpServer.Shutdown(ctx)
}
