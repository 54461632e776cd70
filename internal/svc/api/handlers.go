// Package api exposes the read-only admin endpoints: host and runtime facts
// on /api/server, live session counts on /api/sessions.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"time"

	"brook/internal/config"
	"brook/internal/core/bus"
)

// Service serves the admin API.
type Service struct {
	cfg       *config.Config
	sessions  *bus.SessionTable
	startTime time.Time
}

// New creates the API service.
func New(cfg *config.Config, sessions *bus.SessionTable) *Service {
	return &Service{
		cfg:       cfg,
		sessions:  sessions,
		startTime: time.Now(),
	}
}

// RegisterRoutes mounts the API endpoints on mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/server", s.handleServer)
	mux.HandleFunc("/api/sessions", s.handleSessions)
}

// ServerResponse is the /api/server body.
type ServerResponse struct {
	OS        string         `json:"os"`
	Arch      string         `json:"arch"`
	Hostname  string         `json:"hostname"`
	CPUs      int            `json:"cpus"`
	GoVersion string         `json:"go_version"`
	Uptime    int64          `json:"uptime"` // seconds
	Memory    MemoryInfo     `json:"memory"`
	Config    *config.Config `json:"config"`
}

// MemoryInfo summarizes process memory usage.
type MemoryInfo struct {
	Alloc      uint64 `json:"alloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"num_gc"`
	Goroutines int    `json:"goroutines"`
}

// SessionsResponse is the /api/sessions body: live session counts per
// transport.
type SessionsResponse struct {
	RTMP  int `json:"rtmp"`
	FLV   int `json:"flv"`
	HLS   int `json:"hls"`
	Total int `json:"total"`
}

func (s *Service) handleServer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	hostname, _ := os.Hostname()

	// The auth secret stays out of API responses.
	cfg := *s.cfg
	cfg.Auth.Secret = ""

	s.writeJSON(w, ServerResponse{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		Hostname:  hostname,
		CPUs:      runtime.NumCPU(),
		GoVersion: runtime.Version(),
		Uptime:    int64(time.Since(s.startTime).Seconds()),
		Memory: MemoryInfo{
			Alloc:      mem.Alloc,
			Sys:        mem.Sys,
			NumGC:      mem.NumGC,
			Goroutines: runtime.NumGoroutine(),
		},
		Config: &cfg,
	})
}

func (s *Service) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	counts := s.sessions.CountByProtocol()
	s.writeJSON(w, SessionsResponse{
		RTMP:  counts["rtmp"],
		FLV:   counts["flv"],
		HLS:   counts["hls"],
		Total: s.sessions.Len(),
	})
}

func (s *Service) writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("api encode failed", "err", err)
	}
}
