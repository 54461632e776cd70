// Package hls segments published streams into HLS playlists. Each publish
// spawns an ffmpeg process that pulls the stream back over HTTP-FLV and
// writes segments under the static root, where the HTTP server serves them.
package hls

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"brook/internal/config"
	"brook/internal/core/bus"
	"brook/internal/ffx"
)

// Service observes publish lifecycle events and keeps one transcode per
// stream path.
type Service struct {
	cfg      *config.Config
	runner   *ffx.Runner
	sessions *bus.SessionTable

	mu     sync.Mutex
	active map[string]*transcode
}

// transcode pairs the ffmpeg process with the session entry that represents
// it in the session table.
type transcode struct {
	proc *ffx.Process
	info *bus.SessionInfo
	out  string
}

// New creates the service, resolving the ffmpeg binary up front.
func New(cfg *config.Config, sessions *bus.SessionTable) (*Service, error) {
	runner, err := ffx.NewRunner(cfg.FFmpeg)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:      cfg,
		runner:   runner,
		sessions: sessions,
		active:   make(map[string]*transcode),
	}, nil
}

// OnSessionEvent implements bus.Observer. Only publish transitions matter.
func (s *Service) OnSessionEvent(action bus.Action, session bus.Session) {
	switch action {
	case bus.ActionPostPublish:
		s.start(session.Info())
	case bus.ActionDonePublish:
		s.stop(session.Info())
	}
}

// transcodeArgs builds the ffmpeg invocation for one stream: pull the FLV
// over loopback, re-encode to a fixed two-second GOP, emit a rolling HLS
// playlist.
func (s *Service) transcodeArgs(app, name, outDir string) []string {
	source := fmt.Sprintf("http://127.0.0.1:%d/%s/%s.flv", s.cfg.HTTP.Port, app, name)
	return []string{
		"-y",
		"-i", source,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-r", "30",
		"-g", "60",
		"-keyint_min", "60",
		"-sc_threshold", "0",
		"-force_key_frames", "expr:gte(t,n_forced*2)",
		"-c:a", "aac",
		"-b:a", "128k",
		"-map", "0:v",
		"-map", "0:a?",
		"-f", "hls",
		"-hls_time", "2",
		"-hls_list_size", "7",
		"-hls_flags", "delete_segments",
		filepath.Join(outDir, "index.m3u8"),
	}
}

func (s *Service) start(info *bus.SessionInfo) {
	path := info.Path
	s.mu.Lock()
	if _, exists := s.active[path]; exists {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	outDir := filepath.Join(s.cfg.Static.Root, info.App, info.Name)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		slog.Error("hls output dir", "path", path, "err", err)
		return
	}

	proc, err := s.runner.Start(s.transcodeArgs(info.App, info.Name, outDir)...)
	if err != nil {
		slog.Error("hls transcode start", "path", path, "err", err)
		return
	}

	entry := bus.NewSessionInfo("hls", "")
	entry.SetStream(info.Host, info.App, info.Name, nil)
	tc := &transcode{proc: proc, info: entry, out: outDir}

	s.mu.Lock()
	s.active[path] = tc
	s.mu.Unlock()
	s.sessions.Add(tc)
	slog.Info("hls transcode started", "path", path, "out", outDir)
}

func (s *Service) stop(info *bus.SessionInfo) {
	s.mu.Lock()
	tc, ok := s.active[info.Path]
	if ok {
		delete(s.active, info.Path)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	tc.proc.Stop()
	s.sessions.Remove(tc)
	if !s.cfg.HLS.Keep {
		clearCache(tc.out)
	}
	slog.Info("hls transcode stopped", "path", info.Path)
}

// Shutdown stops every running transcode.
func (s *Service) Shutdown() {
	s.mu.Lock()
	active := s.active
	s.active = make(map[string]*transcode)
	s.mu.Unlock()

	for path, tc := range active {
		tc.proc.Stop()
		s.sessions.Remove(tc)
		if !s.cfg.HLS.Keep {
			clearCache(tc.out)
		}
		slog.Info("hls transcode stopped", "path", path)
	}
}

// clearCache removes the playlist and segments a finished stream left behind.
func clearCache(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if ext == ".ts" || ext == ".m3u8" {
			os.Remove(filepath.Join(dir, entry.Name()))
		}
	}
}

// Info, SendBuffer and Close make transcode a bus.Session so it appears in
// the session table. It never subscribes to a hub, so SendBuffer is unused.
func (t *transcode) Info() *bus.SessionInfo { return t.info }

func (t *transcode) SendBuffer(data []byte) {}

func (t *transcode) Close() { t.proc.Stop() }
