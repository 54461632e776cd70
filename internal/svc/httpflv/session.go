package httpflv

import (
	"log/slog"
	"net"
	"net/http"

	"go.uber.org/atomic"

	"brook/internal/core/av"
	"brook/internal/core/bus"
	"brook/internal/core/protocol/flv"
)

const readBufferSize = 4096

// Session is one HTTP peer: a GET subscriber receiving muxed FLV, or a POST
// publisher whose body is demuxed into the hub.
type Session struct {
	info     *bus.SessionInfo
	hub      *bus.Hub
	sessions *bus.SessionTable
	queue    *bus.SendQueue
	parser   *flv.Parser
	log      *slog.Logger

	publishing bool
	playing    bool
	closed     atomic.Bool
	done       chan struct{}
}

func newSession(r *http.Request, hub *bus.Hub, sessions *bus.SessionTable) *Session {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	s := &Session{
		info:     bus.NewSessionInfo("flv", ip),
		hub:      hub,
		sessions: sessions,
		queue:    bus.NewSendQueue(),
		done:     make(chan struct{}),
	}
	s.log = slog.With("protocol", "flv", "id", s.info.ID, "ip", ip)
	return s
}

// servePlay attaches the session to the hub and streams queued FLV bytes into
// the response until the peer goes away or the queue closes.
func (s *Session) servePlay(w http.ResponseWriter, r *http.Request) {
	s.sessions.Add(s)

	if err := s.hub.PostPlay(s); err != nil {
		s.log.Warn("play rejected", "err", err)
		s.Close()
		w.WriteHeader(http.StatusForbidden)
		return
	}
	s.playing = true
	s.log.Info("play started", "path", s.info.Path)

	w.Header().Set("Content-Type", "video/x-flv")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	// The request context ends when the peer disconnects.
	go func() {
		select {
		case <-r.Context().Done():
			s.Close()
		case <-s.done:
		}
	}()

	err := s.queue.Drain(func(data []byte) error {
		if _, werr := w.Write(data); werr != nil {
			return werr
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		s.log.Debug("write failed", "err", err)
	}
	s.Close()
}

// servePublish demuxes the request body as an FLV stream into the hub.
func (s *Session) servePublish(w http.ResponseWriter, r *http.Request) {
	s.parser = flv.NewParser(s)
	s.sessions.Add(s)

	if err := s.hub.PostPublish(s); err != nil {
		s.log.Warn("publish rejected", "err", err)
		s.Close()
		w.WriteHeader(http.StatusForbidden)
		return
	}
	s.publishing = true
	s.log.Info("publish started", "path", s.info.Path)

	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Body.Read(buf)
		if n > 0 {
			s.info.InBytes.Add(uint64(n))
			if perr := s.parser.Parse(buf[:n]); perr != nil {
				s.log.Warn("demux error", "err", perr)
				break
			}
		}
		if err != nil {
			break
		}
	}
	s.Close()
	w.WriteHeader(http.StatusOK)
}

// Info implements bus.Session.
func (s *Session) Info() *bus.SessionInfo {
	return s.info
}

// SendBuffer implements bus.Session.
func (s *Session) SendBuffer(data []byte) {
	if err := s.queue.Push(data); err != nil {
		s.Close()
		return
	}
	s.info.OutBytes.Add(uint64(len(data)))
}

// Close detaches from the hub and stops the drain loop. Safe to call more
// than once and from any goroutine.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.publishing {
		s.hub.DonePublish(s)
	}
	if s.playing {
		s.hub.DonePlay(s)
	}
	s.sessions.Remove(s)
	s.queue.Close()
	close(s.done)
	s.log.Info("session closed",
		"path", s.info.Path,
		"inBytes", s.info.InBytes.Load(),
		"outBytes", s.info.OutBytes.Load())
}

// OnPacket forwards demuxed media to the hub.
func (s *Session) OnPacket(pkt *av.Packet) {
	if s.publishing {
		s.hub.Broadcast(pkt)
	}
}
