package wsflv

import (
	"log/slog"
	"net"

	"github.com/gorilla/websocket"
	"go.uber.org/atomic"

	"brook/internal/core/bus"
)

// Session streams muxed FLV messages to one WebSocket peer as binary frames.
type Session struct {
	conn     *websocket.Conn
	info     *bus.SessionInfo
	hub      *bus.Hub
	sessions *bus.SessionTable
	queue    *bus.SendQueue
	log      *slog.Logger

	playing bool
	closed  atomic.Bool
}

func newSession(conn *websocket.Conn, hub *bus.Hub, sessions *bus.SessionTable) *Session {
	ip := conn.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	s := &Session{
		conn:     conn,
		info:     bus.NewSessionInfo("flv", ip),
		hub:      hub,
		sessions: sessions,
		queue:    bus.NewSendQueue(),
	}
	s.log = slog.With("protocol", "ws-flv", "id", s.info.ID, "ip", ip)
	return s
}

// serve attaches to the hub and writes queued messages until the peer leaves.
func (s *Session) serve() {
	s.sessions.Add(s)

	if err := s.hub.PostPlay(s); err != nil {
		s.log.Warn("play rejected", "err", err)
		s.Close()
		return
	}
	s.playing = true
	s.log.Info("play started", "path", s.info.Path)

	// The read loop only detects disconnects; peers send nothing meaningful.
	go func() {
		for {
			if _, _, err := s.conn.ReadMessage(); err != nil {
				s.Close()
				return
			}
		}
	}()

	err := s.queue.Drain(func(data []byte) error {
		return s.conn.WriteMessage(websocket.BinaryMessage, data)
	})
	if err != nil {
		s.log.Debug("write failed", "err", err)
	}
	s.Close()
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

// Close detaches from the hub and closes the socket. Safe to call more than
// once.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.playing {
		s.hub.DonePlay(s)
	}
	s.sessions.Remove(s)
	s.queue.Close()
	s.conn.Close()
	s.log.Info("session closed",
		"path", s.info.Path,
		"outBytes", s.info.OutBytes.Load())
}
