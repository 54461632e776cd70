package rtmp

import (
	"log/slog"
	"net"

	"go.uber.org/atomic"

	"brook/internal/core/av"
	"brook/internal/core/bus"
	rtmpprotocol "brook/internal/core/protocol/rtmp"
)

const readBufferSize = 4096

// Session adapts one RTMP connection to the bus. The read goroutine feeds the
// protocol engine; a writer goroutine drains the send queue into the socket.
type Session struct {
	conn     net.Conn
	info     *bus.SessionInfo
	engine   *rtmpprotocol.Engine
	registry *bus.Registry
	sessions *bus.SessionTable
	queue    *bus.SendQueue
	log      *slog.Logger

	hub        *bus.Hub
	publishing bool
	playing    bool
	closed     atomic.Bool
}

func newSession(conn net.Conn, registry *bus.Registry, sessions *bus.SessionTable) *Session {
	ip := ""
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		ip = addr.IP.String()
	}
	s := &Session{
		conn:     conn,
		info:     bus.NewSessionInfo("rtmp", ip),
		registry: registry,
		sessions: sessions,
		queue:    bus.NewSendQueue(),
	}
	s.engine = rtmpprotocol.NewEngine(s)
	s.log = slog.With("protocol", "rtmp", "id", s.info.ID, "ip", ip)
	return s
}

// serve runs the session to completion. It owns the connection and always
// closes it before returning.
func (s *Session) serve() {
	s.sessions.Add(s)
	s.log.Info("session started")

	go func() {
		if err := s.queue.Drain(s.write); err != nil {
			s.log.Debug("write failed", "err", err)
		}
		s.Close()
	}()

	buf := make([]byte, readBufferSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			s.info.InBytes.Add(uint64(n))
			if perr := s.engine.Parse(buf[:n]); perr != nil {
				s.log.Warn("protocol error", "err", perr)
				break
			}
		}
		if err != nil {
			break
		}
	}
	s.Close()
}

func (s *Session) write(data []byte) error {
	_, err := s.conn.Write(data)
	return err
}

// Info implements bus.Session.
func (s *Session) Info() *bus.SessionInfo {
	return s.info
}

// SendBuffer implements bus.Session. Queue saturation tears the session down;
// a subscriber that cannot keep up must not stall the hub.
func (s *Session) SendBuffer(data []byte) {
	if err := s.queue.Push(data); err != nil {
		s.Close()
		return
	}
	s.info.OutBytes.Add(uint64(len(data)))
}

// Close tears the session down once: hub detach, table removal, queue and
// socket close. Safe from any goroutine.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.hub != nil {
		if s.publishing {
			s.hub.DonePublish(s)
		}
		if s.playing {
			s.hub.DonePlay(s)
		}
	}
	s.sessions.Remove(s)
	s.queue.Close()
	s.conn.Close()
	s.log.Info("session closed",
		"path", s.info.Path,
		"inBytes", s.info.InBytes.Load(),
		"outBytes", s.info.OutBytes.Load())
}

// OnOutput queues protocol bytes for the peer. Protocol traffic does not count
// toward OutBytes, which tracks media only.
func (s *Session) OnOutput(data []byte) {
	if err := s.queue.Push(data); err != nil {
		s.Close()
	}
}

// OnConnect binds the session to its hub once the stream identity is known.
func (s *Session) OnConnect(req *rtmpprotocol.ConnectRequest) {
	s.info.SetStream(req.Host, req.App, req.Name, req.Query)
	s.hub = s.registry.GetOrCreate(s.info.Path)
	s.log = s.log.With("path", s.info.Path)
}

// OnPush admits the session as the publisher of its hub.
func (s *Session) OnPush() {
	if err := s.hub.PostPublish(s); err != nil {
		s.log.Warn("publish rejected", "err", err)
		s.Close()
		return
	}
	s.publishing = true
	s.log.Info("publish started")
}

// OnPlay attaches the session as a subscriber of its hub.
func (s *Session) OnPlay() {
	if err := s.hub.PostPlay(s); err != nil {
		s.log.Warn("play rejected", "err", err)
		s.Close()
		return
	}
	s.playing = true
	s.log.Info("play started")
}

// OnPacket forwards published media to the hub.
func (s *Session) OnPacket(pkt *av.Packet) {
	if s.publishing {
		s.hub.Broadcast(pkt)
	}
}
