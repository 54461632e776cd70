// Package rtmp accepts RTMP and RTMPS connections and runs one Session per
// peer against the shared bus.
package rtmp

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"

	"brook/internal/config"
	"brook/internal/core/bus"
)

// Server owns the plain and TLS listeners.
type Server struct {
	cfg      *config.Config
	registry *bus.Registry
	sessions *bus.SessionTable

	listener    net.Listener
	tlsListener net.Listener
}

// New creates the server. Listeners are not opened until Start.
func New(cfg *config.Config, registry *bus.Registry, sessions *bus.SessionTable) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		sessions: sessions,
	}
}

// Start opens the configured listeners and begins accepting. It returns once
// the listeners are bound; accept loops run on their own goroutines.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Bind, s.cfg.RTMP.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("rtmp listen on %s: %w", addr, err)
	}
	s.listener = listener
	slog.Info("rtmp server listening", "addr", addr)
	go s.acceptLoop(listener)

	if s.cfg.RTMPS != nil {
		cert, err := tls.LoadX509KeyPair(s.cfg.RTMPS.Cert, s.cfg.RTMPS.Key)
		if err != nil {
			listener.Close()
			return fmt.Errorf("rtmps key pair: %w", err)
		}
		tlsAddr := fmt.Sprintf("%s:%d", s.cfg.Bind, s.cfg.RTMPS.Port)
		tlsListener, err := tls.Listen("tcp", tlsAddr, &tls.Config{
			Certificates: []tls.Certificate{cert},
		})
		if err != nil {
			listener.Close()
			return fmt.Errorf("rtmps listen on %s: %w", tlsAddr, err)
		}
		s.tlsListener = tlsListener
		slog.Info("rtmps server listening", "addr", tlsAddr)
		go s.acceptLoop(tlsListener)
	}
	return nil
}

func (s *Server) acceptLoop(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		go newSession(conn, s.registry, s.sessions).serve()
	}
}

// Shutdown closes the listeners. Established sessions are left to finish on
// their own sockets.
func (s *Server) Shutdown() {
	if s.listener != nil {
		s.listener.Close()
	}
	if s.tlsListener != nil {
		s.tlsListener.Close()
	}
}
