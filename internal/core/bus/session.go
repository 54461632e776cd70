// Package bus connects publishers to subscribers. Each stream path owns a Hub
// that caches codec headers and the current GOP as pre-muxed FLV and RTMP
// bytes, fans live messages out to subscribers, and runs the
// publish/play lifecycle including token authentication and lifecycle events.
package bus

import (
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Session is the bus-facing side of a connected peer. SendBuffer must never
// block; transport adapters put a bounded queue behind it.
type Session interface {
	Info() *SessionInfo
	SendBuffer(data []byte)
	Close()
}

// SessionInfo is the shared identity and accounting of a session. The byte
// counters are written by transport goroutines and read by the API and notify
// services.
type SessionInfo struct {
	ID       string
	IP       string
	Protocol string

	Host  string
	App   string
	Name  string
	Path  string
	Query url.Values

	CreateTime time.Time
	EndTime    time.Time

	InBytes  atomic.Uint64
	OutBytes atomic.Uint64
}

// NewSessionInfo returns an info with a fresh id. An empty ip marks an
// internal session, which skips play authentication and play lifecycle
// events.
func NewSessionInfo(protocol, ip string) *SessionInfo {
	return &SessionInfo{
		ID:         uuid.NewString(),
		IP:         ip,
		Protocol:   protocol,
		CreateTime: time.Now(),
	}
}

// SetStream records the negotiated stream identity.
func (si *SessionInfo) SetStream(host, app, name string, query url.Values) {
	si.Host = host
	si.App = app
	si.Name = name
	si.Path = "/" + app + "/" + name
	si.Query = query
}
