// Package wsflv plays live streams as FLV bytes over a WebSocket. The same
// /{app}/{name}.flv path serves plain HTTP and WebSocket peers; the server
// routes upgrade requests here.
package wsflv

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"brook/internal/core/bus"
)

// Handler upgrades FLV requests to a WebSocket subscription.
type Handler struct {
	registry *bus.Registry
	sessions *bus.SessionTable
	upgrader websocket.Upgrader
}

// NewHandler creates a WebSocket-FLV handler over the shared registry.
func NewHandler(registry *bus.Registry, sessions *bus.SessionTable) *Handler {
	return &Handler{
		registry: registry,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			// Players embed streams from anywhere; origin policy belongs to
			// the deployment's proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Match reports whether the request is a WebSocket upgrade for a stream path.
func Match(r *http.Request) bool {
	return strings.HasSuffix(r.URL.Path, ".flv") && websocket.IsWebSocketUpgrade(r)
}

func splitStreamPath(urlPath string) (app, name string, ok bool) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(urlPath, "/"), ".flv")
	app, name, found := strings.Cut(trimmed, "/")
	if !found || app == "" || name == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	return app, name, true
}

// ServeHTTP upgrades the connection and attaches it as a subscriber.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	app, name, ok := splitStreamPath(r.URL.Path)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	hub, found := h.registry.Get("/" + app + "/" + name)
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	session := newSession(conn, hub, h.sessions)
	session.info.SetStream(r.Host, app, name, r.URL.Query())
	session.serve()
}
