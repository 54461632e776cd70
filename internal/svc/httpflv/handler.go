// Package httpflv serves live streams over HTTP: GET /{app}/{name}.flv plays
// a stream as a chunked FLV response, POST to the same path publishes one.
package httpflv

import (
	"net/http"
	"strings"

	"brook/internal/core/bus"
)

// Handler routes FLV requests to hubs.
type Handler struct {
	registry *bus.Registry
	sessions *bus.SessionTable
}

// NewHandler creates an FLV handler over the shared registry.
func NewHandler(registry *bus.Registry, sessions *bus.SessionTable) *Handler {
	return &Handler{
		registry: registry,
		sessions: sessions,
	}
}

// Match reports whether this handler should serve the request path.
func Match(urlPath string) bool {
	return strings.HasSuffix(urlPath, ".flv")
}

// splitStreamPath extracts app and name from /{app}/{name}.flv.
func splitStreamPath(urlPath string) (app, name string, ok bool) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(urlPath, "/"), ".flv")
	app, name, found := strings.Cut(trimmed, "/")
	if !found || app == "" || name == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	return app, name, true
}

// ServeHTTP handles play (GET) and publish (POST) for a stream path.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	app, name, ok := splitStreamPath(r.URL.Path)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	path := "/" + app + "/" + name

	switch r.Method {
	case http.MethodGet:
		// Play requires the stream to exist already.
		hub, found := h.registry.Get(path)
		if !found {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		session := newSession(r, hub, h.sessions)
		session.info.SetStream(r.Host, app, name, r.URL.Query())
		session.servePlay(w, r)

	case http.MethodPost:
		hub := h.registry.GetOrCreate(path)
		session := newSession(r, hub, h.sessions)
		session.info.SetStream(r.Host, app, name, r.URL.Query())
		session.servePublish(w, r)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
