package bus

import "sync"

// Registry owns the hubs, one per stream path. Hubs outlive their publisher
// so that subscribers can wait on a path before the stream starts.
type Registry struct {
	mu     sync.Mutex
	hubs   map[string]*Hub
	auth   AuthOptions
	events *Events
}

func NewRegistry(auth AuthOptions, events *Events) *Registry {
	return &Registry{
		hubs:   make(map[string]*Hub),
		auth:   auth,
		events: events,
	}
}

// GetOrCreate returns the hub for path, creating it on first use.
func (r *Registry) GetOrCreate(path string) *Hub {
	r.mu.Lock()
	defer r.mu.Unlock()
	hub := r.hubs[path]
	if hub == nil {
		hub = newHub(path, r.auth, r.events)
		r.hubs[path] = hub
	}
	return hub
}

// Get returns the hub for path if one exists.
func (r *Registry) Get(path string) (*Hub, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hub, ok := r.hubs[path]
	return hub, ok
}

// Len returns the number of known paths.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hubs)
}

// SessionTable tracks every live session by id for the API services.
type SessionTable struct {
	mu       sync.Mutex
	sessions map[string]Session
}

func NewSessionTable() *SessionTable {
	return &SessionTable{sessions: make(map[string]Session)}
}

func (t *SessionTable) Add(s Session) {
	t.mu.Lock()
	t.sessions[s.Info().ID] = s
	t.mu.Unlock()
}

func (t *SessionTable) Remove(s Session) {
	t.mu.Lock()
	delete(t.sessions, s.Info().ID)
	t.mu.Unlock()
}

func (t *SessionTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// CountByProtocol tallies live sessions per transport protocol.
func (t *SessionTable) CountByProtocol() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	counts := make(map[string]int)
	for _, s := range t.sessions {
		counts[s.Info().Protocol]++
	}
	return counts
}
