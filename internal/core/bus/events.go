package bus

import "sync"

// Action names a lifecycle moment of a session.
type Action string

const (
	ActionPrePlay     Action = "prePlay"
	ActionPostPlay    Action = "postPlay"
	ActionDonePlay    Action = "donePlay"
	ActionPrePublish  Action = "prePublish"
	ActionPostPublish Action = "postPublish"
	ActionDonePublish Action = "donePublish"
)

// Observer is notified of session lifecycle actions. Calls happen on the
// session's own goroutine; observers must not block for long.
type Observer interface {
	OnSessionEvent(action Action, session Session)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(action Action, session Session)

func (f ObserverFunc) OnSessionEvent(action Action, session Session) {
	f(action, session)
}

// Events is a synchronous lifecycle broadcaster owned by the server.
type Events struct {
	mu        sync.RWMutex
	observers []Observer
}

func NewEvents() *Events {
	return &Events{}
}

// Subscribe registers an observer for all future events.
func (e *Events) Subscribe(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// Emit delivers the action to every observer in subscription order.
func (e *Events) Emit(action Action, session Session) {
	e.mu.RLock()
	observers := e.observers
	e.mu.RUnlock()
	for _, o := range observers {
		o.OnSessionEvent(action, session)
	}
}
