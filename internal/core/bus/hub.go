package bus

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"brook/internal/core/av"
	"brook/internal/core/protocol/flv"
	"brook/internal/core/protocol/rtmp"
)

// ErrPublisherExists reports a second publisher on an occupied path.
var ErrPublisherExists = errors.New("stream already has a publisher")

// gopCacheLimit bounds each GOP cache. A stream with this many messages
// between keyframes is misconfigured; both caches are emptied rather than
// grown without bound.
const gopCacheLimit = 4096

// Hub is the per-path broadcast state: one publisher, any number of
// subscribers, and the caches a late joiner needs to start decoding
// mid-stream. Every message is muxed once per container and fanned out as
// shared bytes.
type Hub struct {
	mu sync.Mutex

	path   string
	events *Events
	auth   AuthOptions

	publisher   Session
	subscribers map[string]Session

	flvHeader []byte

	flvMetaData    []byte
	flvAudioHeader []byte
	flvVideoHeader []byte

	rtmpMetaData    []byte
	rtmpAudioHeader []byte
	rtmpVideoHeader []byte

	// nil means inactive (no keyframe seen); an empty non-nil slice is an
	// active cache that collects until the next keyframe.
	flvGop  [][]byte
	rtmpGop [][]byte
}

func newHub(path string, auth AuthOptions, events *Events) *Hub {
	return &Hub{
		path:        path,
		events:      events,
		auth:        auth,
		subscribers: make(map[string]Session),
		flvHeader:   flv.CreateHeader(true, true),
	}
}

// Path returns the stream path this hub serves.
func (h *Hub) Path() string {
	return h.path
}

// PostPublish admits session as the publisher. Lifecycle events fire even
// when admission then fails on auth or an existing publisher.
func (h *Hub) PostPublish(session Session) error {
	info := session.Info()
	h.events.Emit(ActionPrePublish, session)

	if h.auth.Publish && !verifyAuth(h.auth.Secret, info.Path, info.Query) {
		return errors.Wrapf(ErrAuthFailed, "publish stream %s", info.Path)
	}
	h.events.Emit(ActionPostPublish, session)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.publisher != nil {
		return errors.Wrapf(ErrPublisherExists, "streamPath=%s", info.Path)
	}
	h.publisher = session
	return nil
}

// DonePublish retires session if it is the current publisher: headers are
// forgotten and both GOP caches are emptied but stay active.
func (h *Hub) DonePublish(session Session) {
	h.mu.Lock()
	if h.publisher != session {
		h.mu.Unlock()
		return
	}
	session.Info().EndTime = time.Now()
	h.publisher = nil
	h.flvMetaData = nil
	h.flvAudioHeader = nil
	h.flvVideoHeader = nil
	h.rtmpMetaData = nil
	h.rtmpAudioHeader = nil
	h.rtmpVideoHeader = nil
	if h.flvGop != nil {
		h.flvGop = h.flvGop[:0]
	}
	if h.rtmpGop != nil {
		h.rtmpGop = h.rtmpGop[:0]
	}
	h.mu.Unlock()

	h.events.Emit(ActionDonePublish, session)
}

// PostPlay admits session as a subscriber and replays the cached stream
// prefix: container header (FLV only), metadata, audio header, video header,
// then the GOP in arrival order. Internal sessions (empty ip) skip play
// events and authentication.
func (h *Hub) PostPlay(session Session) error {
	info := session.Info()
	external := info.IP != ""
	if external {
		h.events.Emit(ActionPrePlay, session)
	}
	if h.auth.Play && external {
		if !verifyAuth(h.auth.Secret, info.Path, info.Query) {
			return errors.Wrapf(ErrAuthFailed, "play stream %s", info.Path)
		}
	}
	if external {
		h.events.Emit(ActionPostPlay, session)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	switch info.Protocol {
	case "flv":
		session.SendBuffer(h.flvHeader)
		if h.flvMetaData != nil {
			session.SendBuffer(h.flvMetaData)
		}
		if h.flvAudioHeader != nil {
			session.SendBuffer(h.flvAudioHeader)
		}
		if h.flvVideoHeader != nil {
			session.SendBuffer(h.flvVideoHeader)
		}
		for _, msg := range h.flvGop {
			session.SendBuffer(msg)
		}
	case "rtmp":
		if h.rtmpMetaData != nil {
			session.SendBuffer(h.rtmpMetaData)
		}
		if h.rtmpAudioHeader != nil {
			session.SendBuffer(h.rtmpAudioHeader)
		}
		if h.rtmpVideoHeader != nil {
			session.SendBuffer(h.rtmpVideoHeader)
		}
		for _, msg := range h.rtmpGop {
			session.SendBuffer(msg)
		}
	}
	h.subscribers[info.ID] = session
	return nil
}

// DonePlay removes session from the fanout.
func (h *Hub) DonePlay(session Session) {
	info := session.Info()
	info.EndTime = time.Now()
	if info.IP != "" {
		h.events.Emit(ActionDonePlay, session)
	}
	h.mu.Lock()
	delete(h.subscribers, info.ID)
	h.mu.Unlock()
}

// Broadcast muxes the packet once per container, updates the caches according
// to its classification, and delivers to every subscriber.
func (h *Hub) Broadcast(pkt *av.Packet) {
	flvMessage := flv.CreateMessage(pkt)
	rtmpMessage := rtmp.CreateMessage(pkt)

	h.mu.Lock()
	switch pkt.Flags {
	case av.FlagAudioSequence:
		h.flvAudioHeader = flvMessage
		h.rtmpAudioHeader = rtmpMessage
	case av.FlagVideoSequence:
		h.flvVideoHeader = flvMessage
		h.rtmpVideoHeader = rtmpMessage
	case av.FlagScriptData:
		h.flvMetaData = flvMessage
		h.rtmpMetaData = rtmpMessage
	case av.FlagKeyFrame:
		// A keyframe starts a fresh GOP and activates the caches.
		h.flvGop = append(make([][]byte, 0, 64), flvMessage)
		h.rtmpGop = append(make([][]byte, 0, 64), rtmpMessage)
	case av.FlagAudioFrame, av.FlagInterFrame:
		if h.flvGop != nil {
			h.flvGop = append(h.flvGop, flvMessage)
		}
		if h.rtmpGop != nil {
			h.rtmpGop = append(h.rtmpGop, rtmpMessage)
		}
	}
	if len(h.flvGop) > gopCacheLimit {
		h.flvGop = h.flvGop[:0]
	}
	if len(h.rtmpGop) > gopCacheLimit {
		h.rtmpGop = h.rtmpGop[:0]
	}

	for _, sub := range h.subscribers {
		switch sub.Info().Protocol {
		case "flv":
			sub.SendBuffer(flvMessage)
		case "rtmp":
			sub.SendBuffer(rtmpMessage)
		}
	}
	h.mu.Unlock()
}

// Publisher returns the current publisher, or nil.
func (h *Hub) Publisher() Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.publisher
}

// SubscriberCount returns the number of attached subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
