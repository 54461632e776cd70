package httpflv

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brook/internal/core/av"
	"brook/internal/core/bus"
	"brook/internal/core/protocol/flv"
)

type publisherSession struct {
	info *bus.SessionInfo
}

func (s *publisherSession) Info() *bus.SessionInfo { return s.info }
func (s *publisherSession) SendBuffer([]byte)      {}
func (s *publisherSession) Close()                 {}

func newHandler() (*Handler, *bus.Registry) {
	registry := bus.NewRegistry(bus.AuthOptions{}, bus.NewEvents())
	return NewHandler(registry, bus.NewSessionTable()), registry
}

func TestSplitStreamPath(t *testing.T) {
	tests := []struct {
		urlPath   string
		app, name string
		ok        bool
	}{
		{"/live/stream.flv", "live", "stream", true},
		{"/live/stream", "live", "stream", true}, // suffix already trimmed by Match
		{"/stream.flv", "", "", false},
		{"/live/a/b.flv", "", "", false},
		{"/live/.flv", "", "", false},
		{"//stream.flv", "", "", false},
	}
	for _, tt := range tests {
		app, name, ok := splitStreamPath(tt.urlPath)
		assert.Equal(t, tt.ok, ok, tt.urlPath)
		if tt.ok {
			assert.Equal(t, tt.app, app)
			assert.Equal(t, tt.name, name)
		}
	}
}

func TestPlayUnknownStreamNotFound(t *testing.T) {
	handler, _ := newHandler()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live/missing.flv", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBadPathRejected(t *testing.T) {
	handler, _ := newHandler()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream.flv", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	handler, _ := newHandler()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/live/stream.flv", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPublishDemuxesBody(t *testing.T) {
	handler, registry := newHandler()

	// One audio tag wrapped in a complete FLV stream.
	pkt := &av.Packet{CodecType: av.TypeAudio, Flags: av.FlagAudioFrame, Data: []byte{0x2f, 0x01, 0x02}}
	body := append(flv.CreateHeader(true, true), flv.CreateMessage(pkt)...)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/live/stream.flv", bytes.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)

	// The hub exists and the publisher has already detached at EOF.
	hub, ok := registry.Get("/live/stream")
	require.True(t, ok)
	assert.Nil(t, hub.Publisher())
}

func TestPlayReceivesCachedStream(t *testing.T) {
	handler, registry := newHandler()
	hub := registry.GetOrCreate("/live/stream")

	pub := &publisherSession{info: bus.NewSessionInfo("rtmp", "10.0.0.1")}
	pub.info.SetStream("example.com", "live", "stream", nil)
	require.NoError(t, hub.PostPublish(pub))
	hub.Broadcast(&av.Packet{CodecType: av.TypeVideo, Flags: av.FlagKeyFrame, Data: []byte{0x17, 1, 2, 3, 4, 5}})

	req := httptest.NewRequest(http.MethodGet, "/live/stream.flv", nil)
	ctx, cancel := context.WithCancel(req.Context())
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		handler.ServeHTTP(rec, req)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return hub.SubscriberCount() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/x-flv", rec.Header().Get("Content-Type"))
	body := rec.Body.Bytes()
	require.GreaterOrEqual(t, len(body), 13)
	// Container header first, then the cached keyframe.
	assert.Equal(t, []byte{'F', 'L', 'V'}, body[:3])
	assert.Greater(t, len(body), 13)
	assert.Equal(t, 0, hub.SubscriberCount())
}

func TestPublishAuthRejected(t *testing.T) {
	registry := bus.NewRegistry(bus.AuthOptions{Publish: true, Secret: "s3cret"}, bus.NewEvents())
	handler := NewHandler(registry, bus.NewSessionTable())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/live/stream.flv", bytes.NewReader(nil)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
