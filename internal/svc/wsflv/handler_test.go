package wsflv

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brook/internal/core/av"
	"brook/internal/core/bus"
)

type publisherSession struct {
	info *bus.SessionInfo
}

func (s *publisherSession) Info() *bus.SessionInfo { return s.info }
func (s *publisherSession) SendBuffer([]byte)      {}
func (s *publisherSession) Close()                 {}

func TestMatch(t *testing.T) {
	plain := httptest.NewRequest(http.MethodGet, "/live/stream.flv", nil)
	assert.False(t, Match(plain))

	upgrade := httptest.NewRequest(http.MethodGet, "/live/stream.flv", nil)
	upgrade.Header.Set("Connection", "Upgrade")
	upgrade.Header.Set("Upgrade", "websocket")
	assert.True(t, Match(upgrade))

	wrongPath := httptest.NewRequest(http.MethodGet, "/api/server", nil)
	wrongPath.Header.Set("Connection", "Upgrade")
	wrongPath.Header.Set("Upgrade", "websocket")
	assert.False(t, Match(wrongPath))
}

func TestUnknownStreamNotFound(t *testing.T) {
	handler := NewHandler(bus.NewRegistry(bus.AuthOptions{}, bus.NewEvents()), bus.NewSessionTable())
	ts := httptest.NewServer(handler)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/live/missing.flv"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPlayStreamsBinaryFrames(t *testing.T) {
	registry := bus.NewRegistry(bus.AuthOptions{}, bus.NewEvents())
	hub := registry.GetOrCreate("/live/stream")

	pub := &publisherSession{info: bus.NewSessionInfo("rtmp", "10.0.0.1")}
	pub.info.SetStream("example.com", "live", "stream", nil)
	require.NoError(t, hub.PostPublish(pub))
	hub.Broadcast(&av.Packet{CodecType: av.TypeVideo, Flags: av.FlagKeyFrame, Data: []byte{0x17, 1, 2, 3, 4, 5}})

	handler := NewHandler(registry, bus.NewSessionTable())
	ts := httptest.NewServer(handler)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/live/stream.flv"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))

	// Replay starts with the container header, then the cached keyframe.
	msgType, first, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, msgType)
	require.GreaterOrEqual(t, len(first), 3)
	assert.Equal(t, []byte{'F', 'L', 'V'}, first[:3])

	_, second, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.NotEmpty(t, second)

	conn.Close()
	require.Eventually(t, func() bool {
		return hub.SubscriberCount() == 0
	}, time.Second, 5*time.Millisecond)
}
