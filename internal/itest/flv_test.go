package itest

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brook/internal/core/av"
	"brook/internal/core/protocol/flv"
)

// TestPublishPlayRoundTrip publishes an FLV stream over POST and plays it
// back over GET while the publisher is still live.
func TestPublishPlayRoundTrip(t *testing.T) {
	ts := startServer(t, nil)
	streamURL := ts.httpBase + "/live/stream.flv"

	pr, pw := io.Pipe()
	go http.Post(streamURL, "video/x-flv", pr)
	defer pw.Close()

	keyframe := &av.Packet{
		CodecType: av.TypeVideo,
		Flags:     av.FlagKeyFrame,
		Data:      []byte{0x17, 0x01, 0x00, 0x00, 0x00, 0xaa, 0xbb},
	}
	_, err := pw.Write(flv.CreateHeader(true, true))
	require.NoError(t, err)
	_, err = pw.Write(flv.CreateMessage(keyframe))
	require.NoError(t, err)

	// The hub appears once the POST reaches the server; retry until then.
	var resp *http.Response
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err = http.Get(streamURL)
		if err == nil && resp.StatusCode == http.StatusOK {
			break
		}
		if resp != nil {
			resp.Body.Close()
			resp = nil
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NotNil(t, resp, "stream never became playable")
	defer resp.Body.Close()

	require.Equal(t, "video/x-flv", resp.Header.Get("Content-Type"))

	// Container header followed by the cached keyframe tag.
	head := make([]byte, 13+11)
	_, err = io.ReadFull(resp.Body, head)
	require.NoError(t, err)
	assert.Equal(t, []byte{'F', 'L', 'V'}, head[:3])
	assert.Equal(t, byte(9), head[13], "first tag should be video")
}
