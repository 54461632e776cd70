package flv

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brook/internal/core/av"
)

type packetSink struct {
	packets []*av.Packet
}

func (s *packetSink) OnPacket(pkt *av.Packet) {
	s.packets = append(s.packets, pkt)
}

func avcFrame(key bool, dts uint32, payload ...byte) *av.Packet {
	first := byte(0x27)
	flags := uint8(av.FlagInterFrame)
	if key {
		first = 0x17
		flags = av.FlagKeyFrame
	}
	data := append([]byte{first, 1, 0, 0, 0}, payload...)
	return &av.Packet{CodecID: VideoCodecAVC, CodecType: av.TypeVideo, Flags: flags, PTS: dts, DTS: dts, Data: data}
}

func buildStream(packets ...*av.Packet) []byte {
	out := CreateHeader(true, true)
	for _, pkt := range packets {
		out = append(out, CreateMessage(pkt)...)
	}
	return out
}

func TestParserWholeStream(t *testing.T) {
	want := []*av.Packet{
		avcFrame(true, 0, 0xaa),
		avcFrame(false, 40, 0xbb, 0xcc),
		avcFrame(false, 80),
	}
	sink := &packetSink{}
	p := NewParser(sink)
	require.NoError(t, p.Parse(buildStream(want...)))
	require.Len(t, sink.packets, len(want))
	for i := range want {
		assert.Equal(t, want[i], sink.packets[i])
	}
}

func TestParserOneByteAtATime(t *testing.T) {
	stream := buildStream(
		avcFrame(true, 0, 1, 2, 3),
		avcFrame(false, 33),
	)
	whole := &packetSink{}
	require.NoError(t, NewParser(whole).Parse(stream))

	split := &packetSink{}
	p := NewParser(split)
	for i := range stream {
		require.NoError(t, p.Parse(stream[i:i+1]))
	}
	require.Len(t, split.packets, len(whole.packets))
	for i := range whole.packets {
		assert.Equal(t, whole.packets[i], split.packets[i])
	}
}

func TestParserUnevenFragments(t *testing.T) {
	stream := buildStream(
		avcFrame(true, 0, 9, 9, 9, 9, 9),
		avcFrame(false, 10),
		avcFrame(false, 20, 1),
	)
	sink := &packetSink{}
	p := NewParser(sink)
	for len(stream) > 0 {
		n := 7
		if n > len(stream) {
			n = len(stream)
		}
		require.NoError(t, p.Parse(stream[:n]))
		stream = stream[n:]
	}
	assert.Len(t, sink.packets, 3)
}

func TestParserFramingMismatchDropsTag(t *testing.T) {
	good := avcFrame(true, 0)
	bad := CreateMessage(avcFrame(false, 40))
	binary.BigEndian.PutUint32(bad[len(bad)-4:], 7) // corrupt PreviousTagSize

	stream := append(buildStream(good), bad...)
	sink := &packetSink{}
	p := NewParser(sink)
	err := p.Parse(stream)
	require.ErrorIs(t, err, ErrFraming)
	// Only the tag before the corruption was delivered.
	require.Len(t, sink.packets, 1)

	// The parser realigned on the next tag header and keeps working.
	require.NoError(t, p.Parse(CreateMessage(avcFrame(false, 80))))
	assert.Len(t, sink.packets, 2)
}

func TestParserGrowsTagBuffer(t *testing.T) {
	big := avcFrame(true, 0, make([]byte, 3<<20)...)
	sink := &packetSink{}
	p := NewParser(sink)
	require.NoError(t, p.Parse(buildStream(big)))
	require.Len(t, sink.packets, 1)
	assert.Equal(t, big.Size(), sink.packets[0].Size())
}

func TestParserTimestampByteOrder(t *testing.T) {
	// 0x01020304 does not fit in 24 bits; the high byte rides in the
	// extension slot after the low three.
	pkt := avcFrame(true, 0x01020304)
	sink := &packetSink{}
	require.NoError(t, NewParser(sink).Parse(buildStream(pkt)))
	require.Len(t, sink.packets, 1)
	assert.Equal(t, uint32(0x01020304), sink.packets[0].DTS)

	msg := CreateMessage(pkt)
	assert.Equal(t, []byte{0x02, 0x03, 0x04, 0x01}, msg[4:8])
}

func TestCreateHeaderFlags(t *testing.T) {
	assert.Equal(t, byte(5), CreateHeader(true, true)[4])
	assert.Equal(t, byte(4), CreateHeader(true, false)[4])
	assert.Equal(t, byte(1), CreateHeader(false, true)[4])
	header := CreateHeader(false, false)
	assert.Equal(t, []byte{'F', 'L', 'V', 1, 0, 0, 0, 0, 9, 0, 0, 0, 0}, header)
}

func TestCreateMessageFraming(t *testing.T) {
	pkt := &av.Packet{CodecType: av.TypeAudio, DTS: 100, Data: []byte{0xaf, 1, 2}}
	msg := CreateMessage(pkt)
	require.Len(t, msg, 11+3+4)
	assert.Equal(t, byte(av.TypeAudio), msg[0])
	assert.Equal(t, []byte{0, 0, 3}, msg[1:4])
	assert.Equal(t, uint32(14), binary.BigEndian.Uint32(msg[14:]))
}
