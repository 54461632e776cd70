package flv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brook/internal/core/av"
)

func TestParseTagClassification(t *testing.T) {
	tests := []struct {
		name    string
		tagType uint8
		data    []byte
		flags   uint8
		codecID uint32
	}{
		{"aac sequence header", TagAudio, []byte{0xaf, 0x00, 0x12, 0x10}, av.FlagAudioSequence, 10},
		{"aac frame", TagAudio, []byte{0xaf, 0x01, 0xff}, av.FlagAudioFrame, 10},
		{"mp3 frame", TagAudio, []byte{0x2f, 0xff}, av.FlagAudioFrame, 2},
		{"enhanced audio sequence start", TagAudio, []byte{0x90, 'm', 'p', '4', 'a'}, av.FlagAudioSequence, 9},
		{"enhanced audio frame", TagAudio, []byte{0x91, 'm', 'p', '4', 'a'}, av.FlagAudioFrame, 9},
		{"avc sequence header", TagVideo, []byte{0x17, 0x00, 0, 0, 0, 1, 2}, av.FlagVideoSequence, 7},
		{"avc keyframe", TagVideo, []byte{0x17, 0x01, 0, 0, 0, 0x65}, av.FlagKeyFrame, 7},
		{"avc inter frame", TagVideo, []byte{0x27, 0x01, 0, 0, 0, 0x41}, av.FlagInterFrame, 7},
		{"legacy non-avc keyframe stays inter", TagVideo, []byte{0x12, 0x01, 0, 0, 0}, av.FlagInterFrame, 2},
		{"hevc sequence start", TagVideo, []byte{0x80, 'h', 'v', 'c', '1'}, av.FlagVideoSequence, FourCCHEVC},
		{"hevc coded frames key", TagVideo, []byte{0x91, 'h', 'v', 'c', '1', 0, 0, 0}, av.FlagKeyFrame, FourCCHEVC},
		{"hevc coded frames x inter", TagVideo, []byte{0xa3, 'h', 'v', 'c', '1'}, av.FlagInterFrame, FourCCHEVC},
		{"av1 metadata", TagVideo, []byte{0x84, 'a', 'v', '0', '1'}, av.FlagVideoMetadata, FourCCAV1},
		{"vp9 keyframe", TagVideo, []byte{0x91, 'v', 'p', '0', '9'}, av.FlagKeyFrame, FourCCVP9},
		{"unknown fourcc passes through", TagVideo, []byte{0x91, 'x', 'y', 'z', 'w'}, av.FlagInterFrame, 0},
		{"script data", TagScript, []byte{0x02, 0x00, 0x0a}, av.FlagScriptData, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkt, err := ParseTag(tt.tagType, 1000, uint32(len(tt.data)), tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.flags, pkt.Flags)
			assert.Equal(t, tt.codecID, pkt.CodecID)
			assert.Equal(t, uint32(1000), pkt.DTS)
		})
	}
}

func TestParseTagCompositionTime(t *testing.T) {
	avc := []byte{0x17, 0x01, 0x00, 0x00, 0x28, 0x65}
	pkt, err := ParseTag(TagVideo, 500, uint32(len(avc)), avc)
	require.NoError(t, err)
	assert.Equal(t, uint32(500), pkt.DTS)
	assert.Equal(t, uint32(540), pkt.PTS)

	hevc := []byte{0x91, 'h', 'v', 'c', '1', 0x00, 0x00, 0x28, 0xff}
	pkt, err = ParseTag(TagVideo, 500, uint32(len(hevc)), hevc)
	require.NoError(t, err)
	assert.Equal(t, uint32(540), pkt.PTS)

	// CodedFramesX has no offset field.
	hevcX := []byte{0x93, 'h', 'v', 'c', '1', 0xff}
	pkt, err = ParseTag(TagVideo, 500, uint32(len(hevcX)), hevcX)
	require.NoError(t, err)
	assert.Equal(t, uint32(500), pkt.PTS)
}

func TestParseTagCopiesPayload(t *testing.T) {
	data := []byte{0xaf, 0x01, 0x42}
	pkt, err := ParseTag(TagAudio, 0, 3, data)
	require.NoError(t, err)
	data[2] = 0x00
	assert.Equal(t, byte(0x42), pkt.Data[2])
}

func TestParseTagErrors(t *testing.T) {
	_, err := ParseTag(TagVideo, 0, 2, []byte{0x17, 0x01})
	assert.ErrorIs(t, err, ErrShortTag)

	_, err = ParseTag(TagAudio, 0, 0, nil)
	assert.ErrorIs(t, err, ErrShortTag)

	_, err = ParseTag(7, 0, 1, []byte{0})
	assert.Error(t, err)
}
