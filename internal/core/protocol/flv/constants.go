// Package flv implements the FLV container: an incremental byte-stream parser
// that survives arbitrary fragmentation, a tag classifier producing normalized
// packets, and the muxer used to frame packets back into FLV tags.
package flv

// Tag types, equal to the RTMP message types for the same payload kind.
const (
	TagAudio  = 8
	TagVideo  = 9
	TagScript = 18
)

// Audio sound formats (upper nibble of the first audio payload byte).
const (
	SoundFormatExHeader = 9 // enhanced audio, fourCC follows
	SoundFormatAAC      = 10
)

// Legacy video codec ids (lower nibble of the first video payload byte).
const (
	VideoCodecAVC = 7
)

// Enhanced-header packet types (lower nibble of the first payload byte when
// the extended bit is set).
const (
	PacketTypeSequenceStart = 0
	PacketTypeCodedFrames   = 1
	PacketTypeCodedFramesX  = 3
	PacketTypeMetadata      = 4
)

const frameTypeKey = 1

// Video fourCC codes carried by enhanced headers.
var (
	FourCCAV1  = fourCC("av01")
	FourCCVP9  = fourCC("vp09")
	FourCCHEVC = fourCC("hvc1")
)

func fourCC(s string) uint32 {
	return uint32(s[0])<<24 | uint32(s[1])<<16 | uint32(s[2])<<8 | uint32(s[3])
}
