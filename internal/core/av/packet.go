// Package av defines the normalized elementary-stream unit exchanged between
// the protocol engines and the broadcast layer.
package av

// Codec types carried by Packet.CodecType. The values match the FLV tag type
// and the RTMP message type for the same payload kind.
const (
	TypeAudio  = 8
	TypeVideo  = 9
	TypeScript = 18
)

// Flag values classify a packet for header caching and GOP handling.
const (
	FlagAudioSequence = 0 // audio sequence header (AAC config, extended sequence start)
	FlagAudioFrame    = 1 // coded audio frame
	FlagVideoSequence = 2 // video sequence header (SPS/PPS and friends)
	FlagKeyFrame      = 3 // coded video keyframe
	FlagInterFrame    = 4 // coded video inter frame
	FlagScriptData    = 5 // script/metadata tag
	FlagVideoMetadata = 6 // extended-header video metadata (HDR and similar)
)

// Packet is a demultiplexed elementary-stream unit. Data holds exactly the tag
// payload with no framing and must not be mutated after creation.
type Packet struct {
	CodecID   uint32
	CodecType uint8
	Flags     uint8
	PTS       uint32
	DTS       uint32
	Data      []byte
}

// Size returns the payload length in bytes.
func (p *Packet) Size() int {
	return len(p.Data)
}

// PacketHandler consumes packets emitted by a protocol engine. Implementations
// must not block; delivery to slow peers is the transport adapter's problem.
type PacketHandler interface {
	OnPacket(pkt *Packet)
}
