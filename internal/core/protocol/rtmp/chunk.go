package rtmp

import (
	"encoding/binary"

	"brook/internal/core/av"
)

// ChunkHeader is the decoded message header of a chunk stream. Fields keep
// their last-seen values across chunks, which is how compressed fmt 1-3
// headers inherit from earlier ones.
type ChunkHeader struct {
	Fmt       uint8
	CID       uint32
	Timestamp uint32
	Length    uint32
	Type      uint8
	StreamID  uint32
}

// chunkPacket is the per-chunk-stream reassembly state. The clock is widened
// beyond 32 bits so that delta overflow can be detected and the message
// dropped, as the protocol requires.
type chunkPacket struct {
	header  ChunkHeader
	clock   uint64
	payload []byte
	bytes   uint32
}

// chunkArena holds per-cid reassembly state. The common cids fit a small
// array; 3-byte basic headers spill into a lazily allocated map.
type chunkArena struct {
	slots    [64]*chunkPacket
	overflow map[uint32]*chunkPacket
}

func (a *chunkArena) get(cid uint32) *chunkPacket {
	if cid < uint32(len(a.slots)) {
		if a.slots[cid] == nil {
			a.slots[cid] = &chunkPacket{}
		}
		return a.slots[cid]
	}
	if a.overflow == nil {
		a.overflow = make(map[uint32]*chunkPacket)
	}
	pkt := a.overflow[cid]
	if pkt == nil {
		pkt = &chunkPacket{}
		a.overflow[cid] = pkt
	}
	return pkt
}

// packetAlloc sizes the reassembly buffer for the announced message length,
// with headroom to absorb small length changes without reallocating.
func (p *chunkPacket) alloc() {
	if uint32(len(p.payload)) < p.header.Length {
		p.payload = make([]byte, p.header.Length+1024)
	}
}

func chunkBasicHeader(fmt uint8, cid uint32) []byte {
	switch {
	case cid >= 64+255:
		return []byte{fmt<<6 | 1, byte(cid - 64), byte((cid - 64) >> 8)}
	case cid >= 64:
		return []byte{fmt << 6, byte(cid - 64)}
	default:
		return []byte{fmt<<6 | byte(cid)}
	}
}

func chunkMessageHeader(h *ChunkHeader) []byte {
	out := make([]byte, 0, headerSizes[h.Fmt&3])
	if h.Fmt <= 2 {
		ts := h.Timestamp
		if ts >= 0xffffff {
			ts = 0xffffff
		}
		out = append(out, byte(ts>>16), byte(ts>>8), byte(ts))
	}
	if h.Fmt <= 1 {
		out = append(out, byte(h.Length>>16), byte(h.Length>>8), byte(h.Length), h.Type)
	}
	if h.Fmt == 0 {
		out = binary.LittleEndian.AppendUint32(out, h.StreamID)
	}
	return out
}

// chunksCreate serializes one message as a type-0 chunk followed by type-3
// continuations at the maximum outbound chunk size. When the timestamp needs
// the extended field it is repeated after every chunk header.
func chunksCreate(h *ChunkHeader, payload []byte) []byte {
	basic3 := chunkBasicHeader(3, h.CID)
	useExtended := h.Timestamp >= 0xffffff

	out := chunkBasicHeader(h.Fmt, h.CID)
	out = append(out, chunkMessageHeader(h)...)
	if useExtended {
		out = binary.BigEndian.AppendUint32(out, h.Timestamp)
	}
	for len(payload) > maxChunkSize {
		out = append(out, payload[:maxChunkSize]...)
		payload = payload[maxChunkSize:]
		out = append(out, basic3...)
		if useExtended {
			out = binary.BigEndian.AppendUint32(out, h.Timestamp)
		}
	}
	return append(out, payload...)
}

// CreateMessage frames a packet as RTMP chunks on the fixed channel for its
// codec type, ready to write to a subscriber.
func CreateMessage(pkt *av.Packet) []byte {
	h := ChunkHeader{
		Fmt:       0,
		Timestamp: pkt.DTS,
		Length:    uint32(pkt.Size()),
		Type:      pkt.CodecType,
	}
	switch pkt.CodecType {
	case av.TypeAudio:
		h.CID = channelAudio
	case av.TypeVideo:
		h.CID = channelVideo
	case av.TypeScript:
		h.CID = channelData
	}
	return chunksCreate(&h, pkt.Data)
}
