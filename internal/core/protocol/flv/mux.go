package flv

import (
	"encoding/binary"

	"brook/internal/core/av"
)

// CreateHeader builds the 13-byte FLV file header (including the zero
// PreviousTagSize) advertising the given track presence.
func CreateHeader(hasAudio, hasVideo bool) []byte {
	header := make([]byte, fileHeaderSize)
	header[0] = 'F'
	header[1] = 'L'
	header[2] = 'V'
	header[3] = 1
	if hasAudio {
		header[4] |= 4
	}
	if hasVideo {
		header[4] |= 1
	}
	header[8] = 9
	return header
}

// CreateMessage frames a packet as one complete FLV tag: 11-byte header,
// payload, and the trailing PreviousTagSize. The tag timestamp is the DTS in
// FLV byte order, with the extension byte last.
func CreateMessage(pkt *av.Packet) []byte {
	size := uint32(pkt.Size())
	msg := make([]byte, tagHeaderSize+size+prevSizeLen)
	msg[0] = pkt.CodecType
	msg[1] = byte(size >> 16)
	msg[2] = byte(size >> 8)
	msg[3] = byte(size)
	msg[4] = byte(pkt.DTS >> 16)
	msg[5] = byte(pkt.DTS >> 8)
	msg[6] = byte(pkt.DTS)
	msg[7] = byte(pkt.DTS >> 24)
	copy(msg[tagHeaderSize:], pkt.Data)
	binary.BigEndian.PutUint32(msg[tagHeaderSize+size:], tagHeaderSize+size)
	return msg
}
