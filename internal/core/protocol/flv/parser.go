package flv

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"brook/internal/core/av"
)

// ErrFraming reports a PreviousTagSize that disagrees with the tag it
// follows. The offending tag is dropped; the parser stays aligned on the next
// tag header, so callers may keep feeding bytes.
var ErrFraming = errors.New("flv: previous tag size mismatch")

const (
	fileHeaderSize = 13 // 9-byte header plus the first PreviousTagSize
	tagHeaderSize  = 11
	prevSizeLen    = 4

	initialTagCapacity = 1 << 20
)

const (
	stateFileHeader = iota
	stateTagHeader
	stateTagData
	statePrevSize
)

// Parser is an incremental FLV demuxer. Feed it byte slices of any size, in
// any fragmentation; each completed tag is classified and handed to the
// packet handler. Parser state survives across calls, so splitting the input
// differently never changes the output.
type Parser struct {
	handler av.PacketHandler

	state     int
	header    [fileHeaderSize]byte
	headerGot int

	tagType uint8
	tagSize uint32
	tagTime uint32
	tagBuf  []byte
	tagGot  uint32
}

// NewParser returns a parser expecting a full FLV stream, file header first.
func NewParser(handler av.PacketHandler) *Parser {
	return &Parser{
		handler: handler,
		tagBuf:  make([]byte, initialTagCapacity),
	}
}

// fill accumulates bytes from p into the header scratch until need bytes are
// buffered, returning the count consumed and whether the field is complete.
func (pr *Parser) fill(p []byte, need int) (int, bool) {
	n := copy(pr.header[pr.headerGot:need], p)
	pr.headerGot += n
	if pr.headerGot < need {
		return n, false
	}
	pr.headerGot = 0
	return n, true
}

// Parse consumes p. On a framing error the parser is already positioned at
// the next tag header.
func (pr *Parser) Parse(p []byte) error {
	for len(p) > 0 {
		switch pr.state {
		case stateFileHeader:
			n, done := pr.fill(p, fileHeaderSize)
			p = p[n:]
			if done {
				pr.state = stateTagHeader
			}

		case stateTagHeader:
			n, done := pr.fill(p, tagHeaderSize)
			p = p[n:]
			if !done {
				break
			}
			pr.tagType = pr.header[0]
			pr.tagSize = uint32(pr.header[1])<<16 | uint32(pr.header[2])<<8 | uint32(pr.header[3])
			pr.tagTime = uint32(pr.header[4])<<16 | uint32(pr.header[5])<<8 |
				uint32(pr.header[6]) | uint32(pr.header[7])<<24
			if uint32(len(pr.tagBuf)) < pr.tagSize {
				grown := make([]byte, pr.tagSize*2)
				copy(grown, pr.tagBuf)
				pr.tagBuf = grown
			}
			pr.tagGot = 0
			pr.state = stateTagData

		case stateTagData:
			n := copy(pr.tagBuf[pr.tagGot:pr.tagSize], p)
			pr.tagGot += uint32(n)
			p = p[n:]
			if pr.tagGot == pr.tagSize {
				pr.state = statePrevSize
			}

		case statePrevSize:
			n, done := pr.fill(p, prevSizeLen)
			p = p[n:]
			if !done {
				break
			}
			prev := binary.BigEndian.Uint32(pr.header[:prevSizeLen])
			pr.state = stateTagHeader
			if prev != pr.tagSize+tagHeaderSize {
				return errors.Wrapf(ErrFraming, "got %d, want %d", prev, pr.tagSize+tagHeaderSize)
			}
			pkt, err := ParseTag(pr.tagType, pr.tagTime, pr.tagSize, pr.tagBuf)
			if err != nil {
				return err
			}
			pr.handler.OnPacket(pkt)
		}
	}
	return nil
}
