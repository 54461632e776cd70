package rtmp

import (
	"encoding/binary"
	"log/slog"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"brook/internal/core/av"
	"brook/internal/core/protocol/amf0"
	"brook/internal/core/protocol/flv"
)

// ConnectRequest carries the identity a peer negotiated over connect plus
// publish or play.
type ConnectRequest struct {
	App   string
	Name  string
	Host  string
	Query url.Values
}

// Handler receives everything the engine produces. OnOutput hands over bytes
// to write to the peer; it is called from within Parse, so implementations
// must queue rather than block. OnConnect fires once the peer has issued
// publish or play, immediately followed by OnPush or OnPlay.
type Handler interface {
	av.PacketHandler
	OnOutput(data []byte)
	OnConnect(req *ConnectRequest)
	OnPlay()
	OnPush()
}

// Engine is a server-side RTMP session protocol machine. It consumes raw
// bytes in arbitrary fragments and never touches a socket.
type Engine struct {
	handler Handler

	handshakeState   int
	handshakeBytes   int
	handshakePayload [handshakeSize]byte

	parserState int
	parserBuf   [maxChunkHeader]byte
	parserBytes uint32
	basicBytes  uint32
	packet      *chunkPacket
	arena       chunkArena

	inChunkSize  uint32
	outChunkSize uint32
	ackSize      uint32
	streams      uint32

	app            string
	host           string
	objectEncoding float64

	name     string
	query    url.Values
	streamID uint32
}

// NewEngine returns an engine delivering to handler.
func NewEngine(handler Handler) *Engine {
	return &Engine{
		handler:      handler,
		packet:       &chunkPacket{},
		inChunkSize:  defaultChunkSize,
		outChunkSize: maxChunkSize,
	}
}

// Parse consumes data. Any queued output has been delivered through the
// handler by the time it returns.
func (e *Engine) Parse(data []byte) error {
	for len(data) > 0 {
		switch e.handshakeState {
		case handshakeUninit:
			// C0: the version byte.
			e.handshakeState = handshakeC0
			e.handshakeBytes = 0
			data = data[1:]

		case handshakeC0:
			n := copy(e.handshakePayload[e.handshakeBytes:], data)
			e.handshakeBytes += n
			data = data[n:]
			if e.handshakeBytes == handshakeSize {
				e.handshakeState = handshakeC1
				e.handshakeBytes = 0
				e.handler.OnOutput(generateS0S1S2(e.handshakePayload[:]))
			}

		case handshakeC1:
			// C2 is counted and discarded.
			n := handshakeSize - e.handshakeBytes
			if n > len(data) {
				n = len(data)
			}
			e.handshakeBytes += n
			data = data[n:]
			if e.handshakeBytes == handshakeSize {
				e.handshakeState = handshakeDone
				e.handshakeBytes = 0
			}

		default:
			return e.chunkRead(data)
		}
	}
	return nil
}

func (e *Engine) chunkRead(data []byte) error {
	var off uint32
	total := uint32(len(data))
	for off < total {
		switch e.parserState {
		case parseInit:
			b := data[off]
			off++
			e.parserBuf[0] = b
			e.parserBytes = 1
			switch b & 0x3f {
			case 0:
				e.basicBytes = 2
			case 1:
				e.basicBytes = 3
			default:
				e.basicBytes = 1
			}
			e.parserState = parseBasicHeader

		case parseBasicHeader:
			for e.parserBytes < e.basicBytes && off < total {
				e.parserBuf[e.parserBytes] = data[off]
				e.parserBytes++
				off++
			}
			if e.parserBytes >= e.basicBytes {
				e.parserState = parseMessageHeader
			}

		case parseMessageHeader:
			size := headerSizes[e.parserBuf[0]>>6] + e.basicBytes
			for e.parserBytes < size && off < total {
				e.parserBuf[e.parserBytes] = data[off]
				e.parserBytes++
				off++
			}
			if e.parserBytes >= size {
				e.packetParse()
				e.parserState = parseExtendedTimestamp
			}

		case parseExtendedTimestamp:
			size := headerSizes[e.packet.header.Fmt] + e.basicBytes
			if e.packet.header.Timestamp == 0xffffff {
				size += 4
			}
			for e.parserBytes < size && off < total {
				e.parserBuf[e.parserBytes] = data[off]
				e.parserBytes++
				off++
			}
			if e.parserBytes >= size {
				timestamp := uint64(e.packet.header.Timestamp)
				if e.packet.header.Timestamp == 0xffffff {
					timestamp = uint64(binary.BigEndian.Uint32(
						e.parserBuf[headerSizes[e.packet.header.Fmt]+e.basicBytes:]))
				}
				if e.packet.bytes == 0 {
					if e.packet.header.Fmt == 0 {
						e.packet.clock = timestamp
					} else {
						e.packet.clock += timestamp
					}
					e.packet.alloc()
				}
				e.parserState = parsePayload
			}

		case parsePayload:
			size := e.inChunkSize - e.packet.bytes%e.inChunkSize
			if left := e.packet.header.Length - e.packet.bytes; size > left {
				size = left
			}
			if avail := total - off; size > avail {
				size = avail
			}
			if size > 0 {
				copy(e.packet.payload[e.packet.bytes:], data[off:off+size])
			}
			e.packet.bytes += size
			off += size

			if e.packet.bytes >= e.packet.header.Length {
				e.parserState = parseInit
				e.packet.bytes = 0
				if e.packet.clock > 0xffffffff {
					// Overflowed delta accumulation poisons the stream; drop.
					break
				}
				if err := e.packetHandler(); err != nil {
					return err
				}
			} else if e.packet.bytes%e.inChunkSize == 0 {
				e.parserState = parseInit
			}
		}
	}
	return nil
}

// packetParse resolves the chunk stream for the basic header just read and
// folds the new message header fields into its inherited state.
func (e *Engine) packetParse() {
	fmt := e.parserBuf[0] >> 6
	var cid uint32
	switch e.basicBytes {
	case 2:
		cid = 64 + uint32(e.parserBuf[1])
	case 3:
		cid = 64 + uint32(e.parserBuf[1]) + uint32(e.parserBuf[2])<<8
	default:
		cid = uint32(e.parserBuf[0] & 0x3f)
	}
	e.packet = e.arena.get(cid)
	e.packet.header.Fmt = fmt
	e.packet.header.CID = cid

	off := e.basicBytes
	if fmt <= 2 {
		e.packet.header.Timestamp = uint32(e.parserBuf[off])<<16 |
			uint32(e.parserBuf[off+1])<<8 | uint32(e.parserBuf[off+2])
		off += 3
	}
	if fmt <= 1 {
		e.packet.header.Length = uint32(e.parserBuf[off])<<16 |
			uint32(e.parserBuf[off+1])<<8 | uint32(e.parserBuf[off+2])
		e.packet.header.Type = e.parserBuf[off+3]
		off += 4
	}
	if fmt == 0 {
		e.packet.header.StreamID = binary.LittleEndian.Uint32(e.parserBuf[off:])
	}
}

func (e *Engine) packetHandler() error {
	switch e.packet.header.Type {
	case typeSetChunkSize, typeAbort, typeAcknowledgement, typeWindowAckSize, typeSetPeerBandwidth:
		e.controlHandler()
		return nil
	case typeEvent:
		// User control events carry nothing the server acts on.
		return nil
	case typeFlexMessage, typeInvoke:
		return e.invokeHandler()
	case typeAudio, typeVideo, typeFlexStream, typeData:
		return e.dataHandler()
	}
	return nil
}

func (e *Engine) controlHandler() {
	// Control payloads are fixed-width; anything shorter is a peer bug and
	// carries nothing to read.
	if e.packet.header.Length < 4 {
		return
	}
	payload := e.packet.payload
	switch e.packet.header.Type {
	case typeSetChunkSize:
		size := binary.BigEndian.Uint32(payload)
		if size < 1 {
			slog.Debug("ignoring invalid chunk size", "size", size)
			return
		}
		e.inChunkSize = size
	case typeWindowAckSize:
		e.ackSize = binary.BigEndian.Uint32(payload)
	}
}

func (e *Engine) invokeHandler() error {
	payload := e.packet.payload[:e.packet.header.Length]
	if e.packet.header.Type == typeFlexMessage {
		// AMF3 command messages open with a format byte; the body is AMF0.
		if len(payload) < 1 {
			return nil
		}
		payload = payload[1:]
	}
	cmd, err := amf0.DecodeCommand(payload)
	if err != nil {
		return errors.Wrap(err, "invoke")
	}
	switch cmd.Name {
	case "connect":
		return e.onConnect(cmd)
	case "createStream":
		e.onCreateStream(cmd)
	case "publish":
		e.onPublish(cmd)
	case "play":
		e.onPlay(cmd)
	case "deleteStream":
	default:
		slog.Debug("unhandled invoke message", "cmd", cmd.Name)
	}
	return nil
}

// dataHandler forwards audio, video and script payloads through the FLV tag
// classifier; RTMP message types match FLV tag types, so the payloads are
// interchangeable.
func (e *Engine) dataHandler() error {
	if e.packet.header.Type == typeFlexStream {
		// AMF3 data messages are not decoded.
		slog.Debug("skipping flex stream message", "length", e.packet.header.Length)
		return nil
	}
	pkt, err := flv.ParseTag(e.packet.header.Type, uint32(e.packet.clock),
		e.packet.header.Length, e.packet.payload)
	if err != nil {
		return err
	}
	e.handler.OnPacket(pkt)
	return nil
}

func (e *Engine) onConnect(cmd *amf0.Command) error {
	cmdObj := cmd.Object("cmdObj")
	if cmdObj == nil {
		return errors.New("rtmp: connect without command object")
	}
	tc, err := url.Parse(cmdObj.GetString("tcUrl"))
	if err != nil {
		return errors.Wrap(err, "connect tcUrl")
	}
	e.app = cmdObj.GetString("app")
	e.host = tc.Hostname()
	e.objectEncoding = 0
	if v, ok := cmdObj.Get("objectEncoding"); ok {
		if enc, ok := v.(float64); ok {
			e.objectEncoding = enc
		}
	}
	e.SendWindowACK(5000000)
	e.SetPeerBandwidth(5000000, 2)
	e.SetChunkSize(e.outChunkSize)
	e.respondConnect(cmd.Number("transId"))
	return nil
}

func (e *Engine) onCreateStream(cmd *amf0.Command) {
	e.respondCreateStream(cmd.Number("transId"))
}

// splitStreamName separates the stream key from its query string.
func splitStreamName(streamName string) (string, url.Values) {
	name, rawQuery, _ := strings.Cut(streamName, "?")
	query, _ := url.ParseQuery(rawQuery)
	return name, query
}

func (e *Engine) onPublish(cmd *amf0.Command) {
	e.name, e.query = splitStreamName(cmd.String("streamName"))
	e.streamID = e.packet.header.StreamID
	e.respondPublish()
	e.handler.OnConnect(&ConnectRequest{App: e.app, Name: e.name, Host: e.host, Query: e.query})
	e.handler.OnPush()
}

func (e *Engine) onPlay(cmd *amf0.Command) {
	e.name, e.query = splitStreamName(cmd.String("streamName"))
	e.streamID = e.packet.header.StreamID
	e.respondPlay()
	e.handler.OnConnect(&ConnectRequest{App: e.app, Name: e.name, Host: e.host, Query: e.query})
	e.handler.OnPlay()
}
