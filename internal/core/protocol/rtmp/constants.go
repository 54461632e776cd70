// Package rtmp implements the server side of the RTMP wire protocol as a
// byte-fed engine: handshake (simple and digest variants), chunk-stream
// demultiplexing, control and command handling, and chunk serialization for
// outbound messages. The engine performs no I/O; a transport adapter feeds it
// received bytes and carries engine output back to the peer.
package rtmp

const handshakeSize = 1536

// Handshake states.
const (
	handshakeUninit = iota
	handshakeC0
	handshakeC1
	handshakeDone
)

// Chunk parser states.
const (
	parseInit = iota
	parseBasicHeader
	parseMessageHeader
	parseExtendedTimestamp
	parsePayload
)

const maxChunkHeader = 18

// Chunk stream ids used for outbound messages.
const (
	channelInvoke = 3
	channelAudio  = 4
	channelVideo  = 5
	channelData   = 6
)

// Message header sizes by chunk fmt.
var headerSizes = [4]uint32{11, 7, 3, 0}

// Message types.
const (
	typeSetChunkSize     = 1
	typeAbort            = 2
	typeAcknowledgement  = 3
	typeEvent            = 4
	typeWindowAckSize    = 5
	typeSetPeerBandwidth = 6
	typeAudio            = 8
	typeVideo            = 9
	typeFlexStream       = 15
	typeFlexMessage      = 17
	typeData             = 18
	typeInvoke           = 20
)

const (
	defaultChunkSize = 128
	maxChunkSize     = 0xffff
)

const eventStreamBegin = 0
