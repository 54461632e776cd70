package rtmp

import (
	"encoding/binary"
	"fmt"

	"brook/internal/core/protocol/amf0"
)

// Protocol control messages ride chunk stream 2, message stream 0, as single
// type-0 chunks. Each sender fills a fixed template.

func controlMessage(msgType uint8, payload ...byte) []byte {
	out := []byte{
		0x02,
		0, 0, 0, // timestamp
		0, byte(len(payload) >> 8), byte(len(payload)), // length
		msgType,
		0, 0, 0, 0, // stream id
	}
	return append(out, payload...)
}

// SendACK acknowledges size received bytes.
func (e *Engine) SendACK(size uint32) {
	var p [4]byte
	binary.BigEndian.PutUint32(p[:], size)
	e.handler.OnOutput(controlMessage(typeAcknowledgement, p[:]...))
}

// SendWindowACK announces the acknowledgement window.
func (e *Engine) SendWindowACK(size uint32) {
	var p [4]byte
	binary.BigEndian.PutUint32(p[:], size)
	e.handler.OnOutput(controlMessage(typeWindowAckSize, p[:]...))
}

// SetPeerBandwidth asks the peer to limit its send rate. limitType 2 means
// dynamic.
func (e *Engine) SetPeerBandwidth(size uint32, limitType uint8) {
	var p [5]byte
	binary.BigEndian.PutUint32(p[:4], size)
	p[4] = limitType
	e.handler.OnOutput(controlMessage(typeSetPeerBandwidth, p[:]...))
}

// SetChunkSize announces the outbound chunk size.
func (e *Engine) SetChunkSize(size uint32) {
	var p [4]byte
	binary.BigEndian.PutUint32(p[:], size)
	e.handler.OnOutput(controlMessage(typeSetChunkSize, p[:]...))
}

// SendStreamStatus sends a user control event such as StreamBegin.
func (e *Engine) SendStreamStatus(event uint16, streamID uint32) {
	var p [6]byte
	binary.BigEndian.PutUint16(p[:2], event)
	binary.BigEndian.PutUint32(p[2:], streamID)
	e.handler.OnOutput(controlMessage(typeEvent, p[:]...))
}

func (e *Engine) sendInvokeMessage(streamID uint32, cmd *amf0.Command) {
	payload, err := amf0.EncodeCommand(cmd)
	if err != nil {
		return
	}
	h := ChunkHeader{
		Fmt:      0,
		CID:      channelInvoke,
		Type:     typeInvoke,
		Length:   uint32(len(payload)),
		StreamID: streamID,
	}
	e.handler.OnOutput(chunksCreate(&h, payload))
}

func (e *Engine) sendDataMessage(streamID uint32, cmd *amf0.Command) {
	payload, err := amf0.EncodeData(cmd)
	if err != nil {
		return
	}
	h := ChunkHeader{
		Fmt:      0,
		CID:      channelData,
		Type:     typeData,
		Length:   uint32(len(payload)),
		StreamID: streamID,
	}
	e.handler.OnOutput(chunksCreate(&h, payload))
}

func (e *Engine) sendStatusMessage(streamID uint32, level, code, description string) {
	e.sendInvokeMessage(streamID, &amf0.Command{
		Name: "onStatus",
		Fields: map[string]amf0.Value{
			"transId": float64(0),
			"cmdObj":  nil,
			"info": amf0.NewObject().
				Set("level", level).
				Set("code", code).
				Set("description", description),
		},
	})
}

func (e *Engine) sendRtmpSampleAccess(streamID uint32) {
	e.sendDataMessage(streamID, &amf0.Command{
		Name:   "|RtmpSampleAccess",
		Fields: map[string]amf0.Value{"bool1": false, "bool2": false},
	})
}

func (e *Engine) respondConnect(transID float64) {
	e.sendInvokeMessage(0, &amf0.Command{
		Name: "_result",
		Fields: map[string]amf0.Value{
			"transId": transID,
			"cmdObj": amf0.NewObject().
				Set("fmsVer", "FMS/3,0,1,123").
				Set("capabilities", float64(31)),
			"info": amf0.NewObject().
				Set("level", "status").
				Set("code", "NetConnection.Connect.Success").
				Set("description", "Connection succeeded.").
				Set("objectEncoding", e.objectEncoding),
		},
	})
}

func (e *Engine) respondCreateStream(transID float64) {
	e.streams++
	e.sendInvokeMessage(0, &amf0.Command{
		Name: "_result",
		Fields: map[string]amf0.Value{
			"transId": transID,
			"cmdObj":  nil,
			"info":    float64(e.streams),
		},
	})
}

func (e *Engine) respondPublish() {
	e.sendStatusMessage(e.streamID, "status", "NetStream.Publish.Start",
		fmt.Sprintf("/%s/%s is now published.", e.app, e.name))
}

func (e *Engine) respondPlay() {
	e.SendStreamStatus(eventStreamBegin, e.streamID)
	e.sendStatusMessage(e.streamID, "status", "NetStream.Play.Reset", "Playing and resetting stream.")
	e.sendStatusMessage(e.streamID, "status", "NetStream.Play.Start", "Started playing stream.")
	e.sendRtmpSampleAccess(e.streamID)
}
