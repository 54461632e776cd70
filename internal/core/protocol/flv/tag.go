package flv

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"brook/internal/core/av"
)

// ErrShortTag reports a tag payload too small to carry its own codec header.
var ErrShortTag = errors.New("flv: tag payload too short")

// ParseTag classifies one complete tag payload into a packet. The payload is
// copied, so callers may reuse data. The tag timestamp becomes both PTS and
// DTS; video composition-time offsets are then added to the PTS.
func ParseTag(tagType uint8, timestamp uint32, size uint32, data []byte) (*av.Packet, error) {
	pkt := &av.Packet{
		CodecType: tagType,
		PTS:       timestamp,
		DTS:       timestamp,
		Data:      append([]byte(nil), data[:size]...),
	}
	switch tagType {
	case TagAudio:
		return parseAudio(pkt)
	case TagVideo:
		return parseVideo(pkt)
	case TagScript:
		pkt.Flags = av.FlagScriptData
		return pkt, nil
	default:
		return nil, errors.Errorf("flv: unknown tag type %d", tagType)
	}
}

// parseAudio reads the one-byte sound header. The codec id is the sound
// format even for enhanced audio, where the packet type decides whether this
// is a sequence start.
func parseAudio(pkt *av.Packet) (*av.Packet, error) {
	data := pkt.Data
	if len(data) < 1 {
		return nil, errors.Wrap(ErrShortTag, "audio")
	}
	soundFormat := data[0] >> 4
	pkt.CodecID = uint32(soundFormat)
	pkt.Flags = av.FlagAudioFrame
	switch {
	case soundFormat == SoundFormatExHeader:
		if data[0]&0x0f == PacketTypeSequenceStart {
			pkt.Flags = av.FlagAudioSequence
		}
	case soundFormat == SoundFormatAAC && len(data) > 1 && data[1] == 0:
		pkt.Flags = av.FlagAudioSequence
	}
	return pkt, nil
}

func parseVideo(pkt *av.Packet) (*av.Packet, error) {
	data := pkt.Data
	if len(data) < 5 {
		return nil, errors.Wrap(ErrShortTag, "video")
	}
	frameType := (data[0] >> 4) & 0x07
	if data[0]>>7 == 1 {
		return parseVideoEx(pkt, frameType)
	}

	pkt.CodecID = uint32(data[0] & 0x0f)
	cts := uint32(data[2])<<16 | uint32(data[3])<<8 | uint32(data[4])
	pkt.PTS = pkt.DTS + cts
	pkt.Flags = av.FlagInterFrame
	// Only AVC tags distinguish sequence headers and keyframes; other legacy
	// codecs all ride as inter frames.
	if pkt.CodecID == VideoCodecAVC {
		switch {
		case data[1] == 0:
			pkt.Flags = av.FlagVideoSequence
		case frameType == frameTypeKey:
			pkt.Flags = av.FlagKeyFrame
		}
	}
	return pkt, nil
}

func parseVideoEx(pkt *av.Packet, frameType uint8) (*av.Packet, error) {
	data := pkt.Data
	packetType := data[0] & 0x0f
	codec := binary.BigEndian.Uint32(data[1:5])
	pkt.Flags = av.FlagInterFrame
	switch codec {
	case FourCCAV1, FourCCVP9, FourCCHEVC:
		pkt.CodecID = codec
	default:
		// Unrecognized fourCC: pass through as an inter frame rather than
		// tearing the stream down.
		return pkt, nil
	}
	switch packetType {
	case PacketTypeSequenceStart:
		pkt.Flags = av.FlagVideoSequence
	case PacketTypeCodedFrames, PacketTypeCodedFramesX:
		if frameType == frameTypeKey {
			pkt.Flags = av.FlagKeyFrame
		}
		// CodedFrames carries an explicit composition-time offset for HEVC;
		// CodedFramesX implies zero.
		if codec == FourCCHEVC && packetType == PacketTypeCodedFrames {
			if len(data) < 8 {
				return nil, errors.Wrap(ErrShortTag, "video")
			}
			cts := uint32(data[5])<<16 | uint32(data[6])<<8 | uint32(data[7])
			pkt.PTS = pkt.DTS + cts
		}
	case PacketTypeMetadata:
		pkt.Flags = av.FlagVideoMetadata
	}
	return pkt, nil
}
