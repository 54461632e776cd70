package amf0

import (
	"log/slog"

	"github.com/pkg/errors"
)

// commandFields names the positional arguments of each RTMP NetConnection and
// NetStream command, in wire order.
var commandFields = map[string][]string{
	"_result":         {"transId", "cmdObj", "info"},
	"_error":          {"transId", "cmdObj", "info"},
	"onStatus":        {"transId", "cmdObj", "info"},
	"releaseStream":   {"transId", "cmdObj", "streamName"},
	"getStreamLength": {"transId", "cmdObj", "streamId"},
	"getMovLen":       {"transId", "cmdObj", "streamName"},
	"FCPublish":       {"transId", "cmdObj", "streamName"},
	"FCUnpublish":     {"transId", "cmdObj", "streamName"},
	"FCSubscribe":     {"transId", "cmdObj", "streamName"},
	"onFCPublish":     {"transId", "cmdObj", "info"},
	"connect":         {"transId", "cmdObj", "args"},
	"call":            {"transId", "cmdObj", "args"},
	"createStream":    {"transId", "cmdObj"},
	"close":           {"transId", "cmdObj"},
	"play":            {"transId", "cmdObj", "streamName", "start", "duration", "reset"},
	"play2":           {"transId", "cmdObj", "params"},
	"deleteStream":    {"transId", "cmdObj", "streamId"},
	"closeStream":     {"transId", "cmdObj"},
	"receiveAudio":    {"transId", "cmdObj", "bool"},
	"receiveVideo":    {"transId", "cmdObj", "bool"},
	"publish":         {"transId", "cmdObj", "streamName", "type"},
	"seek":            {"transId", "cmdObj", "ms"},
	"pause":           {"transId", "cmdObj", "pause", "ms"},
}

// dataFields does the same for data messages.
var dataFields = map[string][]string{
	"@setDataFrame":     {"method", "dataObj"},
	"onFI":              {"info"},
	"onMetaData":        {"dataObj"},
	"|RtmpSampleAccess": {"bool1", "bool2"},
}

// Command is a decoded command or data message: its name plus the positional
// arguments keyed by their schema names.
type Command struct {
	Name   string
	Fields map[string]Value
}

// String returns the string-typed field named key, or "".
func (c *Command) String(key string) string {
	s, _ := c.Fields[key].(string)
	return s
}

// Number returns the number-typed field named key, or 0.
func (c *Command) Number(key string) float64 {
	n, _ := c.Fields[key].(float64)
	return n
}

// Object returns the object-typed field named key, or nil.
func (c *Command) Object(key string) *Object {
	o, _ := c.Fields[key].(*Object)
	return o
}

func decodeBySchema(buf []byte, schema map[string][]string) (*Command, error) {
	name, n, err := DecodeOne(buf)
	if err != nil {
		return nil, errors.Wrap(err, "command name")
	}
	cmdName, ok := name.(string)
	if !ok {
		return nil, errors.Errorf("amf0: command name is %T, not string", name)
	}
	cmd := &Command{Name: cmdName, Fields: map[string]Value{}}
	fields, known := schema[cmdName]
	if !known {
		// Unknown commands are not an error; the peer gets no reply.
		slog.Debug("unknown amf0 command", "name", cmdName)
		return cmd, nil
	}
	rest := buf[n:]
	for _, field := range fields {
		if len(rest) == 0 {
			break
		}
		v, vn, err := DecodeOne(rest)
		if err != nil {
			return nil, errors.Wrapf(err, "command %s field %s", cmdName, field)
		}
		cmd.Fields[field] = v
		if vn >= len(rest) {
			rest = nil
		} else {
			rest = rest[vn:]
		}
	}
	return cmd, nil
}

// DecodeCommand decodes a command message body. Unknown command names decode
// to a Command with no fields.
func DecodeCommand(buf []byte) (*Command, error) {
	return decodeBySchema(buf, commandFields)
}

// DecodeData decodes a data message body such as @setDataFrame.
func DecodeData(buf []byte) (*Command, error) {
	return decodeBySchema(buf, dataFields)
}

func encodeBySchema(cmd *Command, schema map[string][]string) ([]byte, error) {
	out, err := EncodeOne(nil, cmd.Name)
	if err != nil {
		return nil, err
	}
	for _, field := range schema[cmd.Name] {
		v, ok := cmd.Fields[field]
		if !ok {
			continue
		}
		if out, err = EncodeOne(out, v); err != nil {
			return nil, errors.Wrapf(err, "command %s field %s", cmd.Name, field)
		}
	}
	return out, nil
}

// EncodeCommand encodes a command message body in schema order. Fields absent
// from the map are skipped.
func EncodeCommand(cmd *Command) ([]byte, error) {
	return encodeBySchema(cmd, commandFields)
}

// EncodeData encodes a data message body in schema order.
func EncodeData(cmd *Command) ([]byte, error) {
	return encodeBySchema(cmd, dataFields)
}
