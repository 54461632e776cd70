package amf0

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// ErrTypedObjectEncoding reports an attempt to encode a typed object, which
// the codec only decodes.
var ErrTypedObjectEncoding = errors.New("amf0: typed objects cannot be encoded")

// EncodeOne appends the encoding of v to dst and returns the extended slice.
// The accepted value set mirrors DecodeOne, plus the Go integer families,
// which encode as numbers.
func EncodeOne(dst []byte, v Value) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return append(dst, TypeNull), nil
	case float64:
		return encNumber(dst, t), nil
	case float32:
		return encNumber(dst, float64(t)), nil
	case int:
		return encNumber(dst, float64(t)), nil
	case int32:
		return encNumber(dst, float64(t)), nil
	case int64:
		return encNumber(dst, float64(t)), nil
	case uint32:
		return encNumber(dst, float64(t)), nil
	case uint64:
		return encNumber(dst, float64(t)), nil
	case bool:
		if t {
			return append(dst, TypeBoolean, 1), nil
		}
		return append(dst, TypeBoolean, 0), nil
	case string:
		return encString(dst, t), nil
	case LongString:
		dst = append(dst, TypeLongString)
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(t)))
		return append(dst, t...), nil
	case XMLDocument:
		dst = append(dst, TypeXMLDocument)
		dst = binary.BigEndian.AppendUint16(dst, uint16(len(t)))
		return append(dst, t...), nil
	case Undefined:
		return append(dst, TypeUndefined), nil
	case Reference:
		dst = append(dst, TypeReference)
		return binary.BigEndian.AppendUint16(dst, uint16(t)), nil
	case Date:
		dst = append(dst, TypeDate, 0, 0)
		return binary.BigEndian.AppendUint64(dst, math.Float64bits(float64(t))), nil
	case *Object:
		return encObject(dst, t)
	case ECMAArray:
		dst = append(dst, TypeECMAArray)
		dst = binary.BigEndian.AppendUint32(dst, uint32(t.Len()))
		body, err := encObject(nil, t.Object)
		if err != nil {
			return dst, err
		}
		return append(dst, body[1:]...), nil
	case StrictArray:
		dst = append(dst, TypeStrictArray)
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(t)))
		var err error
		for _, el := range t {
			if dst, err = EncodeOne(dst, el); err != nil {
				return dst, err
			}
		}
		return dst, nil
	case *TypedObject:
		return dst, ErrTypedObjectEncoding
	default:
		return dst, errors.Errorf("amf0: cannot encode %T", v)
	}
}

// Encode appends the encodings of all values to dst.
func Encode(dst []byte, values ...Value) ([]byte, error) {
	var err error
	for _, v := range values {
		if dst, err = EncodeOne(dst, v); err != nil {
			return dst, err
		}
	}
	return dst, nil
}

func encNumber(dst []byte, f float64) []byte {
	dst = append(dst, TypeNumber)
	return binary.BigEndian.AppendUint64(dst, math.Float64bits(f))
}

func encString(dst []byte, s string) []byte {
	dst = append(dst, TypeString)
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(s)))
	return append(dst, s...)
}

func encKey(dst []byte, s string) []byte {
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(s)))
	return append(dst, s...)
}

func encObject(dst []byte, o *Object) ([]byte, error) {
	dst = append(dst, TypeObject)
	var err error
	for _, p := range o.Props() {
		dst = encKey(dst, p.Key)
		if dst, err = EncodeOne(dst, p.Value); err != nil {
			return dst, errors.Wrapf(err, "object property %q", p.Key)
		}
	}
	return append(dst, 0, 0, TypeObjectEnd), nil
}
