package amf0

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// ErrTruncated reports a value whose declared size runs past the end of the
// input.
var ErrTruncated = errors.New("amf0: truncated value")

// UnsupportedTypeError reports a wire marker the decoder has no handler for.
type UnsupportedTypeError struct {
	Marker byte
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("amf0: unsupported type marker 0x%02x", e.Marker)
}

// DecodeOne decodes a single value from the start of buf and returns it along
// with the number of bytes consumed. For ECMA arrays the consumed count keeps
// the original engine's arithmetic, which runs one byte past the wire size;
// callers that decode sequences treat those as trailing values.
func DecodeOne(buf []byte) (Value, int, error) {
	if len(buf) == 0 {
		return nil, 0, ErrTruncated
	}
	switch buf[0] {
	case TypeNumber:
		return decNumber(buf)
	case TypeBoolean:
		return decBool(buf)
	case TypeString:
		return decString(buf)
	case TypeObject:
		return decObject(buf)
	case TypeNull:
		return nil, 1, nil
	case TypeUndefined:
		return Undefined{}, 1, nil
	case TypeReference:
		return decReference(buf)
	case TypeECMAArray:
		return decECMAArray(buf)
	case TypeStrictArray:
		return decStrictArray(buf)
	case TypeDate:
		return decDate(buf)
	case TypeLongString:
		return decLongString(buf)
	case TypeXMLDocument:
		v, n, err := decString(buf)
		if err != nil {
			return nil, 0, err
		}
		return XMLDocument(v.(string)), n, nil
	case TypeTypedObject:
		return decTypedObject(buf)
	default:
		return nil, 0, &UnsupportedTypeError{Marker: buf[0]}
	}
}

// Decode decodes values until buf is exhausted.
func Decode(buf []byte) ([]Value, error) {
	var out []Value
	for len(buf) > 0 {
		v, n, err := DecodeOne(buf)
		if err != nil {
			return out, err
		}
		out = append(out, v)
		if n >= len(buf) {
			break
		}
		buf = buf[n:]
	}
	return out, nil
}

func decNumber(buf []byte) (Value, int, error) {
	if len(buf) < 9 {
		return nil, 0, errors.Wrap(ErrTruncated, "number")
	}
	bits := binary.BigEndian.Uint64(buf[1:9])
	return math.Float64frombits(bits), 9, nil
}

func decBool(buf []byte) (Value, int, error) {
	if len(buf) < 2 {
		return nil, 0, errors.Wrap(ErrTruncated, "boolean")
	}
	return buf[1] != 0, 2, nil
}

// decKey decodes a length-prefixed string with no type marker, the form used
// for object property keys.
func decKey(buf []byte) (string, int, error) {
	if len(buf) < 2 {
		return "", 0, errors.Wrap(ErrTruncated, "key")
	}
	n := int(binary.BigEndian.Uint16(buf[0:2]))
	if len(buf) < 2+n {
		return "", 0, errors.Wrap(ErrTruncated, "key")
	}
	return string(buf[2 : 2+n]), 2 + n, nil
}

func decString(buf []byte) (Value, int, error) {
	if len(buf) < 3 {
		return nil, 0, errors.Wrap(ErrTruncated, "string")
	}
	n := int(binary.BigEndian.Uint16(buf[1:3]))
	if len(buf) < 3+n {
		return nil, 0, errors.Wrap(ErrTruncated, "string")
	}
	return string(buf[3 : 3+n]), 3 + n, nil
}

func decLongString(buf []byte) (Value, int, error) {
	if len(buf) < 5 {
		return nil, 0, errors.Wrap(ErrTruncated, "long string")
	}
	n := int(binary.BigEndian.Uint32(buf[1:5]))
	if len(buf) < 5+n {
		return nil, 0, errors.Wrap(ErrTruncated, "long string")
	}
	return LongString(buf[5 : 5+n]), 5 + n, nil
}

func decReference(buf []byte) (Value, int, error) {
	if len(buf) < 3 {
		return nil, 0, errors.Wrap(ErrTruncated, "reference")
	}
	return Reference(binary.BigEndian.Uint16(buf[1:3])), 3, nil
}

// decDate reads the millisecond timestamp. The original engine lays the value
// out as marker, 16-bit timezone, then the double, and the timezone is
// discarded.
func decDate(buf []byte) (Value, int, error) {
	if len(buf) < 11 {
		return nil, 0, errors.Wrap(ErrTruncated, "date")
	}
	bits := binary.BigEndian.Uint64(buf[3:11])
	return Date(math.Float64frombits(bits)), 11, nil
}

// decObject decodes the property list that follows an object marker. It
// tolerates two terminations besides the regular empty-key + 0x09 pair: a
// bare 0x09 directly after a property, and an empty key followed by anything
// else, which ends the object without consuming further bytes.
func decObject(buf []byte) (Value, int, error) {
	obj := NewObject()
	if len(buf) < 1 {
		return nil, 0, errors.Wrap(ErrTruncated, "object")
	}
	rest := buf[1:]
	consumed := 1
	for {
		if len(rest) == 0 {
			return nil, 0, errors.Wrap(ErrTruncated, "object")
		}
		if rest[0] == TypeObjectEnd {
			consumed++
			break
		}
		key, klen, err := decKey(rest)
		if err != nil {
			return nil, 0, err
		}
		consumed += klen
		if klen < len(rest) && rest[klen] == TypeObjectEnd {
			consumed++
			break
		}
		if key == "" {
			break
		}
		v, vlen, err := DecodeOne(rest[klen:])
		if err != nil {
			return nil, 0, errors.Wrapf(err, "object property %q", key)
		}
		obj.Set(key, v)
		consumed += vlen
		if klen+vlen > len(rest) {
			rest = nil
		} else {
			rest = rest[klen+vlen:]
		}
	}
	return obj, consumed, nil
}

// decECMAArray skips the advisory 32-bit count and decodes the body with the
// object rules. The returned length follows the original arithmetic and is
// one larger than the bytes actually read.
func decECMAArray(buf []byte) (Value, int, error) {
	if len(buf) < 5 {
		return nil, 0, errors.Wrap(ErrTruncated, "ecma array")
	}
	v, n, err := decObject(buf[4:])
	if err != nil {
		return nil, 0, errors.Wrap(err, "ecma array")
	}
	return v, 5 + n, nil
}

func decStrictArray(buf []byte) (Value, int, error) {
	if len(buf) < 5 {
		return nil, 0, errors.Wrap(ErrTruncated, "strict array")
	}
	count := binary.BigEndian.Uint32(buf[1:5])
	arr := make(StrictArray, 0, count)
	consumed := 5
	for ; count > 0; count-- {
		if consumed > len(buf) {
			return nil, 0, errors.Wrap(ErrTruncated, "strict array")
		}
		v, n, err := DecodeOne(buf[consumed:])
		if err != nil {
			return nil, 0, errors.Wrap(err, "strict array")
		}
		arr = append(arr, v)
		consumed += n
	}
	return arr, consumed, nil
}

// decTypedObject reads the class name with the string rules, then hands the
// byte before the property list to decObject in place of a marker. The two
// off-by-ones cancel, so the returned length matches the wire exactly.
func decTypedObject(buf []byte) (Value, int, error) {
	name, nlen, err := decString(buf)
	if err != nil {
		return nil, 0, errors.Wrap(err, "typed object")
	}
	v, olen, err := decObject(buf[nlen-1:])
	if err != nil {
		return nil, 0, errors.Wrap(err, "typed object")
	}
	to := &TypedObject{ClassName: name.(string)}
	to.Object = *v.(*Object)
	return to, nlen + olen - 1, nil
}
