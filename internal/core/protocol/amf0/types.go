// Package amf0 implements the Action Message Format v0 codec used by RTMP
// command and data messages, plus the command/argument schema layered on top
// of it.
//
// Decoded values map to Go types as follows:
//
//	number       float64
//	boolean      bool
//	string       string
//	null         nil
//	undefined    Undefined
//	object       *Object (ordered key/value pairs)
//	ECMA array   *Object (the element count is advisory on the wire)
//	strict array StrictArray
//	reference    Reference (index only, no reference table is kept)
//	date         Date (the 16-bit timezone field is discarded)
//	long string  LongString
//	XML document XMLDocument
//	typed object *TypedObject (decode only; encoding is unsupported)
package amf0

// Wire type markers.
const (
	TypeNumber      = 0x00
	TypeBoolean     = 0x01
	TypeString      = 0x02
	TypeObject      = 0x03
	TypeNull        = 0x05
	TypeUndefined   = 0x06
	TypeReference   = 0x07
	TypeECMAArray   = 0x08
	TypeObjectEnd   = 0x09
	TypeStrictArray = 0x0a
	TypeDate        = 0x0b
	TypeLongString  = 0x0c
	TypeXMLDocument = 0x0f
	TypeTypedObject = 0x10
)

// Value is one decoded AMF0 value. The concrete set of Go types is closed;
// see the package comment.
type Value interface{}

// Undefined is the AMF0 undefined marker, distinct from null.
type Undefined struct{}

// Reference carries the index of a back-reference. Resolution against a
// reference table is intentionally not implemented.
type Reference uint16

// Date is a millisecond timestamp. Encoding always writes a zero timezone.
type Date float64

// LongString is a string with a 32-bit length prefix on the wire.
type LongString string

// XMLDocument is carried like a short string under its own marker.
type XMLDocument string

// StrictArray is a positionally encoded value sequence whose element count is
// authoritative.
type StrictArray []Value

// Property is a single key/value pair of an Object.
type Property struct {
	Key   string
	Value Value
}

// Object is an ordered mapping with unique string keys. Insertion order is
// preserved so that re-encoding reproduces the original wire layout.
type Object struct {
	props []Property
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{}
}

// Set inserts or replaces the value for key and returns the object for
// chaining.
func (o *Object) Set(key string, v Value) *Object {
	for i := range o.props {
		if o.props[i].Key == key {
			o.props[i].Value = v
			return o
		}
	}
	o.props = append(o.props, Property{Key: key, Value: v})
	return o
}

// Get returns the value for key and whether it is present.
func (o *Object) Get(key string) (Value, bool) {
	for i := range o.props {
		if o.props[i].Key == key {
			return o.props[i].Value, true
		}
	}
	return nil, false
}

// GetString returns the string value for key, or "" when absent or not a
// string.
func (o *Object) GetString(key string) string {
	v, _ := o.Get(key)
	s, _ := v.(string)
	return s
}

// GetNumber returns the numeric value for key, or 0 when absent or not a
// number.
func (o *Object) GetNumber(key string) float64 {
	v, _ := o.Get(key)
	n, _ := v.(float64)
	return n
}

// Len returns the number of properties.
func (o *Object) Len() int {
	return len(o.props)
}

// Props returns the properties in insertion order. The returned slice must
// not be modified.
func (o *Object) Props() []Property {
	return o.props
}

// ECMAArray wraps an object for encoding under the ECMA-array marker with a
// leading element count. Decoding yields a plain *Object because both
// encodings share the terminator-driven body format.
type ECMAArray struct {
	*Object
}

// TypedObject is an object tagged with a class name. It can be decoded but
// never encoded.
type TypedObject struct {
	ClassName string
	Object
}
