// AMF0 encode/decode.
//
// Decoding never panics on short or malformed input: every read on the
// decoding stream is bounds-checked and turned into a Protocol or
// Unsupported error, per the C2 failure taxonomy (BadType, Truncated,
// Unsupported).

package main

import (
	"encoding/binary"
	"math"
	"sort"
)

const (
	AMF0TypeNumber      = 0x00
	AMF0TypeBool        = 0x01
	AMF0TypeString      = 0x02
	AMF0TypeObject      = 0x03
	AMF0TypeNull        = 0x05
	AMF0TypeUndefined   = 0x06
	AMF0TypeRef         = 0x07
	AMF0TypeArray       = 0x08
	AMF0TypeObjectEnd   = 0x09
	AMF0TypeStrictArray = 0x0A
	AMF0TypeDate        = 0x0B
	AMF0TypeLongString  = 0x0C
	AMF0TypeXMLDoc      = 0x0F
	AMF0TypeTypedObject = 0x10
	AMF0TypeSwitchAMF3  = 0x11
)

// AMF0Value is a decoded AMF0 (or AMF3-switched) value.
type AMF0Value struct {
	Type   byte
	Bool   bool
	Str    string
	Number float64
	Object map[string]*AMF0Value
	Array  []*AMF0Value
	AMF3   *AMF3Value
}

func NewAMF0Null() *AMF0Value      { return &AMF0Value{Type: AMF0TypeNull} }
func NewAMF0Undefined() *AMF0Value { return &AMF0Value{Type: AMF0TypeUndefined} }
func NewAMF0Bool(b bool) *AMF0Value {
	return &AMF0Value{Type: AMF0TypeBool, Bool: b}
}
func NewAMF0Number(n float64) *AMF0Value {
	return &AMF0Value{Type: AMF0TypeNumber, Number: n}
}
func NewAMF0String(s string) *AMF0Value {
	return &AMF0Value{Type: AMF0TypeString, Str: s}
}
func NewAMF0Object(o map[string]*AMF0Value) *AMF0Value {
	return &AMF0Value{Type: AMF0TypeObject, Object: o}
}

func (v *AMF0Value) IsAMF3() bool { return v.Type == AMF0TypeSwitchAMF3 && v.AMF3 != nil }

func (v *AMF0Value) IsNull() bool {
	if v.IsAMF3() {
		return v.AMF3.Type == AMF3TypeNull
	}
	return v.Type == AMF0TypeNull || v.Type == AMF0TypeUndefined
}

func (v *AMF0Value) GetBool() bool {
	switch {
	case v.IsAMF3():
		return v.AMF3.GetBool()
	case v.Type == AMF0TypeBool:
		return v.Bool
	case v.Type == AMF0TypeNumber:
		return v.Number != 0
	default:
		return false
	}
}

func (v *AMF0Value) GetNumber() float64 {
	if v.IsAMF3() {
		return v.AMF3.Number
	}
	return v.Number
}

func (v *AMF0Value) GetString() string {
	if v.IsAMF3() {
		return v.AMF3.Str
	}
	return v.Str
}

// GetProperty looks up a key in an AMF0 object, returning an Undefined
// value (never nil) when absent so callers can chain GetString/GetBool
// without a nil check.
func (v *AMF0Value) GetProperty(name string) *AMF0Value {
	if v.Object == nil {
		return NewAMF0Undefined()
	}
	if p, ok := v.Object[name]; ok && p != nil {
		return p
	}
	return NewAMF0Undefined()
}

/* Encoding */

func amf0Encode(val *AMF0Value) []byte {
	out := []byte{val.Type}
	switch val.Type {
	case AMF0TypeNumber:
		out = append(out, amf0EncodeNumber(val.Number)...)
	case AMF0TypeBool:
		out = append(out, amf0EncodeBool(val.Bool)...)
	case AMF0TypeDate:
		out = append(out, amf0EncodeDate(val.Number)...)
	case AMF0TypeString, AMF0TypeXMLDoc:
		out = append(out, amf0EncodeString(val.Str)...)
	case AMF0TypeLongString:
		out = append(out, amf0EncodeLongString(val.Str)...)
	case AMF0TypeObject:
		out = append(out, amf0EncodeObject(val.Object)...)
	case AMF0TypeArray:
		out = append(out, amf0EncodeArrayHeader(len(val.Object))...)
		out = append(out, amf0EncodeObject(val.Object)...)
	case AMF0TypeStrictArray:
		out = append(out, amf0EncodeStrictArray(val.Array)...)
	case AMF0TypeNull, AMF0TypeUndefined:
		// marker only
	case AMF0TypeSwitchAMF3:
		out = append(out, amf3Encode(val.AMF3)...)
	}
	return out
}

func amf0EncodeNumber(n float64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(n))
	return b
}

func amf0EncodeBool(b bool) []byte {
	if b {
		return []byte{0x01}
	}
	return []byte{0x00}
}

func amf0EncodeDate(ts float64) []byte {
	return append([]byte{0x00, 0x00}, amf0EncodeNumber(ts)...)
}

func amf0EncodeString(s string) []byte {
	b := []byte(s)
	l := make([]byte, 2)
	binary.BigEndian.PutUint16(l, uint16(len(b)))
	return append(l, b...)
}

func amf0EncodeLongString(s string) []byte {
	b := []byte(s)
	l := make([]byte, 4)
	binary.BigEndian.PutUint32(l, uint32(len(b)))
	return append(l, b...)
}

func amf0EncodeArrayHeader(n int) []byte {
	l := make([]byte, 4)
	binary.BigEndian.PutUint32(l, uint32(n))
	return l
}

func amf0EncodeObject(o map[string]*AMF0Value) []byte {
	var out []byte

	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		out = append(out, amf0EncodeString(k)...)
		out = append(out, amf0Encode(o[k])...)
	}

	out = append(out, amf0EncodeString("")...)
	out = append(out, AMF0TypeObjectEnd)
	return out
}

func amf0EncodeStrictArray(arr []*AMF0Value) []byte {
	out := amf0EncodeArrayHeader(len(arr))
	for _, v := range arr {
		out = append(out, amf0Encode(v)...)
	}
	return out
}

/* Decoding */

// amfDecodeStream is a bounds-checked cursor over an in-memory AMF payload
// (the full command-message body, already reassembled by the chunk
// demultiplexer). Every read validates against the remaining length.
type amfDecodeStream struct {
	buf []byte
	pos int
}

func newAMFDecodeStream(buf []byte) *amfDecodeStream {
	return &amfDecodeStream{buf: buf}
}

func (s *amfDecodeStream) remaining() int { return len(s.buf) - s.pos }

func (s *amfDecodeStream) take(n int) ([]byte, error) {
	if n < 0 || s.remaining() < n {
		return nil, newErr(ErrKindProtocol, "truncated AMF value")
	}
	b := s.buf[s.pos : s.pos+n]
	s.pos += n
	return b, nil
}

func (s *amfDecodeStream) peekByte() (byte, error) {
	if s.remaining() < 1 {
		return 0, newErr(ErrKindProtocol, "truncated AMF value")
	}
	return s.buf[s.pos], nil
}

func (s *amfDecodeStream) atEnd() bool { return s.remaining() <= 0 }

// decodeOne decodes a single AMF0 value (recursing into AMF3 on the 0x11
// switch marker, and into nested objects/arrays).
func (s *amfDecodeStream) decodeOne() (*AMF0Value, error) {
	marker, err := s.take(1)
	if err != nil {
		return nil, err
	}

	v := &AMF0Value{Type: marker[0]}

	switch v.Type {
	case AMF0TypeNumber:
		n, err := s.decodeNumber()
		if err != nil {
			return nil, err
		}
		v.Number = n
	case AMF0TypeBool:
		b, err := s.take(1)
		if err != nil {
			return nil, err
		}
		v.Bool = b[0] != 0x00
	case AMF0TypeDate:
		if _, err := s.take(2); err != nil {
			return nil, err
		}
		n, err := s.decodeNumber()
		if err != nil {
			return nil, err
		}
		v.Number = n
	case AMF0TypeString, AMF0TypeXMLDoc:
		str, err := s.decodeString()
		if err != nil {
			return nil, err
		}
		v.Str = str
	case AMF0TypeLongString:
		str, err := s.decodeLongString()
		if err != nil {
			return nil, err
		}
		v.Str = str
	case AMF0TypeObject:
		obj, err := s.decodeObjectBody()
		if err != nil {
			return nil, err
		}
		v.Object = obj
	case AMF0TypeArray:
		if _, err := s.take(4); err != nil { // advisory length, not trusted
			return nil, err
		}
		obj, err := s.decodeObjectBody()
		if err != nil {
			return nil, err
		}
		v.Object = obj
	case AMF0TypeStrictArray:
		arr, err := s.decodeStrictArray()
		if err != nil {
			return nil, err
		}
		v.Array = arr
	case AMF0TypeNull, AMF0TypeUndefined:
		// no payload
	case AMF0TypeSwitchAMF3:
		amf3, err := s.decodeAMF3()
		if err != nil {
			return nil, err
		}
		v.AMF3 = amf3
	case AMF0TypeRef, AMF0TypeTypedObject:
		return nil, newErr(ErrKindUnsupported, "AMF0 references and typed objects are not supported")
	default:
		return nil, newErr(ErrKindProtocol, "unknown AMF0 type marker")
	}

	return v, nil
}

func (s *amfDecodeStream) decodeNumber() (float64, error) {
	b, err := s.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

func (s *amfDecodeStream) decodeString() (string, error) {
	lb, err := s.take(2)
	if err != nil {
		return "", err
	}
	l := binary.BigEndian.Uint16(lb)
	b, err := s.take(int(l))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *amfDecodeStream) decodeLongString() (string, error) {
	lb, err := s.take(4)
	if err != nil {
		return "", err
	}
	l := binary.BigEndian.Uint32(lb)
	b, err := s.take(int(l))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeObjectBody reads <key><value> pairs until a zero-length key
// followed by the 0x09 object-end marker.
func (s *amfDecodeStream) decodeObjectBody() (map[string]*AMF0Value, error) {
	obj := make(map[string]*AMF0Value)

	for {
		if s.atEnd() {
			return nil, newErr(ErrKindProtocol, "truncated AMF0 object")
		}

		key, err := s.decodeString()
		if err != nil {
			return nil, err
		}

		term, err := s.peekByte()
		if err != nil {
			return nil, err
		}
		if key == "" && term == AMF0TypeObjectEnd {
			s.pos++
			return obj, nil
		}

		val, err := s.decodeOne()
		if err != nil {
			return nil, err
		}
		obj[key] = val
	}
}

func (s *amfDecodeStream) decodeStrictArray() ([]*AMF0Value, error) {
	lb, err := s.take(4)
	if err != nil {
		return nil, err
	}
	l := binary.BigEndian.Uint32(lb)

	arr := make([]*AMF0Value, 0, l)
	for i := uint32(0); i < l; i++ {
		if s.atEnd() {
			return nil, newErr(ErrKindProtocol, "truncated AMF0 strict array")
		}
		v, err := s.decodeOne()
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	return arr, nil
}

// decodeAMF0Sequence decodes zero or more AMF0 values back to back, used
// for command-message argument lists (spec C6: name, txn_id, then args...).
func decodeAMF0Sequence(buf []byte) ([]*AMF0Value, error) {
	s := newAMFDecodeStream(buf)
	var values []*AMF0Value
	for !s.atEnd() {
		v, err := s.decodeOne()
		if err != nil {
			return values, err
		}
		values = append(values, v)
	}
	return values, nil
}
