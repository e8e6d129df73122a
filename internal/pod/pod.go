package pod

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Pod value types (the wire-level type field).
const (
	TypeNone      uint32 = 1
	TypeBool      uint32 = 2
	TypeID        uint32 = 3
	TypeInt       uint32 = 4
	TypeLong      uint32 = 5
	TypeFloat     uint32 = 6
	TypeDouble    uint32 = 7
	TypeString    uint32 = 8
	TypeBytes     uint32 = 9
	TypeFraction  uint32 = 11
	TypeArray     uint32 = 13
	TypeStruct    uint32 = 14
	TypeObject    uint32 = 15
)

// Object types and parameter ids for the subset we speak.
const (
	ObjectProps    uint32 = 0x40002
	ObjectProfiler uint32 = 0x4000a

	// ParamProps is the parameter id for node property events and writes.
	ParamProps uint32 = 2
)

// Property keys inside a Props object.
const (
	PropVolume         uint32 = 0x10003
	PropMute           uint32 = 0x10004
	PropChannelVolumes uint32 = 0x10008
)

// Property keys inside a Profiler object.
const (
	ProfilerInfo          uint32 = 0x10001
	ProfilerClock         uint32 = 0x10002
	ProfilerDriverBlock   uint32 = 0x10003
	ProfilerFollowerBlock uint32 = 0x20001
)

const headerSize = 8

var le = binary.LittleEndian

// padded rounds a body size up to the 8-byte pod alignment.
func padded(n int) int {
	return (n + 7) &^ 7
}

// Value is a parsed pod: its wire type plus the unpadded body bytes.
type Value struct {
	Type uint32
	body []byte
}

// Parse reads the single pod at the start of data.
func Parse(data []byte) (Value, error) {
	v, _, err := parseAt(data, 0)
	return v, err
}

// parseAt reads one pod at offset off and returns it along with the offset
// of the next pod.
func parseAt(data []byte, off int) (Value, int, error) {
	if off+headerSize > len(data) {
		return Value{}, 0, ErrTruncated
	}
	size := int(le.Uint32(data[off:]))
	typ := le.Uint32(data[off+4:])
	body := off + headerSize
	if body+size > len(data) {
		return Value{}, 0, ErrTruncated
	}
	next := body + padded(size)
	return Value{Type: typ, body: data[body : body+size]}, next, nil
}

// Bool returns the value of a Bool pod.
func (v Value) Bool() (bool, error) {
	if v.Type != TypeBool || len(v.body) < 4 {
		return false, ErrWrongType
	}
	return le.Uint32(v.body) != 0, nil
}

// Int returns the value of an Int or Id pod.
func (v Value) Int() (int32, error) {
	if (v.Type != TypeInt && v.Type != TypeID) || len(v.body) < 4 {
		return 0, ErrWrongType
	}
	return int32(le.Uint32(v.body)), nil
}

// Long returns the value of a Long pod.
func (v Value) Long() (int64, error) {
	if v.Type != TypeLong || len(v.body) < 8 {
		return 0, ErrWrongType
	}
	return int64(le.Uint64(v.body)), nil
}

// Float returns the value of a Float pod.
func (v Value) Float() (float32, error) {
	if v.Type != TypeFloat || len(v.body) < 4 {
		return 0, ErrWrongType
	}
	return math.Float32frombits(le.Uint32(v.body)), nil
}

// Double returns the value of a Double pod.
func (v Value) Double() (float64, error) {
	if v.Type != TypeDouble || len(v.body) < 8 {
		return 0, ErrWrongType
	}
	return math.Float64frombits(le.Uint64(v.body)), nil
}

// String returns the value of a String pod, without the trailing NUL.
func (v Value) String() (string, error) {
	if v.Type != TypeString || len(v.body) == 0 {
		return "", ErrWrongType
	}
	b := v.body
	if b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b), nil
}

// Fraction returns the numerator and denominator of a Fraction pod.
func (v Value) Fraction() (num, denom uint32, err error) {
	if v.Type != TypeFraction || len(v.body) < 8 {
		return 0, 0, ErrWrongType
	}
	return le.Uint32(v.body), le.Uint32(v.body[4:]), nil
}

// FloatArray returns the elements of an Array pod whose child type is Float.
func (v Value) FloatArray() ([]float32, error) {
	if v.Type != TypeArray || len(v.body) < 8 {
		return nil, ErrWrongType
	}
	childSize := int(le.Uint32(v.body))
	childType := le.Uint32(v.body[4:])
	if childType != TypeFloat || childSize != 4 {
		return nil, ErrWrongType
	}
	elems := v.body[8:]
	out := make([]float32, 0, len(elems)/4)
	for len(elems) >= 4 {
		out = append(out, math.Float32frombits(le.Uint32(elems)))
		elems = elems[4:]
	}
	return out, nil
}

// StructFields returns the ordered member pods of a Struct pod.
func (v Value) StructFields() ([]Value, error) {
	if v.Type != TypeStruct {
		return nil, ErrWrongType
	}
	var fields []Value
	off := 0
	for off < len(v.body) {
		f, next, err := parseAt(v.body, off)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
		off = next
	}
	return fields, nil
}

// Property is one key/value entry in an Object pod body.
type Property struct {
	Key   uint32
	Flags uint32
	Value Value
}

// Object returns the object type, object id and properties of an Object pod.
func (v Value) Object() (objType, objID uint32, props []Property, err error) {
	if v.Type != TypeObject || len(v.body) < 8 {
		return 0, 0, nil, ErrWrongType
	}
	objType = le.Uint32(v.body)
	objID = le.Uint32(v.body[4:])
	off := 8
	for off < len(v.body) {
		if off+8 > len(v.body) {
			return 0, 0, nil, ErrTruncated
		}
		key := le.Uint32(v.body[off:])
		flags := le.Uint32(v.body[off+4:])
		val, next, perr := parseAt(v.body, off+8)
		if perr != nil {
			return 0, 0, nil, perr
		}
		props = append(props, Property{Key: key, Flags: flags, Value: val})
		off = next
	}
	return objType, objID, props, nil
}

// ---------------------------------------------------------------------------
// Encoding. Each helper returns one complete pod (header + padded body).

func encodePod(typ uint32, body []byte) []byte {
	out := make([]byte, headerSize+padded(len(body)))
	le.PutUint32(out, uint32(len(body)))
	le.PutUint32(out[4:], typ)
	copy(out[headerSize:], body)
	return out
}

func boolPod(v bool) []byte {
	body := make([]byte, 4)
	if v {
		le.PutUint32(body, 1)
	}
	return encodePod(TypeBool, body)
}

func intPod(v int32) []byte {
	body := make([]byte, 4)
	le.PutUint32(body, uint32(v))
	return encodePod(TypeInt, body)
}

func longPod(v int64) []byte {
	body := make([]byte, 8)
	le.PutUint64(body, uint64(v))
	return encodePod(TypeLong, body)
}

func floatPod(v float32) []byte {
	body := make([]byte, 4)
	le.PutUint32(body, math.Float32bits(v))
	return encodePod(TypeFloat, body)
}

func doublePod(v float64) []byte {
	body := make([]byte, 8)
	le.PutUint64(body, math.Float64bits(v))
	return encodePod(TypeDouble, body)
}

func stringPod(s string) []byte {
	body := make([]byte, len(s)+1)
	copy(body, s)
	return encodePod(TypeString, body)
}

func fractionPod(num, denom uint32) []byte {
	body := make([]byte, 8)
	le.PutUint32(body, num)
	le.PutUint32(body[4:], denom)
	return encodePod(TypeFraction, body)
}

func floatArrayPod(vals []float32) []byte {
	body := make([]byte, 8+4*len(vals))
	le.PutUint32(body, 4)
	le.PutUint32(body[4:], TypeFloat)
	for i, f := range vals {
		le.PutUint32(body[8+4*i:], math.Float32bits(f))
	}
	return encodePod(TypeArray, body)
}

func structPod(members ...[]byte) []byte {
	var body []byte
	for _, m := range members {
		body = append(body, m...)
	}
	return encodePod(TypeStruct, body)
}

// propEntry encodes one object property: key, flags, then the value pod.
func propEntry(key uint32, value []byte) []byte {
	out := make([]byte, 8+len(value))
	le.PutUint32(out, key)
	copy(out[8:], value)
	return out
}

func objectPod(objType, objID uint32, props ...[]byte) []byte {
	body := make([]byte, 8)
	le.PutUint32(body, objType)
	le.PutUint32(body[4:], objID)
	for _, p := range props {
		body = append(body, p...)
	}
	return encodePod(TypeObject, body)
}

// typeName is used in decode error messages.
func typeName(t uint32) string {
	switch t {
	case TypeNone:
		return "None"
	case TypeBool:
		return "Bool"
	case TypeID:
		return "Id"
	case TypeInt:
		return "Int"
	case TypeLong:
		return "Long"
	case TypeFloat:
		return "Float"
	case TypeDouble:
		return "Double"
	case TypeString:
		return "String"
	case TypeFraction:
		return "Fraction"
	case TypeArray:
		return "Array"
	case TypeStruct:
		return "Struct"
	case TypeObject:
		return "Object"
	default:
		return fmt.Sprintf("0x%x", t)
	}
}
