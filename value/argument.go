package value

import (
	"encoding/binary"
	"math"
)

type storageKind uint8

const (
	storageInline storageKind = iota
	storageBoxed
	storagePointer
)

// Argument is a single type-tagged value with explicit ownership. Payloads at
// or below PointerWidth are packed inline (no allocation); larger or
// variable-length payloads are boxed and reap decides whether Release frees
// them. Opaque pointer-kind tags are stored as a bare Go reference and are
// never serialized. Arguments form an ordered singly-linked list owned by
// a Message (see the message package).
type Argument struct {
	tag    TypeCode
	length int
	reap   bool
	kind   storageKind
	inline [16]byte
	boxed  []byte
	ref    any

	next *Argument
}

// New constructs an Argument holding v as tag. If tag is a pointer kind, v
// is kept as a bare reference; if v's fixed encoding fits within
// PointerWidth, the value is packed inline. In both cases reap is ignored
// (spec.md §4.1).
func New(v any, tag TypeCode, reap bool) (*Argument, error) {
	m, ok := lookup(tag)
	if !ok {
		return nil, ErrUnknownType
	}
	a := &Argument{tag: tag}

	if m.isPointer {
		a.kind = storagePointer
		a.ref = v
		a.reap = false
		a.length = m.fixedSize
		return a, nil
	}

	buf, err := encodeValue(tag, v)
	if err != nil {
		return nil, err
	}
	a.length = len(buf)

	if !m.variableLength && m.fixedSize <= PointerWidth {
		copy(a.inline[:], buf)
		a.kind = storageInline
		a.reap = false
	} else {
		a.boxed = buf
		a.kind = storageBoxed
		a.reap = reap
	}
	return a, nil
}

// Tag returns the Argument's type tag.
func (a *Argument) Tag() TypeCode { return a.tag }

// Reaped reports whether this Argument owns (and will free) its payload.
func (a *Argument) Reaped() bool { return a.reap }

// ReapValue sets the reap flag and returns the Argument, for the chained
// "addArg(...).ReapValue(true)" pattern spec.md §4.2 describes.
func (a *Argument) ReapValue(reap bool) *Argument {
	if a.kind == storageBoxed {
		a.reap = reap
	}
	return a
}

// Next returns the following Argument in the owning Message's list, or nil.
func (a *Argument) Next() *Argument { return a.next }

// SetNext links the following Argument in the owning Message's list. Used by
// the message package to build and splice the argument list; Argument itself
// never walks beyond a single link.
func (a *Argument) SetNext(next *Argument) { a.next = next }

// Length returns the in-memory payload length: the fixed size for
// fixed-length types, or the actual encoded length for variable-length
// types (spec.md §4.1).
func (a *Argument) Length() int { return a.length }

// rawBytes returns the little-endian payload bytes regardless of storage
// kind. Pointer-kind Arguments have no byte representation.
func (a *Argument) rawBytes() []byte {
	switch a.kind {
	case storageInline:
		return a.inline[:a.length]
	case storageBoxed:
		return a.boxed
	default:
		return nil
	}
}

// Release frees a boxed, reaped payload. Inline and pointer-kind payloads
// are left alone — the former own nothing, the latter are references the
// Argument never owned (spec.md §4.1 "Destructor").
func (a *Argument) Release() {
	if a.kind == storageBoxed && a.reap {
		a.boxed = nil
	}
}

// Serialize appends this Argument's wire framing — [tag][length][bytes] — to
// out. Pointer-kind tags always fail with ErrInvalidType: they are never
// exportable (spec.md §4.1 invariant).
func (a *Argument) Serialize(out *[]byte) error {
	if a.kind == storagePointer || !a.tag.Exportable() {
		return ErrInvalidType
	}
	raw := a.rawBytes()
	if len(raw) > 255 {
		return ErrTooLarge
	}
	*out = append(*out, byte(a.tag), byte(len(raw)))
	*out = append(*out, raw...)
	return nil
}

// SerializeRaw appends only the payload bytes, no tag/length framing. Used
// when the receiver already knows the message's grammar (spec.md §4.1).
func (a *Argument) SerializeRaw(out *[]byte) error {
	if a.kind == storagePointer {
		return ErrInvalidType
	}
	*out = append(*out, a.rawBytes()...)
	return nil
}

// ParseArgument reads one [tag][length][bytes] frame from buf and returns
// the Argument plus the number of bytes consumed.
func ParseArgument(buf []byte) (*Argument, int, error) {
	if len(buf) < 2 {
		return nil, 0, ErrMalformedWire
	}
	tag := TypeCode(buf[0])
	n := int(buf[1])
	if !tag.Defined() {
		return nil, 0, ErrUnknownType
	}
	if len(buf) < 2+n {
		return nil, 0, ErrMalformedWire
	}
	payload := buf[2 : 2+n]
	v, err := decodeValue(tag, payload)
	if err != nil {
		return nil, 0, err
	}
	a, err := New(v, tag, true)
	if err != nil {
		return nil, 0, err
	}
	return a, 2 + n, nil
}

// --- typed accessors -------------------------------------------------------

// Value decodes the Argument back into its native Go representation (the
// inverse of New's encoding step). Pointer-kind Arguments return the stored
// reference as-is.
func (a *Argument) Value() (any, error) {
	if a.kind == storagePointer {
		return a.ref, nil
	}
	return decodeValue(a.tag, a.rawBytes())
}

// --- encode / decode ---------------------------------------------------

func encodeValue(tag TypeCode, v any) ([]byte, error) {
	switch tag {
	case Int8:
		n, ok := v.(int8)
		if !ok {
			return nil, ErrTypeMismatch
		}
		return []byte{byte(n)}, nil
	case Uint8:
		n, ok := v.(uint8)
		if !ok {
			return nil, ErrTypeMismatch
		}
		return []byte{n}, nil
	case Bool:
		b, ok := v.(bool)
		if !ok {
			return nil, ErrTypeMismatch
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case Int16:
		n, ok := v.(int16)
		if !ok {
			return nil, ErrTypeMismatch
		}
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(n))
		return buf, nil
	case Uint16:
		n, ok := v.(uint16)
		if !ok {
			return nil, ErrTypeMismatch
		}
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, n)
		return buf, nil
	case Int32:
		n, ok := v.(int32)
		if !ok {
			return nil, ErrTypeMismatch
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(n))
		return buf, nil
	case Uint32:
		n, ok := v.(uint32)
		if !ok {
			return nil, ErrTypeMismatch
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, n)
		return buf, nil
	case Float32:
		f, ok := v.(float32)
		if !ok {
			return nil, ErrTypeMismatch
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
		return buf, nil
	case Int64:
		n, ok := v.(int64)
		if !ok {
			return nil, ErrTypeMismatch
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(n))
		return buf, nil
	case Uint64:
		n, ok := v.(uint64)
		if !ok {
			return nil, ErrTypeMismatch
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, n)
		return buf, nil
	case Float64:
		f, ok := v.(float64)
		if !ok {
			return nil, ErrTypeMismatch
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
		return buf, nil
	case Int128, Uint128:
		b, ok := v.([16]byte)
		if !ok {
			return nil, ErrTypeMismatch
		}
		buf := make([]byte, 16)
		copy(buf, b[:])
		return buf, nil
	case Str, URL:
		s, ok := v.(string)
		if !ok {
			return nil, ErrTypeMismatch
		}
		buf := make([]byte, 0, len(s)+1)
		buf = append(buf, s...)
		buf = append(buf, 0)
		return buf, nil
	case Binary, Audio, Image, EventChain, RelayedMsg, CBOR, Identity:
		b, ok := v.([]byte)
		if !ok {
			return nil, ErrTypeMismatch
		}
		return append([]byte(nil), b...), nil
	case JSON:
		switch x := v.(type) {
		case []byte:
			buf := append([]byte(nil), x...)
			return append(buf, 0), nil
		case string:
			buf := make([]byte, 0, len(x)+1)
			buf = append(buf, x...)
			return append(buf, 0), nil
		default:
			return nil, ErrTypeMismatch
		}
	case Vect3Float:
		vec, ok := v.(Vect3Float32)
		if !ok {
			return nil, ErrTypeMismatch
		}
		buf := make([]byte, 12)
		binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(vec.X))
		binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(vec.Y))
		binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(vec.Z))
		return buf, nil
	case Vect4Float:
		vec, ok := v.(Vect4Float32)
		if !ok {
			return nil, ErrTypeMismatch
		}
		buf := make([]byte, 16)
		binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(vec.X))
		binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(vec.Y))
		binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(vec.Z))
		binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(vec.W))
		return buf, nil
	case Vect3Int16:
		vec, ok := v.(Vect3Int16Val)
		if !ok {
			return nil, ErrTypeMismatch
		}
		buf := make([]byte, 6)
		binary.LittleEndian.PutUint16(buf[0:2], uint16(vec.X))
		binary.LittleEndian.PutUint16(buf[2:4], uint16(vec.Y))
		binary.LittleEndian.PutUint16(buf[4:6], uint16(vec.Z))
		return buf, nil
	case Vect3Uint16:
		vec, ok := v.(Vect3Uint16Val)
		if !ok {
			return nil, ErrTypeMismatch
		}
		buf := make([]byte, 6)
		binary.LittleEndian.PutUint16(buf[0:2], vec.X)
		binary.LittleEndian.PutUint16(buf[2:4], vec.Y)
		binary.LittleEndian.PutUint16(buf[4:6], vec.Z)
		return buf, nil
	default:
		return nil, ErrUnknownType
	}
}

func decodeValue(tag TypeCode, raw []byte) (any, error) {
	switch tag {
	case Int8:
		if len(raw) < 1 {
			return nil, ErrMalformedWire
		}
		return int8(raw[0]), nil
	case Uint8:
		if len(raw) < 1 {
			return nil, ErrMalformedWire
		}
		return raw[0], nil
	case Bool:
		if len(raw) < 1 {
			return nil, ErrMalformedWire
		}
		return raw[0] != 0, nil
	case Int16:
		if len(raw) < 2 {
			return nil, ErrMalformedWire
		}
		return int16(binary.LittleEndian.Uint16(raw)), nil
	case Uint16:
		if len(raw) < 2 {
			return nil, ErrMalformedWire
		}
		return binary.LittleEndian.Uint16(raw), nil
	case Int32:
		if len(raw) < 4 {
			return nil, ErrMalformedWire
		}
		return int32(binary.LittleEndian.Uint32(raw)), nil
	case Uint32:
		if len(raw) < 4 {
			return nil, ErrMalformedWire
		}
		return binary.LittleEndian.Uint32(raw), nil
	case Float32:
		if len(raw) < 4 {
			return nil, ErrMalformedWire
		}
		return math.Float32frombits(binary.LittleEndian.Uint32(raw)), nil
	case Int64:
		if len(raw) < 8 {
			return nil, ErrMalformedWire
		}
		return int64(binary.LittleEndian.Uint64(raw)), nil
	case Uint64:
		if len(raw) < 8 {
			return nil, ErrMalformedWire
		}
		return binary.LittleEndian.Uint64(raw), nil
	case Float64:
		if len(raw) < 8 {
			return nil, ErrMalformedWire
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(raw)), nil
	case Int128, Uint128:
		if len(raw) < 16 {
			return nil, ErrMalformedWire
		}
		var b [16]byte
		copy(b[:], raw[:16])
		return b, nil
	case Str, URL:
		i := indexZero(raw)
		if i < 0 {
			i = len(raw)
		}
		return string(raw[:i]), nil
	case JSON:
		i := indexZero(raw)
		if i < 0 {
			i = len(raw)
		}
		return append([]byte(nil), raw[:i]...), nil
	case Binary, Audio, Image, EventChain, RelayedMsg, CBOR, Identity:
		return append([]byte(nil), raw...), nil
	case Vect3Float:
		if len(raw) < 12 {
			return nil, ErrMalformedWire
		}
		return Vect3Float32{
			X: math.Float32frombits(binary.LittleEndian.Uint32(raw[0:4])),
			Y: math.Float32frombits(binary.LittleEndian.Uint32(raw[4:8])),
			Z: math.Float32frombits(binary.LittleEndian.Uint32(raw[8:12])),
		}, nil
	case Vect4Float:
		if len(raw) < 16 {
			return nil, ErrMalformedWire
		}
		return Vect4Float32{
			X: math.Float32frombits(binary.LittleEndian.Uint32(raw[0:4])),
			Y: math.Float32frombits(binary.LittleEndian.Uint32(raw[4:8])),
			Z: math.Float32frombits(binary.LittleEndian.Uint32(raw[8:12])),
			W: math.Float32frombits(binary.LittleEndian.Uint32(raw[12:16])),
		}, nil
	case Vect3Int16:
		if len(raw) < 6 {
			return nil, ErrMalformedWire
		}
		return Vect3Int16Val{
			X: int16(binary.LittleEndian.Uint16(raw[0:2])),
			Y: int16(binary.LittleEndian.Uint16(raw[2:4])),
			Z: int16(binary.LittleEndian.Uint16(raw[4:6])),
		}, nil
	case Vect3Uint16:
		if len(raw) < 6 {
			return nil, ErrMalformedWire
		}
		return Vect3Uint16Val{
			X: binary.LittleEndian.Uint16(raw[0:2]),
			Y: binary.LittleEndian.Uint16(raw[2:4]),
			Z: binary.LittleEndian.Uint16(raw[4:6]),
		}, nil
	default:
		return nil, ErrUnknownType
	}
}

func indexZero(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}
