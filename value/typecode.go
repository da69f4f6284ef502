// Package value implements the type-tagged Argument model: a closed set of
// value kinds, each carrying exportability/size metadata, and an Argument
// type that stores small payloads inline (no allocation) and larger or
// variable-length payloads by reference with an explicit reap flag.
package value

import "manuvr-go/errcode"

// TypeCode is the closed enumeration of value kinds an Argument may carry.
// The numeric values are stable wire identifiers and must not be reordered.
type TypeCode uint8

const (
	NoType TypeCode = 0x00

	Int8    TypeCode = 0x01
	Int16   TypeCode = 0x02
	Int32   TypeCode = 0x03
	Int64   TypeCode = 0x04
	Int128  TypeCode = 0x05
	Uint8   TypeCode = 0x06
	Uint16  TypeCode = 0x07
	Uint32  TypeCode = 0x08
	Uint64  TypeCode = 0x09
	Uint128 TypeCode = 0x0A
	Bool    TypeCode = 0x0B
	Float32 TypeCode = 0x0C
	Float64 TypeCode = 0x0D

	Str    TypeCode = 0x0E // null-terminated string
	Binary TypeCode = 0x0F
	Audio  TypeCode = 0x10
	Image  TypeCode = 0x11

	Vect3Float  TypeCode = 0x12
	Vect3Int16  TypeCode = 0x13
	Vect3Uint16 TypeCode = 0x14
	JSON        TypeCode = 0x15
	Vect4Float  TypeCode = 0x16
	URL         TypeCode = 0x17 // null-terminated, URL-marked string
	EventChain  TypeCode = 0x18
	RelayedMsg  TypeCode = 0x19

	CBOR     TypeCode = 0x20
	Identity TypeCode = 0x21

	// Opaque pointer references. Never exportable; used only for in-process
	// routing (spec.md §3: "Opaque-pointer tags... are never serialized").
	ReceiverPtr  TypeCode = 0xE0
	TransportPtr TypeCode = 0xE1
	RunnablePtr  TypeCode = 0xE2
	PipePtr      TypeCode = 0xE3
)

// PointerWidth is the reference architecture's pointer size in bytes. Values
// at or below this size are packed into the Argument's inline storage
// instead of being boxed (spec.md §3, §4.1). The core targets 32-bit
// embedded parts (RP2040 et al.), so this is 4, not runtime GOARCH-dependent.
const PointerWidth = 4

type meta struct {
	exportable     bool
	isPointer      bool
	variableLength bool
	fixedSize      int // fixed size, or minimum size when variableLength
	nullDelimited  bool
}

var registry = map[TypeCode]meta{
	Int8:    {exportable: true, fixedSize: 1},
	Int16:   {exportable: true, fixedSize: 2},
	Int32:   {exportable: true, fixedSize: 4},
	Int64:   {exportable: true, fixedSize: 8},
	Int128:  {exportable: true, fixedSize: 16},
	Uint8:   {exportable: true, fixedSize: 1},
	Uint16:  {exportable: true, fixedSize: 2},
	Uint32:  {exportable: true, fixedSize: 4},
	Uint64:  {exportable: true, fixedSize: 8},
	Uint128: {exportable: true, fixedSize: 16},
	Bool:    {exportable: true, fixedSize: 1},
	Float32: {exportable: true, fixedSize: 4},
	Float64: {exportable: true, fixedSize: 8},

	Str:    {exportable: true, variableLength: true, fixedSize: 1, nullDelimited: true},
	URL:    {exportable: true, variableLength: true, fixedSize: 1, nullDelimited: true},
	Binary: {exportable: true, variableLength: true, fixedSize: 0},
	Audio:  {exportable: true, variableLength: true, fixedSize: 0},
	Image:  {exportable: true, variableLength: true, fixedSize: 0},
	JSON:   {exportable: true, variableLength: true, fixedSize: 1, nullDelimited: true},

	Vect3Float:  {exportable: true, fixedSize: 12},
	Vect3Int16:  {exportable: true, fixedSize: 6},
	Vect3Uint16: {exportable: true, fixedSize: 6},
	Vect4Float:  {exportable: true, fixedSize: 16},

	EventChain: {exportable: true, variableLength: true, fixedSize: 0},
	RelayedMsg: {exportable: true, variableLength: true, fixedSize: 0},
	CBOR:       {exportable: true, variableLength: true, fixedSize: 0},
	Identity:   {exportable: true, variableLength: true, fixedSize: 0},

	ReceiverPtr:  {isPointer: true, fixedSize: PointerWidth},
	TransportPtr: {isPointer: true, fixedSize: PointerWidth},
	RunnablePtr:  {isPointer: true, fixedSize: PointerWidth},
	PipePtr:      {isPointer: true, fixedSize: PointerWidth},
}

func lookup(t TypeCode) (meta, bool) {
	m, ok := registry[t]
	return m, ok
}

// Exportable reports whether values of this type may cross a process
// boundary (be serialized).
func (t TypeCode) Exportable() bool {
	m, ok := lookup(t)
	return ok && m.exportable
}

// IsPointer reports whether t is one of the opaque in-process reference
// kinds (Receiver/Transport/Pipe/Runnable).
func (t TypeCode) IsPointer() bool {
	m, ok := lookup(t)
	return ok && m.isPointer
}

// VariableLength reports whether values of this type do not have a single
// fixed encoded size.
func (t TypeCode) VariableLength() bool {
	m, ok := lookup(t)
	return ok && m.variableLength
}

// FixedSize returns the type's fixed encoded size, or its minimum encoded
// size if VariableLength is true.
func (t TypeCode) FixedSize() int {
	m, ok := lookup(t)
	if !ok {
		return 0
	}
	return m.fixedSize
}

// NullDelimited reports whether a variable-length string type is
// self-delimiting by a trailing null byte.
func (t TypeCode) NullDelimited() bool {
	m, ok := lookup(t)
	return ok && m.nullDelimited
}

// Defined reports whether t is a member of the closed type set.
func (t TypeCode) Defined() bool {
	_, ok := lookup(t)
	return ok
}

func (t TypeCode) String() string {
	switch t {
	case NoType:
		return "NoType"
	case Int8:
		return "Int8"
	case Int16:
		return "Int16"
	case Int32:
		return "Int32"
	case Int64:
		return "Int64"
	case Int128:
		return "Int128"
	case Uint8:
		return "Uint8"
	case Uint16:
		return "Uint16"
	case Uint32:
		return "Uint32"
	case Uint64:
		return "Uint64"
	case Uint128:
		return "Uint128"
	case Bool:
		return "Bool"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	case Str:
		return "Str"
	case Binary:
		return "Binary"
	case Audio:
		return "Audio"
	case Image:
		return "Image"
	case Vect3Float:
		return "Vect3Float"
	case Vect3Int16:
		return "Vect3Int16"
	case Vect3Uint16:
		return "Vect3Uint16"
	case JSON:
		return "JSON"
	case Vect4Float:
		return "Vect4Float"
	case URL:
		return "URL"
	case EventChain:
		return "EventChain"
	case RelayedMsg:
		return "RelayedMsg"
	case CBOR:
		return "CBOR"
	case Identity:
		return "Identity"
	case ReceiverPtr:
		return "ReceiverPtr"
	case TransportPtr:
		return "TransportPtr"
	case RunnablePtr:
		return "RunnablePtr"
	case PipePtr:
		return "PipePtr"
	default:
		return "Undefined"
	}
}

// Errors returned by this package, in the errcode idiom used across the
// module (see errcode.Code).
const (
	ErrUnknownType   errcode.Code = "value_unknown_type"
	ErrInvalidType   errcode.Code = "value_invalid_type"
	ErrTypeMismatch  errcode.Code = "value_type_mismatch"
	ErrOutOfRange    errcode.Code = "value_out_of_range"
	ErrTooLarge      errcode.Code = "value_too_large"
	ErrMalformedWire errcode.Code = "value_malformed_wire"
)
