package schema

import (
	"fmt"
	"strings"

	"github.com/rawbytedev/flatwire/pkg/flat"
)

// Type is the wire type of a field or vector element.
type Type uint8

const (
	TypeNone Type = iota
	TypeBool
	TypeInt8
	TypeUint8
	TypeInt16
	TypeUint16
	TypeInt32
	TypeUint32
	TypeInt64
	TypeUint64
	TypeFloat32
	TypeFloat64
	TypeString
	TypeBytes
	TypeTable
	TypeVector
)

var typeNames = [...]string{
	TypeNone:    "none",
	TypeBool:    "bool",
	TypeInt8:    "int8",
	TypeUint8:   "uint8",
	TypeInt16:   "int16",
	TypeUint16:  "uint16",
	TypeInt32:   "int32",
	TypeUint32:  "uint32",
	TypeInt64:   "int64",
	TypeUint64:  "uint64",
	TypeFloat32: "float32",
	TypeFloat64: "float64",
	TypeString:  "string",
	TypeBytes:   "bytes",
	TypeTable:   "table",
	TypeVector:  "vector",
}

// IDL spellings accepted next to the Go-style names.
var typeAliases = map[string]Type{
	"byte":   TypeInt8,
	"ubyte":  TypeUint8,
	"short":  TypeInt16,
	"ushort": TypeUint16,
	"int":    TypeInt32,
	"uint":   TypeUint32,
	"long":   TypeInt64,
	"ulong":  TypeUint64,
	"float":  TypeFloat32,
	"double": TypeFloat64,
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

// ParseType accepts both Go-style names (int16) and IDL names (short).
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range typeNames {
		if name == s && Type(i) != TypeNone {
			return Type(i), nil
		}
	}
	if t, ok := typeAliases[s]; ok {
		return t, nil
	}
	return TypeNone, fmt.Errorf("%w: unknown type %q", ErrInvalid, s)
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// IsScalar reports whether values of t are stored inline.
func (t Type) IsScalar() bool {
	return t >= TypeBool && t <= TypeFloat64
}

// Size is the inline width of t: the scalar width, or the width of a
// reference for out-of-line types.
func (t Type) Size() int {
	switch t {
	case TypeBool:
		return flat.SizeBool
	case TypeInt8, TypeUint8:
		return flat.SizeInt8
	case TypeInt16, TypeUint16:
		return flat.SizeInt16
	case TypeInt32, TypeUint32:
		return flat.SizeInt32
	case TypeFloat32:
		return flat.SizeFloat32
	case TypeInt64, TypeUint64:
		return flat.SizeInt64
	case TypeFloat64:
		return flat.SizeFloat64
	case TypeString, TypeBytes, TypeTable, TypeVector:
		return flat.SizeUOffsetT
	}
	return 0
}
