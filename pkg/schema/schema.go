// Package schema describes record layouts: which slot each field occupies,
// its wire type and its default. Defaults are part of the wire contract, so
// writers and readers must agree on the same Schema.
package schema

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/rawbytedev/flatwire/pkg/flat"
)

var ErrInvalid = errors.New("schema: invalid")

// Field is one table field. Slot is ID when set, otherwise the field's
// position in the table.
type Field struct {
	Name       string `yaml:"name"`
	Type       Type   `yaml:"type"`
	Elem       Type   `yaml:"elem,omitempty"`
	Table      string `yaml:"table,omitempty"`
	Default    string `yaml:"default,omitempty"`
	Deprecated bool   `yaml:"deprecated,omitempty"`
	ID         *int   `yaml:"id,omitempty"`

	slot int
	def  any
}

func (f *Field) Slot() int {
	return f.slot
}

// DefaultValue returns the parsed default with the Go type matching the
// field type, or nil for out-of-line fields.
func (f *Field) DefaultValue() any {
	return f.def
}

// ElemSize is the width of one vector element.
func (f *Field) ElemSize() int {
	if f.Type == TypeBytes {
		return flat.SizeUint8
	}
	return f.Elem.Size()
}

// ParseDefault converts a default literal to the Go value for t. An empty
// literal yields the zero value.
func ParseDefault(t Type, lit string) (any, error) {
	if lit == "" {
		lit = zeroLiteral(t)
	}
	var (
		v   any
		err error
	)
	switch t {
	case TypeBool:
		v, err = strconv.ParseBool(lit)
	case TypeInt8:
		var n int64
		n, err = strconv.ParseInt(lit, 0, 8)
		v = int8(n)
	case TypeUint8:
		var n uint64
		n, err = strconv.ParseUint(lit, 0, 8)
		v = uint8(n)
	case TypeInt16:
		var n int64
		n, err = strconv.ParseInt(lit, 0, 16)
		v = int16(n)
	case TypeUint16:
		var n uint64
		n, err = strconv.ParseUint(lit, 0, 16)
		v = uint16(n)
	case TypeInt32:
		var n int64
		n, err = strconv.ParseInt(lit, 0, 32)
		v = int32(n)
	case TypeUint32:
		var n uint64
		n, err = strconv.ParseUint(lit, 0, 32)
		v = uint32(n)
	case TypeInt64:
		v, err = strconv.ParseInt(lit, 0, 64)
	case TypeUint64:
		v, err = strconv.ParseUint(lit, 0, 64)
	case TypeFloat32:
		var n float64
		n, err = strconv.ParseFloat(lit, 32)
		v = float32(n)
	case TypeFloat64:
		v, err = strconv.ParseFloat(lit, 64)
	default:
		return nil, fmt.Errorf("%w: %s fields take no default", ErrInvalid, t)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: default %q for %s: %v", ErrInvalid, lit, t, err)
	}
	return v, nil
}

func zeroLiteral(t Type) string {
	if t == TypeBool {
		return "false"
	}
	return "0"
}

// Table is an ordered list of fields.
type Table struct {
	Name   string   `yaml:"name"`
	Fields []*Field `yaml:"fields"`

	numSlots int
	byName   map[string]*Field
}

// NumSlots is the vtable size a writer declares for this table.
func (t *Table) NumSlots() int {
	return t.numSlots
}

func (t *Table) Field(name string) (*Field, bool) {
	f, ok := t.byName[name]
	return f, ok
}

// Normalize checks the table on its own and assigns slots and defaults.
// References to other tables are checked by Schema.Validate.
func (t *Table) Normalize() error {
	if t.Name == "" {
		return fmt.Errorf("%w: table without a name", ErrInvalid)
	}
	t.byName = make(map[string]*Field, len(t.Fields))
	slots := make(map[int]string, len(t.Fields))
	withID := 0
	t.numSlots = 0
	for i, f := range t.Fields {
		if f == nil || f.Name == "" {
			return fmt.Errorf("%w: table %q: field %d has no name", ErrInvalid, t.Name, i)
		}
		if _, dup := t.byName[f.Name]; dup {
			return fmt.Errorf("%w: table %q: duplicate field %q", ErrInvalid, t.Name, f.Name)
		}
		t.byName[f.Name] = f
		if err := f.check(); err != nil {
			return fmt.Errorf("table %q: field %q: %w", t.Name, f.Name, err)
		}

		f.slot = i
		if f.ID != nil {
			withID++
			f.slot = *f.ID
		}
		if f.slot < 0 {
			return fmt.Errorf("%w: table %q: field %q has negative id", ErrInvalid, t.Name, f.Name)
		}
		if f.slot >= flat.MaxSlots {
			return fmt.Errorf("%w: table %q: field %q id %d exceeds %d slots", ErrInvalid, t.Name, f.Name, f.slot, flat.MaxSlots)
		}
		if other, dup := slots[f.slot]; dup {
			return fmt.Errorf("%w: table %q: fields %q and %q share slot %d", ErrInvalid, t.Name, other, f.Name, f.slot)
		}
		slots[f.slot] = f.Name
		if f.slot+1 > t.numSlots {
			t.numSlots = f.slot + 1
		}
	}
	if withID != 0 && withID != len(t.Fields) {
		return fmt.Errorf("%w: table %q: either all fields or none carry an id", ErrInvalid, t.Name)
	}
	return nil
}

func (f *Field) check() error {
	switch {
	case f.Type == TypeNone:
		return fmt.Errorf("%w: missing type", ErrInvalid)
	case f.Type.IsScalar():
		def, err := ParseDefault(f.Type, f.Default)
		if err != nil {
			return err
		}
		f.def = def
		return nil
	case f.Default != "":
		return fmt.Errorf("%w: %s fields take no default", ErrInvalid, f.Type)
	}
	switch f.Type {
	case TypeTable:
		if f.Table == "" {
			return fmt.Errorf("%w: table field names no table", ErrInvalid)
		}
	case TypeVector:
		switch {
		case f.Elem == TypeNone:
			return fmt.Errorf("%w: vector without elem type", ErrInvalid)
		case f.Elem == TypeVector || f.Elem == TypeBytes:
			return fmt.Errorf("%w: nested vectors are not supported", ErrInvalid)
		case f.Elem == TypeTable && f.Table == "":
			return fmt.Errorf("%w: vector of tables names no table", ErrInvalid)
		}
	}
	f.def = nil
	return nil
}

// Schema is a set of tables with one root.
type Schema struct {
	Namespace      string   `yaml:"namespace,omitempty"`
	Root           string   `yaml:"root"`
	FileIdentifier string   `yaml:"file_identifier,omitempty"`
	Tables         []*Table `yaml:"tables"`

	byName map[string]*Table
}

func (s *Schema) Table(name string) (*Table, bool) {
	t, ok := s.byName[name]
	return t, ok
}

func (s *Schema) RootTable() (*Table, error) {
	t, ok := s.byName[s.Root]
	if !ok {
		return nil, fmt.Errorf("%w: root table %q not defined", ErrInvalid, s.Root)
	}
	return t, nil
}

// Validate normalizes every table and checks cross-table references.
func (s *Schema) Validate() error {
	if s.FileIdentifier != "" && len(s.FileIdentifier) != flat.FileIdentifierLength {
		return fmt.Errorf("%w: file identifier %q must be %d bytes", ErrInvalid, s.FileIdentifier, flat.FileIdentifierLength)
	}
	s.byName = make(map[string]*Table, len(s.Tables))
	for _, t := range s.Tables {
		if t == nil {
			return fmt.Errorf("%w: empty table entry", ErrInvalid)
		}
		if err := t.Normalize(); err != nil {
			return err
		}
		if _, dup := s.byName[t.Name]; dup {
			return fmt.Errorf("%w: duplicate table %q", ErrInvalid, t.Name)
		}
		s.byName[t.Name] = t
	}
	for _, t := range s.Tables {
		for _, f := range t.Fields {
			if f.Type != TypeTable && (f.Type != TypeVector || f.Elem != TypeTable) {
				continue
			}
			if _, ok := s.byName[f.Table]; !ok {
				return fmt.Errorf("%w: table %q: field %q references unknown table %q", ErrInvalid, t.Name, f.Name, f.Table)
			}
		}
	}
	if s.Root != "" {
		if _, err := s.RootTable(); err != nil {
			return err
		}
	}
	return nil
}

// Load decodes and validates a YAML schema.
func Load(r io.Reader) (*Schema, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Schema
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func LoadFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema: %w", err)
	}
	defer f.Close()
	return Load(f)
}
