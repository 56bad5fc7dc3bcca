package object

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"

	"github.com/rawbytedev/flatwire/pkg/flat"
	"github.com/rawbytedev/flatwire/pkg/schema"
)

// PackMap serializes a dynamic value of the named table, as decoded from
// YAML or JSON, and returns the table's offset. Keys must be field names;
// missing keys are left absent.
func PackMap(b *flat.Builder, s *schema.Schema, table string, m map[string]any) (flat.UOffsetT, error) {
	t, ok := s.Table(table)
	if !ok {
		return 0, fmt.Errorf("%w: unknown table %q", ErrMismatch, table)
	}
	return packMap(b, s, t, m)
}

func packMap(b *flat.Builder, s *schema.Schema, t *schema.Table, m map[string]any) (flat.UOffsetT, error) {
	for _, key := range sortedKeys(m) {
		if _, ok := t.Field(key); !ok {
			return 0, fmt.Errorf("%w: table %q has no field %q", ErrMismatch, t.Name, key)
		}
	}

	refs := make([]flat.UOffsetT, len(t.Fields))
	for i, f := range t.Fields {
		v, ok := m[f.Name]
		if !ok || v == nil || f.Deprecated || f.Type.IsScalar() {
			continue
		}
		off, err := packDynamic(b, s, f, v)
		if err != nil {
			return 0, fmt.Errorf("field %q: %w", f.Name, err)
		}
		refs[i] = off
	}

	if err := b.StartTable(t.NumSlots()); err != nil {
		return 0, err
	}
	for _, i := range packOrder(t.Fields) {
		f := t.Fields[i]
		v, ok := m[f.Name]
		if !ok || v == nil || f.Deprecated {
			continue
		}
		if f.Type.IsScalar() {
			x, err := toScalar(f.Type, v)
			if err != nil {
				return 0, fmt.Errorf("field %q: %w", f.Name, err)
			}
			addScalar(b, f.Slot(), f.Type, x, f.DefaultValue())
			continue
		}
		b.AddOffset(f.Slot(), refs[i])
	}
	return b.EndTable()
}

func packDynamic(b *flat.Builder, s *schema.Schema, f *schema.Field, v any) (flat.UOffsetT, error) {
	switch f.Type {
	case schema.TypeString:
		str, ok := v.(string)
		if !ok {
			return 0, fmt.Errorf("%w: %T for string", ErrMismatch, v)
		}
		return b.CreateString(str)
	case schema.TypeBytes:
		p, err := toBytes(v)
		if err != nil {
			return 0, err
		}
		return b.CreateByteVector(p)
	case schema.TypeTable:
		sub, ok := v.(map[string]any)
		if !ok {
			return 0, fmt.Errorf("%w: %T for table %s", ErrMismatch, v, f.Table)
		}
		t, _ := s.Table(f.Table)
		return packMap(b, s, t, sub)
	case schema.TypeVector:
		if f.Elem == schema.TypeUint8 {
			p, err := toBytes(v)
			if err != nil {
				return 0, err
			}
			return b.CreateByteVector(p)
		}
		items, err := toList(v)
		if err != nil {
			return 0, err
		}
		return packDynamicVector(b, s, f, items)
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupported, f.Type)
}

func packDynamicVector(b *flat.Builder, s *schema.Schema, f *schema.Field, items []any) (flat.UOffsetT, error) {
	n := len(items)
	switch f.Elem {
	case schema.TypeString:
		offs := make([]flat.UOffsetT, n)
		for i, item := range items {
			str, ok := item.(string)
			if !ok {
				return 0, fmt.Errorf("%w: element %d is %T", ErrMismatch, i, item)
			}
			off, err := b.CreateString(str)
			if err != nil {
				return 0, err
			}
			offs[i] = off
		}
		return b.CreateOffsetVector(offs)
	case schema.TypeTable:
		t, _ := s.Table(f.Table)
		offs := make([]flat.UOffsetT, n)
		for i, item := range items {
			sub, ok := item.(map[string]any)
			if !ok {
				return 0, fmt.Errorf("%w: element %d is %T", ErrMismatch, i, item)
			}
			off, err := packMap(b, s, t, sub)
			if err != nil {
				return 0, err
			}
			offs[i] = off
		}
		return b.CreateOffsetVector(offs)
	}
	scalars := make([]any, n)
	for i, item := range items {
		x, err := toScalar(f.Elem, item)
		if err != nil {
			return 0, fmt.Errorf("element %d: %w", i, err)
		}
		scalars[i] = x
	}
	size := f.Elem.Size()
	if err := b.StartVector(size, n, size); err != nil {
		return 0, err
	}
	for i := n - 1; i >= 0; i-- {
		if err := prependScalar(b, f.Elem, scalars[i]); err != nil {
			return 0, err
		}
	}
	return b.EndVector(n)
}

func toBytes(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	}
	items, err := toList(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(items))
	for i, item := range items {
		x, err := toScalar(schema.TypeUint8, item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = x.(uint8)
	}
	return out, nil
}

func toList(v any) ([]any, error) {
	if items, ok := v.([]any); ok {
		return items, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: %T for vector", ErrMismatch, v)
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UnpackMap reads table t of the named schema table into an owned map.
// Scalars are always present, holding the default when absent on the wire;
// out-of-line fields appear only when present.
func UnpackMap(s *schema.Schema, table string, t flat.Table) (map[string]any, error) {
	st, ok := s.Table(table)
	if !ok {
		return nil, fmt.Errorf("%w: unknown table %q", ErrMismatch, table)
	}
	return unpackMap(s, st, t)
}

func unpackMap(s *schema.Schema, st *schema.Table, t flat.Table) (map[string]any, error) {
	out := make(map[string]any, len(st.Fields))
	for _, f := range st.Fields {
		if f.Deprecated {
			continue
		}
		v, ok, err := unpackDynamic(s, f, t)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		if ok {
			out[f.Name] = v
		}
	}
	return out, nil
}

func unpackDynamic(s *schema.Schema, f *schema.Field, t flat.Table) (any, bool, error) {
	slot := f.Slot()
	switch f.Type {
	case schema.TypeString:
		p, err := t.ByteVectorSlot(slot)
		if err != nil || p == nil {
			return nil, false, err
		}
		return string(p), true, nil
	case schema.TypeBytes:
		p, err := t.ByteVectorSlot(slot)
		if err != nil || p == nil {
			return nil, false, err
		}
		return bytes.Clone(p), true, nil
	case schema.TypeTable:
		sub, ok, err := t.TableSlot(slot)
		if err != nil || !ok {
			return nil, false, err
		}
		st, _ := s.Table(f.Table)
		m, err := unpackMap(s, st, sub)
		return m, err == nil, err
	case schema.TypeVector:
		vec, ok, err := t.VectorSlot(slot, f.ElemSize())
		if err != nil || !ok {
			return nil, false, err
		}
		if f.Elem == schema.TypeUint8 {
			return bytes.Clone(vec.Raw()), true, nil
		}
		items, err := unpackDynamicVector(s, f, vec)
		return items, err == nil, err
	}
	x, err := readScalar(t, slot, f.Type, f.DefaultValue())
	return x, err == nil, err
}

func unpackDynamicVector(s *schema.Schema, f *schema.Field, vec flat.Vector) ([]any, error) {
	items := make([]any, vec.Len())
	for i := range items {
		var (
			x   any
			err error
		)
		switch f.Elem {
		case schema.TypeString:
			x, err = vec.String(i)
		case schema.TypeTable:
			var sub flat.Table
			sub, err = vec.Table(i)
			if err == nil {
				st, _ := s.Table(f.Table)
				x, err = unpackMap(s, st, sub)
			}
		default:
			x, err = vectorScalar(vec, i, f.Elem)
		}
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		items[i] = x
	}
	return items, nil
}
