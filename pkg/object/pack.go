package object

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/rawbytedev/flatwire/pkg/flat"
	"github.com/rawbytedev/flatwire/pkg/schema"
)

// Pack serializes the struct v (or pointer to struct) into b, children
// first, and returns the offset of its table. Empty strings and nil slices
// and pointers are written as absent fields.
func Pack(b *flat.Builder, v any) (flat.UOffsetT, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return 0, ErrNotStruct
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return 0, ErrNotStruct
	}
	p, err := PlanOf(rv.Type())
	if err != nil {
		return 0, err
	}
	return p.pack(b, rv, make(path))
}

// path holds the structs on the current descent so a pointer back into it
// is reported instead of recursing forever.
type path map[visit]struct{}

type visit struct {
	addr uintptr
	typ  reflect.Type
}

func (p *Plan) pack(b *flat.Builder, rv reflect.Value, seen path) (flat.UOffsetT, error) {
	if rv.CanAddr() {
		k := visit{rv.UnsafeAddr(), rv.Type()}
		if _, ok := seen[k]; ok {
			return 0, fmt.Errorf("%w: cycle at %s", ErrCycle, rv.Type())
		}
		seen[k] = struct{}{}
		defer delete(seen, k)
	}
	refs := make([]flat.UOffsetT, len(p.fields))
	for i := range p.fields {
		fp := &p.fields[i]
		if fp.field.Deprecated || fp.field.Type.IsScalar() {
			continue
		}
		off, err := fp.packChild(b, rv.FieldByIndex(fp.index), seen)
		if err != nil {
			return 0, err
		}
		refs[i] = off
	}

	if err := b.StartTable(p.table.NumSlots()); err != nil {
		return 0, err
	}
	for _, i := range p.order {
		fp := &p.fields[i]
		f := fp.field
		if f.Deprecated {
			continue
		}
		if f.Type.IsScalar() {
			addScalar(b, f.Slot(), f.Type, scalarOf(rv.FieldByIndex(fp.index), f.Type), f.DefaultValue())
			continue
		}
		b.AddOffset(f.Slot(), refs[i])
	}
	return b.EndTable()
}

// packChild writes the out-of-line value of a field and returns its offset,
// or 0 when the field is to be left absent.
func (fp *fieldPlan) packChild(b *flat.Builder, fv reflect.Value, seen path) (flat.UOffsetT, error) {
	f := fp.field
	switch f.Type {
	case schema.TypeString:
		if fv.Len() == 0 {
			return 0, nil
		}
		return b.CreateString(fv.String())
	case schema.TypeBytes:
		if fv.IsNil() {
			return 0, nil
		}
		return b.CreateByteVector(fv.Bytes())
	case schema.TypeTable:
		if fp.ptr {
			if fv.IsNil() {
				return 0, nil
			}
			fv = fv.Elem()
		}
		return fp.sub.pack(b, fv, seen)
	case schema.TypeVector:
		if fv.IsNil() {
			return 0, nil
		}
		return fp.packVector(b, fv, seen)
	}
	return 0, fmt.Errorf("%w: field %q of type %s", ErrUnsupported, f.Name, f.Type)
}

func (fp *fieldPlan) packVector(b *flat.Builder, fv reflect.Value, seen path) (flat.UOffsetT, error) {
	f := fp.field
	n := fv.Len()
	switch {
	case f.Elem.IsScalar():
		size := f.Elem.Size()
		if err := b.StartVector(size, n, size); err != nil {
			return 0, err
		}
		for i := n - 1; i >= 0; i-- {
			if err := prependScalar(b, f.Elem, scalarOf(fv.Index(i), f.Elem)); err != nil {
				return 0, err
			}
		}
		return b.EndVector(n)
	case f.Elem == schema.TypeString:
		offs := make([]flat.UOffsetT, n)
		for i := 0; i < n; i++ {
			off, err := b.CreateString(fv.Index(i).String())
			if err != nil {
				return 0, err
			}
			offs[i] = off
		}
		return b.CreateOffsetVector(offs)
	case f.Elem == schema.TypeTable:
		offs := make([]flat.UOffsetT, n)
		for i := 0; i < n; i++ {
			ev := fv.Index(i)
			if fp.ptr {
				if ev.IsNil() {
					return 0, fmt.Errorf("%w: nil element %d in %q", ErrUnsupported, i, f.Name)
				}
				ev = ev.Elem()
			}
			off, err := fp.sub.pack(b, ev, seen)
			if err != nil {
				return 0, err
			}
			offs[i] = off
		}
		return b.CreateOffsetVector(offs)
	}
	return 0, fmt.Errorf("%w: vector of %s", ErrUnsupported, f.Elem)
}

// Unpack deep-copies table t into the struct out points to. Every planned
// field is assigned, absent ones to their default or zero value, so out
// never aliases the buffer.
func Unpack(t flat.Table, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrNotStructPtr
	}
	p, err := PlanOf(rv.Elem().Type())
	if err != nil {
		return err
	}
	return p.unpack(t, rv.Elem())
}

func (p *Plan) unpack(t flat.Table, rv reflect.Value) error {
	for i := range p.fields {
		fp := &p.fields[i]
		fv := rv.FieldByIndex(fp.index)
		if fp.field.Deprecated {
			fv.Set(reflect.Zero(fv.Type()))
			continue
		}
		if err := fp.unpackField(t, fv); err != nil {
			return fmt.Errorf("field %q: %w", fp.field.Name, err)
		}
	}
	return nil
}

func (fp *fieldPlan) unpackField(t flat.Table, fv reflect.Value) error {
	f := fp.field
	slot := f.Slot()
	switch {
	case f.Type.IsScalar():
		x, err := readScalar(t, slot, f.Type, f.DefaultValue())
		if err != nil {
			return err
		}
		setScalar(fv, x)
	case f.Type == schema.TypeString:
		s, err := t.StringSlot(slot, "")
		if err != nil {
			return err
		}
		fv.SetString(s)
	case f.Type == schema.TypeBytes:
		p, err := t.ByteVectorSlot(slot)
		if err != nil {
			return err
		}
		if p == nil {
			fv.Set(reflect.Zero(fv.Type()))
			return nil
		}
		fv.SetBytes(bytes.Clone(p))
	case f.Type == schema.TypeTable:
		sub, ok, err := t.TableSlot(slot)
		if err != nil {
			return err
		}
		if !ok {
			fv.Set(reflect.Zero(fv.Type()))
			return nil
		}
		if fp.ptr {
			nv := reflect.New(fv.Type().Elem())
			if err := fp.sub.unpack(sub, nv.Elem()); err != nil {
				return err
			}
			fv.Set(nv)
			return nil
		}
		return fp.sub.unpack(sub, fv)
	case f.Type == schema.TypeVector:
		vec, ok, err := t.VectorSlot(slot, f.ElemSize())
		if err != nil {
			return err
		}
		if !ok {
			fv.Set(reflect.Zero(fv.Type()))
			return nil
		}
		return fp.unpackVector(vec, fv)
	}
	return nil
}

func (fp *fieldPlan) unpackVector(vec flat.Vector, fv reflect.Value) error {
	f := fp.field
	n := vec.Len()
	out := reflect.MakeSlice(fv.Type(), n, n)
	for i := 0; i < n; i++ {
		ev := out.Index(i)
		switch f.Elem {
		case schema.TypeString:
			s, err := vec.String(i)
			if err != nil {
				return err
			}
			ev.SetString(s)
		case schema.TypeTable:
			sub, err := vec.Table(i)
			if err != nil {
				return err
			}
			if fp.ptr {
				nv := reflect.New(ev.Type().Elem())
				if err := fp.sub.unpack(sub, nv.Elem()); err != nil {
					return err
				}
				ev.Set(nv)
				continue
			}
			if err := fp.sub.unpack(sub, ev); err != nil {
				return err
			}
		default:
			x, err := vectorScalar(vec, i, f.Elem)
			if err != nil {
				return err
			}
			setScalar(ev, x)
		}
	}
	fv.Set(out)
	return nil
}
