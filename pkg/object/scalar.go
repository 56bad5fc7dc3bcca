package object

import (
	"fmt"
	"reflect"

	"github.com/rawbytedev/flatwire/pkg/flat"
	"github.com/rawbytedev/flatwire/pkg/schema"
)

var scalarTypes = map[schema.Type]reflect.Type{
	schema.TypeBool:    reflect.TypeOf(false),
	schema.TypeInt8:    reflect.TypeOf(int8(0)),
	schema.TypeUint8:   reflect.TypeOf(uint8(0)),
	schema.TypeInt16:   reflect.TypeOf(int16(0)),
	schema.TypeUint16:  reflect.TypeOf(uint16(0)),
	schema.TypeInt32:   reflect.TypeOf(int32(0)),
	schema.TypeUint32:  reflect.TypeOf(uint32(0)),
	schema.TypeInt64:   reflect.TypeOf(int64(0)),
	schema.TypeUint64:  reflect.TypeOf(uint64(0)),
	schema.TypeFloat32: reflect.TypeOf(float32(0)),
	schema.TypeFloat64: reflect.TypeOf(float64(0)),
}

var kindTypes = map[reflect.Kind]schema.Type{
	reflect.Bool:    schema.TypeBool,
	reflect.Int8:    schema.TypeInt8,
	reflect.Uint8:   schema.TypeUint8,
	reflect.Int16:   schema.TypeInt16,
	reflect.Uint16:  schema.TypeUint16,
	reflect.Int32:   schema.TypeInt32,
	reflect.Uint32:  schema.TypeUint32,
	reflect.Int64:   schema.TypeInt64,
	reflect.Uint64:  schema.TypeUint64,
	reflect.Float32: schema.TypeFloat32,
	reflect.Float64: schema.TypeFloat64,
	reflect.Int:     schema.TypeInt64,
	reflect.Uint:    schema.TypeUint64,
}

// scalarOf reads rv as the Go value for t.
func scalarOf(rv reflect.Value, t schema.Type) any {
	switch t {
	case schema.TypeBool:
		return rv.Bool()
	case schema.TypeInt8:
		return int8(rv.Int())
	case schema.TypeUint8:
		return uint8(rv.Uint())
	case schema.TypeInt16:
		return int16(rv.Int())
	case schema.TypeUint16:
		return uint16(rv.Uint())
	case schema.TypeInt32:
		return int32(rv.Int())
	case schema.TypeUint32:
		return uint32(rv.Uint())
	case schema.TypeInt64:
		return rv.Int()
	case schema.TypeUint64:
		return rv.Uint()
	case schema.TypeFloat32:
		return float32(rv.Float())
	case schema.TypeFloat64:
		return rv.Float()
	}
	return nil
}

func setScalar(fv reflect.Value, x any) {
	fv.Set(reflect.ValueOf(x).Convert(fv.Type()))
}

// toScalar converts a loosely typed value (as produced by YAML or JSON
// decoding) to the Go value for t, rejecting values that do not fit.
func toScalar(t schema.Type, v any) (any, error) {
	goType, ok := scalarTypes[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a scalar", ErrMismatch, t)
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, fmt.Errorf("%w: nil for %s", ErrMismatch, t)
	}
	out := reflect.New(goType).Elem()
	switch {
	case t == schema.TypeBool:
		if rv.Kind() != reflect.Bool {
			return nil, fmt.Errorf("%w: %T for bool", ErrMismatch, v)
		}
		out.SetBool(rv.Bool())
	case rv.CanInt():
		n := rv.Int()
		switch {
		case out.CanInt() && !out.OverflowInt(n):
			out.SetInt(n)
		case out.CanUint() && n >= 0 && !out.OverflowUint(uint64(n)):
			out.SetUint(uint64(n))
		case out.CanFloat():
			out.SetFloat(float64(n))
		default:
			return nil, fmt.Errorf("%w: %d overflows %s", ErrMismatch, n, t)
		}
	case rv.CanUint():
		n := rv.Uint()
		switch {
		case out.CanUint() && !out.OverflowUint(n):
			out.SetUint(n)
		case out.CanInt() && n <= 1<<63-1 && !out.OverflowInt(int64(n)):
			out.SetInt(int64(n))
		case out.CanFloat():
			out.SetFloat(float64(n))
		default:
			return nil, fmt.Errorf("%w: %d overflows %s", ErrMismatch, n, t)
		}
	case rv.CanFloat():
		f := rv.Float()
		switch {
		case out.CanFloat():
			if out.OverflowFloat(f) {
				return nil, fmt.Errorf("%w: %g overflows %s", ErrMismatch, f, t)
			}
			out.SetFloat(f)
		case f != float64(int64(f)):
			return nil, fmt.Errorf("%w: %g is not an integer", ErrMismatch, f)
		default:
			return toScalar(t, int64(f))
		}
	default:
		return nil, fmt.Errorf("%w: %T for %s", ErrMismatch, v, t)
	}
	return out.Interface(), nil
}

// addScalar adds x with default d. Both must have the Go type of t.
func addScalar(b *flat.Builder, slot int, t schema.Type, x, d any) {
	switch t {
	case schema.TypeBool:
		b.AddBool(slot, x.(bool), d.(bool))
	case schema.TypeInt8:
		b.AddInt8(slot, x.(int8), d.(int8))
	case schema.TypeUint8:
		b.AddUint8(slot, x.(uint8), d.(uint8))
	case schema.TypeInt16:
		b.AddInt16(slot, x.(int16), d.(int16))
	case schema.TypeUint16:
		b.AddUint16(slot, x.(uint16), d.(uint16))
	case schema.TypeInt32:
		b.AddInt32(slot, x.(int32), d.(int32))
	case schema.TypeUint32:
		b.AddUint32(slot, x.(uint32), d.(uint32))
	case schema.TypeInt64:
		b.AddInt64(slot, x.(int64), d.(int64))
	case schema.TypeUint64:
		b.AddUint64(slot, x.(uint64), d.(uint64))
	case schema.TypeFloat32:
		b.AddFloat32(slot, x.(float32), d.(float32))
	case schema.TypeFloat64:
		b.AddFloat64(slot, x.(float64), d.(float64))
	}
}

func readScalar(tab flat.Table, slot int, t schema.Type, d any) (any, error) {
	switch t {
	case schema.TypeBool:
		return tab.GetBoolSlot(slot, d.(bool))
	case schema.TypeInt8:
		return tab.GetInt8Slot(slot, d.(int8))
	case schema.TypeUint8:
		return tab.GetUint8Slot(slot, d.(uint8))
	case schema.TypeInt16:
		return tab.GetInt16Slot(slot, d.(int16))
	case schema.TypeUint16:
		return tab.GetUint16Slot(slot, d.(uint16))
	case schema.TypeInt32:
		return tab.GetInt32Slot(slot, d.(int32))
	case schema.TypeUint32:
		return tab.GetUint32Slot(slot, d.(uint32))
	case schema.TypeInt64:
		return tab.GetInt64Slot(slot, d.(int64))
	case schema.TypeUint64:
		return tab.GetUint64Slot(slot, d.(uint64))
	case schema.TypeFloat32:
		return tab.GetFloat32Slot(slot, d.(float32))
	case schema.TypeFloat64:
		return tab.GetFloat64Slot(slot, d.(float64))
	}
	return nil, fmt.Errorf("%w: %s is not a scalar", ErrMismatch, t)
}

func prependScalar(b *flat.Builder, t schema.Type, x any) error {
	switch t {
	case schema.TypeBool:
		return b.PrependBool(x.(bool))
	case schema.TypeInt8:
		return b.PrependInt8(x.(int8))
	case schema.TypeUint8:
		return b.PrependUint8(x.(uint8))
	case schema.TypeInt16:
		return b.PrependInt16(x.(int16))
	case schema.TypeUint16:
		return b.PrependUint16(x.(uint16))
	case schema.TypeInt32:
		return b.PrependInt32(x.(int32))
	case schema.TypeUint32:
		return b.PrependUint32(x.(uint32))
	case schema.TypeInt64:
		return b.PrependInt64(x.(int64))
	case schema.TypeUint64:
		return b.PrependUint64(x.(uint64))
	case schema.TypeFloat32:
		return b.PrependFloat32(x.(float32))
	case schema.TypeFloat64:
		return b.PrependFloat64(x.(float64))
	}
	return fmt.Errorf("%w: %s is not a scalar", ErrMismatch, t)
}

func vectorScalar(v flat.Vector, i int, t schema.Type) (any, error) {
	switch t {
	case schema.TypeBool:
		return v.GetBool(i)
	case schema.TypeInt8:
		return v.GetInt8(i)
	case schema.TypeUint8:
		return v.GetUint8(i)
	case schema.TypeInt16:
		return v.GetInt16(i)
	case schema.TypeUint16:
		return v.GetUint16(i)
	case schema.TypeInt32:
		return v.GetInt32(i)
	case schema.TypeUint32:
		return v.GetUint32(i)
	case schema.TypeInt64:
		return v.GetInt64(i)
	case schema.TypeUint64:
		return v.GetUint64(i)
	case schema.TypeFloat32:
		return v.GetFloat32(i)
	case schema.TypeFloat64:
		return v.GetFloat64(i)
	}
	return nil, fmt.Errorf("%w: %s is not a scalar", ErrMismatch, t)
}
