package flat

import "fmt"

// Table is a zero-copy view of a table at Pos within a finished buffer.
// Every accessor bounds-checks the offsets it follows; a broken field only
// fails the call that reads it.
type Table struct {
	Bytes []byte
	Pos   UOffsetT
}

// Vtable resolves and validates the table's vtable.
func (t Table) Vtable() (Vtable, error) {
	n := int64(len(t.Bytes))
	if int64(t.Pos)+SizeSOffsetT > n {
		return Vtable{}, fmt.Errorf("%w: table at %d outside %d bytes", ErrMalformedBuffer, t.Pos, n)
	}
	vt := int64(t.Pos) - int64(GetSOffsetT(t.Bytes[t.Pos:]))
	if vt < 0 || vt+VtableMetadataFields*SizeVOffsetT > n {
		return Vtable{}, fmt.Errorf("%w: vtable at %d for table at %d", ErrMalformedBuffer, vt, t.Pos)
	}
	v := Vtable{Bytes: t.Bytes, Pos: UOffsetT(vt)}
	size, tsize := int64(v.Size()), int64(v.TableSize())
	if size < VtableMetadataFields*SizeVOffsetT || size%SizeVOffsetT != 0 || vt+size > n {
		return Vtable{}, fmt.Errorf("%w: vtable at %d has size %d", ErrMalformedBuffer, vt, size)
	}
	if tsize < SizeSOffsetT || int64(t.Pos)+tsize > n {
		return Vtable{}, fmt.Errorf("%w: table at %d has size %d", ErrMalformedBuffer, t.Pos, tsize)
	}
	return v, nil
}

// Offset returns the vtable entry for slot: 0 when the field is absent,
// including slots the writer's schema did not have yet.
func (t Table) Offset(slot int) (VOffsetT, error) {
	if slot < 0 {
		return 0, fmt.Errorf("%w: slot %d", ErrIndexOutOfRange, slot)
	}
	v, err := t.Vtable()
	if err != nil {
		return 0, err
	}
	return v.FieldOffset(slot), nil
}

// Has reports whether slot is present.
func (t Table) Has(slot int) (bool, error) {
	off, err := t.Offset(slot)
	return off != 0, err
}

// field returns the absolute position of a present field of width bytes.
func (t Table) field(slot, width int) (UOffsetT, bool, error) {
	if slot < 0 {
		return 0, false, fmt.Errorf("%w: slot %d", ErrIndexOutOfRange, slot)
	}
	v, err := t.Vtable()
	if err != nil {
		return 0, false, err
	}
	off := v.FieldOffset(slot)
	if off == 0 {
		return 0, false, nil
	}
	if int(off) < SizeSOffsetT || int(off)+width > int(v.TableSize()) {
		return 0, false, fmt.Errorf("%w: field %d at offset %d overruns table of %d bytes",
			ErrMalformedBuffer, slot, off, v.TableSize())
	}
	return t.Pos + UOffsetT(off), true, nil
}

func (t Table) GetBoolSlot(slot int, d bool) (bool, error) {
	pos, ok, err := t.field(slot, SizeBool)
	if err != nil || !ok {
		return d, err
	}
	return GetBool(t.Bytes[pos:]), nil
}

func (t Table) GetByteSlot(slot int, d byte) (byte, error) {
	return t.GetUint8Slot(slot, d)
}

func (t Table) GetUint8Slot(slot int, d uint8) (uint8, error) {
	pos, ok, err := t.field(slot, SizeUint8)
	if err != nil || !ok {
		return d, err
	}
	return GetUint8(t.Bytes[pos:]), nil
}

func (t Table) GetInt8Slot(slot int, d int8) (int8, error) {
	pos, ok, err := t.field(slot, SizeInt8)
	if err != nil || !ok {
		return d, err
	}
	return GetInt8(t.Bytes[pos:]), nil
}

func (t Table) GetUint16Slot(slot int, d uint16) (uint16, error) {
	pos, ok, err := t.field(slot, SizeUint16)
	if err != nil || !ok {
		return d, err
	}
	return GetUint16(t.Bytes[pos:]), nil
}

func (t Table) GetInt16Slot(slot int, d int16) (int16, error) {
	pos, ok, err := t.field(slot, SizeInt16)
	if err != nil || !ok {
		return d, err
	}
	return GetInt16(t.Bytes[pos:]), nil
}

func (t Table) GetUint32Slot(slot int, d uint32) (uint32, error) {
	pos, ok, err := t.field(slot, SizeUint32)
	if err != nil || !ok {
		return d, err
	}
	return GetUint32(t.Bytes[pos:]), nil
}

func (t Table) GetInt32Slot(slot int, d int32) (int32, error) {
	pos, ok, err := t.field(slot, SizeInt32)
	if err != nil || !ok {
		return d, err
	}
	return GetInt32(t.Bytes[pos:]), nil
}

func (t Table) GetUint64Slot(slot int, d uint64) (uint64, error) {
	pos, ok, err := t.field(slot, SizeUint64)
	if err != nil || !ok {
		return d, err
	}
	return GetUint64(t.Bytes[pos:]), nil
}

func (t Table) GetInt64Slot(slot int, d int64) (int64, error) {
	pos, ok, err := t.field(slot, SizeInt64)
	if err != nil || !ok {
		return d, err
	}
	return GetInt64(t.Bytes[pos:]), nil
}

func (t Table) GetFloat32Slot(slot int, d float32) (float32, error) {
	pos, ok, err := t.field(slot, SizeFloat32)
	if err != nil || !ok {
		return d, err
	}
	return GetFloat32(t.Bytes[pos:]), nil
}

func (t Table) GetFloat64Slot(slot int, d float64) (float64, error) {
	pos, ok, err := t.field(slot, SizeFloat64)
	if err != nil || !ok {
		return d, err
	}
	return GetFloat64(t.Bytes[pos:]), nil
}

// Indirect follows the reference stored at pos and returns its target.
func (t Table) Indirect(pos UOffsetT) (UOffsetT, error) {
	return indirect(t.Bytes, pos)
}

func indirect(buf []byte, pos UOffsetT) (UOffsetT, error) {
	if int64(pos)+SizeUOffsetT > int64(len(buf)) {
		return 0, fmt.Errorf("%w: reference at %d outside %d bytes", ErrMalformedBuffer, pos, len(buf))
	}
	target := int64(pos) + int64(GetUOffsetT(buf[pos:]))
	if target >= int64(len(buf)) {
		return 0, fmt.Errorf("%w: reference at %d points to %d, past %d bytes", ErrMalformedBuffer, pos, target, len(buf))
	}
	return UOffsetT(target), nil
}

// ref resolves a reference field to the position of its target.
func (t Table) ref(slot int) (UOffsetT, bool, error) {
	pos, ok, err := t.field(slot, SizeUOffsetT)
	if err != nil || !ok {
		return 0, false, err
	}
	target, err := indirect(t.Bytes, pos)
	if err != nil {
		return 0, false, err
	}
	return target, true, nil
}

// vectorAt reads the vector header at pos and checks its elements fit.
func vectorAt(buf []byte, pos UOffsetT, elemSize int) (Vector, error) {
	n := int64(len(buf))
	if int64(pos)+SizeUint32 > n {
		return Vector{}, fmt.Errorf("%w: vector at %d outside %d bytes", ErrMalformedBuffer, pos, n)
	}
	count := int64(GetUint32(buf[pos:]))
	start := int64(pos) + SizeUint32
	if start+count*int64(elemSize) > n {
		return Vector{}, fmt.Errorf("%w: vector at %d of %d elements overruns %d bytes", ErrMalformedBuffer, pos, count, n)
	}
	return Vector{Bytes: buf, Start: UOffsetT(start), Count: int(count), ElemSize: elemSize}, nil
}

// VectorSlot resolves a vector field. ok is false when the field is absent.
func (t Table) VectorSlot(slot, elemSize int) (Vector, bool, error) {
	target, ok, err := t.ref(slot)
	if err != nil || !ok {
		return Vector{}, false, err
	}
	v, err := vectorAt(t.Bytes, target, elemSize)
	if err != nil {
		return Vector{}, false, err
	}
	return v, true, nil
}

// ByteVectorSlot returns a view of a byte vector or string field, nil when
// absent. The slice aliases the buffer.
func (t Table) ByteVectorSlot(slot int) ([]byte, error) {
	v, ok, err := t.VectorSlot(slot, SizeByte)
	if err != nil || !ok {
		return nil, err
	}
	return v.Raw(), nil
}

// StringSlot returns an owned copy of a string field, d when absent.
func (t Table) StringSlot(slot int, d string) (string, error) {
	p, err := t.ByteVectorSlot(slot)
	if err != nil || p == nil {
		return d, err
	}
	return string(p), nil
}

// TableSlot resolves a nested table field. ok is false when absent.
func (t Table) TableSlot(slot int) (Table, bool, error) {
	target, ok, err := t.ref(slot)
	if err != nil || !ok {
		return Table{}, false, err
	}
	return Table{Bytes: t.Bytes, Pos: target}, true, nil
}
