package flat

import (
	"fmt"
	"math"

	"github.com/rawbytedev/flatwire/internal/common"
)

type buildState uint8

const (
	stateIdle buildState = iota
	stateTable
	stateVector
)

func (s buildState) String() string {
	switch s {
	case stateTable:
		return "table"
	case stateVector:
		return "vector"
	default:
		return "nothing"
	}
}

// MaxSlots is the most fields a table may declare; it keeps the vtable size
// representable as a VOffsetT.
const MaxSlots = math.MaxUint16/SizeVOffsetT - VtableMetadataFields

// Builder serializes a graph of tables, vectors and strings back to front.
// Children must be finished before the tables that reference them.
//
// The first error is sticky: every later structural call returns it and
// FinishedBytes never hands out a partial buffer.
type Builder struct {
	buf *Buffer

	vtable    []UOffsetT
	objectEnd UOffsetT
	vtables   *VtableCache
	scratch   []byte

	state       buildState
	vectorStart UOffsetT
	vectorElem  int

	lastFinished  UOffsetT
	finished      bool
	forceDefaults bool
	dedup         bool
	err           error
}

// NewBuilder returns a Builder whose buffer starts with initialSize bytes.
func NewBuilder(initialSize int) *Builder {
	if initialSize <= 0 {
		initialSize = 1024
	}
	return &Builder{
		buf:     NewBuffer(initialSize),
		vtables: NewVtableCache(),
		dedup:   true,
	}
}

// Reset clears the builder for a new build session, keeping its allocations
// and options.
func (b *Builder) Reset() {
	b.buf.Reset()
	b.vtable = b.vtable[:0]
	b.objectEnd = 0
	b.vtables.Reset()
	b.state = stateIdle
	b.vectorStart = 0
	b.vectorElem = 0
	b.lastFinished = 0
	b.finished = false
	b.err = nil
}

// ForceDefaults makes Add* write fields even when they equal the default.
func (b *Builder) ForceDefaults(force bool) {
	b.forceDefaults = force
}

// DedupVtables switches vtable sharing on or off. It is on by default.
func (b *Builder) DedupVtables(dedup bool) {
	b.dedup = dedup
}

// Err returns the sticky error, if any.
func (b *Builder) Err() error {
	return b.err
}

// Offset is the current end-relative write position.
func (b *Builder) Offset() UOffsetT {
	return b.buf.Offset()
}

// Vtables reports the state of the vtable cache for this session.
func (b *Builder) Vtables() CacheStats {
	return b.vtables.Stats()
}

func (b *Builder) fail(err error) error {
	if b.err == nil {
		b.err = err
	}
	return b.err
}

func (b *Builder) orderingf(format string, args ...any) error {
	return b.fail(fmt.Errorf("%w: "+format, append([]any{ErrOrdering}, args...)...))
}

// idle checks that no object is open and the buffer is not finished.
func (b *Builder) idle(op string) error {
	if b.err != nil {
		return b.err
	}
	if b.finished {
		return b.orderingf("%s after Finish", op)
	}
	if b.state != stateIdle {
		return b.orderingf("%s while a %s is open", op, b.state)
	}
	return nil
}

// checkRef validates that off names an object that is already finished.
func (b *Builder) checkRef(off UOffsetT) error {
	if off == 0 || off > b.lastFinished {
		return b.orderingf("offset %d is not a finished object (highest finished %d)", off, b.lastFinished)
	}
	return nil
}

// StartTable begins a table with numFields slots.
func (b *Builder) StartTable(numFields int) error {
	if err := b.idle("StartTable"); err != nil {
		return err
	}
	if numFields < 0 || numFields > MaxSlots {
		return b.orderingf("table with %d fields", numFields)
	}
	if cap(b.vtable) < numFields {
		b.vtable = make([]UOffsetT, numFields)
	} else {
		b.vtable = b.vtable[:numFields]
		clear(b.vtable)
	}
	b.objectEnd = b.buf.Offset()
	b.state = stateTable
	return nil
}

// slotOK validates a field write before any bytes are placed.
func (b *Builder) slotOK(slot int) bool {
	if b.err != nil {
		return false
	}
	if b.state != stateTable {
		b.orderingf("field %d added outside a table", slot)
		return false
	}
	if slot < 0 || slot >= len(b.vtable) {
		b.orderingf("slot %d outside table of %d fields", slot, len(b.vtable))
		return false
	}
	return true
}

func (b *Builder) check(err error) bool {
	if err != nil {
		b.fail(err)
		return false
	}
	return true
}

// record marks slot as present at the current offset.
func (b *Builder) record(slot int) {
	b.vtable[slot] = b.buf.Offset()
}

func (b *Builder) AddBool(slot int, x, d bool) {
	if !b.slotOK(slot) || (x == d && !b.forceDefaults) {
		return
	}
	if b.check(b.buf.PrependBool(x)) {
		b.record(slot)
	}
}

func (b *Builder) AddByte(slot int, x, d byte) {
	b.AddUint8(slot, x, d)
}

func (b *Builder) AddUint8(slot int, x, d uint8) {
	if !b.slotOK(slot) || (x == d && !b.forceDefaults) {
		return
	}
	if b.check(b.buf.PrependUint8(x)) {
		b.record(slot)
	}
}

func (b *Builder) AddInt8(slot int, x, d int8) {
	if !b.slotOK(slot) || (x == d && !b.forceDefaults) {
		return
	}
	if b.check(b.buf.PrependInt8(x)) {
		b.record(slot)
	}
}

func (b *Builder) AddUint16(slot int, x, d uint16) {
	if !b.slotOK(slot) || (x == d && !b.forceDefaults) {
		return
	}
	if b.check(b.buf.PrependUint16(x)) {
		b.record(slot)
	}
}

func (b *Builder) AddInt16(slot int, x, d int16) {
	if !b.slotOK(slot) || (x == d && !b.forceDefaults) {
		return
	}
	if b.check(b.buf.PrependInt16(x)) {
		b.record(slot)
	}
}

func (b *Builder) AddUint32(slot int, x, d uint32) {
	if !b.slotOK(slot) || (x == d && !b.forceDefaults) {
		return
	}
	if b.check(b.buf.PrependUint32(x)) {
		b.record(slot)
	}
}

func (b *Builder) AddInt32(slot int, x, d int32) {
	if !b.slotOK(slot) || (x == d && !b.forceDefaults) {
		return
	}
	if b.check(b.buf.PrependInt32(x)) {
		b.record(slot)
	}
}

func (b *Builder) AddUint64(slot int, x, d uint64) {
	if !b.slotOK(slot) || (x == d && !b.forceDefaults) {
		return
	}
	if b.check(b.buf.PrependUint64(x)) {
		b.record(slot)
	}
}

func (b *Builder) AddInt64(slot int, x, d int64) {
	if !b.slotOK(slot) || (x == d && !b.forceDefaults) {
		return
	}
	if b.check(b.buf.PrependInt64(x)) {
		b.record(slot)
	}
}

func (b *Builder) AddFloat32(slot int, x, d float32) {
	if !b.slotOK(slot) || (x == d && !b.forceDefaults) {
		return
	}
	if b.check(b.buf.PrependFloat32(x)) {
		b.record(slot)
	}
}

func (b *Builder) AddFloat64(slot int, x, d float64) {
	if !b.slotOK(slot) || (x == d && !b.forceDefaults) {
		return
	}
	if b.check(b.buf.PrependFloat64(x)) {
		b.record(slot)
	}
}

// AddOffset stores a reference to a finished string, vector or table.
// An offset of 0 means absent and writes nothing.
func (b *Builder) AddOffset(slot int, off UOffsetT) {
	if !b.slotOK(slot) || off == 0 || b.checkRef(off) != nil {
		return
	}
	if b.check(b.buf.PrependUOffsetT(off)) {
		b.record(slot)
	}
}

// EndTable writes the table header and its vtable, sharing an existing
// vtable with identical content when dedup is on.
func (b *Builder) EndTable() (UOffsetT, error) {
	if b.err != nil {
		return 0, b.err
	}
	if b.state != stateTable {
		return 0, b.orderingf("EndTable while a %s is open", b.state)
	}
	off, err := b.writeVtable()
	b.state = stateIdle
	if err != nil {
		return 0, b.fail(err)
	}
	b.lastFinished = b.buf.Offset()
	return off, nil
}

func (b *Builder) writeVtable() (UOffsetT, error) {
	if err := b.buf.PrependSOffsetT(0); err != nil {
		return 0, err
	}
	objectOffset := b.buf.Offset()

	i := len(b.vtable) - 1
	for ; i >= 0 && b.vtable[i] == 0; i-- {
	}
	fields := b.vtable[:i+1]

	objectSize := objectOffset - b.objectEnd
	if objectSize > math.MaxUint16 {
		return 0, fmt.Errorf("%w: table of %d bytes", ErrCapacity, objectSize)
	}
	vtBytes := (len(fields) + VtableMetadataFields) * SizeVOffsetT
	if cap(b.scratch) < vtBytes {
		b.scratch = make([]byte, vtBytes)
	}
	vt := b.scratch[:vtBytes]
	WriteVOffsetT(vt, VOffsetT(vtBytes))
	WriteVOffsetT(vt[SizeVOffsetT:], VOffsetT(objectSize))
	for slot, fieldOff := range fields {
		var v VOffsetT
		if fieldOff != 0 {
			v = VOffsetT(objectOffset - fieldOff)
		}
		WriteVOffsetT(vt[SlotVOffset(slot):], v)
	}

	if b.dedup {
		if existing, ok := b.vtables.Lookup(vt); ok {
			b.buf.PutSOffsetTAt(objectOffset, SOffsetT(existing)-SOffsetT(objectOffset))
			return objectOffset, nil
		}
	}

	if err := b.buf.Prep(SizeVOffsetT, vtBytes); err != nil {
		return 0, err
	}
	b.buf.PlaceBytes(vt)
	vtOffset := b.buf.Offset()
	b.buf.PutSOffsetTAt(objectOffset, SOffsetT(vtOffset)-SOffsetT(objectOffset))
	if b.dedup {
		b.vtables.Insert(vt, vtOffset)
	}
	return objectOffset, nil
}

// CreateString writes s as a NUL-terminated byte vector.
func (b *Builder) CreateString(s string) (UOffsetT, error) {
	if err := b.idle("CreateString"); err != nil {
		return 0, err
	}
	if err := b.buf.Prep(SizeUOffsetT, len(s)+1); err != nil {
		return 0, b.fail(err)
	}
	b.buf.PlaceByte(0)
	b.buf.PlaceString(s)
	b.buf.PlaceUOffsetT(UOffsetT(len(s)))
	b.lastFinished = b.buf.Offset()
	return b.lastFinished, nil
}

// CreateByteString writes p like CreateString, NUL terminator included.
func (b *Builder) CreateByteString(p []byte) (UOffsetT, error) {
	if err := b.idle("CreateByteString"); err != nil {
		return 0, err
	}
	if err := b.buf.Prep(SizeUOffsetT, len(p)+1); err != nil {
		return 0, b.fail(err)
	}
	b.buf.PlaceByte(0)
	b.buf.PlaceBytes(p)
	b.buf.PlaceUOffsetT(UOffsetT(len(p)))
	b.lastFinished = b.buf.Offset()
	return b.lastFinished, nil
}

// CreateByteVector writes p as a ubyte vector.
func (b *Builder) CreateByteVector(p []byte) (UOffsetT, error) {
	if err := b.idle("CreateByteVector"); err != nil {
		return 0, err
	}
	if err := b.buf.Prep(SizeUOffsetT, len(p)); err != nil {
		return 0, b.fail(err)
	}
	b.buf.PlaceBytes(p)
	b.buf.PlaceUOffsetT(UOffsetT(len(p)))
	b.lastFinished = b.buf.Offset()
	return b.lastFinished, nil
}

// CreateOffsetVector writes a vector of references to finished objects,
// in the given order.
func (b *Builder) CreateOffsetVector(offs []UOffsetT) (UOffsetT, error) {
	if err := b.StartVector(SizeUOffsetT, len(offs), SizeUOffsetT); err != nil {
		return 0, err
	}
	for i := len(offs) - 1; i >= 0; i-- {
		if err := b.PrependUOffsetT(offs[i]); err != nil {
			return 0, err
		}
	}
	return b.EndVector(len(offs))
}

// StartVector begins a vector of numElems elements of elemSize bytes. The
// elements are prepended in reverse order, then EndVector writes the count.
func (b *Builder) StartVector(elemSize, numElems, alignment int) error {
	if err := b.idle("StartVector"); err != nil {
		return err
	}
	if elemSize <= 0 || numElems < 0 || !common.IsPowerOfTwo(alignment) {
		return b.orderingf("vector of %d elements of %d bytes aligned to %d", numElems, elemSize, alignment)
	}
	n := elemSize * numElems
	if err := b.buf.Prep(SizeUint32, n); err != nil {
		return b.fail(err)
	}
	if err := b.buf.Prep(alignment, n); err != nil {
		return b.fail(err)
	}
	b.state = stateVector
	b.vectorStart = b.buf.Offset()
	b.vectorElem = elemSize
	return nil
}

// EndVector writes the element count and returns the vector's offset.
func (b *Builder) EndVector(numElems int) (UOffsetT, error) {
	if b.err != nil {
		return 0, b.err
	}
	if b.state != stateVector {
		return 0, b.orderingf("EndVector while a %s is open", b.state)
	}
	written := b.buf.Offset() - b.vectorStart
	if numElems < 0 || written != UOffsetT(numElems*b.vectorElem) {
		return 0, b.orderingf("vector holds %d bytes, expected %d elements of %d", written, numElems, b.vectorElem)
	}
	b.state = stateIdle
	if err := b.buf.PrependUint32(uint32(numElems)); err != nil {
		return 0, b.fail(err)
	}
	b.lastFinished = b.buf.Offset()
	return b.lastFinished, nil
}

func (b *Builder) inVector(op string) bool {
	if b.err != nil {
		return false
	}
	if b.state != stateVector {
		b.orderingf("%s while a %s is open", op, b.state)
		return false
	}
	return true
}

func (b *Builder) PrependBool(x bool) error {
	if b.inVector("PrependBool") {
		b.check(b.buf.PrependBool(x))
	}
	return b.err
}

func (b *Builder) PrependByte(x byte) error {
	if b.inVector("PrependByte") {
		b.check(b.buf.PrependByte(x))
	}
	return b.err
}

func (b *Builder) PrependUint8(x uint8) error {
	if b.inVector("PrependUint8") {
		b.check(b.buf.PrependUint8(x))
	}
	return b.err
}

func (b *Builder) PrependInt8(x int8) error {
	if b.inVector("PrependInt8") {
		b.check(b.buf.PrependInt8(x))
	}
	return b.err
}

func (b *Builder) PrependUint16(x uint16) error {
	if b.inVector("PrependUint16") {
		b.check(b.buf.PrependUint16(x))
	}
	return b.err
}

func (b *Builder) PrependInt16(x int16) error {
	if b.inVector("PrependInt16") {
		b.check(b.buf.PrependInt16(x))
	}
	return b.err
}

func (b *Builder) PrependUint32(x uint32) error {
	if b.inVector("PrependUint32") {
		b.check(b.buf.PrependUint32(x))
	}
	return b.err
}

func (b *Builder) PrependInt32(x int32) error {
	if b.inVector("PrependInt32") {
		b.check(b.buf.PrependInt32(x))
	}
	return b.err
}

func (b *Builder) PrependUint64(x uint64) error {
	if b.inVector("PrependUint64") {
		b.check(b.buf.PrependUint64(x))
	}
	return b.err
}

func (b *Builder) PrependInt64(x int64) error {
	if b.inVector("PrependInt64") {
		b.check(b.buf.PrependInt64(x))
	}
	return b.err
}

func (b *Builder) PrependFloat32(x float32) error {
	if b.inVector("PrependFloat32") {
		b.check(b.buf.PrependFloat32(x))
	}
	return b.err
}

func (b *Builder) PrependFloat64(x float64) error {
	if b.inVector("PrependFloat64") {
		b.check(b.buf.PrependFloat64(x))
	}
	return b.err
}

// PrependUOffsetT adds a reference to a finished object as a vector element.
func (b *Builder) PrependUOffsetT(off UOffsetT) error {
	if b.inVector("PrependUOffsetT") && b.checkRef(off) == nil {
		b.check(b.buf.PrependUOffsetT(off))
	}
	return b.err
}

// Finish writes the root pointer and seals the buffer.
func (b *Builder) Finish(root UOffsetT) error {
	return b.finish(root, "", false)
}

// FinishWithFileIdentifier is Finish with a 4-byte identifier after the root
// pointer.
func (b *Builder) FinishWithFileIdentifier(root UOffsetT, fid string) error {
	return b.finish(root, fid, false)
}

// FinishSizePrefixed is Finish with a uint32 length in front of the buffer.
func (b *Builder) FinishSizePrefixed(root UOffsetT) error {
	return b.finish(root, "", true)
}

func (b *Builder) FinishSizePrefixedWithFileIdentifier(root UOffsetT, fid string) error {
	return b.finish(root, fid, true)
}

func (b *Builder) finish(root UOffsetT, fid string, sizePrefix bool) error {
	if err := b.idle("Finish"); err != nil {
		return err
	}
	if err := b.checkRef(root); err != nil {
		return err
	}
	extra := SizeUOffsetT
	if sizePrefix {
		extra += SizePrefixLength
	}
	if fid != "" {
		if len(fid) != FileIdentifierLength {
			return b.orderingf("file identifier %q must be %d bytes", fid, FileIdentifierLength)
		}
		extra += FileIdentifierLength
	}
	if err := b.buf.Prep(b.buf.MinAlign(), extra); err != nil {
		return b.fail(err)
	}
	if fid != "" {
		b.buf.PlaceString(fid)
	}
	b.buf.PlaceUOffsetT(b.buf.Offset() - root + SizeUOffsetT)
	if sizePrefix {
		b.buf.PlaceUint32(uint32(b.buf.Offset()))
	}
	b.finished = true
	return nil
}

// FinishedBytes returns the finished buffer. The slice aliases the builder
// and is invalidated by Reset.
func (b *Builder) FinishedBytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	if !b.finished {
		return nil, fmt.Errorf("%w: FinishedBytes before Finish", ErrOrdering)
	}
	return b.buf.Bytes(), nil
}
