package flat

import "errors"

type (
	// UOffsetT is an unsigned offset. The builder hands out offsets measured
	// from the end of the buffer; stored references are relative to the
	// position they are written at.
	UOffsetT uint32
	// SOffsetT is the signed table-to-vtable offset.
	SOffsetT int32
	// VOffsetT is an offset inside a vtable.
	VOffsetT uint16
)

const (
	SizeBool    = 1
	SizeByte    = 1
	SizeUint8   = 1
	SizeInt8    = 1
	SizeUint16  = 2
	SizeInt16   = 2
	SizeUint32  = 4
	SizeInt32   = 4
	SizeUint64  = 8
	SizeInt64   = 8
	SizeFloat32 = 4
	SizeFloat64 = 8

	SizeUOffsetT = 4
	SizeSOffsetT = 4
	SizeVOffsetT = 2

	// VtableMetadataFields is the number of VOffsetT entries ahead of the
	// field offsets: vtable size and table size.
	VtableMetadataFields = 2

	FileIdentifierLength = 4
	SizePrefixLength     = SizeUint32

	// MaxBufferSize bounds buffers so every offset fits in an SOffsetT.
	MaxBufferSize = 1<<31 - 1
)

var (
	// ErrCapacity is returned when the buffer cannot grow any further.
	ErrCapacity = errors.New("flat: buffer capacity exceeded")
	// ErrOrdering reports builder misuse, such as finishing a child after
	// the parent that references it.
	ErrOrdering = errors.New("flat: incorrect build order")
	// ErrIndexOutOfRange is returned for vector reads at or past the length.
	ErrIndexOutOfRange = errors.New("flat: index out of range")
	// ErrMalformedBuffer is returned when an offset leads outside the buffer.
	ErrMalformedBuffer = errors.New("flat: malformed buffer")
)

// SlotVOffset converts a field slot index into its position in a vtable.
func SlotVOffset(slot int) VOffsetT {
	return VOffsetT((VtableMetadataFields + slot) * SizeVOffsetT)
}
