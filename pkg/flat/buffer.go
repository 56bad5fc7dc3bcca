package flat

import (
	"fmt"

	"github.com/rawbytedev/flatwire/internal/common"
)

// Buffer is a byte region filled from the back. Offsets returned by Offset
// are measured from the end so they stay valid when the region grows: growth
// copies the written tail to the end of a larger slice and never moves it
// relative to the end.
type Buffer struct {
	bytes    []byte
	head     UOffsetT
	minalign int
}

// NewBuffer returns a Buffer with initialSize bytes of capacity. The buffer
// grows as needed.
func NewBuffer(initialSize int) *Buffer {
	if initialSize < 0 {
		initialSize = 0
	}
	return &Buffer{
		bytes:    make([]byte, initialSize),
		head:     UOffsetT(initialSize),
		minalign: 1,
	}
}

// Reset discards written data and keeps the allocation.
func (b *Buffer) Reset() {
	b.bytes = b.bytes[:cap(b.bytes)]
	b.head = UOffsetT(len(b.bytes))
	b.minalign = 1
}

// Offset is the number of bytes written so far, i.e. the offset of the
// current head measured from the end.
func (b *Buffer) Offset() UOffsetT {
	return UOffsetT(len(b.bytes)) - b.head
}

// Head is the index of the first written byte in the underlying slice.
func (b *Buffer) Head() UOffsetT {
	return b.head
}

// Bytes returns the written range. It aliases the buffer.
func (b *Buffer) Bytes() []byte {
	return b.bytes[b.head:]
}

// Cap is the current size of the underlying region.
func (b *Buffer) Cap() int {
	return len(b.bytes)
}

// MinAlign is the largest alignment requested so far.
func (b *Buffer) MinAlign() int {
	return b.minalign
}

// Reserve grows the region until at least n bytes are free ahead of head.
func (b *Buffer) Reserve(n int) error {
	if n < 0 || n > MaxBufferSize {
		return fmt.Errorf("%w: reserve of %d bytes", ErrCapacity, n)
	}
	for int(b.head) < n {
		if err := b.grow(); err != nil {
			return err
		}
	}
	return nil
}

// grow doubles the region and moves the written bytes to the new end.
func (b *Buffer) grow() error {
	old := len(b.bytes)
	if old >= MaxBufferSize {
		return fmt.Errorf("%w: cannot grow past %d bytes", ErrCapacity, MaxBufferSize)
	}
	newLen := old * 2
	if newLen == 0 {
		newLen = 1
	}
	if newLen > MaxBufferSize {
		newLen = MaxBufferSize
	}
	if cap(b.bytes) >= newLen {
		b.bytes = b.bytes[:newLen]
	} else {
		b.bytes = append(b.bytes, make([]byte, newLen-old)...)
	}
	copy(b.bytes[newLen-old:], b.bytes[:old])
	b.head += UOffsetT(newLen - old)
	return nil
}

// Prep pads so that an element of size bytes is aligned once additional
// bytes have been written after the padding, and makes room for all of it.
func (b *Buffer) Prep(size, additional int) error {
	if size > b.minalign {
		b.minalign = size
	}
	pad := common.PadBytes(int(b.Offset())+additional, size)
	if err := b.Reserve(pad + size + additional); err != nil {
		return err
	}
	b.Pad(pad)
	return nil
}

// Pad writes n zero bytes. Room must already be reserved.
func (b *Buffer) Pad(n int) {
	b.head -= UOffsetT(n)
	clear(b.bytes[b.head : b.head+UOffsetT(n)])
}

// PutSOffsetTAt overwrites the SOffsetT written at end-relative offset off.
func (b *Buffer) PutSOffsetTAt(off UOffsetT, x SOffsetT) {
	WriteSOffsetT(b.bytes[UOffsetT(len(b.bytes))-off:], x)
}

func (b *Buffer) PlaceBool(x bool) {
	b.head -= SizeBool
	WriteBool(b.bytes[b.head:], x)
}

func (b *Buffer) PlaceByte(x byte) {
	b.head -= SizeByte
	WriteByte(b.bytes[b.head:], x)
}

func (b *Buffer) PlaceUint8(x uint8) {
	b.head -= SizeUint8
	WriteUint8(b.bytes[b.head:], x)
}

func (b *Buffer) PlaceInt8(x int8) {
	b.head -= SizeInt8
	WriteInt8(b.bytes[b.head:], x)
}

func (b *Buffer) PlaceUint16(x uint16) {
	b.head -= SizeUint16
	WriteUint16(b.bytes[b.head:], x)
}

func (b *Buffer) PlaceInt16(x int16) {
	b.head -= SizeInt16
	WriteInt16(b.bytes[b.head:], x)
}

func (b *Buffer) PlaceUint32(x uint32) {
	b.head -= SizeUint32
	WriteUint32(b.bytes[b.head:], x)
}

func (b *Buffer) PlaceInt32(x int32) {
	b.head -= SizeInt32
	WriteInt32(b.bytes[b.head:], x)
}

func (b *Buffer) PlaceUint64(x uint64) {
	b.head -= SizeUint64
	WriteUint64(b.bytes[b.head:], x)
}

func (b *Buffer) PlaceInt64(x int64) {
	b.head -= SizeInt64
	WriteInt64(b.bytes[b.head:], x)
}

func (b *Buffer) PlaceFloat32(x float32) {
	b.head -= SizeFloat32
	WriteFloat32(b.bytes[b.head:], x)
}

func (b *Buffer) PlaceFloat64(x float64) {
	b.head -= SizeFloat64
	WriteFloat64(b.bytes[b.head:], x)
}

func (b *Buffer) PlaceUOffsetT(x UOffsetT) {
	b.head -= SizeUOffsetT
	WriteUOffsetT(b.bytes[b.head:], x)
}

func (b *Buffer) PlaceSOffsetT(x SOffsetT) {
	b.head -= SizeSOffsetT
	WriteSOffsetT(b.bytes[b.head:], x)
}

func (b *Buffer) PlaceVOffsetT(x VOffsetT) {
	b.head -= SizeVOffsetT
	WriteVOffsetT(b.bytes[b.head:], x)
}

// PlaceBytes copies p in front of head. Room must already be reserved.
func (b *Buffer) PlaceBytes(p []byte) {
	b.head -= UOffsetT(len(p))
	copy(b.bytes[b.head:], p)
}

// PlaceString is PlaceBytes for a string.
func (b *Buffer) PlaceString(s string) {
	b.head -= UOffsetT(len(s))
	copy(b.bytes[b.head:], s)
}

func (b *Buffer) PrependBool(x bool) error {
	if err := b.Prep(SizeBool, 0); err != nil {
		return err
	}
	b.PlaceBool(x)
	return nil
}

func (b *Buffer) PrependByte(x byte) error {
	if err := b.Prep(SizeByte, 0); err != nil {
		return err
	}
	b.PlaceByte(x)
	return nil
}

func (b *Buffer) PrependUint8(x uint8) error {
	if err := b.Prep(SizeUint8, 0); err != nil {
		return err
	}
	b.PlaceUint8(x)
	return nil
}

func (b *Buffer) PrependInt8(x int8) error {
	if err := b.Prep(SizeInt8, 0); err != nil {
		return err
	}
	b.PlaceInt8(x)
	return nil
}

func (b *Buffer) PrependUint16(x uint16) error {
	if err := b.Prep(SizeUint16, 0); err != nil {
		return err
	}
	b.PlaceUint16(x)
	return nil
}

func (b *Buffer) PrependInt16(x int16) error {
	if err := b.Prep(SizeInt16, 0); err != nil {
		return err
	}
	b.PlaceInt16(x)
	return nil
}

func (b *Buffer) PrependUint32(x uint32) error {
	if err := b.Prep(SizeUint32, 0); err != nil {
		return err
	}
	b.PlaceUint32(x)
	return nil
}

func (b *Buffer) PrependInt32(x int32) error {
	if err := b.Prep(SizeInt32, 0); err != nil {
		return err
	}
	b.PlaceInt32(x)
	return nil
}

func (b *Buffer) PrependUint64(x uint64) error {
	if err := b.Prep(SizeUint64, 0); err != nil {
		return err
	}
	b.PlaceUint64(x)
	return nil
}

func (b *Buffer) PrependInt64(x int64) error {
	if err := b.Prep(SizeInt64, 0); err != nil {
		return err
	}
	b.PlaceInt64(x)
	return nil
}

func (b *Buffer) PrependFloat32(x float32) error {
	if err := b.Prep(SizeFloat32, 0); err != nil {
		return err
	}
	b.PlaceFloat32(x)
	return nil
}

func (b *Buffer) PrependFloat64(x float64) error {
	if err := b.Prep(SizeFloat64, 0); err != nil {
		return err
	}
	b.PlaceFloat64(x)
	return nil
}

func (b *Buffer) PrependSOffsetT(x SOffsetT) error {
	if err := b.Prep(SizeSOffsetT, 0); err != nil {
		return err
	}
	b.PlaceSOffsetT(x)
	return nil
}

func (b *Buffer) PrependVOffsetT(x VOffsetT) error {
	if err := b.Prep(SizeVOffsetT, 0); err != nil {
		return err
	}
	b.PlaceVOffsetT(x)
	return nil
}

// PrependUOffsetT writes a reference to off, an end-relative offset that
// must already be written. The stored value is relative to its own position.
func (b *Buffer) PrependUOffsetT(off UOffsetT) error {
	if err := b.Prep(SizeUOffsetT, 0); err != nil {
		return err
	}
	if off > b.Offset() {
		return fmt.Errorf("%w: reference to unwritten offset %d", ErrOrdering, off)
	}
	b.PlaceUOffsetT(b.Offset() - off + SizeUOffsetT)
	return nil
}

// PrependBytes copies p in front of head without alignment.
func (b *Buffer) PrependBytes(p []byte) error {
	if err := b.Reserve(len(p)); err != nil {
		return err
	}
	b.PlaceBytes(p)
	return nil
}
