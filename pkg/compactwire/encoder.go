package compactwire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	encOnce sync.Once
	enc     *zstd.Encoder
	encErr  error
)

func encoder() (*zstd.Encoder, error) {
	encOnce.Do(func() {
		enc, encErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	})
	return enc, encErr
}

func writePreamble(buf *bytes.Buffer, t FrameType) {
	buf.WriteByte(magic0)
	buf.WriteByte(magic1)
	buf.WriteByte(byte(t))
}

// seal fills in the length field and appends the checksum.
func seal(out []byte) ([]byte, error) {
	total := len(out) + crcSize
	if int64(total) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, total)
	}
	binary.LittleEndian.PutUint32(out[preambleSize:], uint32(total))
	crc := crc32.ChecksumIEEE(out[2:])
	return binary.LittleEndian.AppendUint32(out, crc), nil
}

// EncodeDataFrame serializes a payload with an optional offset table. A
// non-empty offsets sets FlagHasOffsetTable. With FlagCompressed the payload
// is zstd-compressed on the wire; offsets still refer to the raw payload.
func EncodeDataFrame(payload []byte, flags byte, offsets []uint32) ([]byte, error) {
	if len(offsets) > 0 {
		flags |= FlagHasOffsetTable
	}
	if len(offsets) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d offsets", ErrBadOffsets, len(offsets))
	}
	if flags&FlagCompressed != 0 {
		e, err := encoder()
		if err != nil {
			return nil, err
		}
		payload = e.EncodeAll(payload, nil)
	}

	buf := &bytes.Buffer{}
	buf.Grow(headerSize + 1 + 2 + 4*len(offsets) + len(payload) + crcSize)
	writePreamble(buf, TypeData)
	// length placeholder
	binary.Write(buf, binary.LittleEndian, uint32(0))
	buf.WriteByte(flags)
	if flags&FlagHasOffsetTable != 0 {
		binary.Write(buf, binary.LittleEndian, uint16(len(offsets)))
		for _, off := range offsets {
			binary.Write(buf, binary.LittleEndian, off)
		}
	}
	buf.Write(payload)
	return seal(buf.Bytes())
}

// EncodeErrorFrame builds an error frame with code and custom data.
func EncodeErrorFrame(code byte, data []byte) ([]byte, error) {
	if len(data) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d bytes of error data", ErrFrameTooLarge, len(data))
	}
	buf := &bytes.Buffer{}
	writePreamble(buf, TypeError)
	binary.Write(buf, binary.LittleEndian, uint32(0))
	buf.WriteByte(code)
	binary.Write(buf, binary.LittleEndian, uint16(len(data)))
	buf.Write(data)
	return seal(buf.Bytes())
}

// Batch concatenates finished buffers into one payload and returns the start
// offset of each, ready for EncodeDataFrame.
func Batch(bufs ...[]byte) ([]byte, []uint32, error) {
	n := 0
	for _, b := range bufs {
		n += len(b)
	}
	if int64(n) > math.MaxUint32 {
		return nil, nil, fmt.Errorf("%w: batch of %d bytes", ErrFrameTooLarge, n)
	}
	payload := make([]byte, 0, n)
	offsets := make([]uint32, len(bufs))
	for i, b := range bufs {
		offsets[i] = uint32(len(payload))
		payload = append(payload, b...)
	}
	return payload, offsets, nil
}
