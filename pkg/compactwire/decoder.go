package compactwire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	decOnce sync.Once
	dec     *zstd.Decoder
	decErr  error
)

func decoder() (*zstd.Decoder, error) {
	decOnce.Do(func() {
		dec, decErr = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxFrameSize))
	})
	return dec, decErr
}

// Peek reports the type of the frame at the start of data.
func Peek(data []byte) (FrameType, error) {
	return readPreamble(bytes.NewReader(data))
}

func readPreamble(r io.Reader) (FrameType, error) {
	var p [preambleSize]byte
	if _, err := io.ReadFull(r, p[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrShortFrame, err)
	}
	if p[0] != magic0 || p[1] != magic1 {
		return 0, fmt.Errorf("%w: % x", ErrBadMagic, p[:2])
	}
	return FrameType(p[2]), nil
}

// check validates the length field and checksum of a whole frame.
func check(data []byte) error {
	if len(data) < headerSize+crcSize {
		return fmt.Errorf("%w: %d bytes", ErrShortFrame, len(data))
	}
	if n := binary.LittleEndian.Uint32(data[preambleSize:]); int64(n) != int64(len(data)) {
		return fmt.Errorf("%w: header says %d, have %d", ErrLengthMismatch, n, len(data))
	}
	end := len(data) - crcSize
	want := binary.LittleEndian.Uint32(data[end:])
	if crc32.ChecksumIEEE(data[2:end]) != want {
		return ErrChecksum
	}
	return nil
}

// DecodeDataFrame parses a data frame. The payload aliases data unless the
// frame was compressed.
func DecodeDataFrame(data []byte) (DataFrame, error) {
	var d DataFrame
	rdr := bytes.NewReader(data)
	t, err := readPreamble(rdr)
	if err != nil {
		return d, err
	}
	if t != TypeData {
		return d, fmt.Errorf("%w: type %#x", ErrNotDataFrame, byte(t))
	}
	if err := check(data); err != nil {
		return d, err
	}
	body := bytes.NewReader(data[headerSize : len(data)-crcSize])
	if d.Flags, err = body.ReadByte(); err != nil {
		return d, fmt.Errorf("%w: missing flags", ErrShortFrame)
	}
	if d.Flags&FlagHasOffsetTable != 0 {
		var cnt uint16
		if err := binary.Read(body, binary.LittleEndian, &cnt); err != nil {
			return d, fmt.Errorf("%w: offset count", ErrShortFrame)
		}
		d.Offsets = make([]uint32, cnt)
		if err := binary.Read(body, binary.LittleEndian, d.Offsets); err != nil {
			return d, fmt.Errorf("%w: offset table", ErrShortFrame)
		}
	}

	start := len(data) - crcSize - body.Len()
	d.Payload = data[start : len(data)-crcSize]
	if d.Flags&FlagCompressed != 0 {
		z, err := decoder()
		if err != nil {
			return d, err
		}
		if d.Payload, err = z.DecodeAll(d.Payload, nil); err != nil {
			return d, fmt.Errorf("compactwire: decompress: %w", err)
		}
	}
	if err := checkOffsets(d.Offsets, len(d.Payload)); err != nil {
		return d, err
	}
	return d, nil
}

// DecodeErrorFrame parses an error frame. Data is an owned copy.
func DecodeErrorFrame(data []byte) (ErrorFrame, error) {
	var e ErrorFrame
	rdr := bytes.NewReader(data)
	t, err := readPreamble(rdr)
	if err != nil {
		return e, err
	}
	if t != TypeError {
		return e, fmt.Errorf("%w: type %#x", ErrNotErrorFrame, byte(t))
	}
	if err := check(data); err != nil {
		return e, err
	}
	body := bytes.NewReader(data[headerSize : len(data)-crcSize])
	if e.Code, err = body.ReadByte(); err != nil {
		return e, fmt.Errorf("%w: missing code", ErrShortFrame)
	}
	var n uint16
	if err := binary.Read(body, binary.LittleEndian, &n); err != nil {
		return e, fmt.Errorf("%w: data length", ErrShortFrame)
	}
	if int(n) != body.Len() {
		return e, fmt.Errorf("%w: data length %d, have %d", ErrLengthMismatch, n, body.Len())
	}
	e.Data = make([]byte, n)
	io.ReadFull(body, e.Data)
	return e, nil
}

func checkOffsets(offsets []uint32, size int) error {
	var prev uint32
	for i, off := range offsets {
		if off < prev || int64(off) > int64(size) {
			return fmt.Errorf("%w: entry %d is %d in %d bytes", ErrBadOffsets, i, off, size)
		}
		prev = off
	}
	return nil
}

// Split cuts a batched payload back into its buffers. The parts alias
// payload.
func Split(payload []byte, offsets []uint32) ([][]byte, error) {
	if err := checkOffsets(offsets, len(payload)); err != nil {
		return nil, err
	}
	parts := make([][]byte, len(offsets))
	for i, off := range offsets {
		end := uint32(len(payload))
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		parts[i] = payload[off:end]
	}
	return parts, nil
}
