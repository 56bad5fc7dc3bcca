package compactwire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WriteFrame writes an encoded frame to w.
func WriteFrame(w io.Writer, frame []byte) error {
	if len(frame) < headerSize+crcSize {
		return fmt.Errorf("%w: %d bytes", ErrShortFrame, len(frame))
	}
	_, err := w.Write(frame)
	return err
}

// ReadFrame reads one whole frame from r. It returns io.EOF only when r is
// exhausted before the first byte. The frame is not checksummed here; pass
// it to DecodeDataFrame or DecodeErrorFrame.
func ReadFrame(r io.Reader) ([]byte, error) {
	var head [headerSize]byte
	if _, err := io.ReadFull(r, head[:1]); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, head[1:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShortFrame, err)
	}
	if head[0] != magic0 || head[1] != magic1 {
		return nil, fmt.Errorf("%w: % x", ErrBadMagic, head[:2])
	}
	n := binary.LittleEndian.Uint32(head[preambleSize:])
	if n < headerSize+crcSize {
		return nil, fmt.Errorf("%w: length %d", ErrLengthMismatch, n)
	}
	if n > MaxFrameSize {
		return nil, fmt.Errorf("%w: length %d", ErrFrameTooLarge, n)
	}
	frame := make([]byte, n)
	copy(frame, head[:])
	if _, err := io.ReadFull(r, frame[headerSize:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShortFrame, err)
	}
	return frame, nil
}
