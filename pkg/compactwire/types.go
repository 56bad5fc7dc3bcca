// Package compactwire frames finished flat buffers for transport.
//
// A frame is
//
//	[magic "FW"][type u8][length u32][flags u8][offset table?][payload][crc32]
//
// where length counts every byte of the frame including the checksum, and
// the crc32 (IEEE) covers everything after the magic. Error frames replace
// flags, offset table and payload with [code u8][len u16][data].
package compactwire

import "errors"

type FrameType byte

const (
	TypeData  FrameType = 0x01
	TypeError FrameType = 0x02
)

const (
	FlagHasOffsetTable byte = 1 << 0
	FlagCompressed     byte = 1 << 1
)

const (
	magic0 = 'F'
	magic1 = 'W'

	preambleSize = 3
	headerSize   = preambleSize + 4 // preamble and length
	crcSize      = 4

	// MaxFrameSize bounds frames accepted by ReadFrame.
	MaxFrameSize = 1 << 30
)

var (
	ErrNotDataFrame   = errors.New("compactwire: not a data frame")
	ErrNotErrorFrame  = errors.New("compactwire: not an error frame")
	ErrLengthMismatch = errors.New("compactwire: length mismatch")
	ErrChecksum       = errors.New("compactwire: crc mismatch")
	ErrShortFrame     = errors.New("compactwire: short frame")
	ErrFrameTooLarge  = errors.New("compactwire: frame too large")
	ErrBadMagic       = errors.New("compactwire: bad magic")
	ErrBadOffsets     = errors.New("compactwire: bad offset table")
)

// DataFrame is a decoded data frame. Payload is always uncompressed and
// Offsets are positions into it.
type DataFrame struct {
	Flags   byte
	Offsets []uint32
	Payload []byte
}

type ErrorFrame struct {
	Code byte
	Data []byte
}
