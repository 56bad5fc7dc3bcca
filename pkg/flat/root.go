package flat

import "fmt"

// GetRoot returns the root table of a finished buffer.
func GetRoot(buf []byte) (Table, error) {
	return GetRootAt(buf, 0)
}

// GetRootAt returns the root table of a buffer whose root pointer sits at
// offset, e.g. a buffer embedded in a larger region.
func GetRootAt(buf []byte, offset UOffsetT) (Table, error) {
	if int64(offset)+SizeUOffsetT > int64(len(buf)) {
		return Table{}, fmt.Errorf("%w: %d bytes hold no root pointer at %d", ErrMalformedBuffer, len(buf), offset)
	}
	pos, err := indirect(buf, offset)
	if err != nil {
		return Table{}, err
	}
	return Table{Bytes: buf, Pos: pos}, nil
}

// GetSizePrefix returns the length stored in front of a size-prefixed
// buffer.
func GetSizePrefix(buf []byte) (uint32, error) {
	if len(buf) < SizePrefixLength {
		return 0, fmt.Errorf("%w: %d bytes hold no size prefix", ErrMalformedBuffer, len(buf))
	}
	return GetUint32(buf), nil
}

// GetSizePrefixedRoot returns the root table of a size-prefixed buffer. The
// table only sees the bytes the prefix covers.
func GetSizePrefixedRoot(buf []byte) (Table, error) {
	size, err := GetSizePrefix(buf)
	if err != nil {
		return Table{}, err
	}
	if int64(size) > int64(len(buf)-SizePrefixLength) {
		return Table{}, fmt.Errorf("%w: size prefix %d exceeds %d bytes", ErrMalformedBuffer, size, len(buf)-SizePrefixLength)
	}
	return GetRoot(buf[SizePrefixLength : SizePrefixLength+int(size)])
}

// BufferIdentifier returns the file identifier following the root pointer.
func BufferIdentifier(buf []byte) (string, error) {
	return identifierAt(buf, SizeUOffsetT)
}

func identifierAt(buf []byte, at int) (string, error) {
	if len(buf) < at+FileIdentifierLength {
		return "", fmt.Errorf("%w: %d bytes hold no file identifier", ErrMalformedBuffer, len(buf))
	}
	return string(buf[at : at+FileIdentifierLength]), nil
}

func BufferHasIdentifier(buf []byte, fid string) bool {
	id, err := identifierAt(buf, SizeUOffsetT)
	return err == nil && id == fid
}

func SizePrefixedBufferHasIdentifier(buf []byte, fid string) bool {
	id, err := identifierAt(buf, SizePrefixLength+SizeUOffsetT)
	return err == nil && id == fid
}
