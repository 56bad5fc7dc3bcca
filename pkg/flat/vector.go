package flat

import "fmt"

// Vector is a view of Count elements of ElemSize bytes starting at Start.
type Vector struct {
	Bytes    []byte
	Start    UOffsetT
	Count    int
	ElemSize int
}

func (v Vector) Len() int {
	return v.Count
}

// Raw returns the element region. It aliases the buffer.
func (v Vector) Raw() []byte {
	return v.Bytes[v.Start : v.Start+UOffsetT(v.Count*v.ElemSize)]
}

// at returns the position of element i after checking that width bytes can
// be read there.
func (v Vector) at(i, width int) (UOffsetT, error) {
	if i < 0 || i >= v.Count {
		return 0, fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, i, v.Count)
	}
	pos := v.Start + UOffsetT(i*v.ElemSize)
	if int64(pos)+int64(width) > int64(len(v.Bytes)) {
		return 0, fmt.Errorf("%w: element %d at %d overruns %d bytes", ErrMalformedBuffer, i, pos, len(v.Bytes))
	}
	return pos, nil
}

func (v Vector) GetBool(i int) (bool, error) {
	pos, err := v.at(i, SizeBool)
	if err != nil {
		return false, err
	}
	return GetBool(v.Bytes[pos:]), nil
}

func (v Vector) GetByte(i int) (byte, error) {
	return v.GetUint8(i)
}

func (v Vector) GetUint8(i int) (uint8, error) {
	pos, err := v.at(i, SizeUint8)
	if err != nil {
		return 0, err
	}
	return GetUint8(v.Bytes[pos:]), nil
}

func (v Vector) GetInt8(i int) (int8, error) {
	pos, err := v.at(i, SizeInt8)
	if err != nil {
		return 0, err
	}
	return GetInt8(v.Bytes[pos:]), nil
}

func (v Vector) GetUint16(i int) (uint16, error) {
	pos, err := v.at(i, SizeUint16)
	if err != nil {
		return 0, err
	}
	return GetUint16(v.Bytes[pos:]), nil
}

func (v Vector) GetInt16(i int) (int16, error) {
	pos, err := v.at(i, SizeInt16)
	if err != nil {
		return 0, err
	}
	return GetInt16(v.Bytes[pos:]), nil
}

func (v Vector) GetUint32(i int) (uint32, error) {
	pos, err := v.at(i, SizeUint32)
	if err != nil {
		return 0, err
	}
	return GetUint32(v.Bytes[pos:]), nil
}

func (v Vector) GetInt32(i int) (int32, error) {
	pos, err := v.at(i, SizeInt32)
	if err != nil {
		return 0, err
	}
	return GetInt32(v.Bytes[pos:]), nil
}

func (v Vector) GetUint64(i int) (uint64, error) {
	pos, err := v.at(i, SizeUint64)
	if err != nil {
		return 0, err
	}
	return GetUint64(v.Bytes[pos:]), nil
}

func (v Vector) GetInt64(i int) (int64, error) {
	pos, err := v.at(i, SizeInt64)
	if err != nil {
		return 0, err
	}
	return GetInt64(v.Bytes[pos:]), nil
}

func (v Vector) GetFloat32(i int) (float32, error) {
	pos, err := v.at(i, SizeFloat32)
	if err != nil {
		return 0, err
	}
	return GetFloat32(v.Bytes[pos:]), nil
}

func (v Vector) GetFloat64(i int) (float64, error) {
	pos, err := v.at(i, SizeFloat64)
	if err != nil {
		return 0, err
	}
	return GetFloat64(v.Bytes[pos:]), nil
}

// Table resolves element i of a vector of tables.
func (v Vector) Table(i int) (Table, error) {
	pos, err := v.at(i, SizeUOffsetT)
	if err != nil {
		return Table{}, err
	}
	target, err := indirect(v.Bytes, pos)
	if err != nil {
		return Table{}, err
	}
	return Table{Bytes: v.Bytes, Pos: target}, nil
}

// ByteVector returns a view of element i of a vector of strings or byte
// vectors.
func (v Vector) ByteVector(i int) ([]byte, error) {
	pos, err := v.at(i, SizeUOffsetT)
	if err != nil {
		return nil, err
	}
	target, err := indirect(v.Bytes, pos)
	if err != nil {
		return nil, err
	}
	inner, err := vectorAt(v.Bytes, target, SizeByte)
	if err != nil {
		return nil, err
	}
	return inner.Raw(), nil
}

// String returns an owned copy of element i of a vector of strings.
func (v Vector) String(i int) (string, error) {
	p, err := v.ByteVector(i)
	if err != nil {
		return "", err
	}
	return string(p), nil
}
