package flat

import (
	"encoding/binary"
	"math"
)

// Little-endian scalar codecs over byte slices. Callers check bounds.

func GetBool(buf []byte) bool { return buf[0] != 0 }
func GetByte(buf []byte) byte { return buf[0] }
func GetUint8(buf []byte) uint8 { return buf[0] }
func GetInt8(buf []byte) int8 { return int8(buf[0]) }
func GetUint16(buf []byte) uint16 { return binary.LittleEndian.Uint16(buf) }
func GetInt16(buf []byte) int16 { return int16(binary.LittleEndian.Uint16(buf)) }
func GetUint32(buf []byte) uint32 { return binary.LittleEndian.Uint32(buf) }
func GetInt32(buf []byte) int32 { return int32(binary.LittleEndian.Uint32(buf)) }
func GetUint64(buf []byte) uint64 { return binary.LittleEndian.Uint64(buf) }
func GetInt64(buf []byte) int64 { return int64(binary.LittleEndian.Uint64(buf)) }
func GetUOffsetT(buf []byte) UOffsetT { return UOffsetT(binary.LittleEndian.Uint32(buf)) }
func GetSOffsetT(buf []byte) SOffsetT { return SOffsetT(binary.LittleEndian.Uint32(buf)) }
func GetVOffsetT(buf []byte) VOffsetT { return VOffsetT(binary.LittleEndian.Uint16(buf)) }

func GetFloat32(buf []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf))
}

func GetFloat64(buf []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(buf))
}

func WriteBool(buf []byte, x bool) {
	if x {
		buf[0] = 1
	} else {
		buf[0] = 0
	}
}

func WriteByte(buf []byte, x byte) { buf[0] = x }
func WriteUint8(buf []byte, x uint8) { buf[0] = x }
func WriteInt8(buf []byte, x int8) { buf[0] = byte(x) }
func WriteUint16(buf []byte, x uint16) { binary.LittleEndian.PutUint16(buf, x) }
func WriteInt16(buf []byte, x int16) { binary.LittleEndian.PutUint16(buf, uint16(x)) }
func WriteUint32(buf []byte, x uint32) { binary.LittleEndian.PutUint32(buf, x) }
func WriteInt32(buf []byte, x int32) { binary.LittleEndian.PutUint32(buf, uint32(x)) }
func WriteUint64(buf []byte, x uint64) { binary.LittleEndian.PutUint64(buf, x) }
func WriteInt64(buf []byte, x int64) { binary.LittleEndian.PutUint64(buf, uint64(x)) }
func WriteUOffsetT(buf []byte, x UOffsetT) { binary.LittleEndian.PutUint32(buf, uint32(x)) }
func WriteSOffsetT(buf []byte, x SOffsetT) { binary.LittleEndian.PutUint32(buf, uint32(x)) }
func WriteVOffsetT(buf []byte, x VOffsetT) { binary.LittleEndian.PutUint16(buf, uint16(x)) }

func WriteFloat32(buf []byte, x float32) {
	binary.LittleEndian.PutUint32(buf, math.Float32bits(x))
}

func WriteFloat64(buf []byte, x float64) {
	binary.LittleEndian.PutUint64(buf, math.Float64bits(x))
}
