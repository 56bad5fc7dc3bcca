package compactwire

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/flatwire/pkg/flat"
)

func finishedStatus(t testing.TB, code int16, msg string) []byte {
	b := flat.NewBuilder(0)
	m, err := b.CreateString(msg)
	require.NoError(t, err)
	require.NoError(t, b.StartTable(2))
	b.AddOffset(1, m)
	b.AddInt16(0, code, 0)
	root, err := b.EndTable()
	require.NoError(t, err)
	require.NoError(t, b.Finish(root))
	buf, err := b.FinishedBytes()
	require.NoError(t, err)
	return bytes.Clone(buf)
}

func TestDataFrameRoundTrip(t *testing.T) {
	payload := finishedStatus(t, 404, "not found")
	for _, flags := range []byte{0, FlagCompressed} {
		frame, err := EncodeDataFrame(payload, flags, nil)
		require.NoError(t, err)
		typ, err := Peek(frame)
		require.NoError(t, err)
		assert.Equal(t, TypeData, typ)

		d, err := DecodeDataFrame(frame)
		require.NoError(t, err)
		assert.Equal(t, flags, d.Flags)
		assert.Empty(t, d.Offsets)
		assert.Equal(t, payload, d.Payload)

		root, err := flat.GetRoot(d.Payload)
		require.NoError(t, err)
		code, err := root.GetInt16Slot(0, 0)
		require.NoError(t, err)
		assert.Equal(t, int16(404), code)
	}
}

func TestCompressionShrinksRepetitivePayload(t *testing.T) {
	payload := bytes.Repeat([]byte("flatwire"), 512)
	raw, err := EncodeDataFrame(payload, 0, nil)
	require.NoError(t, err)
	packed, err := EncodeDataFrame(payload, FlagCompressed, nil)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(raw))

	d, err := DecodeDataFrame(packed)
	require.NoError(t, err)
	assert.Equal(t, payload, d.Payload)
}

func TestBatchAndSplit(t *testing.T) {
	bufs := [][]byte{
		finishedStatus(t, 200, "ok"),
		finishedStatus(t, 500, "internal"),
		finishedStatus(t, 503, "unavailable"),
	}
	payload, offsets, err := Batch(bufs...)
	require.NoError(t, err)
	require.Len(t, offsets, 3)
	assert.Equal(t, uint32(0), offsets[0])

	for _, flags := range []byte{0, FlagCompressed} {
		frame, err := EncodeDataFrame(payload, flags, offsets)
		require.NoError(t, err)
		d, err := DecodeDataFrame(frame)
		require.NoError(t, err)
		assert.NotZero(t, d.Flags&FlagHasOffsetTable)
		assert.Equal(t, offsets, d.Offsets)

		parts, err := Split(d.Payload, d.Offsets)
		require.NoError(t, err)
		assert.Equal(t, bufs, parts)

		for i, want := range []int16{200, 500, 503} {
			root, err := flat.GetRootAt(d.Payload, flat.UOffsetT(d.Offsets[i]))
			require.NoError(t, err)
			code, err := root.GetInt16Slot(0, 0)
			require.NoError(t, err)
			assert.Equal(t, want, code)
		}
	}
}

func TestSplitRejectsBadOffsets(t *testing.T) {
	_, err := Split(make([]byte, 8), []uint32{4, 2})
	assert.ErrorIs(t, err, ErrBadOffsets)
	_, err = Split(make([]byte, 8), []uint32{0, 9})
	assert.ErrorIs(t, err, ErrBadOffsets)
}

func TestErrorFrameRoundTrip(t *testing.T) {
	frame, err := EncodeErrorFrame(0x7F, []byte("schema mismatch"))
	require.NoError(t, err)
	e, err := DecodeErrorFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, byte(0x7F), e.Code)
	assert.Equal(t, []byte("schema mismatch"), e.Data)

	_, err = DecodeDataFrame(frame)
	assert.ErrorIs(t, err, ErrNotDataFrame)

	data, err := EncodeDataFrame([]byte{1}, 0, nil)
	require.NoError(t, err)
	_, err = DecodeErrorFrame(data)
	assert.ErrorIs(t, err, ErrNotErrorFrame)
}

func TestCorruptionDetected(t *testing.T) {
	frame, err := EncodeDataFrame([]byte("payload"), 0, nil)
	require.NoError(t, err)

	for i := 2; i < len(frame); i++ {
		if i >= preambleSize && i < headerSize {
			continue // length bytes are checked separately
		}
		bad := bytes.Clone(frame)
		bad[i] ^= 0xFF
		_, err := DecodeDataFrame(bad)
		assert.Error(t, err, "byte %d", i)
	}

	bad := bytes.Clone(frame)
	bad[len(bad)-5] ^= 0x01
	_, err = DecodeDataFrame(bad)
	assert.ErrorIs(t, err, ErrChecksum)

	_, err = DecodeDataFrame(frame[:len(frame)-1])
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = DecodeDataFrame(frame[:4])
	assert.ErrorIs(t, err, ErrShortFrame)

	bad = bytes.Clone(frame)
	bad[0] = 'X'
	_, err = DecodeDataFrame(bad)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestStream(t *testing.T) {
	var w bytes.Buffer
	var frames [][]byte
	for i, msg := range []string{"one", "two", "three"} {
		f, err := EncodeDataFrame([]byte(msg), byte(i%2)*FlagCompressed, nil)
		require.NoError(t, err)
		require.NoError(t, WriteFrame(&w, f))
		frames = append(frames, f)
	}
	ef, err := EncodeErrorFrame(1, nil)
	require.NoError(t, err)
	require.NoError(t, WriteFrame(&w, ef))

	r := bytes.NewReader(w.Bytes())
	for i, want := range []string{"one", "two", "three"} {
		f, err := ReadFrame(r)
		require.NoError(t, err)
		assert.Equal(t, frames[i], f)
		d, err := DecodeDataFrame(f)
		require.NoError(t, err)
		assert.Equal(t, want, string(d.Payload))
	}
	f, err := ReadFrame(r)
	require.NoError(t, err)
	e, err := DecodeErrorFrame(f)
	require.NoError(t, err)
	assert.Equal(t, byte(1), e.Code)
	assert.Empty(t, e.Data)

	_, err = ReadFrame(r)
	assert.ErrorIs(t, err, io.EOF)

	_, err = ReadFrame(bytes.NewReader(frames[0][:5]))
	assert.ErrorIs(t, err, ErrShortFrame)

	assert.ErrorIs(t, WriteFrame(io.Discard, []byte{1}), ErrShortFrame)
}

func FuzzDecodeDataFrame(f *testing.F) {
	good, _ := EncodeDataFrame([]byte("seed"), FlagCompressed, []uint32{0, 2})
	f.Add(good)
	f.Add([]byte("FW"))
	f.Fuzz(func(t *testing.T, data []byte) {
		d, err := DecodeDataFrame(data)
		if err != nil {
			return
		}
		_, err = Split(d.Payload, d.Offsets)
		require.NoError(t, err)
	})
}

func BenchmarkEncodeDataFrame(b *testing.B) {
	payload := finishedStatus(b, 404, "not found")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = EncodeDataFrame(payload, 0, nil)
	}
}

func BenchmarkDecodeCompressedFrame(b *testing.B) {
	payload := bytes.Repeat(finishedStatus(b, 404, "not found"), 64)
	frame, err := EncodeDataFrame(payload, FlagCompressed, nil)
	require.NoError(b, err)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = DecodeDataFrame(frame)
	}
}
