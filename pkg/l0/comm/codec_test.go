package comm

import (
	"bytes"
	"io"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripI16(t *testing.T) {
	for v := math.MinInt16; v <= math.MaxInt16; v++ {
		b, err := AppendI16(nil, v)
		require.NoError(t, err)
		require.Len(t, b, 2)
		got, err := ReadI16(bytes.NewReader(b))
		require.NoError(t, err)
		require.Equal(t, int16(v), got)
	}
}

func TestRoundTripU8(t *testing.T) {
	for v := 0; v <= math.MaxUint8; v++ {
		b, err := AppendU8(nil, v)
		require.NoError(t, err)
		got, err := ReadU8(bytes.NewReader(b))
		require.NoError(t, err)
		require.Equal(t, uint8(v), got)
	}
}

func TestRoundTripI8(t *testing.T) {
	for v := math.MinInt8; v <= math.MaxInt8; v++ {
		b, err := AppendI8(nil, v)
		require.NoError(t, err)
		got, err := ReadI8(bytes.NewReader(b))
		require.NoError(t, err)
		require.Equal(t, int8(v), got)
	}
}

func TestRoundTripI32(t *testing.T) {
	for _, v := range []int64{math.MinInt32, -65536, -1, 0, 1, 500, 65536, math.MaxInt32} {
		b, err := AppendI32(nil, v)
		require.NoError(t, err)
		require.Len(t, b, 4)
		got, err := ReadI32(bytes.NewReader(b))
		require.NoError(t, err)
		require.Equal(t, int32(v), got)
	}
}

func TestByteOrder(t *testing.T) {
	b, err := AppendI16(nil, 500)
	require.NoError(t, err)
	require.Equal(t, []byte{0xf4, 0x01}, b)
	b, err = AppendI16(nil, -5)
	require.NoError(t, err)
	require.Equal(t, []byte{0xfb, 0xff}, b)
	b, err = AppendI32(nil, 0x01020304)
	require.NoError(t, err)
	require.Equal(t, []byte{4, 3, 2, 1}, b)
	require.Equal(t, []byte{9, byte(OrderRead)}, AppendOrder([]byte{9}, OrderRead))
}

func TestRangeErrors(t *testing.T) {
	prefix := []byte{0xaa}
	testCases := []struct {
		name   string
		append func() ([]byte, error)
	}{
		{"u8 256", func() ([]byte, error) { return AppendU8(prefix, 256) }},
		{"u8 -1", func() ([]byte, error) { return AppendU8(prefix, -1) }},
		{"i8 128", func() ([]byte, error) { return AppendI8(prefix, 128) }},
		{"i8 -129", func() ([]byte, error) { return AppendI8(prefix, -129) }},
		{"i16 32768", func() ([]byte, error) { return AppendI16(prefix, 32768) }},
		{"i16 -32769", func() ([]byte, error) { return AppendI16(prefix, -32769) }},
		{"i32 max+1", func() ([]byte, error) { return AppendI32(prefix, math.MaxInt32+1) }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := tc.append()
			var rangeErr *RangeError
			require.ErrorAs(t, err, &rangeErr)
			require.Equal(t, prefix, b)
		})
	}
}

func TestReadShort(t *testing.T) {
	_, err := ReadI16(bytes.NewReader([]byte{1}))
	var chErr *ChannelError
	require.ErrorAs(t, err, &chErr)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.True(t, IsTransportError(err))

	_, err = ReadI32(bytes.NewReader(nil))
	require.ErrorAs(t, err, &chErr)
}

type emptyReader struct {
	err error
}

func (r emptyReader) Read([]byte) (int, error) {
	return 0, r.err
}

func TestReadTimeout(t *testing.T) {
	var toErr *TimeoutError
	_, err := ReadI16(emptyReader{})
	require.ErrorAs(t, err, &toErr)

	_, err = ReadOrder(emptyReader{err: os.ErrDeadlineExceeded})
	require.ErrorAs(t, err, &toErr)
	require.True(t, IsTransportError(err))
}

func TestReadPartial(t *testing.T) {
	r := io.MultiReader(bytes.NewReader([]byte{0xfb}), bytes.NewReader([]byte{0xff}))
	v, err := ReadI16(r)
	require.NoError(t, err)
	require.Equal(t, int16(-5), v)
}
