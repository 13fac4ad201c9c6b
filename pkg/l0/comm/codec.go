package comm

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
)

// AppendOrder appends the order tag.
func AppendOrder(b []byte, o Order) []byte {
	return append(b, byte(o))
}

// AppendU8 appends v as an unsigned byte.
func AppendU8(b []byte, v int) ([]byte, error) {
	if v < 0 || v > math.MaxUint8 {
		return b, &RangeError{Type: "uint8", Value: int64(v)}
	}
	return append(b, byte(v)), nil
}

// AppendI8 appends v as a signed byte.
func AppendI8(b []byte, v int) ([]byte, error) {
	if v < math.MinInt8 || v > math.MaxInt8 {
		return b, &RangeError{Type: "int8", Value: int64(v)}
	}
	return append(b, byte(int8(v))), nil
}

// AppendI16 appends v as a little-endian int16.
func AppendI16(b []byte, v int) ([]byte, error) {
	if v < math.MinInt16 || v > math.MaxInt16 {
		return b, &RangeError{Type: "int16", Value: int64(v)}
	}
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(int16(v)))
	return append(b, buf[:]...), nil
}

// AppendI32 appends v as a little-endian int32.
func AppendI32(b []byte, v int64) ([]byte, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return b, &RangeError{Type: "int32", Value: v}
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(int32(v)))
	return append(b, buf[:]...), nil
}

// ReadOrder reads one order tag.
func ReadOrder(r io.Reader) (Order, error) {
	var buf [1]byte
	if err := readFull(r, buf[:]); err != nil {
		return 0, err
	}
	return Order(buf[0]), nil
}

// ReadU8 reads an unsigned byte.
func ReadU8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if err := readFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadI8 reads a signed byte.
func ReadI8(r io.Reader) (int8, error) {
	v, err := ReadU8(r)
	return int8(v), err
}

// ReadI16 reads a little-endian int16.
func ReadI16(r io.Reader) (int16, error) {
	var buf [2]byte
	if err := readFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(buf[:])), nil
}

// ReadI32 reads a little-endian int32.
func ReadI32(r io.Reader) (int32, error) {
	var buf [4]byte
	if err := readFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

// readFull fills buf or fails. Serial drivers with a read timeout report
// expiry as an empty read without error, so that is treated as a timeout too.
func readFull(r io.Reader, buf []byte) error {
	for n := 0; n < len(buf); {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			if n >= len(buf) {
				return nil
			}
			if isTimeout(err) {
				return &TimeoutError{Op: "read", Err: err}
			}
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return &ChannelError{Op: "read", Err: err}
		}
		if m == 0 {
			return &TimeoutError{Op: "read"}
		}
	}
	return nil
}

func isTimeout(err error) bool {
	if os.IsTimeout(err) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
