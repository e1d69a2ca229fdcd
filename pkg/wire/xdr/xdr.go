// Package xdr implements the XDR primitives the wire codec needs with
// explicit position tracking over a caller-owned byte buffer.
//
// Per RFC 4506, all XDR items are aligned to 4-byte boundaries and
// integers travel big-endian. Unlike stream-oriented XDR libraries,
// every function here takes a buffer and an offset and returns the
// offset of the next item, so callers can back-patch earlier positions
// (the frame codec rewrites the length word at offset 0 after payload
// serialisation).
package xdr

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrShortBuffer is returned when an encode or decode would run past
// the end of the supplied buffer.
var ErrShortBuffer = errors.New("xdr: buffer too short")

// MaxStringLen bounds decoded string lengths. Wire error records carry
// short diagnostics; anything larger indicates a corrupt frame.
const MaxStringLen = 64 * 1024

// Pad returns the number of zero bytes needed after n data bytes to
// reach the next 4-byte boundary.
func Pad(n int) int {
	return (4 - (n % 4)) % 4
}

// PutUint32 encodes a 32-bit unsigned integer at off.
//
// Per RFC 4506 Section 4.1: big-endian byte order.
// Returns the offset of the next item.
func PutUint32(buf []byte, off int, v uint32) (int, error) {
	if off < 0 || off+4 > len(buf) {
		return off, fmt.Errorf("put uint32 at %d: %w", off, ErrShortBuffer)
	}
	binary.BigEndian.PutUint32(buf[off:], v)
	return off + 4, nil
}

// Uint32 decodes a 32-bit unsigned integer at off.
// Returns the value and the offset of the next item.
func Uint32(buf []byte, off int) (uint32, int, error) {
	if off < 0 || off+4 > len(buf) {
		return 0, off, fmt.Errorf("get uint32 at %d: %w", off, ErrShortBuffer)
	}
	return binary.BigEndian.Uint32(buf[off:]), off + 4, nil
}

// PutInt32 encodes a 32-bit signed integer at off.
//
// Per RFC 4506 Section 4.1: two's complement, big-endian.
func PutInt32(buf []byte, off int, v int32) (int, error) {
	return PutUint32(buf, off, uint32(v))
}

// Int32 decodes a 32-bit signed integer at off.
func Int32(buf []byte, off int) (int32, int, error) {
	v, next, err := Uint32(buf, off)
	return int32(v), next, err
}

// PutBool encodes a boolean at off.
//
// Per RFC 4506 Section 4.4: uint32 where 0 = false, 1 = true.
func PutBool(buf []byte, off int, v bool) (int, error) {
	var u uint32
	if v {
		u = 1
	}
	return PutUint32(buf, off, u)
}

// Bool decodes a boolean at off. Any non-zero value reads as true.
func Bool(buf []byte, off int) (bool, int, error) {
	v, next, err := Uint32(buf, off)
	return v != 0, next, err
}

// PutString encodes a string at off. Together with PutBool it forms
// the optional-data encoding (PutOptString) the error record travels
// as.
//
// Per RFC 4506 Section 4.11: [length:uint32][data][padding to 4-byte
// boundary]. Returns the offset of the next item.
func PutString(buf []byte, off int, s string) (int, error) {
	n := len(s)
	if n > MaxStringLen {
		return off, fmt.Errorf("put string: length %d exceeds maximum %d", n, MaxStringLen)
	}
	next, err := PutUint32(buf, off, uint32(n))
	if err != nil {
		return off, err
	}
	if next+n+Pad(n) > len(buf) {
		return off, fmt.Errorf("put string at %d: %w", off, ErrShortBuffer)
	}
	copy(buf[next:], s)
	next += n
	for i := 0; i < Pad(n); i++ {
		buf[next+i] = 0
	}
	return next + Pad(n), nil
}

// String decodes a string at off.
func String(buf []byte, off int) (string, int, error) {
	n, next, err := Uint32(buf, off)
	if err != nil {
		return "", off, err
	}
	if n > MaxStringLen {
		return "", off, fmt.Errorf("get string: length %d exceeds maximum %d", n, MaxStringLen)
	}
	end := next + int(n)
	if end+Pad(int(n)) > len(buf) {
		return "", off, fmt.Errorf("get string at %d: %w", off, ErrShortBuffer)
	}
	return string(buf[next:end]), end + Pad(int(n)), nil
}

// PutOptString encodes an XDR optional string at off.
//
// Per RFC 4506 Section 4.19 (Optional-Data): a boolean discriminant
// followed by the value when present.
func PutOptString(buf []byte, off int, s *string) (int, error) {
	next, err := PutBool(buf, off, s != nil)
	if err != nil {
		return off, err
	}
	if s == nil {
		return next, nil
	}
	return PutString(buf, next, *s)
}

// OptString decodes an XDR optional string at off. Returns nil when
// the discriminant is false.
func OptString(buf []byte, off int) (*string, int, error) {
	present, next, err := Bool(buf, off)
	if err != nil {
		return nil, off, err
	}
	if !present {
		return nil, next, nil
	}
	s, next, err := String(buf, next)
	if err != nil {
		return nil, off, err
	}
	return &s, next, nil
}

