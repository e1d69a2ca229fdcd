package wire

import (
	"fmt"

	"github.com/marmos91/hvrpc/pkg/wire/xdr"
)

// Wire-visible framing limits.
const (
	// LenSize is the size of the length prefix: one XDR unsigned
	// integer.
	LenSize = 4

	// HeaderXDRLen is the marshalled size of Header: six XDR unsigned
	// integers.
	HeaderXDRLen = 24

	// PayloadMax caps the portion of a frame after the length prefix.
	PayloadMax = 256 * 1024 * 1024

	// InitialPayload is the starting payload capacity for outbound
	// messages; the encoder doubles from here on demand.
	InitialPayload = 64 * 1024

	// FDsMax caps the number of descriptors a single message may
	// carry.
	FDsMax = 32
)

// grow returns a buffer of exactly size bytes whose prefix preserves
// the contents of b.
func grow(b []byte, size int) []byte {
	if cap(b) >= size {
		return b[:size]
	}
	nb := make([]byte, size)
	copy(nb, b)
	return nb
}

// PrepareDecode readies the message to receive a frame: it allocates a
// LenSize buffer for the length prefix and rewinds both cursors. The
// I/O loop fills Buffer() completely, then calls DecodeLength.
func (m *Message) PrepareDecode() {
	m.buf = make([]byte, LenSize)
	m.length = LenSize
	m.offset = 0
}

// DecodeLength parses the frame's length prefix.
//
// Precondition: the buffer holds exactly the LenSize prefix bytes. On
// success the buffer is grown to the full frame size, length becomes
// that size, and offset sits just past the length word; the I/O loop
// then reads the remaining Buffer()[LenSize:] bytes before calling
// DecodeHeader.
func (m *Message) DecodeLength() error {
	total, next, err := xdr.Uint32(m.buf[:m.length], 0)
	if err != nil {
		m.metrics.RecordDecodeError()
		return fmt.Errorf("unable to decode frame length: %w", ErrProtocol)
	}
	m.offset = next
	if total < LenSize {
		m.metrics.RecordDecodeError()
		return fmt.Errorf("frame of %d bytes is too small to hold its length word: %w", total, ErrProtocol)
	}
	if total-LenSize > PayloadMax {
		m.metrics.RecordDecodeError()
		return fmt.Errorf("frame of %d bytes exceeds maximum %d: %w", total, PayloadMax+LenSize, ErrPayloadTooLarge)
	}
	m.buf = grow(m.buf, int(total))
	m.length = int(total)
	return nil
}

// DecodeHeader parses the frame header from just past the length
// prefix and leaves offset at the first payload byte. Header contents
// are stored as-is; logical validation happens in higher layers.
func (m *Message) DecodeHeader() error {
	if m.length < LenSize+HeaderXDRLen {
		m.metrics.RecordDecodeError()
		return fmt.Errorf("frame of %d bytes is too short for a header: %w", m.length, ErrProtocol)
	}
	next, err := m.Header.decodeAt(m.buf[:m.length], LenSize)
	if err != nil {
		m.metrics.RecordDecodeError()
		return fmt.Errorf("unable to decode frame header: %w", ErrProtocol)
	}
	m.offset = next
	m.metrics.RecordDecoded(m.Header.Type, m.length-m.offset)
	return nil
}

// EncodeHeader starts an outbound frame. It allocates the initial
// buffer, reserves a zero length word (the length must be serialised
// first so it can be back-patched), serialises the header, and patches
// the length word to the current position. On return offset sits at
// the first payload byte and length holds the allocated capacity; the
// two stay divergent until a payload encoder finalises the frame.
func (m *Message) EncodeHeader() error {
	m.buf = make([]byte, InitialPayload+LenSize)
	m.length = len(m.buf)
	m.offset = 0

	off, err := xdr.PutUint32(m.buf, 0, 0)
	if err != nil {
		return fmt.Errorf("unable to encode frame length: %w", err)
	}
	if off, err = m.Header.encodeAt(m.buf, off); err != nil {
		return fmt.Errorf("unable to encode frame header: %w", err)
	}
	if _, err = xdr.PutUint32(m.buf, 0, uint32(off)); err != nil {
		return fmt.Errorf("unable to re-encode frame length: %w", err)
	}
	m.offset = off
	return nil
}

// finalize back-patches the length word with the bytes written and
// flips the buffer into transmit state: length becomes the written
// size and offset rewinds to the first byte to send.
func (m *Message) finalize() error {
	if _, err := xdr.PutUint32(m.buf, 0, uint32(m.offset)); err != nil {
		return fmt.Errorf("unable to re-encode frame length: %w", err)
	}
	m.length = m.offset
	m.offset = 0
	m.metrics.RecordEncoded(m.Header.Type, m.length-LenSize-HeaderXDRLen)
	return nil
}
