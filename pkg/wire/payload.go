package wire

import (
	"bytes"
	"fmt"
	"io"

	xdr2 "github.com/rasky/go-xdr/xdr2"

	"github.com/marmos91/hvrpc/pkg/wire/xdr"
)

// sizedWriter appends into a fixed window of the message buffer and
// reports short writes once the window is full. A failed marshal
// attempt leaves partial bytes behind; the retry restarts at the same
// position and overwrites them.
type sizedWriter struct {
	buf []byte
	pos int
}

func (w *sizedWriter) Write(p []byte) (int, error) {
	n := copy(w.buf[w.pos:], p)
	w.pos += n
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// EncodePayload serialises v as XDR into the frame after the header
// and finalises the frame for transmission.
//
// Precondition: EncodeHeader has run. The serialiser writes into the
// space between offset and the allocated capacity; when it fails the
// payload capacity is doubled (capped at PayloadMax) and the attempt
// repeats. The underlying XDR layer does not distinguish an undersized
// destination from a value it cannot marshal, so every failure takes
// the grow-and-retry path and only the cap ends it.
func (m *Message) EncodePayload(v any) error {
	for {
		w := &sizedWriter{buf: m.buf[m.offset:m.length]}
		if _, err := xdr2.Marshal(w, v); err == nil {
			m.offset += w.pos
			break
		}
		if m.length-LenSize >= PayloadMax {
			return fmt.Errorf("unable to encode payload within %d bytes: %w", PayloadMax, ErrPayloadTooLarge)
		}
		newPayload := (m.length - LenSize) * 2
		if newPayload > PayloadMax {
			newPayload = PayloadMax
		}
		m.buf = grow(m.buf, newPayload+LenSize)
		m.length = newPayload + LenSize
	}
	return m.finalize()
}

// EncodePayloadRaw appends data verbatim after the header and
// finalises the frame. A nil or empty data finalises an empty-payload
// frame: this is how a header-only message goes out.
//
// Precondition: EncodeHeader has run.
func (m *Message) EncodePayloadRaw(data []byte) error {
	if len(data) > 0 {
		if m.offset+len(data) > PayloadMax+LenSize {
			return fmt.Errorf("raw payload of %d bytes exceeds maximum %d: %w", len(data), PayloadMax, ErrPayloadTooLarge)
		}
		if m.length-m.offset < len(data) {
			m.buf = grow(m.buf, m.offset+len(data))
			m.length = m.offset + len(data)
		}
		copy(m.buf[m.offset:], data)
		m.offset += len(data)
	}
	return m.finalize()
}

// DecodePayload deserialises the frame payload into v.
//
// Precondition: DecodeHeader has run, so offset points at the first
// payload byte. On success offset advances past the consumed bytes.
func (m *Message) DecodePayload(v any) error {
	r := bytes.NewReader(m.buf[m.offset:m.length])
	n, err := xdr2.Unmarshal(r, v)
	if err != nil {
		m.metrics.RecordDecodeError()
		return fmt.Errorf("unable to decode payload: %w", ErrProtocol)
	}
	m.offset += n
	return nil
}

// EncodeNumFDs appends the attached descriptor count as an XDR
// unsigned integer at the current position.
//
// Called between EncodeHeader and the payload encoder when the message
// carries descriptors; the descriptors themselves travel out-of-band.
func (m *Message) EncodeNumFDs() error {
	n := uint32(len(m.fds))
	if n > FDsMax {
		return fmt.Errorf("%d descriptors exceeds maximum %d: %w", n, FDsMax, ErrTooManyFDs)
	}
	off, err := xdr.PutUint32(m.buf[:m.length], m.offset, n)
	if err != nil {
		return fmt.Errorf("unable to encode descriptor count: %w", ErrProtocol)
	}
	m.offset = off
	return nil
}

// DecodeNumFDs parses a descriptor count at the current position and
// returns it.
//
// When the message has no descriptor slots yet, slots are allocated
// and initialised to the -1 sentinel for the I/O loop to fill from the
// ancillary channel. Slots that already exist are left alone so
// descriptors the I/O layer received early are preserved.
func (m *Message) DecodeNumFDs() (uint32, error) {
	n, off, err := xdr.Uint32(m.buf[:m.length], m.offset)
	if err != nil {
		m.metrics.RecordDecodeError()
		return 0, fmt.Errorf("unable to decode descriptor count: %w", ErrProtocol)
	}
	if n > FDsMax {
		m.metrics.RecordDecodeError()
		return 0, fmt.Errorf("%d descriptors exceeds maximum %d: %w", n, FDsMax, ErrTooManyFDs)
	}
	m.offset = off
	if m.fds == nil && n > 0 {
		m.fds = make([]int, n)
		for i := range m.fds {
			m.fds[i] = -1
		}
	}
	return n, nil
}
