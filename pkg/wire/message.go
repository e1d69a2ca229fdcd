// Package wire implements the message codec for the length-prefixed,
// XDR-framed RPC transport used by the control plane.
//
// Every frame on the wire is a 4-byte big-endian total length
// (including itself), a fixed-size XDR header, and an XDR or raw
// payload. Frames that carry file descriptors place an XDR descriptor
// count between the header and the payload; the descriptors themselves travel
// out-of-band via the socket's ancillary channel and are not part of
// the byte count.
//
// The codec owns the byte-level framing, incremental construction and
// parsing of messages, descriptor lifecycle, and the transmit queue of
// pending outbound messages. It does no I/O itself: the connection
// loop reads into and writes from Buffer() and calls the decode and
// encode operations in the documented order.
//
// Nothing in this package is internally synchronised. A message is
// single-owner at any instant and must be handed between goroutines by
// explicit transfer, never by shared mutation.
package wire

import "errors"

// Errors surfaced at the codec boundary. Callers discard the message
// after any of these; cursors are left in an unspecified but
// safe-to-free state.
var (
	// ErrProtocol reports a malformed frame: undersized length word,
	// truncated header, or a payload the unmarshaller rejects.
	ErrProtocol = errors.New("protocol error")

	// ErrPayloadTooLarge reports a frame whose payload exceeds
	// PayloadMax, on either the encode or the decode side.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrTooManyFDs reports a descriptor count above FDsMax.
	ErrTooManyFDs = errors.New("too many file descriptors")

	// ErrNoSuchSlot reports a DupFD call with an out-of-range slot.
	ErrNoSuchSlot = errors.New("no such descriptor slot")
)

// ReleaseFunc runs exactly once when a message is freed, before its
// descriptors are closed, so the callback may still reclaim them.
type ReleaseFunc func(m *Message, cookie any)

// Message is one RPC message being built or parsed.
//
// The two buffer cursors are reused across phases and change meaning
// with direction; each codec operation documents its own contract.
// Broadly: during decode, length is the declared frame size and offset
// the parse position; during encode, length is the allocated capacity
// until finalisation flips it to the written size and rewinds offset
// to zero for transmission. offset never exceeds length while an
// operation is in flight.
type Message struct {
	// Header is the decoded frame header. The codec stores and
	// serialises it; logical validity (program, type, status) is the
	// dispatcher's business.
	Header Header

	buf    []byte
	length int
	offset int

	fds     []int
	donefds int

	tracked bool

	metrics *Metrics

	release ReleaseFunc
	cookie  any

	// next links the message into a transmit Queue.
	next *Message
}

// NewMessage allocates an empty message. A tracked message
// participates in serial-number tracking at a higher layer; the codec
// only preserves the flag across Clear.
func NewMessage(tracked bool) *Message {
	return &Message{tracked: tracked}
}

// SetMetrics attaches codec metrics; encode finalisation, header
// decode, decode failures and descriptor attachment record themselves
// from then on. Like the queue's gauge wiring, a nil set is allowed.
// The attachment is environmental, not per-frame state, so it survives
// Clear the same way the tracked flag does.
func (m *Message) SetMetrics(metrics *Metrics) {
	m.metrics = metrics
}

// Tracked reports whether the message participates in serial-number
// tracking.
func (m *Message) Tracked() bool {
	return m.tracked
}

// Len returns the current value of the length cursor (declared frame
// size during decode, capacity or written size during encode).
func (m *Message) Len() int {
	return m.length
}

// Offset returns the current value of the position cursor.
func (m *Message) Offset() int {
	return m.offset
}

// Buffer returns the message buffer up to the length cursor. The I/O
// loop fills it during reads and drains it during writes. The slice
// aliases message-owned storage and is invalidated by any encode call
// that grows the buffer.
func (m *Message) Buffer() []byte {
	return m.buf[:m.length]
}

// PayloadBytes returns the raw bytes between the position cursor and
// the length cursor: after DecodeHeader this is the undecoded payload.
// Same aliasing caveat as Buffer.
func (m *Message) PayloadBytes() []byte {
	return m.buf[m.offset:m.length]
}

// NumFDs returns the number of descriptor slots attached.
func (m *Message) NumFDs() int {
	return len(m.fds)
}

// FDs returns the attached descriptors. The slice is owned by the
// message: closing the message closes every non-negative entry. After
// handing a descriptor off to the peer the I/O loop stores -1 in its
// slot, transferring ownership away from the message.
func (m *Message) FDs() []int {
	return m.fds
}

// DoneFDs returns how many descriptors have already been handed off.
func (m *Message) DoneFDs() int {
	return m.donefds
}

// MarkFDDone records one more descriptor as handed off.
func (m *Message) MarkFDDone() {
	if m.donefds < len(m.fds) {
		m.donefds++
	}
}

// OnRelease registers fn to be invoked exactly once, with cookie, when
// the message is freed. Callers use it to signal completion or drop an
// owning reference. Clear discards the callback without firing it.
func (m *Message) OnRelease(fn ReleaseFunc, cookie any) {
	m.release = fn
	m.cookie = cookie
}

// ClearFDs closes every attached descriptor still owned by the message
// and releases the slot array. Slots already handed off (-1) are
// skipped.
func (m *Message) ClearFDs() {
	for _, fd := range m.fds {
		if fd >= 0 {
			closeQuiet(fd)
		}
	}
	m.fds = nil
	m.donefds = 0
}

// ClearPayload releases the buffer and descriptors and zeroes both
// cursors, leaving the header and bookkeeping intact.
func (m *Message) ClearPayload() {
	m.ClearFDs()
	m.offset = 0
	m.length = 0
	m.buf = nil
}

// Clear resets the message for reuse on the next read. Everything is
// zeroed except the tracked flag and the metrics attachment; the
// release callback is dropped without firing, because clear is reuse,
// not disposal.
func (m *Message) Clear() {
	m.ClearPayload()
	tracked, metrics := m.tracked, m.metrics
	*m = Message{tracked: tracked, metrics: metrics}
}

// Free disposes of the message: the release callback (if any) fires
// exactly once, then payload and descriptors are released. The
// callback runs before descriptor close so it may reclaim them.
// Calling Free on a nil message is a no-op.
func (m *Message) Free() {
	if m == nil {
		return
	}
	if m.release != nil {
		fn, cookie := m.release, m.cookie
		m.release = nil
		m.cookie = nil
		fn(m, cookie)
	}
	m.ClearPayload()
}
