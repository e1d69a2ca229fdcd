package wire

import (
	"fmt"

	"github.com/marmos91/hvrpc/pkg/wire/xdr"
)

// Type is the message type discriminant carried in the frame header.
type Type uint32

const (
	// TypeCall is a method call to the remote end.
	TypeCall Type = iota

	// TypeReply answers a call. Status distinguishes success from
	// failure.
	TypeReply

	// TypeMessage is an asynchronous event; no reply is expected.
	TypeMessage

	// TypeStream is one data packet of an open stream.
	TypeStream

	// TypeCallWithFDs is a call whose arguments carry file
	// descriptors.
	TypeCallWithFDs

	// TypeReplyWithFDs is a reply whose results carry file
	// descriptors.
	TypeReplyWithFDs
)

// String returns the wire name of the type.
func (t Type) String() string {
	switch t {
	case TypeCall:
		return "call"
	case TypeReply:
		return "reply"
	case TypeMessage:
		return "message"
	case TypeStream:
		return "stream"
	case TypeCallWithFDs:
		return "call-with-fds"
	case TypeReplyWithFDs:
		return "reply-with-fds"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(t))
	}
}

// Status qualifies a message. Always OK for calls and events; for
// replies it reports the outcome, for streams it marks continuation,
// end of file, or abort.
type Status uint32

const (
	// StatusOK marks a successful reply or a completed stream.
	StatusOK Status = iota

	// StatusError marks a failed reply (the payload is an
	// ErrorRecord) or an aborted stream.
	StatusError

	// StatusContinue marks a stream packet with more data following.
	StatusContinue
)

// String returns the wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	case StatusContinue:
		return "continue"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(s))
	}
}

// Header is the fixed-size frame header: six XDR unsigned integers,
// HeaderXDRLen bytes on the wire.
type Header struct {
	// Program identifies the RPC program.
	Program uint32

	// Version is the program version.
	Version uint32

	// Procedure identifies the remote procedure within the program.
	Procedure uint32

	// Type is the message type discriminant.
	Type Type

	// Serial matches replies to calls. Assigned by the sender of the
	// original call.
	Serial uint32

	// Status qualifies the message, see Status.
	Status Status
}

// encodeAt serialises the header into buf starting at off and returns
// the offset of the first byte after it.
func (h *Header) encodeAt(buf []byte, off int) (int, error) {
	var err error
	for _, v := range [...]uint32{
		h.Program, h.Version, h.Procedure,
		uint32(h.Type), h.Serial, uint32(h.Status),
	} {
		if off, err = xdr.PutUint32(buf, off, v); err != nil {
			return off, err
		}
	}
	return off, nil
}

// decodeAt parses the header from buf starting at off and returns the
// offset of the first byte after it.
func (h *Header) decodeAt(buf []byte, off int) (int, error) {
	fields := [...]*uint32{
		&h.Program, &h.Version, &h.Procedure,
		(*uint32)(&h.Type), &h.Serial, (*uint32)(&h.Status),
	}
	var err error
	for _, f := range fields {
		if *f, off, err = xdr.Uint32(buf, off); err != nil {
			return off, err
		}
	}
	return off, nil
}
