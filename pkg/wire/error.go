package wire

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/marmos91/hvrpc/pkg/wire/xdr"
)

// ErrCode classifies a failure in a wire-visible way.
type ErrCode uint32

const (
	// CodeOK marks an empty record: no error captured yet.
	CodeOK ErrCode = iota

	// CodeInternal is the catch-all for failures with no better
	// classification, including the synthetic record used when no
	// cause is known.
	CodeInternal

	// CodeProtocol maps ErrProtocol.
	CodeProtocol

	// CodePayloadTooLarge maps ErrPayloadTooLarge.
	CodePayloadTooLarge

	// CodeTooManyFDs maps ErrTooManyFDs.
	CodeTooManyFDs

	// CodeNoSuchSlot maps ErrNoSuchSlot.
	CodeNoSuchSlot

	// CodeSystem marks an OS-level failure, typically from descriptor
	// duplication.
	CodeSystem
)

// ErrLevel grades the severity carried in an error record.
type ErrLevel uint32

const (
	LevelNone ErrLevel = iota
	LevelWarning
	LevelError
)

// Error domains. The codec only ever reports from the RPC domain;
// higher layers reuse the record type with their own domains.
const (
	DomainNone uint32 = iota
	DomainRPC
)

// unknownCause is recorded when an error record is captured with no
// pending error, so peers always see some explanation.
const unknownCause = "An error occurred, but the cause is unknown"

// ErrorRecord is the wire-representable snapshot of a failure, sent as
// the payload of a reply with StatusError.
type ErrorRecord struct {
	Code   ErrCode
	Domain uint32
	Level  ErrLevel

	// Message is the primary diagnostic. Str2 and Str3 carry extra
	// context when a layer has it; all three are optional on the
	// wire.
	Message *string
	Str2    *string
	Str3    *string

	Int1 int32
	Int2 int32
}

// Capture snapshots err into the record unless one is already present:
// the first error wins, because cleanup paths routinely fail again and
// call Capture a second time on the way out. A nil err records a
// synthetic internal error so the peer always sees some explanation.
func (r *ErrorRecord) Capture(err error) {
	if r.Code != CodeOK {
		return
	}
	r.Domain = DomainRPC
	r.Level = LevelError
	if err == nil {
		msg := unknownCause
		r.Code = CodeInternal
		r.Message = &msg
		return
	}
	r.Code = codeFor(err)
	msg := err.Error()
	r.Message = &msg
}

// codeFor maps a codec error onto its wire code.
func codeFor(err error) ErrCode {
	var errno syscall.Errno
	switch {
	case errors.Is(err, ErrProtocol):
		return CodeProtocol
	case errors.Is(err, ErrPayloadTooLarge):
		return CodePayloadTooLarge
	case errors.Is(err, ErrTooManyFDs):
		return CodeTooManyFDs
	case errors.Is(err, ErrNoSuchSlot):
		return CodeNoSuchSlot
	case errors.As(err, &errno):
		return CodeSystem
	default:
		return CodeInternal
	}
}

// marshalledSize returns an upper bound on the record's encoded size.
func (r *ErrorRecord) marshalledSize() int {
	size := 5 * 4 // code, domain, level, int1, int2
	for _, s := range []*string{r.Message, r.Str2, r.Str3} {
		size += 4 // optional-data discriminant
		if s != nil {
			size += 4 + len(*s) + xdr.Pad(len(*s))
		}
	}
	return size
}

// Marshal serialises the record to XDR bytes suitable for
// EncodePayloadRaw.
func (r *ErrorRecord) Marshal() ([]byte, error) {
	buf := make([]byte, r.marshalledSize())
	off, err := xdr.PutUint32(buf, 0, uint32(r.Code))
	if err == nil {
		off, err = xdr.PutUint32(buf, off, r.Domain)
	}
	if err == nil {
		off, err = xdr.PutOptString(buf, off, r.Message)
	}
	if err == nil {
		off, err = xdr.PutUint32(buf, off, uint32(r.Level))
	}
	if err == nil {
		off, err = xdr.PutOptString(buf, off, r.Str2)
	}
	if err == nil {
		off, err = xdr.PutOptString(buf, off, r.Str3)
	}
	if err == nil {
		off, err = xdr.PutInt32(buf, off, r.Int1)
	}
	if err == nil {
		off, err = xdr.PutInt32(buf, off, r.Int2)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to encode error record: %w", err)
	}
	return buf[:off], nil
}

// Unmarshal parses a record from XDR bytes, typically the payload of a
// StatusError reply.
func (r *ErrorRecord) Unmarshal(data []byte) error {
	var code, level uint32
	code, off, err := xdr.Uint32(data, 0)
	if err == nil {
		r.Domain, off, err = xdr.Uint32(data, off)
	}
	if err == nil {
		r.Message, off, err = xdr.OptString(data, off)
	}
	if err == nil {
		level, off, err = xdr.Uint32(data, off)
	}
	if err == nil {
		r.Str2, off, err = xdr.OptString(data, off)
	}
	if err == nil {
		r.Str3, off, err = xdr.OptString(data, off)
	}
	if err == nil {
		r.Int1, off, err = xdr.Int32(data, off)
	}
	if err == nil {
		r.Int2, _, err = xdr.Int32(data, off)
	}
	if err != nil {
		return fmt.Errorf("unable to decode error record: %w", ErrProtocol)
	}
	r.Code = ErrCode(code)
	r.Level = ErrLevel(level)
	return nil
}
