package logger

import "log/slog"

// Standard field keys for structured logging. Use these consistently
// across all log statements so codec events aggregate cleanly.
const (
	// ========================================================================
	// Frame & Header
	// ========================================================================
	KeyProgram   = "program"   // RPC program identifier
	KeyProcedure = "procedure" // Remote procedure number
	KeyMsgType   = "msg_type"  // Message type: call, reply, stream, ...
	KeySerial    = "serial"    // Call serial number
	KeyStatus    = "status"    // Message status: ok, error, continue
	KeyFrameLen  = "frame_len" // Total frame length including prefix
	KeyPayload   = "payload"   // Payload length in bytes
	KeyNumFDs    = "nfds"      // Attached descriptor count

	// ========================================================================
	// Session & Transport
	// ========================================================================
	KeySessionID  = "session_id"  // Codec session identifier
	KeySource     = "source"      // Capture path or peer address
	KeyFrameIndex = "frame_index" // Ordinal of the frame within a session

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyPath       = "path"        // File path (captures, config)
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// Program returns a slog.Attr for the RPC program identifier.
func Program(p uint32) slog.Attr {
	return slog.Int64(KeyProgram, int64(p))
}

// Procedure returns a slog.Attr for the remote procedure number.
func Procedure(p uint32) slog.Attr {
	return slog.Int64(KeyProcedure, int64(p))
}

// Serial returns a slog.Attr for a call serial number.
func Serial(s uint32) slog.Attr {
	return slog.Int64(KeySerial, int64(s))
}

// MsgType returns a slog.Attr for a message type name.
func MsgType(t string) slog.Attr {
	return slog.String(KeyMsgType, t)
}

// Status returns a slog.Attr for a message status name.
func Status(s string) slog.Attr {
	return slog.String(KeyStatus, s)
}

// FrameLen returns a slog.Attr for a total frame length.
func FrameLen(n int) slog.Attr {
	return slog.Int(KeyFrameLen, n)
}

// NumFDs returns a slog.Attr for an attached descriptor count.
func NumFDs(n int) slog.Attr {
	return slog.Int(KeyNumFDs, n)
}

// PayloadLen returns a slog.Attr for a payload length in bytes.
func PayloadLen(n int) slog.Attr {
	return slog.Int(KeyPayload, n)
}

// FrameIndex returns a slog.Attr for a frame's ordinal within a
// session.
func FrameIndex(i int) slog.Attr {
	return slog.Int(KeyFrameIndex, i)
}

// DurationMs returns a slog.Attr for an operation duration in
// milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Path returns a slog.Attr for a file path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Err returns a slog.Attr for an error message.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
