package wire

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPayload is a representative typed payload: fixed fields plus
// variable-length XDR data.
type testPayload struct {
	UUID   string
	Flags  uint32
	Opaque []byte
}

// decodeWire runs the inbound half of the codec over a finalised
// frame, exactly as the I/O loop would: length, grow, remainder,
// header.
func decodeWire(t *testing.T, frame []byte) *Message {
	t.Helper()
	msg := NewMessage(false)
	feedLength(t, msg, frame[:LenSize])
	require.NoError(t, msg.DecodeLength())
	require.Equal(t, len(frame), msg.Len(), "declared length must cover the whole frame")
	copy(msg.Buffer()[LenSize:], frame[LenSize:])
	require.NoError(t, msg.DecodeHeader())
	return msg
}

// ============================================================================
// Typed Payload Tests
// ============================================================================

func TestEncodePayload(t *testing.T) {
	t.Run("RoundTripsTypedValue", func(t *testing.T) {
		want := testPayload{
			UUID:   "7f9d2c1e-bb44-4e9c-9f1a-0f6ad1c2d9aa",
			Flags:  0x00C0FFEE,
			Opaque: []byte{0x01, 0x02, 0x03, 0x04, 0x05},
		}

		out := NewMessage(false)
		out.Header = testHeader()
		require.NoError(t, out.EncodeHeader())
		require.NoError(t, out.EncodePayload(&want))

		in := decodeWire(t, out.Buffer())
		assert.Equal(t, testHeader(), in.Header)

		var got testPayload
		require.NoError(t, in.DecodePayload(&got))
		assert.Equal(t, want, got)
	})

	t.Run("GrowsPastInitialCapacity", func(t *testing.T) {
		// Payload well beyond InitialPayload forces at least one
		// doubling; content must survive the reallocation.
		want := testPayload{
			UUID:   "grow",
			Opaque: bytes.Repeat([]byte{0x5A}, 3*InitialPayload),
		}

		out := NewMessage(false)
		out.Header = testHeader()
		require.NoError(t, out.EncodeHeader())
		require.NoError(t, out.EncodePayload(&want))

		assert.Greater(t, out.Len(), InitialPayload+LenSize)
		assert.Equal(t, uint32(out.Len()), binary.BigEndian.Uint32(out.Buffer()[:4]))

		var got testPayload
		in := decodeWire(t, out.Buffer())
		require.NoError(t, in.DecodePayload(&got))
		assert.Equal(t, want.Opaque, got.Opaque)
	})

	t.Run("UnmarshallableValueExhaustsGrowth", func(t *testing.T) {
		// The XDR layer cannot tell a too-small destination from a
		// value it can never marshal, so a hopeless value rides the
		// grow-and-retry loop until the cap ends it.
		out := NewMessage(false)
		out.Header = testHeader()
		require.NoError(t, out.EncodeHeader())

		bad := struct{ C chan int }{}
		err := out.EncodePayload(&bad)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPayloadTooLarge)
	})

	t.Run("RejectsCorruptPayloadOnDecode", func(t *testing.T) {
		out := NewMessage(false)
		out.Header = testHeader()
		require.NoError(t, out.EncodeHeader())
		// A string length word pointing past the end of the frame.
		require.NoError(t, out.EncodePayloadRaw([]byte{0xFF, 0xFF, 0xFF, 0xF0}))

		in := decodeWire(t, out.Buffer())
		var got testPayload
		err := in.DecodePayload(&got)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProtocol)
	})
}

// ============================================================================
// Raw Payload Tests
// ============================================================================

func TestEncodePayloadRaw(t *testing.T) {
	t.Run("RoundTripsRawBytes", func(t *testing.T) {
		want := []byte("neither XDR nor aligned\x00\x01\x02")

		frame := encodedFrame(t, testHeader(), want)
		in := decodeWire(t, frame)

		assert.Equal(t, want, in.PayloadBytes())
	})

	t.Run("EmptyPayloadFinalisesHeaderOnlyFrame", func(t *testing.T) {
		out := NewMessage(false)
		out.Header = testHeader()
		require.NoError(t, out.EncodeHeader())
		require.NoError(t, out.EncodePayloadRaw(nil))

		assert.Equal(t, LenSize+HeaderXDRLen, out.Len())
		assert.Equal(t, 0, out.Offset())
		assert.Equal(t, uint32(out.Len()), binary.BigEndian.Uint32(out.Buffer()[:4]))
	})

	t.Run("AcceptsMaximumPayload", func(t *testing.T) {
		if testing.Short() {
			t.Skip("allocates PayloadMax bytes")
		}
		// The cap bounds everything after the length word, so the
		// largest raw payload leaves room for the header.
		data := bytes.Repeat([]byte{0xAB}, PayloadMax-HeaderXDRLen)

		out := NewMessage(false)
		out.Header = testHeader()
		require.NoError(t, out.EncodeHeader())
		require.NoError(t, out.EncodePayloadRaw(data))

		assert.Equal(t, LenSize+PayloadMax, out.Len())
		assert.Equal(t, uint32(out.Len()), binary.BigEndian.Uint32(out.Buffer()[:4]))
		// Spot-check the copied content at both ends.
		assert.Equal(t, byte(0xAB), out.Buffer()[LenSize+HeaderXDRLen])
		assert.Equal(t, byte(0xAB), out.Buffer()[out.Len()-1])
	})

	t.Run("RejectsOversizedPayload", func(t *testing.T) {
		if testing.Short() {
			t.Skip("allocates PayloadMax bytes")
		}
		data := make([]byte, PayloadMax-HeaderXDRLen+1)

		out := NewMessage(false)
		out.Header = testHeader()
		require.NoError(t, out.EncodeHeader())

		offBefore := out.Offset()
		err := out.EncodePayloadRaw(data)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPayloadTooLarge)
		// Nothing written, cursors untouched: the caller discards.
		assert.Equal(t, offBefore, out.Offset())
		assert.Equal(t, InitialPayload+LenSize, out.Len())
	})
}

// ============================================================================
// Length Prefix Consistency
// ============================================================================

func TestLengthPrefixMatchesFinalLength(t *testing.T) {
	payloads := map[string][]byte{
		"empty":     nil,
		"one":       {0xFF},
		"aligned":   bytes.Repeat([]byte{0x11}, 64),
		"unaligned": bytes.Repeat([]byte{0x22}, 65),
	}

	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			frame := encodedFrame(t, testHeader(), payload)
			assert.Equal(t, uint32(len(frame)), binary.BigEndian.Uint32(frame[:4]))
		})
	}
}

// ============================================================================
// Descriptor Count Tests
// ============================================================================

func TestNumFDsCodec(t *testing.T) {
	t.Run("RoundTripsCount", func(t *testing.T) {
		out := NewMessage(false)
		out.Header = Header{Type: TypeCallWithFDs}
		require.NoError(t, out.EncodeHeader())
		attachTestFDs(t, out, 3)
		defer out.ClearFDs()
		require.NoError(t, out.EncodeNumFDs())
		require.NoError(t, out.EncodePayloadRaw(nil))

		in := decodeWire(t, out.Buffer())
		n, err := in.DecodeNumFDs()
		require.NoError(t, err)
		assert.Equal(t, uint32(3), n)
	})

	t.Run("AllocatesSentinelSlots", func(t *testing.T) {
		out := NewMessage(false)
		out.Header = Header{Type: TypeCallWithFDs}
		require.NoError(t, out.EncodeHeader())
		attachTestFDs(t, out, 2)
		defer out.ClearFDs()
		require.NoError(t, out.EncodeNumFDs())
		require.NoError(t, out.EncodePayloadRaw(nil))

		in := decodeWire(t, out.Buffer())
		_, err := in.DecodeNumFDs()
		require.NoError(t, err)

		require.Equal(t, 2, in.NumFDs())
		assert.Equal(t, []int{-1, -1}, in.FDs())
	})

	t.Run("RoundTripsCountAndPayloadTogether", func(t *testing.T) {
		// On the wire the descriptor count sits between the header and
		// the payload, matching the encode call order: the payload
		// encoder finalises the frame, so nothing can follow it.
		want := testPayload{
			UUID:   "d1e8f6a0-3c52-4b7e-8f19-2a6c0d4b9e77",
			Flags:  7,
			Opaque: []byte{0xCA, 0xFE},
		}

		out := NewMessage(false)
		out.Header = Header{Type: TypeCallWithFDs, Serial: 11}
		require.NoError(t, out.EncodeHeader())
		attachTestFDs(t, out, 2)
		defer out.ClearFDs()
		require.NoError(t, out.EncodeNumFDs())
		require.NoError(t, out.EncodePayload(&want))

		in := decodeWire(t, out.Buffer())
		n, err := in.DecodeNumFDs()
		require.NoError(t, err)
		assert.Equal(t, uint32(2), n)
		assert.Equal(t, []int{-1, -1}, in.FDs())

		var got testPayload
		require.NoError(t, in.DecodePayload(&got))
		assert.Equal(t, want, got)
	})

	t.Run("PreservesPrepopulatedSlots", func(t *testing.T) {
		out := NewMessage(false)
		out.Header = Header{Type: TypeCallWithFDs}
		require.NoError(t, out.EncodeHeader())
		attachTestFDs(t, out, 1)
		defer out.ClearFDs()
		require.NoError(t, out.EncodeNumFDs())
		require.NoError(t, out.EncodePayloadRaw(nil))

		in := decodeWire(t, out.Buffer())
		// The I/O layer already received a descriptor before the count
		// was parsed; the slot array must survive.
		attachTestFDs(t, in, 1)
		defer in.ClearFDs()
		got := in.FDs()[0]

		_, err := in.DecodeNumFDs()
		require.NoError(t, err)
		assert.Equal(t, got, in.FDs()[0])
	})

	t.Run("EncodeRejectsTooManyDescriptors", func(t *testing.T) {
		out := NewMessage(false)
		out.Header = Header{Type: TypeCallWithFDs}
		require.NoError(t, out.EncodeHeader())
		attachTestFDs(t, out, FDsMax+1)
		defer out.ClearFDs()

		err := out.EncodeNumFDs()

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTooManyFDs)
	})

	t.Run("DecodeRejectsTooManyDescriptors", func(t *testing.T) {
		out := NewMessage(false)
		out.Header = Header{Type: TypeCallWithFDs}
		require.NoError(t, out.EncodeHeader())
		// Forge an over-limit count where EncodeNumFDs would sit.
		require.NoError(t, out.EncodePayloadRaw([]byte{0x00, 0x00, 0x00, 0x21}))

		in := decodeWire(t, out.Buffer())
		_, err := in.DecodeNumFDs()

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTooManyFDs)
	})
}
