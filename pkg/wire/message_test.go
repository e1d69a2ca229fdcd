package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Lifecycle Tests
// ============================================================================

func TestNewMessage(t *testing.T) {
	t.Run("StartsEmpty", func(t *testing.T) {
		msg := NewMessage(true)

		assert.True(t, msg.Tracked())
		assert.Equal(t, 0, msg.Len())
		assert.Equal(t, 0, msg.Offset())
		assert.Equal(t, 0, msg.NumFDs())
	})
}

func TestClear(t *testing.T) {
	t.Run("PreservesTrackedFlag", func(t *testing.T) {
		for _, tracked := range []bool{true, false} {
			msg := NewMessage(tracked)
			msg.Header = testHeader()
			require.NoError(t, msg.EncodeHeader())
			require.NoError(t, msg.EncodePayloadRaw([]byte{1, 2, 3}))

			msg.Clear()

			assert.Equal(t, tracked, msg.Tracked())
			assert.Equal(t, Header{}, msg.Header)
			assert.Equal(t, 0, msg.Len())
			assert.Equal(t, 0, msg.Offset())
		}
	})

	t.Run("DropsReleaseCallbackWithoutFiring", func(t *testing.T) {
		calls := 0
		msg := NewMessage(false)
		msg.OnRelease(func(*Message, any) { calls++ }, nil)

		msg.Clear()
		assert.Equal(t, 0, calls)

		// The dropped callback must not resurface on Free either.
		msg.Free()
		assert.Equal(t, 0, calls)
	})
}

func TestClearPayload(t *testing.T) {
	t.Run("KeepsHeaderAndBookkeeping", func(t *testing.T) {
		msg := NewMessage(true)
		msg.Header = testHeader()
		require.NoError(t, msg.EncodeHeader())
		require.NoError(t, msg.EncodePayloadRaw([]byte{9}))

		msg.ClearPayload()

		assert.Equal(t, testHeader(), msg.Header)
		assert.True(t, msg.Tracked())
		assert.Equal(t, 0, msg.Len())
		assert.Equal(t, 0, msg.Offset())
	})
}

func TestFree(t *testing.T) {
	t.Run("InvokesReleaseExactlyOnce", func(t *testing.T) {
		calls := 0
		var gotCookie any
		msg := NewMessage(false)
		msg.OnRelease(func(m *Message, cookie any) {
			calls++
			gotCookie = cookie
		}, "completion-42")

		msg.Free()
		msg.Free()

		assert.Equal(t, 1, calls)
		assert.Equal(t, "completion-42", gotCookie)
	})

	t.Run("NilMessageIsNoOp", func(t *testing.T) {
		var msg *Message
		assert.NotPanics(t, func() { msg.Free() })
	})

	t.Run("CallbackRunsBeforeDescriptorClose", func(t *testing.T) {
		msg := NewMessage(false)
		attachTestFDs(t, msg, 1)

		sawFD := -1
		msg.OnRelease(func(m *Message, _ any) {
			// Descriptors must still be alive here so the callback can
			// reclaim them.
			require.Equal(t, 1, m.NumFDs())
			sawFD = m.FDs()[0]
		}, nil)

		msg.Free()

		assert.GreaterOrEqual(t, sawFD, 0)
		assert.Equal(t, 0, msg.NumFDs())
	})
}
