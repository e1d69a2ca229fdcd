package xdr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPad(t *testing.T) {
	cases := map[int]int{0: 0, 1: 3, 2: 2, 3: 1, 4: 0, 5: 3, 8: 0}
	for n, want := range cases {
		assert.Equal(t, want, Pad(n), "Pad(%d)", n)
	}
}

func TestUint32(t *testing.T) {
	t.Run("RoundTripsBigEndian", func(t *testing.T) {
		buf := make([]byte, 8)

		next, err := PutUint32(buf, 0, 0xDEADBEEF)
		require.NoError(t, err)
		assert.Equal(t, 4, next)
		assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, buf[:4])

		v, next, err := Uint32(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, uint32(0xDEADBEEF), v)
		assert.Equal(t, 4, next)
	})

	t.Run("FailsOnShortBuffer", func(t *testing.T) {
		buf := make([]byte, 3)

		_, err := PutUint32(buf, 0, 1)
		assert.ErrorIs(t, err, ErrShortBuffer)

		_, _, err = Uint32(buf, 0)
		assert.ErrorIs(t, err, ErrShortBuffer)
	})

	t.Run("FailsPastTheEnd", func(t *testing.T) {
		buf := make([]byte, 8)
		_, err := PutUint32(buf, 6, 1)
		assert.ErrorIs(t, err, ErrShortBuffer)
	})
}

func TestInt32(t *testing.T) {
	buf := make([]byte, 4)

	_, err := PutInt32(buf, 0, -42)
	require.NoError(t, err)

	v, next, err := Int32(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(-42), v)
	assert.Equal(t, 4, next)
}

func TestBool(t *testing.T) {
	buf := make([]byte, 4)

	_, err := PutBool(buf, 0, true)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 1}, buf)

	v, _, err := Bool(buf, 0)
	require.NoError(t, err)
	assert.True(t, v)
}

func TestString(t *testing.T) {
	t.Run("PadsToFourByteBoundary", func(t *testing.T) {
		buf := make([]byte, 12)

		next, err := PutString(buf, 0, "abc")
		require.NoError(t, err)
		assert.Equal(t, 8, next)
		assert.Equal(t, []byte{0, 0, 0, 3, 'a', 'b', 'c', 0}, buf[:8])

		s, next, err := String(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, "abc", s)
		assert.Equal(t, 8, next)
	})

	t.Run("AlignedStringHasNoPadding", func(t *testing.T) {
		buf := make([]byte, 8)

		next, err := PutString(buf, 0, "test")
		require.NoError(t, err)
		assert.Equal(t, 8, next)
	})

	t.Run("RejectsLengthPastBuffer", func(t *testing.T) {
		// Decoded length word claims more data than the buffer holds.
		buf := []byte{0x00, 0x00, 0x00, 0x10, 'x'}
		_, _, err := String(buf, 0)
		assert.ErrorIs(t, err, ErrShortBuffer)
	})
}

func TestOptString(t *testing.T) {
	t.Run("PresentValueRoundTrips", func(t *testing.T) {
		buf := make([]byte, 16)
		s := "hello"

		next, err := PutOptString(buf, 0, &s)
		require.NoError(t, err)

		got, gotNext, err := OptString(buf, 0)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "hello", *got)
		assert.Equal(t, next, gotNext)
	})

	t.Run("AbsentValueEncodesDiscriminantOnly", func(t *testing.T) {
		buf := make([]byte, 8)

		next, err := PutOptString(buf, 0, nil)
		require.NoError(t, err)
		assert.Equal(t, 4, next)

		got, gotNext, err := OptString(buf, 0)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Equal(t, 4, gotNext)
	})
}
