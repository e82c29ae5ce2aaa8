package packet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferReadWriteScalars(t *testing.T) {
	buf := NewBuffer()

	require.NoError(t, buf.WriteU8(0xAB))
	require.NoError(t, buf.WriteU16(0x1234))
	require.NoError(t, buf.WriteU32(0xDEADBEEF))

	buf.Seek(0)
	v8, err := buf.ReadU8()
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), v8)

	v16, err := buf.ReadU16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x1234), v16)

	v32, err := buf.ReadU32()
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), v32)
}

func TestBufferEndOfBuffer(t *testing.T) {
	buf := NewBuffer()
	buf.Seek(PacketSize)

	_, err := buf.ReadU8()
	require.ErrorIs(t, err, ErrEndOfBuffer)

	buf.Seek(PacketSize - 1)
	_, err = buf.ReadU16()
	require.ErrorIs(t, err, ErrEndOfBuffer)

	buf.Seek(PacketSize)
	require.ErrorIs(t, buf.WriteU8(1), ErrEndOfBuffer)
}

func TestBufferGetAndGetRange(t *testing.T) {
	buf := NewBuffer()
	require.NoError(t, buf.WriteBytes([]byte{1, 2, 3, 4, 5}))

	v, err := buf.Get(2)
	require.NoError(t, err)
	require.Equal(t, byte(3), v)

	rng, err := buf.GetRange(1, 3)
	require.NoError(t, err)
	require.Equal(t, []byte{2, 3, 4}, rng)

	_, err = buf.Get(PacketSize)
	require.ErrorIs(t, err, ErrOutOfBounds)

	// The final byte (index 511) is readable: start+len must exceed, not
	// just reach, PacketSize.
	_, err = buf.GetRange(PacketSize-1, 1)
	require.NoError(t, err)

	_, err = buf.GetRange(PacketSize-1, 2)
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestBufferTwoPhaseLengthPatch(t *testing.T) {
	buf := NewBuffer()

	lenPos := buf.Position()
	require.NoError(t, buf.WriteU16(0))
	require.NoError(t, buf.WriteBytes([]byte("hello")))
	require.NoError(t, buf.SetU16(lenPos, uint16(buf.Position()-lenPos-2)))

	buf.Seek(lenPos)
	n, err := buf.ReadU16()
	require.NoError(t, err)
	require.Equal(t, uint16(5), n)
}

func TestWriteNameAndReadNameRoundTrip(t *testing.T) {
	cases := []string{"", "com", "google.com", "WWW.Example.COM", "a.b.c.d.example.org"}

	for _, name := range cases {
		buf := NewBuffer()
		require.NoError(t, buf.WriteName(name))

		buf.Seek(0)
		got, err := buf.ReadName()
		require.NoError(t, err)
		require.Equal(t, toLowerDots(name), got)
	}
}

func toLowerDots(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	result := string(out)
	if result == "." {
		return ""
	}
	return result
}

func TestWriteNameLabelTooLong(t *testing.T) {
	buf := NewBuffer()
	longLabel := make([]byte, 64)
	for i := range longLabel {
		longLabel[i] = 'a'
	}
	err := buf.WriteName(string(longLabel) + ".com")
	require.ErrorIs(t, err, ErrLabelTooLong)
}

func TestReadNameFollowsCompressionPointer(t *testing.T) {
	buf := NewBuffer()

	// "example.com" written at offset 0.
	require.NoError(t, buf.WriteName("example.com"))
	afterFirst := buf.Position()

	// A second name, "www.example.com", where "example.com" is a pointer
	// back to offset 0.
	require.NoError(t, buf.WriteU8(3))
	require.NoError(t, buf.WriteBytes([]byte("www")))
	require.NoError(t, buf.WriteU16(0xC000))

	buf.Seek(afterFirst)
	got, err := buf.ReadName()
	require.NoError(t, err)
	require.Equal(t, "www.example.com", got)

	// The cursor must land exactly past the 2-byte pointer, not wherever
	// the jump chain ended up.
	require.Equal(t, afterFirst+3+1+2, buf.Position())
}

func TestReadNameSelfReferentialPointerFails(t *testing.T) {
	buf := NewBuffer()
	// c0 00 at offset 0, pointing at itself.
	buf.Buf[0] = 0xC0
	buf.Buf[1] = 0x00
	buf.Seek(0)

	_, err := buf.ReadName()
	require.ErrorIs(t, err, ErrTooManyJumps)
}

func TestReadNameNeverReadsPastLastByte(t *testing.T) {
	// A length byte at the very last offset claiming more data than the
	// buffer could possibly hold must fail cleanly, not panic.
	buf := NewBuffer()
	buf.Buf[PacketSize-1] = 10
	buf.Seek(PacketSize - 1)

	_, err := buf.ReadName()
	require.Error(t, err)
}
