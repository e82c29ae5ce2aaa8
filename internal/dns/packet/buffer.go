// Package packet implements the DNS wire format: a fixed 512-byte packet
// buffer, name compression, and typed encode/decode of messages, questions,
// and resource records.
package packet

import (
	"errors"
	"strings"
)

// PacketSize is the fixed size of a DNS message this implementation ever
// reads or writes. EDNS(0) and messages larger than 512 bytes are out of
// scope.
const PacketSize = 512

// MaxJumps bounds how many compression pointers ReadName will follow before
// giving up, so a self-referential or cyclic pointer chain cannot spin
// forever on untrusted input.
const MaxJumps = 5

var (
	// ErrEndOfBuffer is returned when a read or write would move past the
	// end of the 512-byte buffer.
	ErrEndOfBuffer = errors.New("packet: end of buffer")
	// ErrOutOfBounds is returned by the random-access accessors when the
	// requested position or range falls outside the buffer.
	ErrOutOfBounds = errors.New("packet: out of bounds")
	// ErrTooManyJumps is returned when name decoding follows more
	// compression pointers than MaxJumps allows.
	ErrTooManyJumps = errors.New("packet: limit of jumps exceeded")
	// ErrLabelTooLong is returned on encode when a single label exceeds 63
	// octets.
	ErrLabelTooLong = errors.New("packet: single label exceeds 63 octets")
)

// Buffer is a fixed 512-byte scratch region with a cursor, used both to
// decode an inbound datagram and to assemble an outbound one. One Buffer is
// used per message and discarded after encode or decode.
type Buffer struct {
	Buf []byte
	Pos int
}

// NewBuffer returns an empty, zeroed Buffer ready for writing.
func NewBuffer() *Buffer {
	return &Buffer{Buf: make([]byte, PacketSize)}
}

// Load copies data into a fresh Buffer for decoding, resetting the cursor.
// data longer than PacketSize is truncated; DNS over UDP never delivers
// more than that without EDNS(0), which is out of scope here.
func Load(data []byte) *Buffer {
	b := NewBuffer()
	copy(b.Buf, data)
	return b
}

// Position returns the current cursor position.
func (b *Buffer) Position() int {
	return b.Pos
}

// Seek moves the cursor to an absolute position. It performs no bounds
// check of its own; the next read or write enforces it.
func (b *Buffer) Seek(pos int) {
	b.Pos = pos
}

// Step advances the cursor by n bytes. Like Seek, it is unchecked; the next
// I/O call enforces bounds.
func (b *Buffer) Step(n int) {
	b.Pos += n
}

// ReadU8 reads one byte and advances the cursor.
func (b *Buffer) ReadU8() (byte, error) {
	if b.Pos >= PacketSize {
		return 0, ErrEndOfBuffer
	}
	v := b.Buf[b.Pos]
	b.Pos++
	return v, nil
}

// ReadU16 reads a big-endian uint16 and advances the cursor by 2.
func (b *Buffer) ReadU16() (uint16, error) {
	if b.Pos+2 > PacketSize {
		return 0, ErrEndOfBuffer
	}
	v := uint16(b.Buf[b.Pos])<<8 | uint16(b.Buf[b.Pos+1])
	b.Pos += 2
	return v, nil
}

// ReadU32 reads a big-endian uint32 and advances the cursor by 4.
func (b *Buffer) ReadU32() (uint32, error) {
	if b.Pos+4 > PacketSize {
		return 0, ErrEndOfBuffer
	}
	v := uint32(b.Buf[b.Pos])<<24 | uint32(b.Buf[b.Pos+1])<<16 |
		uint32(b.Buf[b.Pos+2])<<8 | uint32(b.Buf[b.Pos+3])
	b.Pos += 4
	return v, nil
}

// Get reads a single byte at an absolute position without moving the
// cursor.
func (b *Buffer) Get(pos int) (byte, error) {
	if pos < 0 || pos >= PacketSize {
		return 0, ErrOutOfBounds
	}
	return b.Buf[pos], nil
}

// GetRange returns a view of length bytes starting at start, without
// moving the cursor. The returned slice aliases the buffer; callers that
// need to retain it past the buffer's lifetime must copy it.
func (b *Buffer) GetRange(start, length int) ([]byte, error) {
	if start < 0 || length < 0 || start+length > PacketSize {
		return nil, ErrOutOfBounds
	}
	return b.Buf[start : start+length], nil
}

// WriteU8 writes one byte and advances the cursor.
func (b *Buffer) WriteU8(v byte) error {
	if b.Pos >= PacketSize {
		return ErrEndOfBuffer
	}
	b.Buf[b.Pos] = v
	b.Pos++
	return nil
}

// WriteU16 writes a big-endian uint16 and advances the cursor by 2.
func (b *Buffer) WriteU16(v uint16) error {
	if b.Pos+2 > PacketSize {
		return ErrEndOfBuffer
	}
	b.Buf[b.Pos] = byte(v >> 8)
	b.Buf[b.Pos+1] = byte(v)
	b.Pos += 2
	return nil
}

// WriteU32 writes a big-endian uint32 and advances the cursor by 4.
func (b *Buffer) WriteU32(v uint32) error {
	if b.Pos+4 > PacketSize {
		return ErrEndOfBuffer
	}
	b.Buf[b.Pos] = byte(v >> 24)
	b.Buf[b.Pos+1] = byte(v >> 16)
	b.Buf[b.Pos+2] = byte(v >> 8)
	b.Buf[b.Pos+3] = byte(v)
	b.Pos += 4
	return nil
}

// WriteBytes writes a raw slice sequentially and advances the cursor by
// len(data).
func (b *Buffer) WriteBytes(data []byte) error {
	if b.Pos+len(data) > PacketSize {
		return ErrEndOfBuffer
	}
	copy(b.Buf[b.Pos:], data)
	b.Pos += len(data)
	return nil
}

// SetU8 patches an already-written byte at pos without moving the cursor.
func (b *Buffer) SetU8(pos int, v byte) error {
	if pos < 0 || pos >= PacketSize {
		return ErrOutOfBounds
	}
	b.Buf[pos] = v
	return nil
}

// SetU16 patches an already-written big-endian uint16 at pos without
// moving the cursor. It is the second half of the two-phase RDLENGTH
// pattern: reserve two bytes, write the RDATA, then come back and patch
// the length in.
func (b *Buffer) SetU16(pos int, v uint16) error {
	if pos < 0 || pos+2 > PacketSize {
		return ErrOutOfBounds
	}
	b.Buf[pos] = byte(v >> 8)
	b.Buf[pos+1] = byte(v)
	return nil
}

// ReadName decodes a domain name starting at the current cursor, following
// compression pointers as needed. Labels are lowercased and joined with
// '.'; the root name decodes to "". The enclosing buffer's cursor advances
// past the first pointer only (2 bytes) the first time one is followed;
// subsequent jumps move only a local scan position.
func (b *Buffer) ReadName() (string, error) {
	pos := b.Pos
	jumped := false
	jumps := 0

	var out strings.Builder

	for {
		if jumps > MaxJumps {
			return "", ErrTooManyJumps
		}

		lenByte, err := b.Get(pos)
		if err != nil {
			return "", err
		}

		if lenByte&0xC0 == 0xC0 {
			b2, err := b.Get(pos + 1)
			if err != nil {
				return "", err
			}
			if !jumped {
				b.Seek(pos + 2)
				jumped = true
			}
			offset := (uint16(lenByte&0x3F) << 8) | uint16(b2)
			pos = int(offset)
			jumps++
			continue
		}

		if lenByte == 0 {
			pos++
			if !jumped {
				b.Seek(pos)
			}
			return strings.TrimSuffix(out.String(), "."), nil
		}

		pos++
		length := int(lenByte)
		label, err := b.GetRange(pos, length)
		if err != nil {
			return "", err
		}
		for _, c := range label {
			if c >= 'A' && c <= 'Z' {
				c += 'a' - 'A'
			}
			out.WriteByte(c)
		}
		out.WriteByte('.')
		pos += length
	}
}

// WriteName encodes a domain name as a sequence of length-prefixed labels
// terminated by a zero byte. It never compresses on output. name may be
// the empty string (root) or dot-joined labels with or without a trailing
// dot.
func (b *Buffer) WriteName(name string) error {
	name = strings.TrimSuffix(name, ".")
	if name == "" {
		return b.WriteU8(0)
	}
	for _, label := range strings.Split(name, ".") {
		if len(label) > 63 {
			return ErrLabelTooLong
		}
		if err := b.WriteU8(byte(len(label))); err != nil {
			return err
		}
		if err := b.WriteBytes([]byte(label)); err != nil {
			return err
		}
	}
	return b.WriteU8(0)
}
