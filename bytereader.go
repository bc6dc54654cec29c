// ByteReader: streaming byte buffer with a blocking ensure(n) primitive.
//
// Every decode in this codebase starts by calling ensure(n); ensure is the
// only place the transport is read. This mirrors SRS's FastStream and
// replaces the ad hoc io.ReadFull-at-every-call-site pattern the teacher
// used, which is the class of bug spec.md 4.1 calls out ("got a short read,
// parsed garbage").

package main

import (
	"io"
	"net"
)

const byteReaderDefaultCapacity = 64 * 1024
const byteReaderHardMaxCapacity = 16 * 1024 * 1024

// ByteReader buffers bytes read from a net.Conn and exposes big/little
// endian primitive decoding over them.
type ByteReader struct {
	conn net.Conn

	buf    []byte
	start  int // first unread byte
	end    int // one past the last valid byte
	maxCap int
}

// NewByteReader creates a ByteReader around conn with the default capacity.
func NewByteReader(conn net.Conn) *ByteReader {
	return &ByteReader{
		conn:   conn,
		buf:    make([]byte, byteReaderDefaultCapacity),
		maxCap: byteReaderHardMaxCapacity,
	}
}

// SetMaxCapacity overrides the hard ceiling the backing buffer may grow to.
func (r *ByteReader) SetMaxCapacity(n int) {
	r.maxCap = n
}

// Available reports the number of unread bytes currently buffered.
func (r *ByteReader) Available() int {
	return r.end - r.start
}

// Capacity reports the size of the backing buffer.
func (r *ByteReader) Capacity() int {
	return len(r.buf)
}

// compact moves unread bytes to offset 0, reclaiming space at the tail.
func (r *ByteReader) compact() {
	if r.start == 0 {
		return
	}
	n := copy(r.buf, r.buf[r.start:r.end])
	r.start = 0
	r.end = n
}

// grow ensures the backing buffer has room for at least n unread bytes,
// compacting first and then doubling capacity (up to maxCap) as needed.
func (r *ByteReader) grow(n int) error {
	if r.start+n <= len(r.buf) {
		return nil
	}

	r.compact()

	if r.end+n <= len(r.buf) {
		return nil
	}

	newCap := len(r.buf)
	if newCap == 0 {
		newCap = byteReaderDefaultCapacity
	}
	for newCap < r.end+n {
		newCap *= 2
	}
	if newCap > r.maxCap {
		if r.end+n > r.maxCap {
			return newErr(ErrKindProtocol, "requested read exceeds max buffer capacity")
		}
		newCap = r.maxCap
	}

	grown := make([]byte, newCap)
	copy(grown, r.buf[r.start:r.end])
	r.end -= r.start
	r.start = 0
	r.buf = grown

	return nil
}

// ensure blocks, reading from the transport, until at least n unread bytes
// are buffered. It never discards unread bytes. Returns ErrEOF if the
// transport closes before n bytes accumulate, a Timeout error when the
// read deadline passes, a Protocol error when n would exceed the maximum
// capacity, or an Io error for any other transport failure.
func (r *ByteReader) ensure(n int) error {
	if err := r.grow(n); err != nil {
		return err
	}

	for r.Available() < n {
		space := len(r.buf) - r.end
		if space <= 0 {
			r.compact()
			space = len(r.buf) - r.end
		}

		read, err := r.conn.Read(r.buf[r.end : r.end+space])
		if read > 0 {
			r.end += read
		}
		if err != nil {
			if err == io.EOF {
				return ErrEOF
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return wrapErr(ErrKindTimeout, "idle timeout exceeded", err)
			}
			return wrapErr(ErrKindIo, "transport read failed", err)
		}
	}

	return nil
}

func (r *ByteReader) peek(n int) []byte {
	return r.buf[r.start : r.start+n]
}

func (r *ByteReader) advance(n int) {
	r.start += n
}

// ReadU8 consumes and returns one byte. Caller must ensure(1) first.
func (r *ByteReader) ReadU8() uint8 {
	b := r.buf[r.start]
	r.advance(1)
	return b
}

// ReadU16BE consumes and returns a big-endian uint16. Caller must ensure(2).
func (r *ByteReader) ReadU16BE() uint16 {
	b := r.peek(2)
	v := uint16(b[0])<<8 | uint16(b[1])
	r.advance(2)
	return v
}

// ReadU24BE consumes and returns a big-endian 24-bit value. Caller must ensure(3).
func (r *ByteReader) ReadU24BE() uint32 {
	b := r.peek(3)
	v := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	r.advance(3)
	return v
}

// ReadU32BE consumes and returns a big-endian uint32. Caller must ensure(4).
func (r *ByteReader) ReadU32BE() uint32 {
	b := r.peek(4)
	v := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	r.advance(4)
	return v
}

// ReadU32LE consumes and returns a little-endian uint32. Caller must ensure(4).
func (r *ByteReader) ReadU32LE() uint32 {
	b := r.peek(4)
	v := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	r.advance(4)
	return v
}

// ReadBytes consumes len(dst) bytes into dst. Caller must ensure(len(dst)).
func (r *ByteReader) ReadBytes(dst []byte) {
	copy(dst, r.peek(len(dst)))
	r.advance(len(dst))
}

// PeekBytes returns a view of the next n unread bytes without consuming them.
// Caller must ensure(n) first. The returned slice aliases the internal
// buffer and is only valid until the next ensure/grow call.
func (r *ByteReader) PeekBytes(n int) []byte {
	return r.peek(n)
}
