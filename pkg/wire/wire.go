// Package wire provides the little-endian, length-prefixed byte-stream
// helpers shared by every serializable entity in the protocol: proofs,
// diffs, store snapshots, and domain states all use the same u32
// length-prefix convention so a single reader/writer pair covers them all.
package wire

import (
	"encoding/binary"
	"errors"
)

// ErrTruncated is returned when a read runs past the end of the buffer.
var ErrTruncated = errors.New("wire: truncated input")

// Writer accumulates a little-endian byte stream.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// PutUint32 appends v as 4 little-endian bytes.
func (w *Writer) PutUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// PutUint64 appends v as 8 little-endian bytes.
func (w *Writer) PutUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// PutByte appends a single byte.
func (w *Writer) PutByte(b byte) { w.buf = append(w.buf, b) }

// PutBool appends a single byte: 1 for true, 0 for false.
func (w *Writer) PutBool(v bool) {
	if v {
		w.PutByte(1)
	} else {
		w.PutByte(0)
	}
}

// PutBytes appends raw bytes with no length prefix.
func (w *Writer) PutBytes(b []byte) { w.buf = append(w.buf, b...) }

// PutBlob appends a u32 length prefix followed by b.
func (w *Writer) PutBlob(b []byte) {
	w.PutUint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// Reader consumes a little-endian byte stream produced by Writer.
type Reader struct {
	buf []byte
}

// NewReader wraps data for sequential reads.
func NewReader(data []byte) *Reader { return &Reader{buf: data} }

// Remaining returns the number of unconsumed bytes.
func (r *Reader) Remaining() int { return len(r.buf) }

// Uint32 reads 4 little-endian bytes.
func (r *Reader) Uint32() (uint32, error) {
	if len(r.buf) < 4 {
		return 0, ErrTruncated
	}
	v := binary.LittleEndian.Uint32(r.buf[:4])
	r.buf = r.buf[4:]
	return v, nil
}

// Uint64 reads 8 little-endian bytes.
func (r *Reader) Uint64() (uint64, error) {
	if len(r.buf) < 8 {
		return 0, ErrTruncated
	}
	v := binary.LittleEndian.Uint64(r.buf[:8])
	r.buf = r.buf[8:]
	return v, nil
}

// Byte reads a single byte.
func (r *Reader) Byte() (byte, error) {
	if len(r.buf) < 1 {
		return 0, ErrTruncated
	}
	b := r.buf[0]
	r.buf = r.buf[1:]
	return b, nil
}

// Bool reads a single byte and interprets it as a boolean.
func (r *Reader) Bool() (bool, error) {
	b, err := r.Byte()
	return b != 0, err
}

// Bytes reads exactly n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if len(r.buf) < n {
		return nil, ErrTruncated
	}
	b := append([]byte(nil), r.buf[:n]...)
	r.buf = r.buf[n:]
	return b, nil
}

// Blob reads a u32 length prefix followed by that many bytes.
func (r *Reader) Blob() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	return r.Bytes(int(n))
}

// Rest returns and consumes every remaining byte with no length prefix.
func (r *Reader) Rest() []byte {
	b := r.buf
	r.buf = nil
	return b
}
