package jdwp

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Writer builds command payloads. Identifier widths come from the
// negotiated IDSizes.
type Writer struct {
	buf   bytes.Buffer
	sizes IDSizes
}

// NewWriter returns a payload writer using the given identifier widths.
func NewWriter(sizes IDSizes) *Writer {
	return &Writer{sizes: sizes}
}

// Bytes returns the payload accumulated so far.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *Writer) Byte(b byte) {
	w.buf.WriteByte(b)
}

func (w *Writer) Uint16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) Uint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) Uint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// Long writes an 8-byte signed integer.
func (w *Writer) Long(v int64) {
	w.Uint64(uint64(v))
}

// String writes a 4-byte length followed by UTF-8 bytes.
func (w *Writer) String(s string) {
	w.Uint32(uint32(len(s)))
	w.buf.WriteString(s)
}

// id writes v in exactly width big-endian bytes.
func (w *Writer) id(v uint64, width int) {
	for i := width - 1; i >= 0; i-- {
		w.buf.WriteByte(byte(v >> (8 * i)))
	}
}

func (w *Writer) ObjectID(v ObjectID)             { w.id(uint64(v), w.sizes.ObjectID) }
func (w *Writer) ReferenceTypeID(v ReferenceTypeID) { w.id(uint64(v), w.sizes.ReferenceTypeID) }
func (w *Writer) MethodID(v MethodID)             { w.id(uint64(v), w.sizes.MethodID) }
func (w *Writer) FieldID(v FieldID)               { w.id(uint64(v), w.sizes.FieldID) }

// Reader parses reply payloads. It is sticky: after the first failure all
// reads return zero values and Err reports the failure, so decode paths can
// read a whole layout and check once.
type Reader struct {
	data  []byte
	off   int
	sizes IDSizes
	err   error
}

// NewReader returns a payload reader over data using the given identifier
// widths.
func NewReader(data []byte, sizes IDSizes) *Reader {
	return &Reader{data: data, sizes: sizes}
}

// Err returns the first decoding failure, if any.
func (r *Reader) Err() error {
	return r.err
}

// Remaining reports how many bytes are left unread.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.err = fmt.Errorf("jdwp: truncated payload: need %d bytes at offset %d of %d", n, r.off, len(r.data))
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) Byte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *Reader) Uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// Long reads an 8-byte signed integer.
func (r *Reader) Long() int64 {
	return int64(r.Uint64())
}

// String reads a 4-byte length followed by UTF-8 bytes.
func (r *Reader) String() string {
	n := int(r.Uint32())
	if r.err != nil {
		return ""
	}
	b := r.take(n)
	if b == nil {
		return ""
	}
	return string(b)
}

// id reads a width-byte big-endian identifier.
func (r *Reader) id(width int) uint64 {
	b := r.take(width)
	if b == nil {
		return 0
	}
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

func (r *Reader) ObjectID() ObjectID               { return ObjectID(r.id(r.sizes.ObjectID)) }
func (r *Reader) ReferenceTypeID() ReferenceTypeID { return ReferenceTypeID(r.id(r.sizes.ReferenceTypeID)) }
func (r *Reader) MethodID() MethodID               { return MethodID(r.id(r.sizes.MethodID)) }
func (r *Reader) FieldID() FieldID                 { return FieldID(r.id(r.sizes.FieldID)) }
