package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrDecode is wrapped by every decoding failure.
var ErrDecode = errors.New("decode error")

// MaxFieldLen is the longest variable field a 2-byte prefix can describe.
const MaxFieldLen = math.MaxUint16

// Tag identifies the record kind in the first byte of a packed record.
type Tag byte

// Writer builds a packed record. Errors are sticky and reported by Finish.
type Writer struct {
	buf []byte
	err error
}

// NewWriter starts a packed record with the given tag.
func NewWriter(tag Tag) *Writer {
	return &Writer{buf: []byte{byte(tag)}}
}

// Uint appends an 8-byte big-endian integer.
func (w *Writer) Uint(v uint64) *Writer {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
	return w
}

// Int appends a signed integer in two's complement.
func (w *Writer) Int(v int64) *Writer {
	return w.Uint(uint64(v))
}

// Byte appends a single byte, used for enums.
func (w *Writer) Byte(b byte) *Writer {
	w.buf = append(w.buf, b)
	return w
}

// Bool appends 0x01 for true and 0x00 for false.
func (w *Writer) Bool(b bool) *Writer {
	if b {
		return w.Byte(1)
	}
	return w.Byte(0)
}

// Bytes appends a length-prefixed variable field.
func (w *Writer) Bytes(b []byte) *Writer {
	if len(b) > MaxFieldLen {
		if w.err == nil {
			w.err = fmt.Errorf("field of %d bytes exceeds %d", len(b), MaxFieldLen)
		}
		return w
	}
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(len(b)))
	w.buf = append(w.buf, b...)
	return w
}

// Text appends a length-prefixed text field.
func (w *Writer) Text(s string) *Writer {
	return w.Bytes([]byte(s))
}

// Finish returns the encoded record or the first error encountered.
func (w *Writer) Finish() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}

// Reader decodes a packed record field by field. The first failure is
// sticky: later reads return zero values and Close reports it.
type Reader struct {
	data []byte
	off  int
	err  error
}

// NewReader checks the tag byte and positions the reader on the first field.
func NewReader(data []byte, tag Tag) *Reader {
	r := &Reader{data: data}
	switch {
	case len(data) == 0:
		r.err = fmt.Errorf("%w: empty record", ErrDecode)
	case Tag(data[0]) != tag:
		r.err = fmt.Errorf("%w: tag 0x%02x, want 0x%02x", ErrDecode, data[0], byte(tag))
	default:
		r.off = 1
	}
	return r
}

func (r *Reader) take(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.data)-r.off < n {
		r.err = fmt.Errorf("%w: short %s at offset %d", ErrDecode, what, r.off)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// Uint reads an 8-byte big-endian integer.
func (r *Reader) Uint() uint64 {
	b := r.take(8, "integer")
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// Int reads a signed integer written by Writer.Int.
func (r *Reader) Int() int64 {
	return int64(r.Uint())
}

// Byte reads a single byte.
func (r *Reader) Byte() byte {
	b := r.take(1, "byte")
	if b == nil {
		return 0
	}
	return b[0]
}

// Bool reads a boolean. Values other than 0 and 1 are rejected.
func (r *Reader) Bool() bool {
	b := r.Byte()
	if r.err == nil && b > 1 {
		r.err = fmt.Errorf("%w: bool byte 0x%02x at offset %d", ErrDecode, b, r.off-1)
	}
	return b == 1
}

// Bytes reads a length-prefixed variable field. The result is a copy.
func (r *Reader) Bytes() []byte {
	n := r.take(2, "length prefix")
	if n == nil {
		return nil
	}
	b := r.take(int(binary.BigEndian.Uint16(n)), "field")
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// Text reads a length-prefixed text field.
func (r *Reader) Text() string {
	return string(r.Bytes())
}

// Fail records a semantic decode failure, such as an unknown enum value.
func (r *Reader) Fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s", ErrDecode, fmt.Sprintf(format, args...))
	}
}

// Close reports the first failure, or trailing bytes after the last field.
func (r *Reader) Close() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.data) {
		return fmt.Errorf("%w: %d trailing bytes", ErrDecode, len(r.data)-r.off)
	}
	return nil
}
