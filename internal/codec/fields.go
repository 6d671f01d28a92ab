package codec

import (
	"encoding/binary"
	"fmt"
	"slices"
)

// Fields holds named sub-fields stored under a single record key.
type Fields map[string][]byte

// SetUint stores v as an 8-byte big-endian sub-field.
func (f Fields) SetUint(name string, v uint64) {
	f[name] = binary.BigEndian.AppendUint64(nil, v)
}

// SetText stores s as a raw sub-field.
func (f Fields) SetText(name, s string) {
	f[name] = []byte(s)
}

// SetBool stores b as a one-byte sub-field.
func (f Fields) SetBool(name string, b bool) {
	if b {
		f[name] = []byte{1}
	} else {
		f[name] = []byte{0}
	}
}

// Uint reads an integer sub-field. Absent or wrongly sized sub-fields fail.
func (f Fields) Uint(name string) (uint64, error) {
	b, ok := f[name]
	if !ok {
		return 0, fmt.Errorf("%w: missing field %q", ErrDecode, name)
	}
	if len(b) != 8 {
		return 0, fmt.Errorf("%w: field %q is %d bytes, want 8", ErrDecode, name, len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// Text reads a text sub-field.
func (f Fields) Text(name string) (string, error) {
	b, ok := f[name]
	if !ok {
		return "", fmt.Errorf("%w: missing field %q", ErrDecode, name)
	}
	return string(b), nil
}

// Bool reads a one-byte boolean sub-field.
func (f Fields) Bool(name string) (bool, error) {
	b, ok := f[name]
	if !ok {
		return false, fmt.Errorf("%w: missing field %q", ErrDecode, name)
	}
	if len(b) != 1 || b[0] > 1 {
		return false, fmt.Errorf("%w: field %q is not a bool", ErrDecode, name)
	}
	return b[0] == 1, nil
}

// Encode serializes the sub-fields in sorted name order so equal field sets
// always produce equal bytes.
func (f Fields) Encode() ([]byte, error) {
	if len(f) > MaxFieldLen {
		return nil, fmt.Errorf("%d fields exceed %d", len(f), MaxFieldLen)
	}
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	slices.Sort(names)

	buf := binary.BigEndian.AppendUint16(nil, uint16(len(names)))
	for _, name := range names {
		if len(name) > MaxFieldLen || len(f[name]) > MaxFieldLen {
			return nil, fmt.Errorf("field %q exceeds %d bytes", name, MaxFieldLen)
		}
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(name)))
		buf = append(buf, name...)
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(f[name])))
		buf = append(buf, f[name]...)
	}
	return buf, nil
}

// DecodeFields parses bytes produced by Fields.Encode.
func DecodeFields(data []byte) (Fields, error) {
	r := &Reader{data: data}
	countBytes := r.take(2, "field count")
	if countBytes == nil {
		return nil, r.err
	}
	count := int(binary.BigEndian.Uint16(countBytes))
	f := make(Fields, count)
	prev := ""
	for i := 0; i < count; i++ {
		name := r.Text()
		value := r.Bytes()
		if r.err != nil {
			return nil, r.err
		}
		if i > 0 && name <= prev {
			return nil, fmt.Errorf("%w: field %q out of order", ErrDecode, name)
		}
		prev = name
		f[name] = value
	}
	if err := r.Close(); err != nil {
		return nil, err
	}
	return f, nil
}
