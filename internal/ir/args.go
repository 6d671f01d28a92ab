package ir

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Arg is a raw positional operation argument.
type Arg []byte

// Uint encodes v as an 8-byte big-endian argument.
func Uint(v uint64) Arg {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// Text encodes s as a raw text argument.
func Text(s string) Arg {
	return Arg(s)
}

// Addr encodes a as a raw address argument.
func Addr(a Address) Arg {
	return Arg(a)
}

// Uint decodes a fixed-width big-endian integer argument.
func (a Arg) Uint() (uint64, error) {
	if len(a) != 8 {
		return 0, fmt.Errorf("integer argument must be 8 bytes, got %d", len(a))
	}
	return binary.BigEndian.Uint64(a), nil
}

// Text returns the argument as text.
func (a Arg) Text() string {
	return string(a)
}

// Address returns the argument as an address.
func (a Arg) Address() Address {
	return Address(a)
}

// MarshalText renders the argument as hex so bundles stay printable in JSON.
func (a Arg) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(a)), nil
}

// UnmarshalText parses the hex form produced by MarshalText.
func (a *Arg) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("decode arg: %w", err)
	}
	*a = b
	return nil
}

// ParseArg parses a typed textual argument of the form "u64:100",
// "str:hello" or "addr:ALICE". Used by the CLI and scenario files.
func ParseArg(s string) (Arg, error) {
	kind, value, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("argument %q: want <type>:<value>", s)
	}
	switch kind {
	case "u64", "uint":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", s, err)
		}
		return Uint(n), nil
	case "str", "text":
		return Text(value), nil
	case "addr":
		return Addr(Address(value)), nil
	case "hex":
		b, err := hex.DecodeString(value)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", s, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("argument %q: unknown type %q", s, kind)
	}
}
