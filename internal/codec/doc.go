// Package codec encodes records to and from the bytes held by the store.
//
// Two forms are supported:
//
//   - Packed: a tag byte naming the record kind followed by fields in a
//     fixed order. Integers are 8-byte big-endian, booleans and enums are one
//     byte, and variable fields carry a 2-byte big-endian length prefix.
//   - Fields: named sub-fields under one key, serialized in sorted name order.
//
// Neither form uses delimiters, so no field value can be mistaken for a
// boundary. Every malformed input yields an error wrapping ErrDecode.
package codec
