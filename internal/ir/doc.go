// Package ir defines the values exchanged between the host ledger and the
// lifecycle engine: addresses, operations, atomic bundles and settlements.
//
// It also carries the canonical JSON encoding (RFC 8785) used for journal
// entries and golden traces, and the domain-separated hashes derived from it.
//
// ir imports nothing internal. Every other package may import it.
//
// Constraints:
//   - Amounts are uint64 in the smallest indivisible unit; no floats anywhere.
//   - Operation arguments are raw bytes: 8-byte big-endian integers, raw
//     addresses and raw text.
//   - JSON tags use snake_case.
package ir
