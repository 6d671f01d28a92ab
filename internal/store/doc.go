// Package store provides SQLite-backed durable storage for ledgerflow.
//
// The store holds:
//   - Records: opaque encoded blobs keyed by "<entity>_<id>"
//   - Record index: owner -> insertion-ordered record ids, per kind
//   - Journal: accepted bundles in commit order, as canonical JSON
//   - Settlements: outbound transfers staged by each journaled bundle
//
// # Transactions
//
// Every mutation goes through a Tx. The engine opens one Tx per bundle and
// either commits it whole or rolls it back, so no reader ever observes a
// half-applied bundle. Primary records and their index entries are written
// in the same Tx.
//
// # Determinism
//
//   - Journal order uses seq INTEGER, never wall time
//   - Index listings are ordered by insertion position
//   - Bundles and logs are stored as RFC 8785 canonical JSON
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
