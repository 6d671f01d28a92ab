// Package engine implements the ledgerflow lifecycle engine.
//
// The engine receives atomic bundles of ledger operations, runs every app
// call in the bundle against the configured application (escrow, loan or
// payroll), and either commits all of the resulting state or none of it.
//
// ARCHITECTURE:
//
// Single Writer:
// Submit holds the engine mutex for the whole bundle and runs it inside one
// SQLite transaction. A rejected bundle is rolled back; an accepted bundle
// is journaled and committed together with its record changes.
//
// Bundle Processing Flow:
//  1. Bundle validated against the operation budget
//  2. Each app call decoded into a typed command by the App
//  3. Guards run in order: role, then status, then sibling payment
//  4. Records mutated through the Context (codec blobs in the store)
//  5. Settlements staged with the Host once all guards have passed
//  6. Journal entry written, transaction committed
//
// The Host executes staged settlements only after Submit returns a receipt,
// so a rejected bundle never moves value.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Journal entries are stamped with a monotonic seq from Clock.
// Host time comes from the bundle timestamp, never from the wall clock.
//
// Fail Closed:
// Every guard failure is an *Error with a Code and aborts the whole bundle.
// There is no partial success and no retry inside the engine.
package engine
