// Package ledger is an in-process host ledger for the lifecycle engine.
//
// Sim keeps account balances per asset, applies the value transfers of a
// bundle, hands the app calls to the engine and executes the settlements
// the engine stages. A bundle either moves every balance or none: if a
// transfer overdraws its sender, the engine rejects the bundle, or the
// application cannot cover a settlement, no balance changes.
//
// Sim exists for local runs and tests; it performs no signature checks and
// has no notion of fees or minimum balances.
package ledger
