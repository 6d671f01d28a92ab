package harness

import (
	"github.com/roach88/ledgerflow/internal/ir"
	"github.com/roach88/ledgerflow/internal/ledger"
)

// Step outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

// TraceEvent is one flow step as the engine saw it.
type TraceEvent struct {
	// Step is the 1-based position in the scenario flow.
	Step int `json:"step"`

	// Ops names each operation of the bundle: the opcode for app calls,
	// the kind ("pay", "axfer") for value transfers.
	Ops []string `json:"ops"`

	Outcome string `json:"outcome"`

	// Code is the rejection code. Empty for accepted bundles.
	Code string `json:"code,omitempty"`

	// Seq is the journal sequence of an accepted bundle.
	Seq int64 `json:"seq,omitempty"`

	Logs        []string        `json:"logs"`
	Settlements []ir.Settlement `json:"settlements"`
}

// Accepted reports whether the step's bundle committed.
func (e TraceEvent) Accepted() bool {
	return e.Outcome == OutcomeAccepted
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Balances is the simulated ledger after the flow.
	Balances []ledger.Account `json:"balances"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEvent appends a step to the trace.
func (r *Result) AddEvent(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}
