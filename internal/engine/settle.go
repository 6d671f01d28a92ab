package engine

import (
	"github.com/roach88/ledgerflow/internal/ir"
)

// Host is the ledger that executes staged settlements. Stage is called
// once per settlement after the requesting transition's guards have passed;
// the host must execute staged settlements only if the bundle is accepted.
// A non-nil error (typically insufficient application balance) rejects the
// whole bundle.
type Host interface {
	Stage(s ir.Settlement) error
}

// HostFunc adapts a function to Host.
type HostFunc func(ir.Settlement) error

// Stage calls f.
func (f HostFunc) Stage(s ir.Settlement) error { return f(s) }

// acceptAll stages everything; used for simulation.
var acceptAll = HostFunc(func(ir.Settlement) error { return nil })

// Payout is one entry of a batch settlement.
type Payout struct {
	To     ir.Address
	Amount uint64
}

// Issue requests one outbound transfer of amount to to, in the instance
// asset. It may be called at most once per app call and must be called
// only after every guard of the transition has passed.
func (c *Context) Issue(to ir.Address, amount uint64) error {
	return c.IssueBatch([]Payout{{To: to, Amount: amount}})
}

// IssueBatch requests one outbound transfer per payout, at most MaxBatch,
// as the single settlement action of the current app call.
func (c *Context) IssueBatch(payouts []Payout) error {
	if c.issued {
		return Errorf(CodeSettlementRejected, "%s already issued its settlement", c.Opcode())
	}
	if len(payouts) == 0 || len(payouts) > MaxBatch {
		return Errorf(CodeSettlementRejected, "batch of %d payouts, want 1..%d", len(payouts), MaxBatch)
	}
	staged := make([]ir.Settlement, 0, len(payouts))
	for _, p := range payouts {
		if p.Amount == 0 {
			return Errorf(CodeSettlementRejected, "zero settlement to %s", p.To)
		}
		if err := p.To.Validate(); err != nil {
			return &Error{Code: CodeSettlementRejected, Message: "invalid receiver", Index: -1, Err: err}
		}
		s := ir.Settlement{Receiver: p.To, Amount: p.Amount, AssetID: c.AssetID(), Opcode: c.Opcode()}
		if err := c.run.host.Stage(s); err != nil {
			return &Error{Code: CodeSettlementRejected, Message: "host rejected " + s.String(), Index: -1, Err: err}
		}
		staged = append(staged, s)
	}
	c.issued = true
	c.run.settlements = append(c.run.settlements, staged...)
	return nil
}
