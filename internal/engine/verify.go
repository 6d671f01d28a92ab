package engine

import (
	"github.com/roach88/ledgerflow/internal/ir"
)

// Transfer returns the sibling value transfer at offset from the current
// app call and marks it consumed. The transfer must target the application
// address in the instance asset. A sibling may be consumed by only one app
// call per bundle.
func (c *Context) Transfer(offset int) (ir.Op, error) {
	idx := c.index + offset
	ops := c.run.bundle.Ops
	if offset == 0 || idx < 0 || idx >= len(ops) {
		return ir.Op{}, Errorf(CodePaymentMismatch, "no operation at offset %+d", offset)
	}
	op := ops[idx]

	wantKind := ir.KindPayment
	if c.AssetID() != 0 {
		wantKind = ir.KindAssetTransfer
	}
	switch {
	case op.Kind != wantKind:
		return ir.Op{}, Errorf(CodePaymentMismatch, "operation %d is %s, want %s", idx, op.Kind, wantKind)
	case op.AssetID != c.AssetID():
		return ir.Op{}, Errorf(CodePaymentMismatch, "operation %d moves asset %d, want %d", idx, op.AssetID, c.AssetID())
	case op.Receiver != c.App():
		return ir.Op{}, Errorf(CodePaymentMismatch, "operation %d pays %s, not the application", idx, op.Receiver)
	case c.run.consumed[idx]:
		return ir.Op{}, Errorf(CodePaymentMismatch, "operation %d already consumed by another call", idx)
	}
	c.run.consumed[idx] = true
	return op, nil
}

// VerifyPayment checks that the sibling at offset is a transfer of exactly
// amount from sender to the application, and consumes it. There is no
// tolerance for over- or underpayment. A failure rejects the whole bundle,
// so consuming a sibling that then fails a check has no lasting effect.
func (c *Context) VerifyPayment(offset int, sender ir.Address, amount uint64) error {
	op, err := c.Transfer(offset)
	if err != nil {
		return err
	}
	idx := c.index + offset
	if op.Sender != sender {
		return Errorf(CodePaymentMismatch, "operation %d sent by %s, want %s", idx, op.Sender, sender)
	}
	if op.Amount != amount {
		return Errorf(CodePaymentMismatch, "operation %d pays %d, want %d", idx, op.Amount, amount)
	}
	return nil
}
