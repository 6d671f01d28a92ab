package engine

import "math/bits"

// Stats are the process-wide creation counters. They are incremented once
// per created record and never decremented.
type Stats struct {
	TotalRecords uint64
	TotalValue   uint64
}

// RecordCreated counts one created record of the given value. Overflow is
// a guard failure, never wraparound.
func (c *Context) RecordCreated(value uint64) error {
	return c.UpdateInstance(func(in *Instance) error {
		records, err := Add(in.TotalRecords, 1, "total_records")
		if err != nil {
			return err
		}
		total, err := Add(in.TotalValue, value, "total_value")
		if err != nil {
			return err
		}
		in.TotalRecords, in.TotalValue = records, total
		return nil
	})
}

// Stats returns the current creation counters.
func (c *Context) Stats() Stats {
	return c.run.instance.Stats()
}

// Add returns a+b, failing with INVALID_STATE on overflow.
func Add(a, b uint64, what string) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, Errorf(CodeInvalidState, "%s overflows", what)
	}
	return sum, nil
}

// Sub returns a-b, failing with INVALID_STATE on underflow.
func Sub(a, b uint64, what string) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, Errorf(CodeInvalidState, "%s underflows", what)
	}
	return diff, nil
}
