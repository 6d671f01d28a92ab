package harness

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/ledgerflow/internal/ir"
	"github.com/roach88/ledgerflow/internal/ledger"
	"github.com/roach88/ledgerflow/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s", event.Step, strings.Join(event.Ops, "+"), event.Outcome)
			if event.Code != "" {
				fmt.Fprintf(&buf, " %s", event.Code)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// AssertionContext provides what state assertions need to query.
type AssertionContext struct {
	Ctx     context.Context
	Store   *store.Store
	Ledger  *ledger.Sim
	AssetID uint64 // default asset for balance assertions
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	case AssertReport, AssertBalance, AssertJournal:
		if actx == nil || actx.Ledger == nil {
			return fmt.Errorf("%s assertion requires a ledger", a.Type)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}

	switch a.Type {
	case AssertReport:
		return assertReport(actx, a)
	case AssertBalance:
		return assertBalance(actx, a)
	default:
		return assertJournal(actx, a)
	}
}

// assertTraceCount checks that an opcode appears exactly Count times among
// accepted steps.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	n := 0
	for _, event := range trace {
		if !event.Accepted() {
			continue
		}
		for _, op := range event.Ops {
			if op == a.Opcode {
				n++
			}
		}
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%s accepted %d times", a.Opcode, a.Count),
			Actual:   fmt.Sprintf("accepted %d times", n),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks opcodes were first accepted in the given order.
// Intervening operations are allowed.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	first := make(map[string]int, len(a.Opcodes))
	pos := 0
	for _, event := range trace {
		if !event.Accepted() {
			continue
		}
		for _, op := range event.Ops {
			if _, seen := first[op]; !seen {
				first[op] = pos
			}
			pos++
		}
	}

	last := -1
	for _, op := range a.Opcodes {
		p, ok := first[op]
		if !ok {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("order %v", a.Opcodes),
				Actual:   fmt.Sprintf("%s never accepted", op),
				Trace:    trace,
			}
		}
		if p < last {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("order %v", a.Opcodes),
				Actual:   fmt.Sprintf("%s accepted out of order", op),
				Trace:    trace,
			}
		}
		last = p
	}
	return nil
}

// assertReport runs a read-only call and compares its lines exactly.
func assertReport(actx *AssertionContext, a Assertion) error {
	args, err := parseArgs(a.Args)
	if err != nil {
		return err
	}
	lines, err := actx.Ledger.Report(actx.Ctx, ir.Address(a.Caller), a.Call, args...)
	if err != nil {
		return &AssertionError{
			Type:     AssertReport,
			Expected: fmt.Sprintf("%s to report %q", a.Call, a.Lines),
			Actual:   err.Error(),
		}
	}
	if !slices.Equal(lines, a.Lines) {
		return &AssertionError{
			Type:     AssertReport,
			Expected: fmt.Sprintf("%s to report %q", a.Call, a.Lines),
			Actual:   fmt.Sprintf("%q", lines),
		}
	}
	return nil
}

func assertBalance(actx *AssertionContext, a Assertion) error {
	asset := actx.AssetID
	if a.AssetID != nil {
		asset = *a.AssetID
	}
	got := actx.Ledger.Balance(ir.Address(a.Address), asset)
	if got != *a.Amount {
		return &AssertionError{
			Type:     AssertBalance,
			Expected: fmt.Sprintf("%s holds %d of asset %d", a.Address, *a.Amount, asset),
			Actual:   fmt.Sprintf("holds %d", got),
		}
	}
	return nil
}

// assertJournal counts journaled bundles. Rejected bundles never reach the
// journal.
func assertJournal(actx *AssertionContext, a Assertion) error {
	if actx.Store == nil {
		return fmt.Errorf("journal_length assertion requires a store")
	}
	entries, err := actx.Store.Journal(actx.Ctx, 0, math.MaxInt32)
	if err != nil {
		return err
	}
	if len(entries) != a.Count {
		return &AssertionError{
			Type:     AssertJournal,
			Expected: fmt.Sprintf("%d journaled bundles", a.Count),
			Actual:   fmt.Sprintf("%d", len(entries)),
		}
	}
	return nil
}
