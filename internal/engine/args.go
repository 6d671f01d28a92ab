package engine

import (
	"fmt"
	"strings"

	"github.com/roach88/ledgerflow/internal/ir"
)

// reportSeparators delimit the key:value pairs of report lines.
const reportSeparators = ",:"

// Args decodes the positional arguments of an app call. The first failure
// is sticky; Done reports it as ARGUMENT_ERROR.
//
//	a := engine.NewArgs(op)
//	cmd := Repay{LoanID: a.Uint("loan_id")}
//	return cmd, a.Done()
type Args struct {
	opcode string
	args   []ir.Arg
	pos    int
	err    error
}

// NewArgs starts decoding op's arguments.
func NewArgs(op ir.Op) *Args {
	return &Args{opcode: op.Opcode, args: op.Args}
}

func (a *Args) next(name string) (ir.Arg, bool) {
	if a.err != nil {
		return nil, false
	}
	if a.pos >= len(a.args) {
		a.fail("missing argument %d (%s)", a.pos, name)
		return nil, false
	}
	arg := a.args[a.pos]
	a.pos++
	return arg, true
}

func (a *Args) fail(format string, args ...any) {
	if a.err == nil {
		a.err = Errorf(CodeArgumentError, "%s: %s", a.opcode, fmt.Sprintf(format, args...))
	}
}

// Uint reads an 8-byte big-endian integer.
func (a *Args) Uint(name string) uint64 {
	arg, ok := a.next(name)
	if !ok {
		return 0
	}
	v, err := arg.Uint()
	if err != nil {
		a.fail("argument %s: %v", name, err)
	}
	return v
}

// Positive reads an integer that must be greater than zero.
func (a *Args) Positive(name string) uint64 {
	v := a.Uint(name)
	if a.err == nil && v == 0 {
		a.fail("argument %s must be positive", name)
	}
	return v
}

// Flag reads an integer that must be 0 or 1.
func (a *Args) Flag(name string) bool {
	v := a.Uint(name)
	if a.err == nil && v > 1 {
		a.fail("argument %s must be 0 or 1, got %d", name, v)
	}
	return v == 1
}

// Text reads a free-text argument. Text ends up in key:value report lines,
// so it may not contain their separators.
func (a *Args) Text(name string) string {
	arg, ok := a.next(name)
	if !ok {
		return ""
	}
	s := arg.Text()
	if strings.ContainsAny(s, reportSeparators) {
		a.fail("argument %s must not contain %q", name, reportSeparators)
	}
	return s
}

// Address reads a raw address and validates it.
func (a *Args) Address(name string) ir.Address {
	arg, ok := a.next(name)
	if !ok {
		return ""
	}
	addr := arg.Address()
	if err := addr.Validate(); err != nil {
		a.fail("argument %s: %v", name, err)
	}
	return addr
}

// ID reads a record identifier. Identifiers obey the same rules as
// addresses so they can be embedded in storage keys.
func (a *Args) ID(name string) string {
	arg, ok := a.next(name)
	if !ok {
		return ""
	}
	if err := ir.Address(arg).Validate(); err != nil {
		a.fail("argument %s: %v", name, err)
	}
	return arg.Text()
}

// Remaining returns the number of arguments not yet read.
func (a *Args) Remaining() int {
	return len(a.args) - a.pos
}

// Done reports the first failure, or unexpected trailing arguments.
func (a *Args) Done() error {
	if a.err != nil {
		return a.err
	}
	if a.pos != len(a.args) {
		return Errorf(CodeArgumentError, "%s: %d unexpected arguments", a.opcode, len(a.args)-a.pos)
	}
	return nil
}
