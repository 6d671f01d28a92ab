package payroll

import (
	"github.com/roach88/ledgerflow/internal/engine"
	"github.com/roach88/ledgerflow/internal/ir"
)

// Opcodes.
const (
	OpAdd      = "add_employee"
	OpRemove   = "remove_employee"
	OpPause    = "pause_employee"
	OpFund     = "fund_app"
	OpDisburse = "disburse"

	OpGetEmployee       = "get_employee_info"
	OpGetPayroll        = "get_payroll_info"
	OpGetTotalEmployees = "get_total_employees"
	OpGetRoster         = "get_roster"
)

// FundOffset is the position of the funding transfer relative to the
// fund_app call: the operation immediately before it.
const FundOffset = -1

type Add struct {
	Employee ir.Address
	Amount   uint64
}

type Remove struct{ Employee ir.Address }

type Pause struct {
	Employee ir.Address
	Paused   bool
}

type Fund struct{ Amount uint64 }

// Disburse pays one cycle's salary to each listed employee.
type Disburse struct{ Employees []ir.Address }

type GetEmployee struct{ Employee ir.Address }
type GetPayroll struct{}
type GetTotalEmployees struct{}
type GetRoster struct{}

func (Add) Opcode() string               { return OpAdd }
func (Remove) Opcode() string            { return OpRemove }
func (Pause) Opcode() string             { return OpPause }
func (Fund) Opcode() string              { return OpFund }
func (Disburse) Opcode() string          { return OpDisburse }
func (GetEmployee) Opcode() string       { return OpGetEmployee }
func (GetPayroll) Opcode() string        { return OpGetPayroll }
func (GetTotalEmployees) Opcode() string { return OpGetTotalEmployees }
func (GetRoster) Opcode() string         { return OpGetRoster }

// Decode maps an app call to its command.
func (App) Decode(op ir.Op) (engine.Command, error) {
	a := engine.NewArgs(op)
	var cmd engine.Command
	switch op.Opcode {
	case OpAdd:
		cmd = Add{Employee: a.Address("employee"), Amount: a.Positive("amount")}
	case OpRemove:
		cmd = Remove{Employee: a.Address("employee")}
	case OpPause:
		cmd = Pause{Employee: a.Address("employee"), Paused: a.Flag("paused")}
	case OpFund:
		cmd = Fund{Amount: a.Positive("amount")}
	case OpDisburse:
		n := a.Remaining()
		if n == 0 || n > engine.MaxBatch {
			return nil, engine.Errorf(engine.CodeArgumentError, "%s: %d employees, want 1..%d", op.Opcode, n, engine.MaxBatch)
		}
		d := Disburse{Employees: make([]ir.Address, 0, n)}
		seen := make(map[ir.Address]bool, n)
		for range n {
			addr := a.Address("employee")
			if addr != "" && seen[addr] {
				return nil, engine.Errorf(engine.CodeArgumentError, "%s: %s listed twice", op.Opcode, addr)
			}
			seen[addr] = true
			d.Employees = append(d.Employees, addr)
		}
		cmd = d
	case OpGetEmployee:
		cmd = GetEmployee{Employee: a.Address("employee")}
	case OpGetPayroll:
		cmd = GetPayroll{}
	case OpGetTotalEmployees:
		cmd = GetTotalEmployees{}
	case OpGetRoster:
		cmd = GetRoster{}
	default:
		return nil, engine.UnknownOpcode(op.Opcode)
	}
	return cmd, a.Done()
}
