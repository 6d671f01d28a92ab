package loan

import (
	"github.com/roach88/ledgerflow/internal/engine"
	"github.com/roach88/ledgerflow/internal/ir"
)

// Opcodes.
const (
	OpRequest     = "request_loan"
	OpApprove     = "approve_loan"
	OpDrawdown    = "drawdown"
	OpRepay       = "repay"
	OpMarkDefault = "mark_default"
	OpFund        = "fund_app"

	OpGetLoan          = "get_loan_info"
	OpGetTotalLoans    = "get_total_loans"
	OpGetAdmin         = "get_admin"
	OpGetBorrowerLoans = "get_borrower_loans"
)

// PaymentOffset is the position of the repayment or funding transfer
// relative to its app call: the operation immediately before it.
const PaymentOffset = -1

type Request struct {
	Principal uint64
	TermDays  uint64
}

type Approve struct {
	ID          uint64
	Installment uint64
}

type Drawdown struct{ ID uint64 }
type Repay struct{ ID uint64 }
type MarkDefault struct{ ID uint64 }
type Fund struct{ Amount uint64 }

type GetLoan struct{ ID uint64 }
type GetTotalLoans struct{}
type GetAdmin struct{}
type GetBorrowerLoans struct{ Borrower ir.Address }

func (Request) Opcode() string          { return OpRequest }
func (Approve) Opcode() string          { return OpApprove }
func (Drawdown) Opcode() string         { return OpDrawdown }
func (Repay) Opcode() string            { return OpRepay }
func (MarkDefault) Opcode() string      { return OpMarkDefault }
func (Fund) Opcode() string             { return OpFund }
func (GetLoan) Opcode() string          { return OpGetLoan }
func (GetTotalLoans) Opcode() string    { return OpGetTotalLoans }
func (GetAdmin) Opcode() string         { return OpGetAdmin }
func (GetBorrowerLoans) Opcode() string { return OpGetBorrowerLoans }

// Decode maps an app call to its command.
func (App) Decode(op ir.Op) (engine.Command, error) {
	a := engine.NewArgs(op)
	var cmd engine.Command
	switch op.Opcode {
	case OpRequest:
		req := Request{Principal: a.Positive("principal"), TermDays: a.Positive("term_days")}
		if err := a.Done(); err != nil {
			return nil, err
		}
		if req.TermDays > MaxTermDays {
			return nil, engine.Errorf(engine.CodeArgumentError, "%s: term of %d days exceeds %d", op.Opcode, req.TermDays, MaxTermDays)
		}
		return req, nil
	case OpApprove:
		cmd = Approve{ID: a.Uint("loan_id"), Installment: a.Positive("installment")}
	case OpDrawdown:
		cmd = Drawdown{ID: a.Uint("loan_id")}
	case OpRepay:
		cmd = Repay{ID: a.Uint("loan_id")}
	case OpMarkDefault:
		cmd = MarkDefault{ID: a.Uint("loan_id")}
	case OpFund:
		cmd = Fund{Amount: a.Positive("amount")}
	case OpGetLoan:
		cmd = GetLoan{ID: a.Uint("loan_id")}
	case OpGetTotalLoans:
		cmd = GetTotalLoans{}
	case OpGetAdmin:
		cmd = GetAdmin{}
	case OpGetBorrowerLoans:
		cmd = GetBorrowerLoans{Borrower: a.Address("borrower")}
	default:
		return nil, engine.UnknownOpcode(op.Opcode)
	}
	return cmd, a.Done()
}
