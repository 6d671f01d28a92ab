package loan

import (
	"fmt"

	"github.com/roach88/ledgerflow/internal/access"
	"github.com/roach88/ledgerflow/internal/codec"
	"github.com/roach88/ledgerflow/internal/ir"
)

// Status is the lifecycle status of a loan.
type Status byte

const (
	Requested Status = iota + 1
	Approved
	Active
	Repaid
	Defaulted
)

func (s Status) String() string {
	switch s {
	case Requested:
		return "requested"
	case Approved:
		return "approved"
	case Active:
		return "active"
	case Repaid:
		return "repaid"
	case Defaulted:
		return "defaulted"
	}
	return fmt.Sprintf("status(%d)", byte(s))
}

// MaxTermDays is the longest loan term accepted.
const MaxTermDays = 365

// Loan is a microloan record.
//
// Remaining starts at Principal and only decreases; it never goes below
// zero.
type Loan struct {
	ID          uint64
	Borrower    ir.Address
	Principal   uint64
	TermDays    uint64
	Installment uint64
	Remaining   uint64
	RepaidTotal uint64
	Status      Status
	RequestedAt int64
}

const loanTag codec.Tag = 0x02

// Key returns the store key of the loan with the given id.
func Key(id uint64) string {
	return fmt.Sprintf("loan_%d", id)
}

// Parties returns the roles of the loan. The borrower both opens the loan
// and receives the principal.
func (l Loan) Parties() access.Parties {
	return access.Parties{Initiator: l.Borrower, Counterparty: l.Borrower}
}

// Encode packs the loan.
func (l Loan) Encode() ([]byte, error) {
	return codec.NewWriter(loanTag).
		Uint(l.ID).
		Text(string(l.Borrower)).
		Uint(l.Principal).
		Uint(l.TermDays).
		Uint(l.Installment).
		Uint(l.Remaining).
		Uint(l.RepaidTotal).
		Byte(byte(l.Status)).
		Int(l.RequestedAt).
		Finish()
}

// DecodeLoan unpacks a loan encoded by Encode.
func DecodeLoan(data []byte) (Loan, error) {
	r := codec.NewReader(data, loanTag)
	l := Loan{
		ID:          r.Uint(),
		Borrower:    ir.Address(r.Text()),
		Principal:   r.Uint(),
		TermDays:    r.Uint(),
		Installment: r.Uint(),
		Remaining:   r.Uint(),
		RepaidTotal: r.Uint(),
		Status:      Status(r.Byte()),
		RequestedAt: r.Int(),
	}
	if l.Status < Requested || l.Status > Defaulted {
		r.Fail("unknown loan status %d", byte(l.Status))
	}
	return l, r.Close()
}

// String formats the loan as a report line.
func (l Loan) String() string {
	return fmt.Sprintf("loan:%d,borrower:%s,principal:%d,term_days:%d,installment:%d,remaining:%d,repaid_total:%d,status:%s",
		l.ID, l.Borrower, l.Principal, l.TermDays, l.Installment, l.Remaining, l.RepaidTotal, l.Status)
}
