package loan

import (
	"strconv"
	"strings"

	"github.com/roach88/ledgerflow/internal/access"
	"github.com/roach88/ledgerflow/internal/engine"
)

// Name is the variant name recorded in the instance.
const Name = "loan"

const indexKind = "loan"

var rules = engine.Table[Status]{
	OpApprove:     {Role: access.Admin, From: []Status{Requested}},
	OpDrawdown:    {Role: access.Initiator, From: []Status{Approved}},
	OpRepay:       {Role: access.Initiator, From: []Status{Active}},
	OpMarkDefault: {Role: access.Admin, From: []Status{Active}},
}

// App is the microloan application.
type App struct{}

// Name implements engine.App.
func (App) Name() string { return Name }

// Execute implements engine.App.
func (App) Execute(c *engine.Context, cmd engine.Command) error {
	switch cmd := cmd.(type) {
	case Request:
		return request(c, cmd)

	case Approve:
		l, err := load(c, cmd.ID)
		if err != nil {
			return err
		}
		if err := rules.Check(c, l.Parties(), l.Status); err != nil {
			return err
		}
		l.Installment = cmd.Installment
		l.Status = Approved
		return save(c, l)

	case Drawdown:
		l, err := load(c, cmd.ID)
		if err != nil {
			return err
		}
		if err := rules.Check(c, l.Parties(), l.Status); err != nil {
			return err
		}
		if err := c.Issue(l.Borrower, l.Principal); err != nil {
			return err
		}
		l.Status = Active
		return save(c, l)

	case Repay:
		return repay(c, cmd)

	case MarkDefault:
		l, err := load(c, cmd.ID)
		if err != nil {
			return err
		}
		if err := rules.Check(c, l.Parties(), l.Status); err != nil {
			return err
		}
		// No settlement: the principal already went out at drawdown.
		l.Status = Defaulted
		return save(c, l)

	case Fund:
		if err := c.RequireAdmin(); err != nil {
			return err
		}
		if err := c.VerifyPayment(PaymentOffset, c.Caller(), cmd.Amount); err != nil {
			return err
		}
		c.Logf("funded:%d,by:%s", cmd.Amount, c.Caller())
		return nil

	case GetLoan:
		data, found, err := c.Read(Key(cmd.ID))
		if err != nil {
			return err
		}
		if !found {
			c.Log("not_found")
			return nil
		}
		l, err := DecodeLoan(data)
		if err != nil {
			return engine.DecodeFailed(Key(cmd.ID), err)
		}
		c.Log(l.String())
		return nil

	case GetTotalLoans:
		s := c.Stats()
		c.Logf("total_loans:%d,total_value:%d", s.TotalRecords, s.TotalValue)
		return nil

	case GetAdmin:
		c.Logf("admin:%s", c.Admin())
		return nil

	case GetBorrowerLoans:
		ids, err := c.IndexList(cmd.Borrower, indexKind)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			c.Log("[]")
			return nil
		}
		c.Log(strings.Join(ids, ","))
		return nil

	default:
		return engine.UnknownCommand(cmd)
	}
}

func request(c *engine.Context, cmd Request) error {
	id, err := c.NextID()
	if err != nil {
		return err
	}
	l := Loan{
		ID:          id,
		Borrower:    c.Caller(),
		Principal:   cmd.Principal,
		TermDays:    cmd.TermDays,
		Remaining:   cmd.Principal,
		Status:      Requested,
		RequestedAt: c.Now(),
	}
	data, err := l.Encode()
	if err != nil {
		return engine.Errorf(engine.CodeArgumentError, "encode loan: %v", err)
	}
	if err := c.Create(Key(id), data); err != nil {
		return err
	}
	if err := c.IndexAdd(l.Borrower, indexKind, strconv.FormatUint(id, 10)); err != nil {
		return err
	}
	if err := c.RecordCreated(l.Principal); err != nil {
		return err
	}
	c.Logf("loan:%d,status:%s", l.ID, l.Status)
	return nil
}

// repay consumes one installment. An installment at or above the remaining
// balance settles the loan: remaining clamps to zero and the loan is repaid.
func repay(c *engine.Context, cmd Repay) error {
	l, err := load(c, cmd.ID)
	if err != nil {
		return err
	}
	if err := rules.Check(c, l.Parties(), l.Status); err != nil {
		return err
	}
	if err := c.VerifyPayment(PaymentOffset, c.Caller(), l.Installment); err != nil {
		return err
	}

	// repaid_total stays principal - remaining; an oversized final
	// installment only reports its excess.
	applied := min(l.Installment, l.Remaining)
	total, err := engine.Add(l.RepaidTotal, applied, "repaid_total")
	if err != nil {
		return err
	}
	l.RepaidTotal = total
	l.Remaining -= applied
	if l.Remaining == 0 {
		l.Status = Repaid
	}

	data, err := l.Encode()
	if err != nil {
		return engine.Errorf(engine.CodeArgumentError, "encode loan: %v", err)
	}
	if err := c.Update(Key(l.ID), data); err != nil {
		return err
	}
	if excess := l.Installment - applied; excess > 0 {
		c.Logf("loan:%d,repaid:%d,excess:%d,remaining:%d,status:%s", l.ID, l.Installment, excess, l.Remaining, l.Status)
		return nil
	}
	c.Logf("loan:%d,repaid:%d,remaining:%d,status:%s", l.ID, l.Installment, l.Remaining, l.Status)
	return nil
}

func load(c *engine.Context, id uint64) (Loan, error) {
	data, err := c.Get(Key(id))
	if err != nil {
		return Loan{}, err
	}
	l, err := DecodeLoan(data)
	if err != nil {
		return Loan{}, engine.DecodeFailed(Key(id), err)
	}
	return l, nil
}

func save(c *engine.Context, l Loan) error {
	data, err := l.Encode()
	if err != nil {
		return engine.Errorf(engine.CodeArgumentError, "encode loan: %v", err)
	}
	if err := c.Update(Key(l.ID), data); err != nil {
		return err
	}
	c.Logf("loan:%d,status:%s", l.ID, l.Status)
	return nil
}
