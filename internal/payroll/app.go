package payroll

import (
	"errors"
	"strings"

	"github.com/roach88/ledgerflow/internal/access"
	"github.com/roach88/ledgerflow/internal/engine"
	"github.com/roach88/ledgerflow/internal/ir"
)

// Name is the variant name recorded in the instance.
const Name = "payroll"

// rosterKind names the listing of enrolled employees, owned by the
// application address.
const rosterKind = "employee"

var rules = engine.Table[Status]{
	OpRemove:   {Role: access.Admin},
	OpPause:    {Role: access.Admin},
	OpDisburse: {Role: access.Admin, From: []Status{Enrolled}},
}

// App is the payroll application.
type App struct{}

// Name implements engine.App.
func (App) Name() string { return Name }

// ValidateSettings implements engine.SettingsValidator. A zero cycle would
// make every employee due on every disbursement.
func (App) ValidateSettings(s engine.Settings) error {
	if s.CycleSecs == 0 {
		return errors.New("cycle secs must be positive")
	}
	return nil
}

// Execute implements engine.App.
func (App) Execute(c *engine.Context, cmd engine.Command) error {
	switch cmd := cmd.(type) {
	case Add:
		if err := c.RequireAdmin(); err != nil {
			return err
		}
		e := Employee{Address: cmd.Employee, Amount: cmd.Amount, Paused: false, EnrolledAt: c.Now()}
		data, err := e.Encode()
		if err != nil {
			return engine.Errorf(engine.CodeArgumentError, "encode employee: %v", err)
		}
		if err := c.Create(Key(e.Address), data); err != nil {
			return err
		}
		if err := c.IndexAdd(c.App(), rosterKind, string(e.Address)); err != nil {
			return err
		}
		if err := c.RecordCreated(e.Amount); err != nil {
			return err
		}
		c.Logf("employee:%s,status:%s", e.Address, e.Status())
		return nil

	case Remove:
		e, err := load(c, cmd.Employee)
		if err != nil {
			return err
		}
		if err := rules.Check(c, access.Parties{}, e.Status()); err != nil {
			return err
		}
		if err := c.Delete(Key(e.Address)); err != nil {
			return err
		}
		if err := c.IndexRemove(c.App(), rosterKind, string(e.Address)); err != nil {
			return err
		}
		c.Logf("employee:%s,status:removed", e.Address)
		return nil

	case Pause:
		e, err := load(c, cmd.Employee)
		if err != nil {
			return err
		}
		if err := rules.Check(c, access.Parties{}, e.Status()); err != nil {
			return err
		}
		e.Paused = cmd.Paused
		return save(c, e)

	case Fund:
		op, err := c.Transfer(FundOffset)
		if err != nil {
			return err
		}
		if op.Amount != cmd.Amount {
			return engine.Errorf(engine.CodePaymentMismatch, "funding transfer is %d, want %d", op.Amount, cmd.Amount)
		}
		c.Logf("funded:%d,by:%s", cmd.Amount, op.Sender)
		return nil

	case Disburse:
		return disburse(c, cmd)

	case GetEmployee:
		data, found, err := c.Read(Key(cmd.Employee))
		if err != nil {
			return err
		}
		if !found {
			c.Log("not_found")
			return nil
		}
		e, err := DecodeEmployee(data)
		if err != nil {
			return engine.DecodeFailed(Key(cmd.Employee), err)
		}
		c.Log(e.String())
		return nil

	case GetPayroll:
		in := c.Instance()
		n, err := c.IndexCount(c.App(), rosterKind)
		if err != nil {
			return err
		}
		c.Logf("asset_id:%d,cycle_secs:%d,admin:%s,total_employees:%d,last_disbursement:%d",
			in.AssetID, in.CycleSecs, in.Admin, n, in.LastDisbursement)
		return nil

	case GetTotalEmployees:
		n, err := c.IndexCount(c.App(), rosterKind)
		if err != nil {
			return err
		}
		c.Logf("total_employees:%d", n)
		return nil

	case GetRoster:
		ids, err := c.IndexList(c.App(), rosterKind)
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

// disburse pays every listed employee one cycle's salary as a single batch.
// Every employee must be enrolled, unpaused and due; otherwise nobody is
// paid.
func disburse(c *engine.Context, cmd Disburse) error {
	now := c.Now()
	cycle := c.Instance().CycleSecs

	employees := make([]Employee, 0, len(cmd.Employees))
	payouts := make([]engine.Payout, 0, len(cmd.Employees))
	var total uint64
	for _, addr := range cmd.Employees {
		e, err := load(c, addr)
		if err != nil {
			return err
		}
		if err := rules.Check(c, access.Parties{}, e.Status()); err != nil {
			return err
		}
		if !e.Due(now, cycle) {
			return engine.Errorf(engine.CodeInvalidState, "employee %s was paid at %d, next due at %d", addr, e.LastPaid, e.LastPaid+int64(cycle))
		}
		if total, err = engine.Add(total, e.Amount, "disbursement total"); err != nil {
			return err
		}
		e.LastPaid = now
		employees = append(employees, e)
		payouts = append(payouts, engine.Payout{To: e.Address, Amount: e.Amount})
	}

	if err := c.IssueBatch(payouts); err != nil {
		return err
	}
	for _, e := range employees {
		data, err := e.Encode()
		if err != nil {
			return engine.Errorf(engine.CodeArgumentError, "encode employee: %v", err)
		}
		if err := c.Update(Key(e.Address), data); err != nil {
			return err
		}
	}
	if err := c.UpdateInstance(func(in *engine.Instance) error {
		in.LastDisbursement = now
		return nil
	}); err != nil {
		return err
	}
	c.Logf("disbursed:%d,total:%d", len(payouts), total)
	return nil
}

func load(c *engine.Context, addr ir.Address) (Employee, error) {
	data, err := c.Get(Key(addr))
	if err != nil {
		return Employee{}, err
	}
	e, err := DecodeEmployee(data)
	if err != nil {
		return Employee{}, engine.DecodeFailed(Key(addr), err)
	}
	return e, nil
}

func save(c *engine.Context, e Employee) error {
	data, err := e.Encode()
	if err != nil {
		return engine.Errorf(engine.CodeArgumentError, "encode employee: %v", err)
	}
	if err := c.Update(Key(e.Address), data); err != nil {
		return err
	}
	c.Logf("employee:%s,status:%s", e.Address, e.Status())
	return nil
}
