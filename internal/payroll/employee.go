package payroll

import (
	"fmt"

	"github.com/roach88/ledgerflow/internal/codec"
	"github.com/roach88/ledgerflow/internal/ir"
)

// Status is the disbursement status of an employee.
type Status byte

const (
	Enrolled Status = iota + 1
	Paused
)

func (s Status) String() string {
	switch s {
	case Enrolled:
		return "enrolled"
	case Paused:
		return "paused"
	}
	return fmt.Sprintf("status(%d)", byte(s))
}

// Employee is a roster entry.
type Employee struct {
	Address    ir.Address
	Amount     uint64
	Paused     bool
	LastPaid   int64
	EnrolledAt int64
}

// Key returns the store key of the employee with the given address.
func Key(addr ir.Address) string {
	return "emp_" + string(addr)
}

// Status reports whether the employee can be paid.
func (e Employee) Status() Status {
	if e.Paused {
		return Paused
	}
	return Enrolled
}

// Due reports whether a cycle has elapsed since the last payment at now.
// LastPaid 0 means never paid: bundle timestamps are always positive.
func (e Employee) Due(now int64, cycleSecs uint64) bool {
	if e.LastPaid == 0 {
		return true
	}
	return now >= e.LastPaid && uint64(now-e.LastPaid) >= cycleSecs
}

// Encode stores the employee as sub-fields.
func (e Employee) Encode() ([]byte, error) {
	f := codec.Fields{}
	f.SetText("address", string(e.Address))
	f.SetUint("amount", e.Amount)
	f.SetBool("paused", e.Paused)
	f.SetUint("last_paid", uint64(e.LastPaid))
	f.SetUint("enrolled_at", uint64(e.EnrolledAt))
	return f.Encode()
}

// DecodeEmployee reads an employee encoded by Encode.
func DecodeEmployee(data []byte) (Employee, error) {
	f, err := codec.DecodeFields(data)
	if err != nil {
		return Employee{}, err
	}
	var e Employee
	addr, err := f.Text("address")
	if err != nil {
		return Employee{}, err
	}
	e.Address = ir.Address(addr)
	if e.Amount, err = f.Uint("amount"); err != nil {
		return Employee{}, err
	}
	if e.Paused, err = f.Bool("paused"); err != nil {
		return Employee{}, err
	}
	last, err := f.Uint("last_paid")
	if err != nil {
		return Employee{}, err
	}
	enrolled, err := f.Uint("enrolled_at")
	if err != nil {
		return Employee{}, err
	}
	e.LastPaid, e.EnrolledAt = int64(last), int64(enrolled)
	return e, nil
}

// String formats the employee as a report line.
func (e Employee) String() string {
	paused := 0
	if e.Paused {
		paused = 1
	}
	return fmt.Sprintf("employee:%s,amount:%d,paused:%d,last_paid:%d", e.Address, e.Amount, paused, e.LastPaid)
}
