package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerflow/internal/access"
	"github.com/roach88/ledgerflow/internal/codec"
	"github.com/roach88/ledgerflow/internal/ir"
	"github.com/roach88/ledgerflow/internal/store"
)

const (
	testApp   ir.Address = "APP"
	testAdmin ir.Address = "ADMIN"
)

// noteApp is a minimal variant exercising every engine facility:
// open -> paid -> released, with a sibling payment and a settlement.
type noteApp struct{}

type noteStatus byte

const (
	noteOpen noteStatus = iota + 1
	notePaid
	noteReleased
)

func (s noteStatus) String() string {
	switch s {
	case noteOpen:
		return "open"
	case notePaid:
		return "paid"
	case noteReleased:
		return "released"
	}
	return fmt.Sprintf("status(%d)", byte(s))
}

type note struct {
	Owner  ir.Address
	Payer  ir.Address
	Value  uint64
	Status noteStatus
}

const noteTag codec.Tag = 0x7e

func encodeNote(n note) ([]byte, error) {
	return codec.NewWriter(noteTag).Text(string(n.Owner)).Text(string(n.Payer)).Uint(n.Value).Byte(byte(n.Status)).Finish()
}

func decodeNote(data []byte) (note, error) {
	r := codec.NewReader(data, noteTag)
	n := note{Owner: ir.Address(r.Text()), Payer: ir.Address(r.Text()), Value: r.Uint(), Status: noteStatus(r.Byte())}
	return n, r.Close()
}

type openNote struct {
	ID    string
	Payer ir.Address
	Value uint64
}

type payNote struct {
	ID     string
	Offset int
}

type releaseNote struct{ ID string }
type doubleIssue struct{ ID string }
type readNote struct{ ID string }

func (openNote) Opcode() string    { return "open" }
func (payNote) Opcode() string     { return "pay" }
func (releaseNote) Opcode() string { return "release" }
func (doubleIssue) Opcode() string { return "double" }
func (readNote) Opcode() string    { return "read" }

// stray is a command noteApp never decodes; Execute must reject it.
type stray struct{}

func (stray) Opcode() string { return "stray" }

var noteRules = Table[noteStatus]{
	"pay":     {Role: access.Counterparty, From: []noteStatus{noteOpen}},
	"release": {Role: access.Counterparty, From: []noteStatus{notePaid}},
	"double":  {Role: access.Counterparty, From: []noteStatus{notePaid}},
}

func (noteApp) Name() string { return "note" }

func (noteApp) Decode(op ir.Op) (Command, error) {
	a := NewArgs(op)
	var cmd Command
	switch op.Opcode {
	case "open":
		cmd = openNote{ID: a.ID("id"), Payer: a.Address("payer"), Value: a.Uint("value")}
	case "pay":
		cmd = payNote{ID: a.ID("id"), Offset: int(int64(a.Uint("offset")))}
	case "release":
		cmd = releaseNote{ID: a.ID("id")}
	case "double":
		cmd = doubleIssue{ID: a.ID("id")}
	case "read":
		cmd = readNote{ID: a.ID("id")}
	default:
		return nil, UnknownOpcode(op.Opcode)
	}
	return cmd, a.Done()
}

func (noteApp) Execute(c *Context, cmd Command) error {
	switch cmd := cmd.(type) {
	case openNote:
		data, err := encodeNote(note{Owner: c.Caller(), Payer: cmd.Payer, Value: cmd.Value, Status: noteOpen})
		if err != nil {
			return err
		}
		if err := c.Create("note_"+cmd.ID, data); err != nil {
			return err
		}
		if err := c.IndexAdd(c.Caller(), "note", cmd.ID); err != nil {
			return err
		}
		return c.RecordCreated(cmd.Value)

	case payNote:
		n, err := loadNote(c, cmd.ID)
		if err != nil {
			return err
		}
		if err := noteRules.Check(c, n.parties(), n.Status); err != nil {
			return err
		}
		if err := c.VerifyPayment(cmd.Offset, c.Caller(), n.Value); err != nil {
			return err
		}
		n.Status = notePaid
		return saveNote(c, cmd.ID, n)

	case releaseNote:
		n, err := loadNote(c, cmd.ID)
		if err != nil {
			return err
		}
		if err := noteRules.Check(c, n.parties(), n.Status); err != nil {
			return err
		}
		if err := c.Issue(n.Owner, n.Value); err != nil {
			return err
		}
		n.Status = noteReleased
		return saveNote(c, cmd.ID, n)

	case doubleIssue:
		n, err := loadNote(c, cmd.ID)
		if err != nil {
			return err
		}
		if err := c.Issue(n.Owner, n.Value); err != nil {
			return err
		}
		return c.Issue(n.Owner, n.Value)

	case readNote:
		data, found, err := c.Read("note_" + cmd.ID)
		if err != nil {
			return err
		}
		if !found {
			c.Log("not_found")
			return nil
		}
		n, err := decodeNote(data)
		if err != nil {
			return DecodeFailed("note_"+cmd.ID, err)
		}
		c.Logf("owner:%s,value:%d,status:%s", n.Owner, n.Value, n.Status)
		return nil

	default:
		return UnknownCommand(cmd)
	}
}

func (n note) parties() access.Parties {
	return access.Parties{Initiator: n.Owner, Counterparty: n.Payer}
}

func loadNote(c *Context, id string) (note, error) {
	data, err := c.Get("note_" + id)
	if err != nil {
		return note{}, err
	}
	n, err := decodeNote(data)
	if err != nil {
		return note{}, DecodeFailed("note_"+id, err)
	}
	return n, nil
}

func saveNote(c *Context, id string, n note) error {
	data, err := encodeNote(n)
	if err != nil {
		return err
	}
	return c.Update("note_"+id, data)
}

// recordingHost collects staged settlements and can be told to refuse them.
type recordingHost struct {
	staged []ir.Settlement
	refuse bool
}

func (h *recordingHost) Stage(s ir.Settlement) error {
	if h.refuse {
		return fmt.Errorf("insufficient balance for %s", s)
	}
	h.staged = append(h.staged, s)
	return nil
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// newTestEngine opens an engine over a fresh store with the instance
// already created by testAdmin.
func newTestEngine(t *testing.T, opts ...Option) (*Engine, *store.Store) {
	t.Helper()
	s := openTestStore(t)
	e, err := New(context.Background(), s, noteApp{}, Settings{App: testApp, Admin: testAdmin}, opts...)
	require.NoError(t, err)
	mustSubmit(t, e, call(testAdmin, OpCreate))
	return e, s
}

func call(sender ir.Address, opcode string, args ...ir.Arg) ir.Op {
	return ir.Call(sender, testApp, opcode, args...)
}

func bundleOf(ops ...ir.Op) ir.Bundle {
	return ir.Bundle{Timestamp: 1000, Ops: ops}
}

func offset(n int) ir.Arg {
	return ir.Uint(uint64(int64(n)))
}

func mustSubmit(t *testing.T, e *Engine, ops ...ir.Op) *Receipt {
	t.Helper()
	r, err := e.Submit(context.Background(), bundleOf(ops...), &recordingHost{})
	require.NoError(t, err)
	return r
}

func submit(e *Engine, host Host, ops ...ir.Op) (*Receipt, error) {
	if host == nil {
		host = &recordingHost{}
	}
	return e.Submit(context.Background(), bundleOf(ops...), host)
}

func readNoteLine(t *testing.T, e *Engine, id string) string {
	t.Helper()
	logs, err := e.Report(context.Background(), "ANYONE", "read", ir.Text(id))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	return logs[0]
}
