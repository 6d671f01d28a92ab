package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerflow/internal/engine"
	"github.com/roach88/ledgerflow/internal/ir"
	"github.com/roach88/ledgerflow/internal/ledger"
	"github.com/roach88/ledgerflow/internal/store"
)

// Env is a store, engine and simulated ledger wired together for variant
// tests. Bundles are stamped from Clock and ids come from SequentialIDs.
type Env struct {
	Store  *store.Store
	Engine *engine.Engine
	Ledger *ledger.Sim
	Clock  *BlockClock
}

// NewEnv opens a fresh store under t.TempDir and creates the application
// instance as settings.Admin.
func NewEnv(t *testing.T, app engine.App, settings engine.Settings, opts ...engine.Option) *Env {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "ledgerflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	opts = append([]engine.Option{engine.WithIDGenerator(NewSequentialIDs("b"))}, opts...)
	e, err := engine.New(context.Background(), s, app, settings, opts...)
	require.NoError(t, err)

	env := &Env{
		Store:  s,
		Engine: e,
		Ledger: ledger.New(e),
		Clock:  NewBlockClock(1_700_000_000, 1),
	}
	env.MustSubmit(t, ir.Call(settings.Admin, settings.App, engine.OpCreate))
	return env
}

// Submit stamps ops into a bundle and applies it through the ledger.
func (env *Env) Submit(ops ...ir.Op) (*engine.Receipt, error) {
	b := ir.Bundle{Timestamp: env.Clock.Tick(), Ops: ops}
	return env.Ledger.Submit(context.Background(), b)
}

// MustSubmit is Submit failing the test on rejection.
func (env *Env) MustSubmit(t *testing.T, ops ...ir.Op) *engine.Receipt {
	t.Helper()
	r, err := env.Submit(ops...)
	require.NoError(t, err)
	return r
}

// Call builds an app call to the environment's application.
func (env *Env) Call(sender ir.Address, opcode string, args ...ir.Arg) ir.Op {
	return ir.Call(sender, env.Engine.Settings().App, opcode, args...)
}

// Pay builds a payment to the application.
func (env *Env) Pay(sender ir.Address, amount uint64) ir.Op {
	return ir.Pay(sender, env.Engine.Settings().App, amount)
}

// Report runs a read-only call and returns its lines.
func (env *Env) Report(t *testing.T, caller ir.Address, opcode string, args ...ir.Arg) []string {
	t.Helper()
	lines, err := env.Ledger.Report(context.Background(), caller, opcode, args...)
	require.NoError(t, err)
	return lines
}

// ReportLine runs a read-only call that reports exactly one line.
func (env *Env) ReportLine(t *testing.T, caller ir.Address, opcode string, args ...ir.Arg) string {
	t.Helper()
	lines := env.Report(t, caller, opcode, args...)
	require.Len(t, lines, 1)
	return lines[0]
}

// Instance returns the committed instance record.
func (env *Env) Instance(t *testing.T) engine.Instance {
	t.Helper()
	in, found, err := env.Engine.Instance(context.Background())
	require.NoError(t, err)
	require.True(t, found, "instance not created")
	return in
}
