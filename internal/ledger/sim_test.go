package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerflow/internal/engine"
	"github.com/roach88/ledgerflow/internal/escrow"
	"github.com/roach88/ledgerflow/internal/ir"
	"github.com/roach88/ledgerflow/internal/ledger"
	"github.com/roach88/ledgerflow/internal/testutil"
)

const (
	admin ir.Address = "ADMIN"
	app   ir.Address = "APP"
	alice ir.Address = "ALICE"
	bob   ir.Address = "BOB"
)

func newEnv(t *testing.T) *testutil.Env {
	t.Helper()
	env := testutil.NewEnv(t, escrow.App{}, engine.Settings{Admin: admin, App: app})
	require.NoError(t, env.Ledger.Fund(bob, 0, 1_000))
	env.MustSubmit(t, env.Call(alice, escrow.OpCreateRequest,
		ir.Text("f1"), ir.Addr(bob), ir.Text("sha256-abc"), ir.Uint(2048), ir.Uint(250),
		ir.Text("pdf"), ir.Uint(1), ir.Text("bafyfile")))
	return env
}

func TestSim_FundAndAccounts(t *testing.T) {
	env := newEnv(t)
	sim := env.Ledger

	require.NoError(t, sim.Fund(alice, 7, 5))
	require.NoError(t, sim.Fund(alice, 0, 3))
	require.NoError(t, sim.Fund("ZED", 0, 0))

	assert.Equal(t, uint64(5), sim.Balance(alice, 7))
	assert.Equal(t, uint64(0), sim.Balance(alice, 9))
	assert.Equal(t, []ledger.Account{
		{Address: alice, AssetID: 0, Amount: 3},
		{Address: alice, AssetID: 7, Amount: 5},
		{Address: bob, AssetID: 0, Amount: 1_000},
	}, sim.Accounts(), "sorted by address then asset, zero balances omitted")
}

func TestSim_FundOverflow(t *testing.T) {
	env := newEnv(t)
	require.NoError(t, env.Ledger.Fund(alice, 0, ^uint64(0)))
	err := env.Ledger.Fund(alice, 0, 1)
	require.Error(t, err)
	assert.Equal(t, uint64(^uint64(0)), env.Ledger.Balance(alice, 0))
}

func TestSim_PaymentAndSettlement(t *testing.T) {
	env := newEnv(t)
	sim := env.Ledger

	env.MustSubmit(t, env.Call(bob, escrow.OpApproveAndPay, ir.Text("f1")), env.Pay(bob, 250))
	assert.Equal(t, uint64(750), sim.Balance(bob, 0))
	assert.Equal(t, uint64(250), sim.Balance(app, 0))

	r := env.MustSubmit(t, env.Call(bob, escrow.OpConfirmReceipt, ir.Text("f1"), ir.Text("QmReceipt")))
	assert.Equal(t, []ir.Settlement{{Receiver: alice, Amount: 250, Opcode: escrow.OpConfirmReceipt}}, r.Settlements)
	assert.Equal(t, uint64(250), sim.Balance(alice, 0))
	assert.Equal(t, uint64(0), sim.Balance(app, 0))
}

func TestSim_InsufficientFundsRejectsBeforeEngine(t *testing.T) {
	env := newEnv(t)
	seq, err := env.Store.LastSeq(t.Context())
	require.NoError(t, err)

	_, err = env.Submit(env.Call(bob, escrow.OpApproveAndPay, ir.Text("f1")), env.Pay(bob, 2_000))
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	after, err := env.Store.LastSeq(t.Context())
	require.NoError(t, err)
	assert.Equal(t, seq, after, "nothing journaled")
	assert.Equal(t, uint64(1_000), env.Ledger.Balance(bob, 0))
}

func TestSim_EngineRejectionRollsBackTransfers(t *testing.T) {
	env := newEnv(t)

	_, err := env.Submit(env.Call(bob, escrow.OpApproveAndPay, ir.Text("f1")), env.Pay(bob, 249))
	require.Error(t, err)
	assert.Equal(t, engine.CodePaymentMismatch, engine.CodeOf(err))

	assert.Equal(t, uint64(1_000), env.Ledger.Balance(bob, 0))
	assert.Equal(t, uint64(0), env.Ledger.Balance(app, 0))
}

func TestSim_AppCannotSignTransfers(t *testing.T) {
	env := newEnv(t)
	require.NoError(t, env.Ledger.Fund(app, 0, 100))

	_, err := env.Submit(ir.Pay(app, alice, 100))
	require.ErrorIs(t, err, ledger.ErrAppSender)
	assert.Equal(t, uint64(100), env.Ledger.Balance(app, 0))
}

func TestSim_SettlementBeyondAppBalance(t *testing.T) {
	env := newEnv(t)
	require.NoError(t, env.Ledger.Fund(app, 0, 40))

	_, err := env.Submit(env.Call(admin, engine.OpEmergencyWithdraw, ir.Uint(50)))
	require.Error(t, err)
	assert.Equal(t, engine.CodeSettlementRejected, engine.CodeOf(err))
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.Equal(t, uint64(40), env.Ledger.Balance(app, 0))

	env.MustSubmit(t, env.Call(admin, engine.OpEmergencyWithdraw, ir.Uint(40)))
	assert.Equal(t, uint64(0), env.Ledger.Balance(app, 0))
	assert.Equal(t, uint64(40), env.Ledger.Balance(admin, 0))
}

func TestSim_Report(t *testing.T) {
	env := newEnv(t)

	lines, err := env.Ledger.Report(t.Context(), alice, escrow.OpGetStats)
	require.NoError(t, err)
	assert.Equal(t, []string{"total_files:1,total_value:250"}, lines)
	assert.Same(t, env.Engine, env.Ledger.Engine())
}
