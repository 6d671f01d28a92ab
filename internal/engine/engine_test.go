package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerflow/internal/ir"
)

func TestEngine_HappyPath(t *testing.T) {
	e, s := newTestEngine(t)

	mustSubmit(t, e, call("ALICE", "open", ir.Text("n1"), ir.Addr("BOB"), ir.Uint(100)))
	assert.Equal(t, "owner:ALICE,value:100,status:open", readNoteLine(t, e, "n1"))

	mustSubmit(t, e,
		call("BOB", "pay", ir.Text("n1"), offset(1)),
		ir.Pay("BOB", testApp, 100),
	)
	assert.Equal(t, "owner:ALICE,value:100,status:paid", readNoteLine(t, e, "n1"))

	host := &recordingHost{}
	r, err := submit(e, host, call("BOB", "release", ir.Text("n1")))
	require.NoError(t, err)

	want := ir.Settlement{Receiver: "ALICE", Amount: 100, Opcode: "release"}
	assert.Equal(t, []ir.Settlement{want}, r.Settlements)
	assert.Equal(t, []ir.Settlement{want}, host.staged)
	assert.Equal(t, "owner:ALICE,value:100,status:released", readNoteLine(t, e, "n1"))

	entries, err := s.Journal(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 4, "create, open, pay, release")
	assert.Equal(t, r.Seq, entries[3].Seq)
	assert.Equal(t, []ir.Settlement{want}, entries[3].Settlements)
}

func TestEngine_CallsBeforeCreate(t *testing.T) {
	s := openTestStore(t)
	e, err := New(context.Background(), s, noteApp{}, Settings{App: testApp})
	require.NoError(t, err)

	_, err = submit(e, nil, call("ALICE", "open", ir.Text("n1"), ir.Addr("BOB"), ir.Uint(1)))
	assert.True(t, IsCode(err, CodeInvalidState))

	r := mustSubmit(t, e, call("CREATOR", OpInitialize))
	assert.Equal(t, []string{"created:note,admin:CREATOR"}, r.Logs, "creator becomes admin when none configured")

	_, err = submit(e, nil, call("CREATOR", OpCreate))
	assert.True(t, IsCode(err, CodeAlreadyExists))
}

func TestEngine_CreateWithExplicitAdmin(t *testing.T) {
	s := openTestStore(t)
	e, err := New(context.Background(), s, noteApp{}, Settings{App: testApp, Admin: testAdmin})
	require.NoError(t, err)

	mustSubmit(t, e, call("CREATOR", OpCreate, ir.Addr("OTHER")))

	in, found, err := e.Instance(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ir.Address("OTHER"), in.Admin)
	assert.Equal(t, "note", in.Variant)
	assert.Equal(t, uint64(1), in.Version)
}

func TestEngine_RejectedBundleLeavesNoTrace(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	before, err := s.LastSeq(ctx)
	require.NoError(t, err)

	// First call succeeds, second fails: the whole bundle is discarded.
	_, err = submit(e, nil,
		call("ALICE", "open", ir.Text("n1"), ir.Addr("BOB"), ir.Uint(5)),
		call("ALICE", "open", ir.Text("n1"), ir.Addr("BOB"), ir.Uint(5)),
	)
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeAlreadyExists))

	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 1, ee.Index)
	assert.Equal(t, "open", ee.Opcode)

	assert.Equal(t, "not_found", readNoteLine(t, e, "n1"))
	after, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	in, _, err := e.Instance(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, in.Stats(), "stats untouched by a rejected bundle")
}

func TestEngine_PaymentExactness(t *testing.T) {
	e, _ := newTestEngine(t)
	mustSubmit(t, e, call("ALICE", "open", ir.Text("n1"), ir.Addr("BOB"), ir.Uint(100)))

	tests := []struct {
		name string
		ops  []ir.Op
	}{
		{"underpay", []ir.Op{call("BOB", "pay", ir.Text("n1"), offset(1)), ir.Pay("BOB", testApp, 99)}},
		{"overpay", []ir.Op{call("BOB", "pay", ir.Text("n1"), offset(1)), ir.Pay("BOB", testApp, 101)}},
		{"wrong sender", []ir.Op{call("BOB", "pay", ir.Text("n1"), offset(1)), ir.Pay("EVE", testApp, 100)}},
		{"wrong receiver", []ir.Op{call("BOB", "pay", ir.Text("n1"), offset(1)), ir.Pay("BOB", "ELSEWHERE", 100)}},
		{"wrong kind", []ir.Op{call("BOB", "pay", ir.Text("n1"), offset(1)), ir.AssetTransfer("BOB", testApp, 9, 100)}},
		{"missing", []ir.Op{call("BOB", "pay", ir.Text("n1"), offset(1))}},
		{"offset before start", []ir.Op{call("BOB", "pay", ir.Text("n1"), offset(-1)), ir.Pay("BOB", testApp, 100)}},
		{"self offset", []ir.Op{call("BOB", "pay", ir.Text("n1"), offset(0)), ir.Pay("BOB", testApp, 100)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := submit(e, nil, tt.ops...)
			assert.True(t, IsCode(err, CodePaymentMismatch), "got %v", err)
			assert.Equal(t, "owner:ALICE,value:100,status:open", readNoteLine(t, e, "n1"))
		})
	}
}

func TestEngine_PaymentConsumedOnce(t *testing.T) {
	e, _ := newTestEngine(t)
	mustSubmit(t, e,
		call("ALICE", "open", ir.Text("n1"), ir.Addr("BOB"), ir.Uint(10)),
		call("ALICE", "open", ir.Text("n2"), ir.Addr("BOB"), ir.Uint(10)),
	)

	_, err := submit(e, nil,
		ir.Pay("BOB", testApp, 10),
		call("BOB", "pay", ir.Text("n1"), offset(-1)),
		call("BOB", "pay", ir.Text("n2"), offset(-2)),
	)
	assert.True(t, IsCode(err, CodePaymentMismatch), "got %v", err)
	assert.Contains(t, err.Error(), "already consumed")

	// One payment per call is accepted.
	mustSubmit(t, e,
		ir.Pay("BOB", testApp, 10),
		call("BOB", "pay", ir.Text("n1"), offset(-1)),
		call("BOB", "pay", ir.Text("n2"), offset(1)),
		ir.Pay("BOB", testApp, 10),
	)
}

func TestEngine_RoleCheckedBeforeStatus(t *testing.T) {
	e, _ := newTestEngine(t)
	mustSubmit(t, e, call("ALICE", "open", ir.Text("n1"), ir.Addr("BOB"), ir.Uint(10)))

	_, err := submit(e, nil, call("EVE", "release", ir.Text("n1")))
	assert.True(t, IsCode(err, CodePermissionDenied), "stranger in wrong status: %v", err)

	_, err = submit(e, nil, call("BOB", "release", ir.Text("n1")))
	assert.True(t, IsCode(err, CodeInvalidState), "right caller in wrong status: %v", err)
}

func TestEngine_SingleSettlementPerCall(t *testing.T) {
	e, _ := newTestEngine(t)
	mustSubmit(t, e,
		call("ALICE", "open", ir.Text("n1"), ir.Addr("BOB"), ir.Uint(10)),
	)
	mustSubmit(t, e, call("BOB", "pay", ir.Text("n1"), offset(1)), ir.Pay("BOB", testApp, 10))

	host := &recordingHost{}
	_, err := submit(e, host, call("BOB", "double", ir.Text("n1")))
	assert.True(t, IsCode(err, CodeSettlementRejected), "got %v", err)

	r := mustSubmit(t, e, call("BOB", "release", ir.Text("n1")))
	require.Len(t, r.Settlements, 1)

	_, err = submit(e, nil, call("BOB", "release", ir.Text("n1")))
	assert.True(t, IsCode(err, CodeInvalidState), "no double payment")
}

func TestEngine_HostRefusesSettlement(t *testing.T) {
	e, _ := newTestEngine(t)
	mustSubmit(t, e, call("ALICE", "open", ir.Text("n1"), ir.Addr("BOB"), ir.Uint(10)))
	mustSubmit(t, e, call("BOB", "pay", ir.Text("n1"), offset(1)), ir.Pay("BOB", testApp, 10))

	_, err := submit(e, &recordingHost{refuse: true}, call("BOB", "release", ir.Text("n1")))
	assert.True(t, IsCode(err, CodeSettlementRejected))
	assert.Equal(t, "owner:ALICE,value:10,status:paid", readNoteLine(t, e, "n1"))
}

func TestEngine_Stats(t *testing.T) {
	e, _ := newTestEngine(t)
	fees := []uint64{5, 7, 11}
	for i, fee := range fees {
		id := ir.Text(string(rune('a' + i)))
		mustSubmit(t, e, call("ALICE", "open", id, ir.Addr("BOB"), ir.Uint(fee)))
	}

	in, _, err := e.Instance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalRecords: 3, TotalValue: 23}, in.Stats())
}

func TestEngine_StatsOverflow(t *testing.T) {
	e, _ := newTestEngine(t)
	mustSubmit(t, e, call("ALICE", "open", ir.Text("a"), ir.Addr("BOB"), ir.Uint(math.MaxUint64)))

	_, err := submit(e, nil, call("ALICE", "open", ir.Text("b"), ir.Addr("BOB"), ir.Uint(1)))
	assert.True(t, IsCode(err, CodeInvalidState), "overflow is a guard failure: %v", err)
}

func TestEngine_Budget(t *testing.T) {
	e, _ := newTestEngine(t, WithMaxOps(2), WithMaxStorageOps(2))

	_, err := submit(e, nil,
		call("ALICE", "read", ir.Text("a")),
		call("ALICE", "read", ir.Text("b")),
		call("ALICE", "read", ir.Text("c")),
	)
	assert.True(t, IsCode(err, CodeBudgetExceeded), "too many ops: %v", err)

	// open costs two storage calls (record + index); a second open exceeds.
	_, err = submit(e, nil,
		call("ALICE", "open", ir.Text("a"), ir.Addr("BOB"), ir.Uint(1)),
		call("ALICE", "open", ir.Text("b"), ir.Addr("BOB"), ir.Uint(1)),
	)
	assert.True(t, IsCode(err, CodeBudgetExceeded), "storage budget: %v", err)
}

func TestEngine_BundleValidation(t *testing.T) {
	e, _ := newTestEngine(t)

	tests := []struct {
		name string
		ops  []ir.Op
	}{
		{"empty", nil},
		{"payments only", []ir.Op{ir.Pay("BOB", testApp, 1)}},
		{"bad kind", []ir.Op{{Kind: "keyreg", Sender: "A", Receiver: "B"}}},
		{"bad sender", []ir.Op{call("A:B", "read", ir.Text("x"))}},
		{"other app", []ir.Op{ir.Call("ALICE", "OTHERAPP", "read", ir.Text("x"))}},
		{"unknown opcode", []ir.Op{call("ALICE", "frobnicate")}},
		{"bad args", []ir.Op{call("ALICE", "open", ir.Text("n1"))}},
		{"extra args", []ir.Op{call("ALICE", "read", ir.Text("x"), ir.Text("y"))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := submit(e, nil, tt.ops...)
			assert.True(t, IsCode(err, CodeArgumentError), "got %v", err)
		})
	}
}

func TestEngine_RejectsNonPositiveTimestamp(t *testing.T) {
	e, s := newTestEngine(t)
	before, err := s.LastSeq(context.Background())
	require.NoError(t, err)

	for _, ts := range []int64{0, -1} {
		b := bundleOf(call("ALICE", "read", ir.Text("n1")))
		b.Timestamp = ts
		_, err := e.Submit(context.Background(), b, &recordingHost{})
		assert.True(t, IsCode(err, CodeArgumentError), "timestamp %d: %v", ts, err)
		_, err = e.Simulate(context.Background(), b, nil)
		assert.True(t, IsCode(err, CodeArgumentError), "simulated timestamp %d: %v", ts, err)
	}

	after, err := s.LastSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEngine_ExecuteRejectsUnknownCommand(t *testing.T) {
	e, _ := newTestEngine(t)
	c := &Context{op: call("ALICE", "stray")}
	err := e.App().Execute(c, stray{})
	assert.True(t, IsCode(err, CodeArgumentError))
}

func TestEngine_ReservedOps(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := submit(e, nil, call("EVE", OpTransferOwnership, ir.Addr("EVE")))
	assert.True(t, IsCode(err, CodePermissionDenied))

	r := mustSubmit(t, e, call(testAdmin, OpTransferOwnership, ir.Addr("NEWADMIN")))
	assert.Equal(t, []string{"admin:NEWADMIN"}, r.Logs)

	_, err = submit(e, nil, call(testAdmin, OpUpdateApp, ir.Uint(2)))
	assert.True(t, IsCode(err, CodePermissionDenied), "old admin lost the role")

	mustSubmit(t, e, call("NEWADMIN", OpUpdateApp, ir.Uint(2)))
	_, err = submit(e, nil, call("NEWADMIN", OpUpdateApp, ir.Uint(2)))
	assert.True(t, IsCode(err, CodeInvalidState), "version must increase")

	r = mustSubmit(t, e, call("NEWADMIN", OpEmergencyWithdraw, ir.Uint(50)))
	assert.Equal(t, []ir.Settlement{{Receiver: "NEWADMIN", Amount: 50, Opcode: OpEmergencyWithdraw}}, r.Settlements)

	_, err = submit(e, nil, call("NEWADMIN", OpEmergencyWithdraw, ir.Uint(0)))
	assert.True(t, IsCode(err, CodeArgumentError))

	mustSubmit(t, e, call("NEWADMIN", OpDeleteApp))
	_, err = submit(e, nil, call("ALICE", "read", ir.Text("x")))
	assert.True(t, IsCode(err, CodeInvalidState), "deleted instance rejects calls")

	in, _, err := e.Instance(context.Background())
	require.NoError(t, err)
	assert.True(t, in.Deleted)
	assert.Equal(t, uint64(2), in.Version)
}

func TestEngine_SimulateDoesNotPersist(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	r, err := e.Simulate(ctx, bundleOf(call("ALICE", "open", ir.Text("n1"), ir.Addr("BOB"), ir.Uint(1))), nil)
	require.NoError(t, err)
	assert.Zero(t, r.Seq)
	assert.Equal(t, "not_found", readNoteLine(t, e, "n1"))

	entries, err := s.Journal(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "only the create bundle")
}

func TestEngine_ReopenResumesClock(t *testing.T) {
	e, s := newTestEngine(t, WithIDGenerator(NewFixedGenerator("b-1", "b-2")))
	r := mustSubmit(t, e, call("ALICE", "open", ir.Text("n1"), ir.Addr("BOB"), ir.Uint(1)))
	assert.Equal(t, int64(2), r.Seq)
	assert.Equal(t, "b-2", r.BundleID)

	reopened, err := New(context.Background(), s, noteApp{}, Settings{App: testApp},
		WithIDGenerator(NewFixedGenerator("b-3")))
	require.NoError(t, err)
	r = mustSubmit(t, reopened, call("ALICE", "open", ir.Text("n2"), ir.Addr("BOB"), ir.Uint(1)))
	assert.Equal(t, int64(3), r.Seq)
}

func TestEngine_WrongVariantStore(t *testing.T) {
	_, s := newTestEngine(t)

	other, err := New(context.Background(), s, renamedApp{noteApp{}}, Settings{App: testApp})
	require.NoError(t, err)
	_, err = submit(other, nil, call("ALICE", "read", ir.Text("x")))
	assert.True(t, IsCode(err, CodeInvalidState))
}

func TestNew_InvalidSettings(t *testing.T) {
	s := openTestStore(t)
	_, err := New(context.Background(), s, noteApp{}, Settings{})
	assert.Error(t, err)
}

func TestNew_AppSettings(t *testing.T) {
	s := openTestStore(t)
	_, err := New(context.Background(), s, strictApp{}, Settings{App: testApp})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid note settings")

	_, err = New(context.Background(), s, strictApp{}, Settings{App: testApp, AssetID: 7})
	assert.NoError(t, err)
}

type renamedApp struct{ noteApp }

// strictApp requires a non-native asset.
type strictApp struct{ noteApp }

func (strictApp) ValidateSettings(s Settings) error {
	if s.AssetID == 0 {
		return errors.New("asset id is required")
	}
	return nil
}

func (renamedApp) Name() string { return "other" }
