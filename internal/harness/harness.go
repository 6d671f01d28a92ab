package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/ledgerflow/internal/config"
	"github.com/roach88/ledgerflow/internal/engine"
	"github.com/roach88/ledgerflow/internal/ir"
	"github.com/roach88/ledgerflow/internal/ledger"
	"github.com/roach88/ledgerflow/internal/store"
	"github.com/roach88/ledgerflow/internal/testutil"
)

// Epoch is the block time of the bundle that creates the instance. Every
// later bundle is one second after the previous one, plus any step advance.
const Epoch = 1_700_000_000

// DefaultCreator creates the instance when the config names no admin; it
// then becomes the admin.
const DefaultCreator ir.Address = "CREATOR"

// Ledger rejection codes. The engine's own codes come from engine.Code.
const (
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeAppSender         = "APP_SENDER"
)

// Harness is the test execution engine.
// It runs scenarios with a deterministic block clock and bundle ids.
type Harness struct {
	cfg    *config.Config
	store  *store.Store
	engine *engine.Engine
	ledger *ledger.Sim
	clock  *testutil.BlockClock
	logger *slog.Logger
}

// Option configures a harness run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger routes engine and ledger logs to l. Default: discarded.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Load the config and create the instance
//  2. Fund the opening accounts
//  3. Execute setup steps, which must all be accepted
//  4. Execute flow steps, tracing each and checking its expect clause
//  5. Evaluate assertions against the trace and final state
//
// A non-nil error means the scenario could not run at all. Expectation and
// assertion failures are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := config.Load(scenario.Config)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	eng, err := engine.New(ctx, st, cfg.App(), cfg.Settings(),
		engine.WithIDGenerator(testutil.NewSequentialIDs("")),
		engine.WithLogger(o.logger),
	)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		cfg:    cfg,
		store:  st,
		engine: eng,
		ledger: ledger.New(eng, ledger.WithLogger(o.logger)),
		clock:  testutil.NewBlockClock(Epoch, 1),
		logger: o.logger,
	}

	if err := h.create(ctx); err != nil {
		return nil, fmt.Errorf("failed to create instance: %w", err)
	}
	for i, acct := range scenario.Accounts {
		if err := h.ledger.Fund(ir.Address(acct.Address), h.asset(acct.AssetID), acct.Amount); err != nil {
			return nil, fmt.Errorf("accounts[%d]: %w", i, err)
		}
	}

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{
		Ctx:     ctx,
		Store:   st,
		Ledger:  h.ledger,
		AssetID: cfg.AssetID,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	result.Balances = h.ledger.Accounts()

	return result, nil
}

func (h *Harness) create(ctx context.Context) error {
	creator := ir.Address(h.cfg.Admin)
	if creator == "" {
		creator = DefaultCreator
	}
	_, err := h.submit(ctx, Step{}, []ir.Op{ir.Call(creator, ir.Address(h.cfg.AppAddress), engine.OpCreate)})
	return err
}

// executeSetup runs all setup steps. Any rejection aborts the scenario.
func (h *Harness) executeSetup(ctx context.Context, setup []Step) error {
	for i, step := range setup {
		ops, err := h.build(step)
		if err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		receipt, err := h.submit(ctx, step, ops)
		if err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		h.logger.Info("setup step completed", "step", i, "seq", receipt.Seq)
	}
	return nil
}

// executeFlow runs all flow steps, tracing each and validating its expect
// clause. Rejections are part of the trace; only infrastructure failures
// abort the flow.
func (h *Harness) executeFlow(ctx context.Context, flow []Step, result *Result) error {
	for i, step := range flow {
		ops, err := h.build(step)
		if err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}

		event := TraceEvent{
			Step:        i + 1,
			Ops:         opNames(ops),
			Logs:        []string{},
			Settlements: []ir.Settlement{},
		}
		receipt, err := h.submit(ctx, step, ops)
		if err != nil {
			code, ok := rejectionCode(err)
			if !ok {
				return fmt.Errorf("flow[%d]: %w", i, err)
			}
			event.Outcome = OutcomeRejected
			event.Code = code
		} else {
			event.Outcome = OutcomeAccepted
			event.Seq = receipt.Seq
			if receipt.Logs != nil {
				event.Logs = receipt.Logs
			}
			if receipt.Settlements != nil {
				event.Settlements = receipt.Settlements
			}
		}
		result.AddEvent(event)

		for _, msg := range checkExpect(step.Expect, event, err) {
			result.AddError(fmt.Sprintf("flow[%d]: %s", i, msg))
		}

		h.logger.Info("flow step completed",
			"step", event.Step,
			"outcome", event.Outcome,
			"code", event.Code,
			"seq", event.Seq,
		)
	}
	return nil
}

func (h *Harness) build(step Step) ([]ir.Op, error) {
	app := ir.Address(h.cfg.AppAddress)
	ops := make([]ir.Op, 0, len(step.Ops))
	for i, spec := range step.Ops {
		op, err := spec.build(app, h.cfg.AssetID)
		if err != nil {
			return nil, fmt.Errorf("ops[%d]: %w", i, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (h *Harness) submit(ctx context.Context, step Step, ops []ir.Op) (*engine.Receipt, error) {
	h.clock.Advance(step.Advance)
	return h.ledger.Submit(ctx, ir.Bundle{Timestamp: h.clock.Tick(), Ops: ops})
}

func (h *Harness) asset(id *uint64) uint64 {
	if id != nil {
		return *id
	}
	return h.cfg.AssetID
}

// rejectionCode classifies a Submit error. ok is false for failures that
// are not a verdict on the bundle, such as a broken database.
func rejectionCode(err error) (code string, ok bool) {
	if c := engine.CodeOf(err); c != "" {
		return string(c), true
	}
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return CodeInsufficientFunds, true
	case errors.Is(err, ledger.ErrAppSender):
		return CodeAppSender, true
	}
	return "", false
}

func opNames(ops []ir.Op) []string {
	names := make([]string, len(ops))
	for i, op := range ops {
		if op.Kind == ir.KindAppCall {
			names[i] = op.Opcode
		} else {
			names[i] = string(op.Kind)
		}
	}
	return names
}

// checkExpect compares a traced step with its expectation. A nil expect
// requires acceptance.
func checkExpect(expect *Expect, event TraceEvent, err error) []string {
	want := Expect{Outcome: OutcomeAccepted}
	if expect != nil {
		want = *expect
		if want.Outcome == "" {
			want.Outcome = OutcomeAccepted
		}
	}

	if event.Outcome != want.Outcome {
		if err != nil {
			return []string{fmt.Sprintf("expected %s, got %s: %v", want.Outcome, event.Outcome, err)}
		}
		return []string{fmt.Sprintf("expected %s, got %s", want.Outcome, event.Outcome)}
	}

	var errs []string
	if want.Code != "" && event.Code != want.Code {
		errs = append(errs, fmt.Sprintf("expected code %s, got %s: %v", want.Code, event.Code, err))
	}
	if want.Logs != nil && !slices.Equal(event.Logs, want.Logs) {
		errs = append(errs, fmt.Sprintf("expected logs %q, got %q", want.Logs, event.Logs))
	}
	if want.Settlements != nil {
		got := make([]SettlementSpec, len(event.Settlements))
		for i, s := range event.Settlements {
			got[i] = SettlementSpec{Receiver: string(s.Receiver), Amount: s.Amount}
		}
		if !slices.Equal(got, want.Settlements) {
			errs = append(errs, fmt.Sprintf("expected settlements %v, got %v", want.Settlements, got))
		}
	}
	return errs
}
