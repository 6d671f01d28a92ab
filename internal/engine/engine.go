package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/ledgerflow/internal/ir"
	"github.com/roach88/ledgerflow/internal/store"
)

// Receipt is the outcome of an accepted bundle.
type Receipt struct {
	BundleID    string
	BundleHash  string
	Seq         int64 // 0 for simulated bundles
	Logs        []string
	Settlements []ir.Settlement
}

// Engine is the single-writer lifecycle engine.
//
// Thread-safety model:
//   - Submit, Simulate, Report and Instance are safe from any goroutine;
//     they serialize on the engine mutex.
//   - Each bundle runs in exactly one SQLite transaction.
type Engine struct {
	mu       sync.Mutex
	store    *store.Store
	app      App
	settings Settings
	clock    *Clock
	ids      IDGenerator
	logger   *slog.Logger

	maxOps        int
	maxStorageOps int
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithIDGenerator sets the bundle id generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithMaxOps sets the maximum operations per bundle.
//
// Default: 16 (DefaultMaxOps)
func WithMaxOps(n int) Option {
	return func(e *Engine) {
		e.maxOps = n
	}
}

// WithMaxStorageOps sets the storage budget per bundle.
//
// Default: 256 (DefaultMaxStorageOps)
// Use WithMaxStorageOps(2) for testing budget enforcement.
func WithMaxStorageOps(n int) Option {
	return func(e *Engine) {
		e.maxStorageOps = n
	}
}

// New creates an Engine for app over s. The journal clock resumes from the
// last journaled seq, so engines may be reopened on an existing store.
func New(ctx context.Context, s *store.Store, app App, settings Settings, opts ...Option) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if v, ok := app.(SettingsValidator); ok {
		if err := v.ValidateSettings(settings); err != nil {
			return nil, fmt.Errorf("invalid %s settings: %w", app.Name(), err)
		}
	}
	last, err := s.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("resume clock: %w", err)
	}

	e := &Engine{
		store:         s,
		app:           app,
		settings:      settings,
		clock:         NewClockAt(last),
		ids:           UUIDv7Generator{},
		logger:        slog.Default(),
		maxOps:        DefaultMaxOps,
		maxStorageOps: DefaultMaxStorageOps,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// App returns the application variant the engine runs.
func (e *Engine) App() App { return e.app }

// Settings returns the settings the engine was constructed with.
func (e *Engine) Settings() Settings { return e.settings }

// Submit runs bundle and commits it if every app call is accepted.
//
// Settlements are staged with host during execution and listed on the
// receipt; the host must execute them only after Submit returns without
// error. On any rejection nothing is persisted and the error is an *Error
// (or a wrapped infrastructure error).
func (e *Engine) Submit(ctx context.Context, bundle ir.Bundle, host Host) (*Receipt, error) {
	return e.execute(ctx, bundle, host, true)
}

// Simulate runs bundle and always rolls it back. A nil host accepts every
// settlement. Used for read-only reporting and dry runs.
func (e *Engine) Simulate(ctx context.Context, bundle ir.Bundle, host Host) (*Receipt, error) {
	if host == nil {
		host = acceptAll
	}
	return e.execute(ctx, bundle, host, false)
}

// Report runs a single read-only app call and returns its report lines.
func (e *Engine) Report(ctx context.Context, caller ir.Address, opcode string, args ...ir.Arg) ([]string, error) {
	bundle := ir.Bundle{
		Timestamp: time.Now().Unix(),
		Ops:       []ir.Op{ir.Call(caller, e.settings.App, opcode, args...)},
	}
	receipt, err := e.Simulate(ctx, bundle, nil)
	if err != nil {
		return nil, err
	}
	return receipt.Logs, nil
}

// Instance returns the committed global configuration record.
func (e *Engine) Instance(ctx context.Context) (Instance, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, found, err := e.store.Read(ctx, InstanceKey)
	if err != nil || !found {
		return Instance{}, false, err
	}
	in, err := DecodeInstance(data)
	if err != nil {
		return Instance{}, false, DecodeFailed(InstanceKey, err)
	}
	return in, true, nil
}

func (e *Engine) execute(ctx context.Context, bundle ir.Bundle, host Host, commit bool) (*Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if bundle.ID == "" {
		bundle.ID = e.ids.Generate()
	}
	if err := e.validateBundle(bundle); err != nil {
		return nil, err
	}
	hash, err := ir.BundleHash(bundle)
	if err != nil {
		return nil, err
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	r := &run{
		tx:       tx,
		bundle:   bundle,
		settings: e.settings,
		consumed: make(map[int]bool),
		budget:   NewBudget(e.maxStorageOps),
		host:     host,
		logger:   e.logger,
	}
	if err := e.loadInstance(ctx, r); err != nil {
		return nil, err
	}

	for i, op := range bundle.Ops {
		if op.Kind != ir.KindAppCall {
			continue
		}
		if err := e.call(ctx, r, i, op); err != nil {
			err = annotate(err, i, op.Opcode)
			e.logger.Debug("bundle rejected",
				"bundle", bundle.ID,
				"index", i,
				"opcode", op.Opcode,
				"code", string(CodeOf(err)),
				"error", err,
			)
			return nil, err
		}
	}

	if err := e.saveInstance(ctx, r); err != nil {
		return nil, err
	}

	receipt := &Receipt{
		BundleID:    bundle.ID,
		BundleHash:  hash,
		Logs:        r.logs,
		Settlements: r.settlements,
	}
	if !commit {
		return receipt, nil
	}

	bundleJSON, err := ir.MarshalCanonical(ir.BundleObject(bundle))
	if err != nil {
		return nil, fmt.Errorf("marshal bundle: %w", err)
	}
	seq, err := tx.AppendJournal(ctx, store.JournalEntry{
		Seq:           e.clock.Peek(),
		BundleID:      bundle.ID,
		BundleHash:    hash,
		Timestamp:     bundle.Timestamp,
		Bundle:        bundleJSON,
		Logs:          r.logs,
		Settlements:   r.settlements,
		EngineVersion: ir.EngineVersion,
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	e.clock.Next()
	receipt.Seq = seq

	e.logger.Debug("bundle accepted",
		"bundle", bundle.ID,
		"seq", seq,
		"logs", len(r.logs),
		"settlements", len(r.settlements),
		"storage_ops", r.budget.Used(),
	)
	return receipt, nil
}

// call decodes and executes one app call.
func (e *Engine) call(ctx context.Context, r *run, index int, op ir.Op) error {
	if op.Receiver != e.settings.App {
		return Errorf(CodeArgumentError, "call targets %s, not %s", op.Receiver, e.settings.App)
	}
	c := &Context{ctx: ctx, run: r, index: index, op: op}

	cmd, reserved, err := decodeReserved(op)
	if err != nil {
		return err
	}
	if _, isCreate := cmd.(CreateApp); !isCreate {
		if err := e.checkLive(r); err != nil {
			return err
		}
	}
	if reserved {
		return e.executeReserved(c, cmd)
	}

	cmd, err = e.app.Decode(op)
	if err != nil {
		return err
	}
	return e.app.Execute(c, cmd)
}

// checkLive rejects calls against a missing, foreign or deleted instance.
func (e *Engine) checkLive(r *run) error {
	switch {
	case r.instance == nil:
		return Errorf(CodeInvalidState, "application not created")
	case r.instance.Variant != e.app.Name():
		return Errorf(CodeInvalidState, "store holds a %s instance, engine runs %s", r.instance.Variant, e.app.Name())
	case r.instance.Deleted:
		return Errorf(CodeInvalidState, "application deleted")
	}
	return nil
}

// validateBundle enforces the bundle shape and the operation budget.
func (e *Engine) validateBundle(b ir.Bundle) error {
	if len(b.Ops) == 0 {
		return Errorf(CodeArgumentError, "empty bundle")
	}
	// Zero is reserved: payroll reads last_paid 0 as never paid.
	if b.Timestamp <= 0 {
		return Errorf(CodeArgumentError, "bundle timestamp %d must be positive", b.Timestamp)
	}
	if len(b.Ops) > e.maxOps {
		return Errorf(CodeBudgetExceeded, "bundle has %d operations, limit %d", len(b.Ops), e.maxOps)
	}
	calls := 0
	for i, op := range b.Ops {
		if !op.Kind.Valid() {
			return &Error{Code: CodeArgumentError, Message: fmt.Sprintf("unknown operation kind %q", op.Kind), Index: i}
		}
		if err := op.Sender.Validate(); err != nil {
			return &Error{Code: CodeArgumentError, Message: "sender: " + err.Error(), Index: i}
		}
		if err := op.Receiver.Validate(); err != nil {
			return &Error{Code: CodeArgumentError, Message: "receiver: " + err.Error(), Index: i}
		}
		if op.Kind == ir.KindAppCall {
			calls++
		}
	}
	if calls == 0 {
		return Errorf(CodeArgumentError, "bundle has no app call")
	}
	return nil
}

func (e *Engine) loadInstance(ctx context.Context, r *run) error {
	data, found, err := r.tx.Read(ctx, InstanceKey)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	in, err := DecodeInstance(data)
	if err != nil {
		return DecodeFailed(InstanceKey, err)
	}
	r.instance = &in
	return nil
}

func (e *Engine) saveInstance(ctx context.Context, r *run) error {
	if !r.dirty {
		return nil
	}
	data, err := encodeInstance(*r.instance)
	if err != nil {
		return fmt.Errorf("encode instance: %w", err)
	}
	_, found, err := r.tx.Read(ctx, InstanceKey)
	if err != nil {
		return err
	}
	if found {
		return fromStorage(r.tx.Update(ctx, InstanceKey, data), InstanceKey)
	}
	return fromStorage(r.tx.Create(ctx, InstanceKey, data), InstanceKey)
}
