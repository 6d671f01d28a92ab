package ledger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/ledgerflow/internal/engine"
	"github.com/roach88/ledgerflow/internal/ir"
)

var (
	// ErrInsufficientFunds is returned when a transfer or settlement would
	// overdraw an account.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAppSender is returned when a bundle tries to move funds out of the
	// application account directly; only settlements may do that.
	ErrAppSender = errors.New("application account cannot sign transfers")
)

type holding struct {
	addr  ir.Address
	asset uint64
}

// Account is one balance entry.
type Account struct {
	Address ir.Address `json:"address"`
	AssetID uint64     `json:"asset_id"`
	Amount  uint64     `json:"amount"`
}

// Sim is a simulated host ledger in front of one engine.
//
// Thread-safety: all methods are safe for concurrent use; bundles are
// applied one at a time.
type Sim struct {
	mu       sync.Mutex
	engine   *engine.Engine
	balances map[holding]uint64
	logger   *slog.Logger
}

// Option configures a Sim.
type Option func(*Sim)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Sim) {
		s.logger = l
	}
}

// New creates a ledger with empty balances in front of e.
func New(e *engine.Engine, opts ...Option) *Sim {
	s := &Sim{
		engine:   e,
		balances: make(map[holding]uint64),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the engine the ledger feeds.
func (s *Sim) Engine() *engine.Engine { return s.engine }

// Fund credits amount of asset to addr out of thin air.
func (s *Sim) Fund(addr ir.Address, asset, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return credit(s.balances, holding{addr, asset}, amount)
}

// Balance returns addr's balance of asset.
func (s *Sim) Balance(addr ir.Address, asset uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[holding{addr, asset}]
}

// Accounts returns every non-zero balance ordered by address, then asset.
func (s *Sim) Accounts() []Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Account, 0, len(s.balances))
	for h, amount := range s.balances {
		if amount == 0 {
			continue
		}
		out = append(out, Account{Address: h.addr, AssetID: h.asset, Amount: amount})
	}
	slices.SortFunc(out, func(a, b Account) int {
		if c := cmp.Compare(a.Address, b.Address); c != 0 {
			return c
		}
		return cmp.Compare(a.AssetID, b.AssetID)
	})
	return out
}

// Submit applies bundle atomically. Value transfers are applied first, in
// bundle order, then the engine runs the app calls against the resulting
// balances. Settlements staged by the engine are debited from the
// application account and credited to their receivers only if the engine
// commits.
func (s *Sim) Submit(ctx context.Context, bundle ir.Bundle) (*engine.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := maps.Clone(s.balances)
	app := s.engine.Settings().App
	for i, op := range bundle.Ops {
		if !op.IsTransfer() {
			continue
		}
		if op.Sender == app {
			return nil, fmt.Errorf("op %d: %w", i, ErrAppSender)
		}
		if err := move(view, op.Sender, op.Receiver, op.AssetID, op.Amount); err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
	}

	host := engine.HostFunc(func(st ir.Settlement) error {
		return move(view, app, st.Receiver, st.AssetID, st.Amount)
	})
	receipt, err := s.engine.Submit(ctx, bundle, host)
	if err != nil {
		return nil, err
	}

	s.balances = view
	s.logger.Debug("bundle settled",
		"bundle", receipt.BundleID,
		"seq", receipt.Seq,
		"settlements", len(receipt.Settlements),
	)
	return receipt, nil
}

// Report runs a read-only app call.
func (s *Sim) Report(ctx context.Context, caller ir.Address, opcode string, args ...ir.Arg) ([]string, error) {
	return s.engine.Report(ctx, caller, opcode, args...)
}

func move(b map[holding]uint64, from, to ir.Address, asset, amount uint64) error {
	src := holding{from, asset}
	if b[src] < amount {
		return fmt.Errorf("%w: %s holds %d of asset %d, needs %d", ErrInsufficientFunds, from, b[src], asset, amount)
	}
	b[src] -= amount
	return credit(b, holding{to, asset}, amount)
}

func credit(b map[holding]uint64, h holding, amount uint64) error {
	sum, err := engine.Add(b[h], amount, "balance of "+string(h.addr))
	if err != nil {
		return err
	}
	b[h] = sum
	return nil
}
