package engine

// Default limits per bundle. Every bundle runs within a fixed cost so that
// no operation can loop over storage without bound.
const (
	// DefaultMaxOps is the maximum number of operations in one bundle.
	DefaultMaxOps = 16

	// DefaultMaxStorageOps is the maximum number of store calls in one bundle.
	DefaultMaxStorageOps = 256

	// DefaultMaxListing caps the entries returned by an index listing.
	DefaultMaxListing = 64

	// MaxBatch is the maximum number of payouts one disbursement may issue.
	MaxBatch = 8
)

// Budget tracks the storage calls made by one bundle and enforces a limit.
//
// Each bundle has its own Budget. Every Context storage call charges it
// before touching the store.
type Budget struct {
	limit int
	used  int
}

// NewBudget creates a budget allowing limit storage calls.
func NewBudget(limit int) *Budget {
	return &Budget{limit: limit}
}

// Charge consumes n units and fails with BUDGET_EXCEEDED once the limit is
// passed.
func (b *Budget) Charge(n int) error {
	b.used += n
	if b.used > b.limit {
		return Errorf(CodeBudgetExceeded, "bundle exceeded storage budget: %d > %d", b.used, b.limit)
	}
	return nil
}

// Used returns the units consumed so far.
func (b *Budget) Used() int {
	return b.used
}

// Limit returns the maximum units allowed.
func (b *Budget) Limit() int {
	return b.limit
}
