package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is a write transaction over records, the index and the journal.
// Nothing written through a Tx is visible outside it until Commit.
type Tx struct {
	tx *sql.Tx
}

// Commit makes every write in the transaction visible at once.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback discards every write in the transaction.
// Safe to call after Commit; it is then a no-op.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// Create inserts data under key. Returns ErrAlreadyExists if key is present;
// the existing record is left untouched.
func (t *Tx) Create(ctx context.Context, key string, data []byte) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO records (key, data) VALUES (?, ?)
		ON CONFLICT(key) DO NOTHING
	`, key, data)
	if err != nil {
		return fmt.Errorf("create %q: %w", key, err)
	}
	return requireAffected(res, fmt.Sprintf("create %q", key), ErrAlreadyExists)
}

// Read returns the data under key. found is false if the key is absent;
// absence is not an error.
func (t *Tx) Read(ctx context.Context, key string) (data []byte, found bool, err error) {
	return readRecord(ctx, t.tx, key)
}

// Update replaces the data under key. Returns ErrNotFound if absent.
func (t *Tx) Update(ctx context.Context, key string, data []byte) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE records SET data = ? WHERE key = ?`, data, key)
	if err != nil {
		return fmt.Errorf("update %q: %w", key, err)
	}
	return requireAffected(res, fmt.Sprintf("update %q", key), ErrNotFound)
}

// Delete removes key. Returns ErrNotFound if absent.
func (t *Tx) Delete(ctx context.Context, key string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM records WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return requireAffected(res, fmt.Sprintf("delete %q", key), ErrNotFound)
}

// IndexAdd appends recordID to owner's listing of kind.
// Returns ErrAlreadyExists if the entry is already present.
func (t *Tx) IndexAdd(ctx context.Context, owner, kind, recordID string) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO record_index (owner, kind, record_id) VALUES (?, ?, ?)
		ON CONFLICT(owner, kind, record_id) DO NOTHING
	`, owner, kind, recordID)
	if err != nil {
		return fmt.Errorf("index add %s/%s/%s: %w", owner, kind, recordID, err)
	}
	return requireAffected(res, fmt.Sprintf("index add %s/%s/%s", owner, kind, recordID), ErrAlreadyExists)
}

// IndexRemove drops recordID from owner's listing of kind.
// Returns ErrNotFound if the entry is absent.
func (t *Tx) IndexRemove(ctx context.Context, owner, kind, recordID string) error {
	res, err := t.tx.ExecContext(ctx, `
		DELETE FROM record_index WHERE owner = ? AND kind = ? AND record_id = ?
	`, owner, kind, recordID)
	if err != nil {
		return fmt.Errorf("index remove %s/%s/%s: %w", owner, kind, recordID, err)
	}
	return requireAffected(res, fmt.Sprintf("index remove %s/%s/%s", owner, kind, recordID), ErrNotFound)
}

// IndexList returns up to limit record ids for owner and kind, in insertion
// order. Returns an empty slice (not nil) when there are none.
func (t *Tx) IndexList(ctx context.Context, owner, kind string, limit int) ([]string, error) {
	return indexList(ctx, t.tx, owner, kind, limit)
}

// IndexCount returns the number of entries for owner and kind.
func (t *Tx) IndexCount(ctx context.Context, owner, kind string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM record_index WHERE owner = ? AND kind = ?
	`, owner, kind).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("index count %s/%s: %w", owner, kind, err)
	}
	return n, nil
}

func readRecord(ctx context.Context, q queryer, key string) ([]byte, bool, error) {
	var data []byte
	err := q.QueryRowContext(ctx, `SELECT data FROM records WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %q: %w", key, err)
	}
	return data, true, nil
}

func indexList(ctx context.Context, q queryer, owner, kind string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("index list %s/%s: limit must be positive, got %d", owner, kind, limit)
	}
	rows, err := q.QueryContext(ctx, `
		SELECT record_id FROM record_index
		WHERE owner = ? AND kind = ?
		ORDER BY pos ASC
		LIMIT ?
	`, owner, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("index list %s/%s: %w", owner, kind, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan index entry: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index: %w", err)
	}
	return ids, nil
}

// requireAffected maps a statement that touched no rows to sentinel.
func requireAffected(res sql.Result, op string, sentinel error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, sentinel)
	}
	return nil
}
