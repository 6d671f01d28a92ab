package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/roach88/ledgerflow/internal/ir"
)

// JournalEntry is one accepted bundle with the settlements it staged.
type JournalEntry struct {
	Seq           int64
	BundleID      string
	BundleHash    string
	Timestamp     int64
	Bundle        []byte // canonical JSON of the bundle
	Logs          []string
	Settlements   []ir.Settlement
	EngineVersion string
}

// SettlementRecord is a journaled settlement with its position.
type SettlementRecord struct {
	ID       string
	Seq      int64
	Position int
	ir.Settlement
}

// AppendJournal records an accepted bundle and its settlements inside the
// bundle's own transaction. A zero e.Seq lets SQLite assign the next seq.
// Returns the stored sequence number.
func (t *Tx) AppendJournal(ctx context.Context, e JournalEntry) (int64, error) {
	logsJSON, err := ir.MarshalCanonical(e.Logs)
	if err != nil {
		return 0, fmt.Errorf("append journal: marshal logs: %w", err)
	}

	var seqArg any
	if e.Seq > 0 {
		seqArg = e.Seq
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO journal (seq, bundle_id, bundle_hash, timestamp, bundle, logs, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, seqArg, e.BundleID, e.BundleHash, e.Timestamp, string(e.Bundle), string(logsJSON), e.EngineVersion)
	if err != nil {
		return 0, fmt.Errorf("append journal: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append journal: last insert id: %w", err)
	}

	for pos, s := range e.Settlements {
		id, err := ir.SettlementHash(e.BundleHash, pos, s)
		if err != nil {
			return 0, fmt.Errorf("append journal: %w", err)
		}
		_, err = t.tx.ExecContext(ctx, `
			INSERT INTO settlements (id, seq, position, receiver, amount, asset_id, opcode)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, seq, pos, string(s.Receiver),
			strconv.FormatUint(s.Amount, 10), strconv.FormatUint(s.AssetID, 10), s.Opcode)
		if err != nil {
			return 0, fmt.Errorf("append journal: settlement %d: %w", pos, err)
		}
	}
	return seq, nil
}

// LastSeq returns the highest journal sequence number, or 0 if empty.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM journal`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

// Journal returns up to limit entries with seq > afterSeq, in commit order.
// Returns an empty slice (not nil) when there are none.
func (s *Store) Journal(ctx context.Context, afterSeq int64, limit int) ([]JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, bundle_id, bundle_hash, timestamp, bundle, logs, engine_version
		FROM journal
		WHERE seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := []JournalEntry{}
	for rows.Next() {
		var (
			e        JournalEntry
			bundle   string
			logsJSON string
		)
		if err := rows.Scan(&e.Seq, &e.BundleID, &e.BundleHash, &e.Timestamp, &bundle, &logsJSON, &e.EngineVersion); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		e.Bundle = []byte(bundle)
		if err := json.Unmarshal([]byte(logsJSON), &e.Logs); err != nil {
			return nil, fmt.Errorf("unmarshal logs for seq %d: %w", e.Seq, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	rows.Close()

	for i := range entries {
		recs, err := s.querySettlements(ctx, `WHERE seq = ? ORDER BY position ASC`, entries[i].Seq)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			entries[i].Settlements = append(entries[i].Settlements, r.Settlement)
		}
	}
	return entries, nil
}

// SettlementsTo returns every journaled settlement paid to receiver, in
// commit order.
func (s *Store) SettlementsTo(ctx context.Context, receiver ir.Address) ([]SettlementRecord, error) {
	return s.querySettlements(ctx, `WHERE receiver = ? ORDER BY seq ASC, position ASC`, string(receiver))
}

func (s *Store) querySettlements(ctx context.Context, where string, args ...any) ([]SettlementRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, position, receiver, amount, asset_id, opcode
		FROM settlements `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query settlements: %w", err)
	}
	defer rows.Close()

	records := []SettlementRecord{}
	for rows.Next() {
		r, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settlements: %w", err)
	}
	return records, nil
}

func scanSettlement(rows *sql.Rows) (SettlementRecord, error) {
	var (
		r                 SettlementRecord
		receiver          string
		amount, assetText string
	)
	if err := rows.Scan(&r.ID, &r.Seq, &r.Position, &receiver, &amount, &assetText, &r.Opcode); err != nil {
		return SettlementRecord{}, fmt.Errorf("scan settlement: %w", err)
	}
	r.Receiver = ir.Address(receiver)

	var err error
	if r.Amount, err = strconv.ParseUint(amount, 10, 64); err != nil {
		return SettlementRecord{}, fmt.Errorf("settlement %s amount: %w", r.ID, err)
	}
	if r.AssetID, err = strconv.ParseUint(assetText, 10, 64); err != nil {
		return SettlementRecord{}, fmt.Errorf("settlement %s asset: %w", r.ID, err)
	}
	return r, nil
}
