package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ledgerflow/internal/ir"
	"github.com/roach88/ledgerflow/internal/store"
)

// DefaultJournalLimit is the number of entries printed when --limit is not set.
const DefaultJournalLimit = 100

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	Receiver string
	After    int64
	Limit    int
}

// JournalRecord is the printed form of a journal entry.
type JournalRecord struct {
	Seq         int64           `json:"seq"`
	BundleID    string          `json:"bundle_id"`
	BundleHash  string          `json:"bundle_hash"`
	Timestamp   int64           `json:"timestamp"`
	Bundle      json.RawMessage `json:"bundle"`
	Logs        []string        `json:"logs"`
	Settlements []ir.Settlement `json:"settlements"`
}

// JournalOutput lists journal entries in commit order.
type JournalOutput struct {
	Entries []JournalRecord `json:"entries"`
}

func (o JournalOutput) String() string {
	if len(o.Entries) == 0 {
		return "Journal is empty."
	}
	var b strings.Builder
	for _, e := range o.Entries {
		fmt.Fprintf(&b, "#%d %s t=%d\n", e.Seq, e.BundleID, e.Timestamp)
		for _, line := range e.Logs {
			fmt.Fprintf(&b, "  log: %s\n", line)
		}
		for _, s := range e.Settlements {
			fmt.Fprintf(&b, "  settle: %s\n", s)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// SettlementRecord is one journaled settlement paid to a receiver.
type SettlementRecord struct {
	Seq      int64 `json:"seq"`
	Position int   `json:"position"`
	ir.Settlement
}

// SettlementsOutput lists the settlements paid to one receiver in commit
// order.
type SettlementsOutput struct {
	Receiver    ir.Address         `json:"receiver"`
	Settlements []SettlementRecord `json:"settlements"`
}

func (o SettlementsOutput) String() string {
	if len(o.Settlements) == 0 {
		return fmt.Sprintf("No settlements to %s.", o.Receiver)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Settlements to %s: %d\n", o.Receiver, len(o.Settlements))
	for _, s := range o.Settlements {
		fmt.Fprintf(&b, "  #%d.%d %s\n", s.Seq, s.Position, s.Settlement)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List committed bundles",
		Long: `List committed bundles in commit order with their logs and settlements.

Examples:
  ledgerflow journal --db escrow.db
  ledgerflow journal --db escrow.db --after 10 --limit 5 --format json
  ledgerflow journal --db payroll.db --receiver ANN`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Receiver, "receiver", "", "list only settlements paid to this address")
	cmd.Flags().Int64Var(&opts.After, "after", 0, "list entries after this seq")
	cmd.Flags().IntVar(&opts.Limit, "limit", DefaultJournalLimit, "maximum entries to list")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Limit <= 0 {
		if outErr := formatter.Error(ErrCodeGeneric, "--limit must be positive", nil); outErr != nil {
			return outErr
		}
		return NewExitError(ExitCommandError, "invalid limit")
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return loadErrorExit(formatter, &LoadError{Code: ErrCodeStore, Message: fmt.Sprintf("open database: %v", err)})
	}
	defer st.Close()

	if opts.Receiver != "" {
		return runSettlements(ctx, st, opts, formatter)
	}

	entries, err := st.Journal(ctx, opts.After, opts.Limit)
	if err != nil {
		return loadErrorExit(formatter, &LoadError{Code: ErrCodeStore, Message: err.Error()})
	}

	out := JournalOutput{Entries: make([]JournalRecord, 0, len(entries))}
	for _, e := range entries {
		rec := JournalRecord{
			Seq:         e.Seq,
			BundleID:    e.BundleID,
			BundleHash:  e.BundleHash,
			Timestamp:   e.Timestamp,
			Bundle:      json.RawMessage(e.Bundle),
			Logs:        e.Logs,
			Settlements: e.Settlements,
		}
		if rec.Settlements == nil {
			rec.Settlements = []ir.Settlement{}
		}
		out.Entries = append(out.Entries, rec)
	}
	formatter.VerboseLog("Listed %d entr(ies) after seq %d", len(out.Entries), opts.After)
	return formatter.Success(out)
}

// runSettlements lists the settlements paid to --receiver, honouring
// --after and --limit on the journal seq.
func runSettlements(ctx context.Context, st *store.Store, opts *JournalOptions, formatter *OutputFormatter) error {
	receiver := ir.Address(opts.Receiver)
	if err := receiver.Validate(); err != nil {
		if outErr := formatter.Error(ErrCodeGeneric, fmt.Sprintf("--receiver: %v", err), nil); outErr != nil {
			return outErr
		}
		return NewExitError(ExitCommandError, "invalid receiver")
	}

	records, err := st.SettlementsTo(ctx, receiver)
	if err != nil {
		return loadErrorExit(formatter, &LoadError{Code: ErrCodeStore, Message: err.Error()})
	}

	out := SettlementsOutput{Receiver: receiver, Settlements: []SettlementRecord{}}
	for _, r := range records {
		if r.Seq <= opts.After {
			continue
		}
		if len(out.Settlements) == opts.Limit {
			break
		}
		out.Settlements = append(out.Settlements, SettlementRecord{Seq: r.Seq, Position: r.Position, Settlement: r.Settlement})
	}
	formatter.VerboseLog("Listed %d settlement(s) to %s", len(out.Settlements), receiver)
	return formatter.Success(out)
}
