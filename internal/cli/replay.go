package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/ledgerflow/internal/config"
	"github.com/roach88/ledgerflow/internal/engine"
	"github.com/roach88/ledgerflow/internal/ir"
	"github.com/roach88/ledgerflow/internal/store"
)

// replayPageSize is the number of journal entries read per query.
const replayPageSize = 256

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Config   string
	Database string
}

// ReplayEntryResult holds the replay result for a single journal entry.
type ReplayEntryResult struct {
	Seq           int64  `json:"seq"`
	BundleID      string `json:"bundle_id"`
	Deterministic bool   `json:"deterministic"`
	Mismatch      string `json:"mismatch,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Entries          []ReplayEntryResult `json:"entries"`
	TotalEntries     int                 `json:"total_entries"`
	AllDeterministic bool                `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the journal and verify determinism",
		Long: `Re-execute every journaled bundle, in commit order, against a fresh
in-memory engine built from the same config, and check each one reproduces
its recorded seq, hash, logs and settlements.

Exit codes:
  0 - Every bundle replayed identically
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  ledgerflow replay --config escrow.cue --db escrow.db
  ledgerflow replay --config escrow.cue --db escrow.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to config file (required)")
	_ = cmd.MarkFlagRequired("config")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: config database)")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.newLogger(cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return loadErrorExit(formatter, err)
	}
	dbPath, err := databasePath(opts.Database, cfg)
	if err != nil {
		return loadErrorExit(formatter, err)
	}

	src, err := store.Open(dbPath)
	if err != nil {
		return loadErrorExit(formatter, &LoadError{Code: ErrCodeStore, Message: fmt.Sprintf("open database: %v", err)})
	}
	defer src.Close()

	result, err := replayJournal(ctx, src, cfg, logger)
	if err != nil {
		return loadErrorExit(formatter, &LoadError{Code: ErrCodeStore, Message: err.Error()})
	}

	if opts.Format == "json" {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// replayJournal re-executes every entry of src on a fresh in-memory engine.
func replayJournal(ctx context.Context, src *store.Store, cfg *config.Config, logger *slog.Logger) (ReplayResult, error) {
	dst, err := store.Open(":memory:")
	if err != nil {
		return ReplayResult{}, fmt.Errorf("open replay store: %w", err)
	}
	defer dst.Close()

	e, err := engine.New(ctx, dst, cfg.App(), cfg.Settings(), engine.WithLogger(logger))
	if err != nil {
		return ReplayResult{}, err
	}
	host := stagingHost(logger)

	result := ReplayResult{Entries: []ReplayEntryResult{}, AllDeterministic: true}
	var after int64
	for {
		entries, err := src.Journal(ctx, after, replayPageSize)
		if err != nil {
			return ReplayResult{}, err
		}
		for _, entry := range entries {
			r := replayEntry(ctx, e, host, entry)
			if !r.Deterministic {
				result.AllDeterministic = false
				logger.Warn("replay mismatch", "seq", r.Seq, "bundle", r.BundleID, "mismatch", r.Mismatch)
			}
			result.Entries = append(result.Entries, r)
			after = entry.Seq
		}
		if len(entries) < replayPageSize {
			break
		}
	}
	result.TotalEntries = len(result.Entries)
	return result, nil
}

// replayEntry runs one journaled bundle and compares the outcome.
func replayEntry(ctx context.Context, e *engine.Engine, host engine.Host, entry store.JournalEntry) ReplayEntryResult {
	r := ReplayEntryResult{Seq: entry.Seq, BundleID: entry.BundleID}

	var bundle ir.Bundle
	if err := json.Unmarshal(entry.Bundle, &bundle); err != nil {
		r.Mismatch = fmt.Sprintf("decode bundle: %v", err)
		return r
	}
	receipt, err := e.Submit(ctx, bundle, host)
	if err != nil {
		r.Mismatch = fmt.Sprintf("rejected on replay: %v", err)
		return r
	}

	switch {
	case receipt.Seq != entry.Seq:
		r.Mismatch = fmt.Sprintf("seq %d, recorded %d", receipt.Seq, entry.Seq)
	case receipt.BundleHash != entry.BundleHash:
		r.Mismatch = fmt.Sprintf("hash %s, recorded %s", receipt.BundleHash, entry.BundleHash)
	case !slices.Equal(receipt.Logs, entry.Logs):
		r.Mismatch = fmt.Sprintf("logs %q, recorded %q", receipt.Logs, entry.Logs)
	case !slices.Equal(receipt.Settlements, entry.Settlements):
		r.Mismatch = fmt.Sprintf("settlements %v, recorded %v", receipt.Settlements, entry.Settlements)
	default:
		r.Deterministic = true
	}
	return r
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(f *OutputFormatter, result ReplayResult) error {
	if result.AllDeterministic {
		return f.Success(result)
	}
	if err := f.Failure(ErrCodeDeterminism, "determinism verification failed", result); err != nil {
		return err
	}
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if result.TotalEntries == 0 {
		fmt.Fprintln(w, "Journal is empty.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d bundle(s)\n", result.TotalEntries)
	fmt.Fprintln(w)

	for _, entry := range result.Entries {
		if entry.Deterministic {
			if verbose {
				fmt.Fprintf(w, "✓ #%d %s\n", entry.Seq, entry.BundleID)
			}
			continue
		}
		fmt.Fprintf(w, "✗ #%d %s\n", entry.Seq, entry.BundleID)
		fmt.Fprintf(w, "  %s\n", entry.Mismatch)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All bundles verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
