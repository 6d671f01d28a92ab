package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ledgerflow/internal/engine"
	"github.com/roach88/ledgerflow/internal/harness"
	"github.com/roach88/ledgerflow/internal/ir"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config   string
	Database string
	Simulate bool
}

// ReceiptOutput is the printed form of an accepted bundle.
type ReceiptOutput struct {
	BundleID    string          `json:"bundle_id"`
	BundleHash  string          `json:"bundle_hash"`
	Seq         int64           `json:"seq,omitempty"`
	Simulated   bool            `json:"simulated,omitempty"`
	Logs        []string        `json:"logs"`
	Settlements []ir.Settlement `json:"settlements"`
}

func newReceiptOutput(r *engine.Receipt, simulated bool) ReceiptOutput {
	out := ReceiptOutput{
		BundleID:    r.BundleID,
		BundleHash:  r.BundleHash,
		Seq:         r.Seq,
		Simulated:   simulated,
		Logs:        r.Logs,
		Settlements: r.Settlements,
	}
	if out.Logs == nil {
		out.Logs = []string{}
	}
	if out.Settlements == nil {
		out.Settlements = []ir.Settlement{}
	}
	return out
}

func (r ReceiptOutput) String() string {
	var b strings.Builder
	if r.Simulated {
		fmt.Fprintf(&b, "✓ Bundle %s accepted (simulated)\n", r.BundleID)
	} else {
		fmt.Fprintf(&b, "✓ Bundle %s accepted at seq %d\n", r.BundleID, r.Seq)
	}
	fmt.Fprintf(&b, "  Hash: %s\n", r.BundleHash)
	for _, line := range r.Logs {
		fmt.Fprintf(&b, "  log: %s\n", line)
	}
	for _, s := range r.Settlements {
		fmt.Fprintf(&b, "  settle: %s\n", s)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <bundle.yaml>",
		Short: "Submit a bundle to a persistent engine",
		Long: `Submit one bundle of operations to the engine stored in the database.

The bundle file uses the scenario op syntax. When it has no timestamp the
current time is used. Settlements are accepted as staged and listed on the
receipt; executing them is left to the caller.

Exit codes:
  0 - Bundle accepted
  1 - Bundle rejected (the error code names the reason)
  2 - Command error (bad config, bundle file or database)

Examples:
  ledgerflow run --config escrow.cue --db escrow.db create.yaml
  ledgerflow run --config escrow.cue --db escrow.db approve.yaml --simulate`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBundle(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to config file (required)")
	_ = cmd.MarkFlagRequired("config")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: config database)")
	cmd.Flags().BoolVar(&opts.Simulate, "simulate", false, "execute without committing")

	return cmd
}

func runBundle(opts *RunOptions, path string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.newLogger(cmd.ErrOrStderr())

	file, err := harness.LoadBundle(path)
	if err != nil {
		if outErr := formatter.Error(ErrCodeBundle, err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitCommandError, "invalid bundle", err)
	}

	sess, err := openSession(ctx, opts.Config, opts.Database, logger)
	if err != nil {
		return loadErrorExit(formatter, err)
	}
	defer sess.Close()

	bundle, err := file.Build(ir.Address(sess.cfg.AppAddress), sess.cfg.AssetID)
	if err != nil {
		if outErr := formatter.Error(ErrCodeBundle, err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitCommandError, "invalid bundle", err)
	}
	if bundle.Timestamp == 0 {
		bundle.Timestamp = time.Now().Unix()
	}
	formatter.VerboseLog("Submitting %d op(s) at %d", len(bundle.Ops), bundle.Timestamp)

	host := stagingHost(logger)
	var receipt *engine.Receipt
	if opts.Simulate {
		receipt, err = sess.engine.Simulate(ctx, bundle, host)
	} else {
		receipt, err = sess.engine.Submit(ctx, bundle, host)
	}
	if err != nil {
		return rejectionExit(formatter, err)
	}

	return formatter.Success(newReceiptOutput(receipt, opts.Simulate))
}

// stagingHost accepts every settlement. The CLI has no ledger to move
// funds on; settlements are reported on the receipt instead.
func stagingHost(logger *slog.Logger) engine.Host {
	return engine.HostFunc(func(s ir.Settlement) error {
		logger.Debug("settlement staged", "receiver", s.Receiver, "amount", s.Amount, "asset", s.AssetID)
		return nil
	})
}

// rejectionExit reports a rejected bundle under its engine code. Errors
// without a code are infrastructure failures.
func rejectionExit(f *OutputFormatter, err error) error {
	code := engine.CodeOf(err)
	if code == "" {
		if outErr := f.Error(ErrCodeStore, err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitCommandError, "execution failed", err)
	}
	if outErr := f.Error(string(code), err.Error(), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitFailure, "bundle rejected", err)
}
