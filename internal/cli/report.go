package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ledgerflow/internal/ir"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Config   string
	Database string
	Caller   string
}

// ReportOutput is the result of a read-only call.
type ReportOutput struct {
	Opcode string   `json:"opcode"`
	Lines  []string `json:"lines"`
}

func (r ReportOutput) String() string {
	if len(r.Lines) == 0 {
		return "(no output)"
	}
	return strings.Join(r.Lines, "\n")
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report <opcode> [args...]",
		Short: "Run a read-only call and print its log lines",
		Long: `Run a read-only call (get_stats, get_user_file_requests, get_loan_info, ...)
against the committed state. Nothing is written.

Arguments are typed: u64:<n>, str:<text>, addr:<address> or hex:<bytes>.

Examples:
  ledgerflow report --config escrow.cue --db escrow.db --caller ALICE get_user_file_requests addr:ALICE
  ledgerflow report --config loan.cue --db loan.db --caller BORROWER get_loan_info u64:1`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to config file (required)")
	_ = cmd.MarkFlagRequired("config")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: config database)")
	cmd.Flags().StringVar(&opts.Caller, "caller", "", "address making the call (required)")
	_ = cmd.MarkFlagRequired("caller")

	return cmd
}

func runReport(opts *ReportOptions, opcode string, rawArgs []string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	args := make([]ir.Arg, 0, len(rawArgs))
	for _, raw := range rawArgs {
		a, err := ir.ParseArg(raw)
		if err != nil {
			if outErr := formatter.Error(ErrCodeBundle, err.Error(), nil); outErr != nil {
				return outErr
			}
			return WrapExitError(ExitCommandError, "invalid argument", err)
		}
		args = append(args, a)
	}

	sess, err := openSession(ctx, opts.Config, opts.Database, opts.newLogger(cmd.ErrOrStderr()))
	if err != nil {
		return loadErrorExit(formatter, err)
	}
	defer sess.Close()

	lines, err := sess.engine.Report(ctx, ir.Address(opts.Caller), opcode, args...)
	if err != nil {
		return rejectionExit(formatter, err)
	}
	if lines == nil {
		lines = []string{}
	}
	return formatter.Success(ReportOutput{Opcode: opcode, Lines: lines})
}
