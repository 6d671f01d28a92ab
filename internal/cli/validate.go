package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ConfigSummary is the validated view of a config file.
type ConfigSummary struct {
	Valid      bool   `json:"valid"`
	Variant    string `json:"variant"`
	App        string `json:"app_address"`
	Admin      string `json:"admin,omitempty"`
	AssetID    uint64 `json:"asset_id"`
	CycleSecs  uint64 `json:"cycle_secs,omitempty"`
	MaxListing int    `json:"max_listing,omitempty"`
	Database   string `json:"database,omitempty"`
}

func (s ConfigSummary) String() string {
	var b strings.Builder
	fmt.Fprintln(&b, "✓ Config valid")
	fmt.Fprintf(&b, "  Variant: %s\n", s.Variant)
	fmt.Fprintf(&b, "  App:     %s\n", s.App)
	admin := s.Admin
	if admin == "" {
		admin = "(creator)"
	}
	fmt.Fprintf(&b, "  Admin:   %s\n", admin)
	fmt.Fprintf(&b, "  Asset:   %d\n", s.AssetID)
	if s.CycleSecs > 0 {
		fmt.Fprintf(&b, "  Cycle:   %ds\n", s.CycleSecs)
	}
	if s.Database != "" {
		fmt.Fprintf(&b, "  DB:      %s\n", s.Database)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.cue>",
		Short: "Validate a configuration file",
		Long: `Validate a configuration file against the config schema.

Checks the variant name, addresses and numeric settings, reporting the
first error with its file position.

Examples:
  ledgerflow validate ./escrow.cue
  ledgerflow validate ./payroll.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := loadConfig(path)
	if err != nil {
		return loadErrorExit(formatter, err)
	}
	formatter.VerboseLog("Loaded %s", path)

	return formatter.Success(ConfigSummary{
		Valid:      true,
		Variant:    cfg.Variant,
		App:        cfg.AppAddress,
		Admin:      cfg.Admin,
		AssetID:    cfg.AssetID,
		CycleSecs:  cfg.CycleSecs,
		MaxListing: cfg.MaxListing,
		Database:   cfg.Database,
	})
}
