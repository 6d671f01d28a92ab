// Command ledgerflow runs and inspects ledger-verified lifecycle engines.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/ledgerflow/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
