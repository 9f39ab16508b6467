// Command synapsectl is the operator CLI for the Synapse sync/recommend/
// report core: running the server, applying schema migrations, and
// generating a weekly report out of band (SPEC_FULL.md §1, operator
// tooling).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "synapsectl",
	Short: "Operator CLI for the Synapse sync/recommend/report core",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
