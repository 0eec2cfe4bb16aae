// Package main provides the entry point for the bamm CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bomeara/bamm/cmd/bamm/commands"
	"github.com/bomeara/bamm/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bamm",
		Short: "bamm - event-based MCMC sampling on phylogenetic trees",
		Long: `bamm runs a reversible-jump MCMC chain over rate-shift events
placed on the branches of a phylogenetic tree.

Commands:
  run       Run the sampler on a newick tree`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add commands.
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "bamm %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
