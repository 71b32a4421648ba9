// Package commands implements the conti command line.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"conti/internal/buildinfo"
	"conti/internal/cli"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:     "conti",
		Short:   "Personal ledger reports, exports and cache invalidation",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.LoadEnvFile(envFile)
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	rootCmd.AddCommand(
		newServeCommand(),
		newWorkerCommand(),
		newReportCommand(),
		newExportCommand(),
		newLoginCommand(),
	)

	return rootCmd
}
