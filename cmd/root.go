package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jeeves",
	Short: "Butler for a single-host container fleet",
	Long: `Jeeves keeps a small homelab in order: a fixed catalog of services,
continuous health checks, and safe install/uninstall/update operations
with a RAM budget and rollback discipline.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}
}
