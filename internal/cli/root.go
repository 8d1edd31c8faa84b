// Package cli implements the thin command surface the spec names: status
// and sync. Everything else (the manager, the cluster client, the GUI
// widgets) lives behind these commands as external collaborators.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "portwarden",
	Short:         "Manage long-lived local-to-pod port forwards",
	Long:          `portwarden supervises Kubernetes port forwards and keeps synced app repositories up to date.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command; it is the sole entry point main calls.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newSyncCmd())
}
