package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"portwarden/internal/gitsync"
	"portwarden/internal/workstation"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <app_name>",
		Short: "Sync a configured app's git repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, args[0])
		},
	}
}

func runSync(cmd *cobra.Command, appName string) error {
	cfg, err := workstation.LoadConfig()
	if err != nil {
		return userFacingError(err)
	}

	app, ok := cfg.FindByName(appName)
	if !ok {
		path, pathErr := workstation.ConfigPath()
		if pathErr != nil {
			path = "<unknown>"
		}
		return fmt.Errorf("App '%s' not found in %s", appName, path)
	}

	localPath, err := app.ResolvedLocalPath()
	if err != nil {
		return userFacingError(err)
	}

	if err := gitsync.SyncRepository(app.GitURL, localPath, nil); err != nil {
		return userFacingError(err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "synced %s\n", appName)
	return nil
}

// userFacingError flattens a kerrors.CoreError into the single string
// cobra prints on stderr, so nested layers never double up their own
// "kind:" prefixes.
func userFacingError(err error) error {
	return fmt.Errorf("%s", err.Error())
}
