package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"apitester/internal/config"
	"apitester/internal/format"
)

func newConfigCmd(app *App) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
	}

	var force, local bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Long: `Write a config file with the default settings.

The file goes to ~/.apitester/config.yaml, or to ./.apitester.yaml with
--local. Every setting can also be given as an APITESTER_* environment
variable, e.g. APITESTER_SERVER_PORT=8080.

Examples:
  apitester config init
  apitester config init --local --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := config.DefaultPaths()
			path := paths[len(paths)-1]
			if local {
				path = paths[0]
			}

			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("file already exists: %s (use --force to overwrite)", path)
				}
			}

			if err := config.Default().Save(path); err != nil {
				return fmt.Errorf("failed to create config file: %w", err)
			}

			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			format.PrintSuccess(fmt.Sprintf("Created: %s", abs))
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	initCmd.Flags().BoolVar(&local, "local", false, "Write ./.apitester.yaml instead")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := app.cfg.YAML()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	configCmd.AddCommand(initCmd, showCmd)
	return configCmd
}
