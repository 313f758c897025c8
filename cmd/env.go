package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"apitester/internal/format"
)

func newEnvCmd(app *App) *cobra.Command {
	envCmd := &cobra.Command{
		Use:     "env",
		Aliases: []string{"vars"},
		Short:   "Manage session variables",
		Long: `Manage session variables.

{{name}} placeholders in a request's URL, header and query values, and body
are replaced with the variable's value before the request is validated.

Example:
  apitester env set base https://www.swapi.tech/api
  apitester get "{{base}}/people/1"`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all variables",
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := app.store.Variables()
			if err != nil {
				return fmt.Errorf("failed to load variables: %w", err)
			}
			format.PrintVariables(vars)
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Set a variable",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.store.SetVariable(args[0], args[1]); err != nil {
				return fmt.Errorf("failed to set variable: %w", err)
			}
			format.PrintSuccess(fmt.Sprintf("Variable '%s' set", args[0]))
			return nil
		},
	}

	unsetCmd := &cobra.Command{
		Use:   "unset <name>",
		Short: "Remove a variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.store.UnsetVariable(args[0]); err != nil {
				return fmt.Errorf("failed to remove variable: %w", err)
			}
			format.PrintSuccess(fmt.Sprintf("Variable '%s' removed", args[0]))
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := app.store.Variables()
			if err != nil {
				return fmt.Errorf("failed to load variables: %w", err)
			}
			value, ok := vars[args[0]]
			if !ok {
				return fmt.Errorf("variable '%s' not found", args[0])
			}
			format.PrintVariable(args[0], value)
			return nil
		},
	}

	envCmd.AddCommand(listCmd, setCmd, unsetCmd, showCmd)
	return envCmd
}
