package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "apitester",
		Short: "Compose and send HTTP requests, or run the relay server",
		Long: `apitester is a command-line HTTP client, similar to Postman.

Send HTTP requests, keep a short history, organize requests into collections,
and run a relay server that performs requests on behalf of other clients.

History, collections and variables live for one session: a single command,
or everything typed into "apitester shell".

Examples:
  apitester get https://api.example.com/users
  apitester post https://api.example.com/users -d '{"name": "John"}'
  apitester get https://api.example.com/users --filter "0.name"
  apitester shell
  apitester serve --port 5000`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (default .apitester.yaml or ~/.apitester/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Show response headers")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (trace, debug, info, warn, error)")

	for _, method := range requestMethods {
		rootCmd.AddCommand(newRequestCmd(app, method))
	}
	rootCmd.AddCommand(
		newHistoryCmd(app),
		newCollectionCmd(app),
		newEnvCmd(app),
		newServeCmd(app),
		newShellCmd(app),
		newConfigCmd(app),
	)

	return rootCmd
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	app := NewApp(os.Stderr)
	err := newRootCmd(app).ExecuteContext(ctx)
	app.Close()
	stop()

	if err != nil {
		printCommandError(err)
		os.Exit(1)
	}
}
