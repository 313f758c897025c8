package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"apitester/internal/format"
)

const shellPrompt = "apitester> "

func newShellCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Long: `Start an interactive session.

Each line is an apitester command without the leading "apitester". History,
collections and variables are kept until the shell exits.

Example:
  apitester> env set base https://api.example.com
  apitester> get {{base}}/users -n "List users"
  apitester> history
  apitester> exit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, app, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// runShell runs one command per input line until exit, EOF or cancellation.
// A failed line is reported and the session carries on.
func runShell(cmd *cobra.Command, app *App, in io.Reader, out io.Writer) error {
	ctx := cmd.Context()
	scanner := bufio.NewScanner(in)

	format.PrintInfo(`Type "help" for commands, "exit" to quit.`)
	for {
		fmt.Fprint(out, shellPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		args, err := shlex.Split(line)
		if err != nil {
			format.PrintError(fmt.Sprintf("cannot parse line: %v", err))
			continue
		}
		if args[0] == "shell" {
			format.PrintError("already in a shell")
			continue
		}

		root := newRootCmd(app)
		root.SetArgs(args)
		root.SetIn(in)
		root.SetOut(out)
		root.SetErr(out)
		if err := root.ExecuteContext(ctx); err != nil {
			printCommandError(err)
		}
	}
}
