package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"apitester/internal/composer"
	"apitester/internal/format"
	"apitester/internal/storage"
)

func newCollectionCmd(app *App) *cobra.Command {
	collectionCmd := &cobra.Command{
		Use:     "collection",
		Aliases: []string{"col"},
		Short:   "Manage request collections",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			collections, err := app.store.LoadCollections()
			if err != nil {
				return fmt.Errorf("failed to load collections: %w", err)
			}
			format.PrintCollectionList(collections)
			return nil
		},
	}

	var description string
	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := app.store.CreateCollection(args[0], description)
			if err != nil {
				return fmt.Errorf("failed to create collection: %w", err)
			}
			format.PrintSuccess(fmt.Sprintf("Collection '%s' created", col.Name))
			return nil
		},
	}
	createCmd.Flags().StringVarP(&description, "description", "d", "", "Collection description")

	showCmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show the folders and requests in a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := app.store.GetCollection(args[0])
			if err != nil {
				return fmt.Errorf("failed to load collection: %w", err)
			}
			format.PrintCollectionTree(col)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a collection with its folders and requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.store.DeleteCollection(args[0]); err != nil {
				return fmt.Errorf("failed to delete collection: %w", err)
			}
			format.PrintSuccess(fmt.Sprintf("Collection '%s' deleted", args[0]))
			return nil
		},
	}

	folderCmd := &cobra.Command{
		Use:   "folder <collection> <path>",
		Short: "Create a folder, e.g. users/admin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.store.CreateFolder(args[0], args[1]); err != nil {
				return fmt.Errorf("failed to create folder: %w", err)
			}
			format.PrintSuccess(fmt.Sprintf("Folder '%s' created in '%s'", args[1], args[0]))
			return nil
		},
	}

	var addFolder, addName string
	addCmd := &cobra.Command{
		Use:   "add <collection> <history id or index>",
		Short: "Save a request from history to a collection",
		Long: `Save a request from history to a collection.

Example:
  apitester get https://api.example.com/users -n "List users"
  apitester collection add my-api 1 --folder users`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := findHistoryEntry(app.store, args[1])
			if err != nil {
				return err
			}
			req := entry.Request
			if addName != "" {
				req.Name = addName
			}
			if err := app.store.AddRequest(args[0], addFolder, req); err != nil {
				return fmt.Errorf("failed to add request: %w", err)
			}
			format.PrintSuccess(fmt.Sprintf("Request '%s' added to collection '%s'", req.Name, args[0]))
			return nil
		},
	}
	addCmd.Flags().StringVar(&addFolder, "folder", "", "Folder path inside the collection")
	addCmd.Flags().StringVarP(&addName, "name", "n", "", "Rename the saved request")

	runFlags := &collectionRunFlags{}
	runCmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run all requests in a collection, folders included",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollection(cmd, app, args[0], runFlags)
		},
	}
	runCmd.Flags().Float64Var(&runFlags.rate, "rate", 0, "Maximum requests per second (0 for no limit)")
	runCmd.Flags().BoolVar(&runFlags.relay, "relay", false, "Send through the relay server")
	runCmd.Flags().StringVar(&runFlags.relayURL, "relay-url", "", "Relay endpoint (default from config)")
	runCmd.Flags().BoolVar(&runFlags.noHistory, "no-history", false, "Don't save to history")

	var keepSecrets bool
	exportCmd := &cobra.Command{
		Use:   "export <name> <file>",
		Short: "Write a collection to a JSON or YAML file",
		Long: `Write a collection to a JSON or YAML file, chosen by the file extension.

Credentials in headers and auth settings are replaced with [REDACTED]
unless --keep-secrets is given.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := app.store.GetCollection(args[0])
			if err != nil {
				return fmt.Errorf("failed to load collection: %w", err)
			}
			if err := storage.WriteCollectionFile(args[1], col, keepSecrets); err != nil {
				return fmt.Errorf("failed to export collection: %w", err)
			}
			format.PrintSuccess(fmt.Sprintf("Collection '%s' exported to %s", col.Name, args[1]))
			return nil
		},
	}
	exportCmd.Flags().BoolVar(&keepSecrets, "keep-secrets", false, "Write credentials as they are")

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load a collection from a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := storage.ReadCollectionFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read collection: %w", err)
			}
			imported, err := app.store.ImportCollection(col)
			if err != nil {
				return fmt.Errorf("failed to import collection: %w", err)
			}
			format.PrintSuccess(fmt.Sprintf("Collection '%s' imported (%d requests)", imported.Name, len(imported.AllRequests())))
			return nil
		},
	}

	collectionCmd.AddCommand(listCmd, createCmd, showCmd, deleteCmd, folderCmd, addCmd, runCmd, exportCmd, importCmd)
	return collectionCmd
}

type collectionRunFlags struct {
	rate      float64
	relay     bool
	relayURL  string
	noHistory bool
}

// runCollection sends every request depth-first, one at a time. A failed
// request is reported and the run moves on.
func runCollection(cmd *cobra.Command, app *App, name string, f *collectionRunFlags) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	ctx := cmd.Context()

	col, err := app.store.GetCollection(name)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	requests := col.AllRequests()
	if len(requests) == 0 {
		return fmt.Errorf("collection '%s' is empty", col.Name)
	}

	vars, err := app.store.Variables()
	if err != nil {
		return err
	}

	var limiter *rate.Limiter
	if f.rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(f.rate), 1)
	}

	comp := app.composer(dispatchOptions{relay: f.relay, relayURL: f.relayURL, noHistory: f.noHistory})
	format.PrintInfo(fmt.Sprintf("Running %d requests from collection '%s'\n", len(requests), col.Name))

	failed := 0
	for i := range requests {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}

		draft := composer.DraftFrom(&requests[i])
		draft.Expand(vars)

		format.PrintInfo(fmt.Sprintf("[%d/%d] %s", i+1, len(requests), draft.Name))
		req, err := comp.Build(draft)
		if err != nil {
			printCommandError(err)
			failed++
			continue
		}
		format.PrintRequest(req)

		resp, err := comp.Send(ctx, req)
		if err != nil {
			format.PrintError(fmt.Sprintf("Request failed: %v", err))
			failed++
			continue
		}

		format.PrintResponse(resp, format.ResponseOptions{ShowHeaders: verbose})
		format.PrintInfo("")
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d requests in '%s' failed", failed, len(requests), col.Name)
	}
	format.PrintSuccess(fmt.Sprintf("Completed running collection '%s'", col.Name))
	return nil
}
