package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"apitester/internal/composer"
	"apitester/internal/format"
	"apitester/internal/model"
	"apitester/internal/storage"
)

func newHistoryCmd(app *App) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "View this session's request history",
		Long: fmt.Sprintf(`View this session's request history.

The newest %d requests are kept. History is lost when the session ends.`, storage.HistoryLimit),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(app, limit)
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", storage.HistoryLimit, "Number of requests to show")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(app, limit)
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", storage.HistoryLimit, "Number of requests to show")

	showCmd := &cobra.Command{
		Use:   "show <id or index>",
		Short: "Show full details of a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := findHistoryEntry(app.store, args[0])
			if err != nil {
				return err
			}
			format.PrintHistoryDetail(entry)
			return nil
		},
	}

	var filter string
	rerunCmd := &cobra.Command{
		Use:   "rerun <id or index>",
		Short: "Send a request from history again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryRerun(cmd, app, args[0], filter)
		},
	}
	rerunCmd.Flags().StringVar(&filter, "filter", "", "Show only part of a JSON response (gjson path)")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.store.ClearHistory(); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			format.PrintSuccess("History cleared")
			return nil
		},
	}

	historyCmd.AddCommand(listCmd, showCmd, rerunCmd, clearCmd)
	return historyCmd
}

func runHistoryList(app *App, limit int) error {
	entries, err := app.store.LoadHistory()
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	format.PrintHistoryList(entries, limit)
	return nil
}

// runHistoryRerun reopens a past request for editing and submits it
// unchanged, so it keeps its ID and creation time
func runHistoryRerun(cmd *cobra.Command, app *App, ref, filter string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")

	entry, err := findHistoryEntry(app.store, ref)
	if err != nil {
		return err
	}

	draft := composer.DraftFrom(&entry.Request)
	_, resp, err := app.composer(dispatchOptions{}).Submit(cmd.Context(), draft)
	if err != nil {
		return err
	}

	format.PrintResponse(resp, format.ResponseOptions{ShowHeaders: verbose, Filter: filter})
	return nil
}

// findHistoryEntry resolves a 1-based index or an entry ID
func findHistoryEntry(store *storage.SessionStore, ref string) (*model.HistoryEntry, error) {
	if index, err := strconv.Atoi(ref); err == nil {
		entries, err := store.LoadHistory()
		if err != nil {
			return nil, fmt.Errorf("failed to load history: %w", err)
		}
		if index > 0 && index <= len(entries) {
			return &entries[index-1], nil
		}
	}

	entry, err := store.GetHistoryEntry(ref)
	if err != nil {
		return nil, fmt.Errorf("request not found: %s", ref)
	}
	return entry, nil
}
