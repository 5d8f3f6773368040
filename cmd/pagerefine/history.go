// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pagerefine/internal/history"
	"github.com/pdiddy/pagerefine/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List past runs or show one run's per-URL results",
	Long: `History reads Output/history.db. Without arguments it lists the most
recent runs with their written, skipped, and failed counts. With a run ID it
shows the result recorded for each URL of that run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	dbPath := layout().HistoryDB()
	if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	jsonOutput, _ := cmd.Flags().GetBool("json")
	w := cmd.OutOrStdout()

	if len(args) == 1 {
		report, err := store.Report(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(w, report)
		}
		formatReport(w, report)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(w, runs)
	}
	formatRuns(w, runs)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatRuns(w io.Writer, runs []history.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	fmt.Fprintf(w, "%-36s  %-19s  %-9s  %7s  %7s  %6s  %s\n",
		"Run", "Started", "Provider", "Written", "Skipped", "Failed", "")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, r := range runs {
		note := ""
		if r.Aborted {
			note = "aborted"
		}
		fmt.Fprintf(w, "%-36s  %-19s  %-9s  %7d  %7d  %6d  %s\n",
			r.ID, r.Prefix, r.Provider, r.Written, r.Skipped, r.Failed, note)
	}
}

func formatReport(w io.Writer, r *types.RunReport) {
	fmt.Fprintf(w, "run:      %s\n", r.ID)
	fmt.Fprintf(w, "started:  %s\n", r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "provider: %s\n", r.Provider)
	fmt.Fprintf(w, "strategy: %s\n", r.Strategy)
	fmt.Fprintf(w, "steps:    %s\n", strings.Join(r.Steps, ", "))
	if r.Aborted {
		fmt.Fprintf(w, "aborted:  %s\n", r.Error)
	}
	fmt.Fprintln(w)

	for _, res := range r.Results {
		detail := res.OutputPath
		if res.Error != "" {
			detail = res.Error
		}
		fmt.Fprintf(w, "%3d  %-8s  %s\n", res.Index, res.Status, res.URL)
		if detail != "" {
			fmt.Fprintf(w, "     %s\n", detail)
		}
	}
}

func init() {
	historyCmd.Flags().Int("limit", history.DefaultLimit, "maximum number of runs to list")
	historyCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(historyCmd)
}
