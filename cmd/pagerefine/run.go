// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pagerefine/internal/chat"
	"github.com/pdiddy/pagerefine/internal/convert"
	"github.com/pdiddy/pagerefine/internal/fetch"
	"github.com/pdiddy/pagerefine/internal/history"
	"github.com/pdiddy/pagerefine/internal/httputil"
	"github.com/pdiddy/pagerefine/internal/pipeline"
	"github.com/pdiddy/pagerefine/internal/settings"
	"github.com/pdiddy/pagerefine/internal/workspace"
	"github.com/pdiddy/pagerefine/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every URL in input_urls.txt through the prompt steps",
	Long: `Run loads settings.txt, validates every prompt step and input URL, then
processes the URLs one at a time: fetch the page, convert it to Markdown, send
it through each prompt step in order, and write the final reply to Output/.

Pages that cannot be fetched are skipped. A chat failure stops the run unless
--keep-going is set. A YAML manifest of the run is written next to the output
files and the run is recorded in Output/history.db.`,
	RunE: runRun,
}

// runInputs is everything a run needs from the workspace, loaded and
// validated before any network request.
type runInputs struct {
	layout workspace.Layout
	cfg    types.Config
	urls   []string
}

// loadRunInputs reads settings, the system instruction, and the URL list.
func loadRunInputs() (*runInputs, error) {
	l := layout()

	cfg, err := settings.Load(settings.Options{Path: settingsPath(), Secrets: loadedSecrets})
	if err != nil {
		return nil, err
	}
	if err := workspace.RequireFiles(l.SystemInstruction(), l.InputURLs()); err != nil {
		return nil, err
	}

	cfg.SystemInstruction, err = workspace.ReadSystemInstruction(l.SystemInstruction())
	if err != nil {
		return nil, err
	}
	urls, err := workspace.ReadURLs(l.InputURLs())
	if err != nil {
		return nil, err
	}
	return &runInputs{layout: l, cfg: cfg, urls: urls}, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	in, err := loadRunInputs()
	if err != nil {
		return err
	}

	chatTimeout := viper.GetDuration("chat-timeout")
	svc, err := chat.New(in.cfg, httputil.NewClient(types.HTTPConfig{Timeout: chatTimeout}), logger)
	if err != nil {
		return err
	}

	p := pipeline.New(
		fetch.New(types.HTTPConfig{Timeout: viper.GetDuration("fetch-timeout")}, logger),
		convert.New(in.cfg.MarkdownStrategy, logger),
		svc,
		pipeline.Options{
			StepsDir:  in.layout.StepsDir(),
			OutputDir: in.layout.OutputDir(),
			KeepGoing: viper.GetBool("keep-going"),
			Provider:  in.cfg.ChatProvider,
			Strategy:  in.cfg.MarkdownStrategy,
		},
		logger,
	)

	prefix := pipeline.Prefix(time.Now())
	logger.Info().
		Str("provider", string(in.cfg.ChatProvider)).
		Str("strategy", string(in.cfg.MarkdownStrategy)).
		Int("urls", len(in.urls)).
		Int("steps", len(in.cfg.PromptSteps)).
		Msg("starting run")

	report, runErr := p.Run(cmd.Context(), prefix, in.urls, in.cfg.PromptSteps)
	if report == nil {
		return runErr
	}

	recordRun(in.layout, report)

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\nrun %s\nwritten: %d, skipped: %d, failed: %d\n",
		report.ID, report.Count(types.StatusWritten), report.Count(types.StatusSkipped), report.Count(types.StatusFailed))
	return runErr
}

// recordRun writes the manifest and history entry for report. Failures are
// logged and do not change the run's outcome.
func recordRun(l workspace.Layout, report *types.RunReport) {
	if path, err := pipeline.WriteManifest(l.OutputDir(), report); err != nil {
		logger.Warn().Err(err).Msg("writing run manifest")
	} else {
		logger.Debug().Str("path", path).Msg("wrote run manifest")
	}

	if viper.GetBool("no-history") {
		return
	}
	store, err := history.NewStore(l.HistoryDB())
	if err != nil {
		logger.Warn().Err(err).Msg("opening history database")
		return
	}
	defer store.Close()
	// The run context may already be canceled; history is still recorded.
	if err := store.SaveReport(context.Background(), report); err != nil {
		logger.Warn().Err(err).Msg("recording run history")
	}
}

func init() {
	runCmd.Flags().Bool("keep-going", false, "record chat failures and continue with the next URL")
	runCmd.Flags().Bool("no-history", false, "do not record the run in Output/history.db")
	runCmd.Flags().Duration("fetch-timeout", fetch.DefaultTimeout, "timeout for each page download; runs use 30s, override only when debugging")
	runCmd.Flags().MarkHidden("fetch-timeout")
	runCmd.Flags().Duration("chat-timeout", 5*time.Minute, "timeout for each chat request (0 for none)")

	for _, name := range []string{"keep-going", "no-history", "fetch-timeout", "chat-timeout"} {
		viper.BindPFlag(name, runCmd.Flags().Lookup(name))
	}

	rootCmd.AddCommand(runCmd)
}
