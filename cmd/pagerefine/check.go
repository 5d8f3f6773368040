package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pagerefine/internal/chat"
	"github.com/pdiddy/pagerefine/internal/pipeline"
	"github.com/pdiddy/pagerefine/internal/steps"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the workspace without making any network request",
	Long: `Check performs every validation "run" does before its first request:
settings.txt values and bounds, presence of system_instructions.md and
input_urls.txt, every prompt step file and its {{INPUT}} placeholder, and
every input URL.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := loadRunInputs()
		if err != nil {
			return err
		}
		validated, err := steps.Validate(in.layout.StepsDir(), in.cfg.PromptSteps)
		if err != nil {
			return err
		}
		if err := pipeline.ValidateURLs(in.urls); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "provider: %s (model %s)\n", in.cfg.ChatProvider, chat.ModelFor(in.cfg))
		fmt.Fprintf(w, "strategy: %s\n", in.cfg.MarkdownStrategy)
		for i, s := range validated {
			fmt.Fprintf(w, "step %d:   %s\n", i+1, s.Path)
		}
		fmt.Fprintf(w, "urls:     %d\n", len(in.urls))
		fmt.Fprintln(w, "ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
