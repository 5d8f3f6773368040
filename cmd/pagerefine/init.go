package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pagerefine/internal/workspace"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a workspace with sample settings and prompt step",
	Long: `Init creates PromptSteps/ and Output/ in the workspace directory and writes
sample settings.txt, system_instructions.md, input_urls.txt, and
PromptSteps/clean_markdown.md. Existing files are left unchanged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		created, err := workspace.Scaffold(layout())
		for _, path := range created {
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
		}
		if err != nil {
			return err
		}
		if len(created) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "workspace already initialized")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
