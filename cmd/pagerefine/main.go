// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pagerefine CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pagerefine/internal/logging"
	"github.com/pdiddy/pagerefine/internal/secrets"
	"github.com/pdiddy/pagerefine/internal/workspace"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// logger is configured from --log-level before any subcommand runs.
	logger = zerolog.Nop()

	// loadedSecrets holds API keys loaded from the secrets directory at startup.
	loadedSecrets secrets.Secrets
)

// rootCmd is the base command for the pagerefine CLI.
var rootCmd = &cobra.Command{
	Use:   "pagerefine",
	Short: "Fetch web pages, convert them to Markdown, and refine them with an LLM",
	Long: `pagerefine reads a list of URLs, downloads each page, converts the HTML to
Markdown, and passes the text through a chain of prompt steps sent to a chat
model (OpenAI or Anthropic). The final reply for each URL is written to a
Markdown file under Output/.

A workspace holds settings.txt, system_instructions.md, input_urls.txt, and the
PromptSteps/ directory. Run "pagerefine init" to create one.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log, err := logging.New(cmd.ErrOrStderr(), viper.GetString("log-level"))
		if err != nil {
			return err
		}
		logger = log

		s, err := secrets.Load(secretsDir(), logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: <dir>/pagerefine.yaml or ~/.config/pagerefine/config.yaml)")
	pf.String("dir", ".", "workspace directory")
	pf.String("settings", "", "settings file (default: <dir>/settings.txt)")
	pf.String("secrets-dir", "", "directory of API key files (default: <dir>/.secrets)")
	pf.String("log-level", "info", "log level: debug, info, warn, or error")

	for _, name := range []string{"dir", "settings", "secrets-dir", "log-level"} {
		viper.BindPFlag(name, pf.Lookup(name))
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pagerefine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(viper.GetString("dir"))

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pagerefine"))
		}
	}

	viper.SetEnvPrefix("PAGEREFINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// layout returns the workspace rooted at --dir.
func layout() workspace.Layout {
	return workspace.New(viper.GetString("dir"))
}

func settingsPath() string {
	if p := viper.GetString("settings"); p != "" {
		return p
	}
	return layout().Settings()
}

func secretsDir() string {
	if d := viper.GetString("secrets-dir"); d != "" {
		return d
	}
	return layout().SecretsDir()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error().Err(err).Msg("pagerefine failed")
		if logger.GetLevel() == zerolog.Disabled {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}
