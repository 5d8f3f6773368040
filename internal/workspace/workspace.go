// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workspace locates the files a run reads and writes, relative to a
// root directory (the current directory by default):
//
//	settings.txt            KEY=VALUE settings
//	system_instructions.md  system-context turn for every chat call
//	input_urls.txt          one absolute URL per line
//	PromptSteps/            prompt step templates
//	Output/                 Markdown results, run manifests, history.db
//	.secrets/               optional API key files
package workspace

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	SettingsFile          = "settings.txt"
	SystemInstructionFile = "system_instructions.md"
	InputURLsFile         = "input_urls.txt"
	StepsDirName          = "PromptSteps"
	OutputDirName         = "Output"
	SecretsDirName        = ".secrets"
	HistoryDBFile         = "history.db"
)

// ErrMissingFile is returned when a required workspace file does not exist.
var ErrMissingFile = errors.New("required file is missing")

// Layout resolves workspace paths under Root.
type Layout struct {
	Root string
}

// New returns the layout rooted at root ("" means ".").
func New(root string) Layout {
	if root == "" {
		root = "."
	}
	return Layout{Root: root}
}

func (l Layout) Settings() string          { return filepath.Join(l.Root, SettingsFile) }
func (l Layout) SystemInstruction() string { return filepath.Join(l.Root, SystemInstructionFile) }
func (l Layout) InputURLs() string         { return filepath.Join(l.Root, InputURLsFile) }
func (l Layout) StepsDir() string          { return filepath.Join(l.Root, StepsDirName) }
func (l Layout) OutputDir() string         { return filepath.Join(l.Root, OutputDirName) }
func (l Layout) SecretsDir() string        { return filepath.Join(l.Root, SecretsDirName) }
func (l Layout) HistoryDB() string         { return filepath.Join(l.OutputDir(), HistoryDBFile) }

// RequireFiles returns ErrMissingFile naming the first path that does not exist.
func RequireFiles(paths ...string) error {
	for _, p := range paths {
		info, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
			return fmt.Errorf("%w: %s (add it to the workspace directory)", ErrMissingFile, p)
		}
		if err != nil {
			return fmt.Errorf("checking %s: %w", p, err)
		}
	}
	return nil
}

// ReadSystemInstruction returns the full contents of the system instruction file.
func ReadSystemInstruction(path string) (string, error) {
	if err := RequireFiles(path); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading system instruction: %w", err)
	}
	return string(data), nil
}

// ReadURLs returns the non-blank lines of the input file, trimmed, in order.
// Lines starting with "#" are comments.
func ReadURLs(path string) ([]string, error) {
	if err := RequireFiles(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return urls, nil
}
