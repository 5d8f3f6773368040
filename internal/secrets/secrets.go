// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key
// name in kebab case and the file contents (trimmed) are the value.
//
// Supported key files: anthropic-api-key, openai-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Secrets maps kebab-case key file names to their trimmed contents.
type Secrets map[string]string

// Load reads all files in dir and returns their trimmed contents keyed by name.
// A missing directory is not an error; Load returns an empty set.
// Unreadable files are logged as warnings and skipped.
func Load(dir string, log zerolog.Logger) (Secrets, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	s := make(Secrets)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			s[name] = value
		}
	}

	return s, nil
}

// Lookup returns the secret for a settings key such as ANTHROPIC_API_KEY,
// which is stored in a file named anthropic-api-key.
func (s Secrets) Lookup(settingKey string) (string, bool) {
	v, ok := s[FileName(settingKey)]
	return v, ok
}

// FileName converts a settings key to its secret file name.
func FileName(settingKey string) string {
	return strings.ReplaceAll(strings.ToLower(settingKey), "_", "-")
}
