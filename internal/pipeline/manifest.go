package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pagerefine/pkg/types"
)

// ManifestName is the run manifest file name for prefix.
func ManifestName(prefix string) string {
	return prefix + ".run.yaml"
}

// WriteManifest writes report as YAML to dir and returns the file path.
func WriteManifest(dir string, report *types.RunReport) (string, error) {
	data, err := yaml.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	path := filepath.Join(dir, ManifestName(report.Prefix))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing manifest: %w", err)
	}
	return path, nil
}

// ReadManifest loads a run manifest written by WriteManifest.
func ReadManifest(path string) (*types.RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var report types.RunReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &report, nil
}
