// Package steps loads and validates prompt step templates.
//
// A prompt step is a text file under the steps directory that contains the
// {{INPUT}} placeholder. All steps are validated before a run issues any
// network request; templates are re-read from disk when each step runs.
package steps

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/pagerefine/pkg/types"
)

var (
	// ErrStepNotFound is returned when a configured step file does not exist.
	ErrStepNotFound = errors.New("prompt step does not exist")

	// ErrMissingPlaceholder is returned when a step file lacks the placeholder.
	ErrMissingPlaceholder = fmt.Errorf("prompt step does not contain %q", types.Placeholder)

	// ErrInvalidName is returned for names that escape the steps directory.
	ErrInvalidName = errors.New("invalid prompt step name")
)

// Step is a validated prompt step file. Template holds the contents read
// during validation; runs re-read the file with Read before each call.
type Step struct {
	Name     string
	Path     string
	Template string
}

// Path returns the file path for step name under dir.
func Path(dir, name string) string {
	return filepath.Join(dir, name)
}

// Read returns the template text of step name under dir.
func Read(dir, name string) (string, error) {
	if name == "" || !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	path := Path(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s (path: %s)", ErrStepNotFound, name, path)
		}
		return "", fmt.Errorf("reading prompt step %s: %w", name, err)
	}
	return string(data), nil
}

// Validate checks that every named step exists under dir and contains the
// placeholder. It returns the steps in the given order, or the first failure.
func Validate(dir string, names []string) ([]Step, error) {
	if len(names) == 0 {
		return nil, errors.New("no prompt steps configured")
	}
	out := make([]Step, 0, len(names))
	for _, name := range names {
		tmpl, err := Read(dir, name)
		if err != nil {
			return nil, err
		}
		if !strings.Contains(tmpl, types.Placeholder) {
			return nil, fmt.Errorf("%w: %s", ErrMissingPlaceholder, name)
		}
		out = append(out, Step{Name: name, Path: Path(dir, name), Template: tmpl})
	}
	return out, nil
}
