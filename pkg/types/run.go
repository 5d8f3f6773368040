// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ResultStatus records what happened to one URL during a run.
type ResultStatus string

const (
	StatusWritten ResultStatus = "written"
	StatusSkipped ResultStatus = "skipped"
	StatusFailed  ResultStatus = "failed"
)

// URLResult is the outcome of processing a single input URL.
type URLResult struct {
	// Index is the 1-based position of the URL in the input file.
	Index int `json:"index" yaml:"index"`

	// URL is the page that was fetched.
	URL string `json:"url" yaml:"url"`

	// Status is written, skipped (fetch yielded no content), or failed (chat error).
	Status ResultStatus `json:"status" yaml:"status"`

	// OutputPath is the Markdown file written for this URL, if any.
	OutputPath string `json:"output_path,omitempty" yaml:"output_path,omitempty"`

	// Title is the first heading of the converted page, if one was found.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Error holds the failure message for failed URLs.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunReport summarizes one invocation of the pipeline. It is written to the
// run manifest and the history database and is never read back to skip work.
type RunReport struct {
	ID         string           `json:"id" yaml:"id"`
	Prefix     string           `json:"prefix" yaml:"prefix"`
	StartedAt  time.Time        `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time        `json:"finished_at" yaml:"finished_at"`
	Provider   ChatProvider     `json:"provider" yaml:"provider"`
	Strategy   MarkdownStrategy `json:"strategy" yaml:"strategy"`
	Steps      []string         `json:"steps" yaml:"steps"`
	Results    []URLResult      `json:"results" yaml:"results"`

	// Aborted is set when a hard failure stopped the run early.
	Aborted bool   `json:"aborted" yaml:"aborted"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Count returns the number of results with the given status.
func (r *RunReport) Count(status ResultStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}
