// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns fetched HTML into Markdown with a pluggable library
// backend selected by HTML2MARKDOWN_STRATEGY.
//
// Conversion never fails: a library error or panic degrades to the page's
// visible text, so malformed pages produce partial output instead of aborting
// the run.
package convert

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pagerefine/pkg/types"
)

var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

// Converter transforms HTML into Markdown text.
type Converter interface {
	Convert(html string) string
}

// libraryFunc is a third-party HTML-to-Markdown entry point.
type libraryFunc func(html string) (string, error)

// LibraryConverter adapts a conversion library to the Converter contract.
type LibraryConverter struct {
	name    string
	library libraryFunc
	log     zerolog.Logger
}

// New returns the converter for strategy. StrategyReverseMarkdown selects
// html-to-markdown v1 with GitHub-flavored tables and strikethrough; any
// other value selects html-to-markdown v2.
func New(strategy types.MarkdownStrategy, log zerolog.Logger) *LibraryConverter {
	if strategy == types.StrategyReverseMarkdown {
		return &LibraryConverter{name: "ReverseMarkdown", library: reverseMarkdown(), log: log}
	}
	return &LibraryConverter{name: "Html2Markdown", library: html2Markdown, log: log}
}

// Name identifies the backend in logs and run reports.
func (c *LibraryConverter) Name() string {
	return c.name
}

// Convert returns best-effort Markdown for html.
func (c *LibraryConverter) Convert(html string) string {
	md, err := c.safeConvert(html)
	if err != nil {
		c.log.Warn().Err(err).Str("converter", c.name).Msg("conversion failed, falling back to plain text")
		return Clean(PlainText(html))
	}
	return Clean(md)
}

func (c *LibraryConverter) safeConvert(html string) (md string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", c.name, r)
		}
	}()
	return c.library(html)
}

// Clean collapses runs of more than three newlines, strips trailing
// whitespace from each line, and trims the result.
func Clean(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
