// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the fetch, convert, refine, write sequence for each
// input URL.
//
// URLs and prompt steps are processed strictly in order with one outstanding
// network request at a time. Fetch failures skip the URL; chat failures abort
// the run unless KeepGoing is set.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/pagerefine/internal/chat"
	"github.com/pdiddy/pagerefine/internal/convert"
	"github.com/pdiddy/pagerefine/internal/steps"
	"github.com/pdiddy/pagerefine/pkg/types"
)

// PrefixLayout formats the run start time into the output file prefix.
const PrefixLayout = "2006-01-02_15-04-05"

// PageFetcher returns a page's HTML, or ok == false when there is no content.
type PageFetcher interface {
	FetchHTML(ctx context.Context, url string) (html string, ok bool)
}

// Options configures a Pipeline.
type Options struct {
	// StepsDir holds the prompt step templates.
	StepsDir string

	// OutputDir receives one Markdown file per processed URL.
	OutputDir string

	// KeepGoing records a chat failure against its URL and continues with
	// the next URL instead of aborting the run.
	KeepGoing bool

	// Provider and Strategy are copied into the run report.
	Provider types.ChatProvider
	Strategy types.MarkdownStrategy
}

// Pipeline wires the fetcher, converter, and chat service together.
type Pipeline struct {
	fetcher   PageFetcher
	converter convert.Converter
	chat      chat.Service
	opts      Options
	log       zerolog.Logger
	now       func() time.Time
}

// New returns a Pipeline.
func New(f PageFetcher, c convert.Converter, s chat.Service, opts Options, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		fetcher:   f,
		converter: c,
		chat:      s,
		opts:      opts,
		log:       log,
		now:       time.Now,
	}
}

// Prefix returns the output file prefix for a run started at t.
func Prefix(t time.Time) string {
	return t.Format(PrefixLayout)
}

// Run processes urls through stepNames and writes results under OutputDir.
//
// Every step file and every URL is validated before the first request; a
// validation failure returns a nil report. Once processing starts the report
// is always returned, including after an abort, so the caller can persist
// partial results.
func (p *Pipeline) Run(ctx context.Context, prefix string, urls, stepNames []string) (*types.RunReport, error) {
	if _, err := steps.Validate(p.opts.StepsDir, stepNames); err != nil {
		return nil, err
	}
	if err := ValidateURLs(urls); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	report := &types.RunReport{
		ID:        uuid.NewString(),
		Prefix:    prefix,
		StartedAt: p.now(),
		Provider:  p.opts.Provider,
		Strategy:  p.opts.Strategy,
		Steps:     stepNames,
	}
	abort := func(err error) (*types.RunReport, error) {
		report.Aborted = true
		report.Error = err.Error()
		report.FinishedAt = p.now()
		return report, err
	}

	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}

		res, err := p.processURL(ctx, i+1, prefix, url, stepNames)
		report.Results = append(report.Results, res)
		if err == nil {
			continue
		}
		var pe *chat.ProviderError
		if p.opts.KeepGoing && errors.As(err, &pe) {
			p.log.Warn().Str("url", url).Msg("chat step failed, continuing with next URL")
			continue
		}
		return abort(err)
	}

	report.FinishedAt = p.now()
	return report, nil
}

// processURL runs one URL through the pipeline. The returned result is
// always populated; err is non-nil only for hard failures.
func (p *Pipeline) processURL(ctx context.Context, index int, prefix, url string, stepNames []string) (types.URLResult, error) {
	res := types.URLResult{Index: index, URL: url}
	log := p.log.With().Str("url", url).Int("index", index).Logger()

	log.Info().Msg("starting")
	html, ok := p.fetcher.FetchHTML(ctx, url)
	if !ok {
		log.Warn().Msg("no content, skipping")
		res.Status = types.StatusSkipped
		return res, nil
	}

	current := p.converter.Convert(html)
	res.Title = convert.Title(current)

	for _, name := range stepNames {
		log.Info().Str("step", name).Msg("executing step")
		tmpl, err := steps.Read(p.opts.StepsDir, name)
		if err != nil {
			res.Status = types.StatusFailed
			res.Error = err.Error()
			return res, err
		}
		reply, err := p.chat.Answer(ctx, tmpl, current)
		if err != nil {
			res.Status = types.StatusFailed
			res.Error = err.Error()
			return res, fmt.Errorf("step %s for %s: %w", name, url, err)
		}
		current = reply
	}

	path := filepath.Join(p.opts.OutputDir, OutputName(prefix, index, url))
	if err := os.WriteFile(path, []byte(current), 0o644); err != nil {
		res.Status = types.StatusFailed
		res.Error = err.Error()
		return res, fmt.Errorf("writing result for %s: %w", url, err)
	}

	log.Info().Str("output", path).Msg("finished")
	res.Status = types.StatusWritten
	res.OutputPath = path
	return res, nil
}
