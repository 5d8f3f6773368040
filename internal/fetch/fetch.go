// Package fetch retrieves HTML pages for the pipeline.
//
// Fetch failures are soft: FetchHTML logs them and reports "no content" so
// one bad URL never aborts a batch.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pagerefine/internal/httputil"
	"github.com/pdiddy/pagerefine/pkg/types"
)

const (
	// DefaultTimeout is the fixed per-request timeout.
	DefaultTimeout   = 30 * time.Second
	defaultUserAgent = "pagerefine/0.1"
	acceptHTML       = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// Fetcher issues bounded-timeout GET requests.
type Fetcher struct {
	client    *http.Client
	userAgent string
	log       zerolog.Logger
}

// New returns a Fetcher. Zero fields in cfg take the defaults (30s timeout,
// pagerefine User-Agent).
func New(cfg types.HTTPConfig, log zerolog.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Fetcher{
		client:    httputil.NewClient(cfg),
		userAgent: cfg.UserAgent,
		log:       log,
	}
}

// Fetch returns the body of url as text. Transport errors and non-2xx
// statuses are returned as errors.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHTML)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return "", err
	}

	body, err := httputil.ReadBody(resp, 0)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchHTML is Fetch with the soft-failure policy applied: any error or an
// empty body is logged and reported as ok == false.
func (f *Fetcher) FetchHTML(ctx context.Context, url string) (string, bool) {
	html, err := f.Fetch(ctx, url)
	if err != nil {
		f.log.Error().Err(err).Str("url", url).Msg("error fetching HTML")
		return "", false
	}
	if html == "" {
		f.log.Warn().Str("url", url).Msg("page returned no content")
		return "", false
	}
	return html, true
}
