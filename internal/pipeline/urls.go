package pipeline

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidURL is returned for input lines that are not absolute URLs.
var ErrInvalidURL = errors.New("not a valid absolute URL")

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

const maxSlugLen = 80

// ValidateURL reports whether raw is a well-formed absolute URL with a
// scheme and a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}
	if !u.IsAbs() || u.Host == "" || strings.ContainsAny(raw, " \t") {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}

// ValidateURLs returns the first invalid URL's error, or an error if urls is empty.
func ValidateURLs(urls []string) error {
	if len(urls) == 0 {
		return errors.New("no input URLs")
	}
	for _, u := range urls {
		if err := ValidateURL(u); err != nil {
			return err
		}
	}
	return nil
}

// Slug turns a URL's host and path into a lowercase file-name fragment.
// Distinct URLs can share a slug; OutputName adds the input index.
func Slug(raw string) string {
	s := raw
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		s = u.Host + u.Path
	}
	s = strings.Trim(nonSlugRe.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	if s == "" {
		return "page"
	}
	return s
}

// OutputName is the result file name for the index-th URL of a run.
func OutputName(prefix string, index int, rawURL string) string {
	return fmt.Sprintf("%s_%d_%s.md", prefix, index, Slug(rawURL))
}
