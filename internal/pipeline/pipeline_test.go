// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pagerefine/internal/chat"
	"github.com/pdiddy/pagerefine/internal/convert"
	"github.com/pdiddy/pagerefine/internal/fetch"
	"github.com/pdiddy/pagerefine/internal/httputil"
	"github.com/pdiddy/pagerefine/pkg/types"
)

const testPrefix = "2026-01-02_03-04-05"

// mockFetcher serves canned HTML per URL; URLs without an entry yield no content.
type mockFetcher struct {
	pages map[string]string
	calls []string
}

func (m *mockFetcher) FetchHTML(_ context.Context, url string) (string, bool) {
	m.calls = append(m.calls, url)
	html, ok := m.pages[url]
	return html, ok && html != ""
}

// identityConverter returns its input unchanged.
type identityConverter struct{}

func (identityConverter) Convert(html string) string { return html }

// recordingChat appends a marker per step so ordering is visible in the output.
type recordingChat struct {
	calls   int
	failOn  int // 1-based call that fails; 0 never fails
	prompts []string
}

func (r *recordingChat) Answer(_ context.Context, template, input string) (string, error) {
	r.calls++
	r.prompts = append(r.prompts, chat.Substitute(template, input))
	if r.failOn == r.calls {
		return "", &chat.ProviderError{Provider: types.ProviderOpenAI, StatusCode: 500, Err: errors.New("boom")}
	}
	return chat.Substitute(template, input), nil
}

func writeStep(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func newTestPipeline(t *testing.T, f PageFetcher, c chat.Service, keepGoing bool) (*Pipeline, string, string) {
	t.Helper()
	stepsDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "Output")
	p := New(f, identityConverter{}, c, Options{
		StepsDir:  stepsDir,
		OutputDir: outDir,
		KeepGoing: keepGoing,
		Provider:  types.ProviderOpenAI,
		Strategy:  types.StrategyHtml2Markdown,
	}, zerolog.Nop())
	p.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return p, stepsDir, outDir
}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRunAppliesStepsInOrder(t *testing.T) {
	f := &mockFetcher{pages: map[string]string{"https://example.com/a": "X"}}
	c := &recordingChat{}
	p, stepsDir, outDir := newTestPipeline(t, f, c, false)
	writeStep(t, stepsDir, "a.md", "{{INPUT}}A")
	writeStep(t, stepsDir, "b.md", "{{INPUT}}B")

	report, err := p.Run(context.Background(), testPrefix, []string{"https://example.com/a"}, []string{"a.md", "b.md"})
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	res := report.Results[0]
	assert.Equal(t, types.StatusWritten, res.Status)
	assert.Equal(t, filepath.Join(outDir, testPrefix+"_1_example-com-a.md"), res.OutputPath)
	assert.Equal(t, "XAB", readOutput(t, res.OutputPath))
	assert.Equal(t, []string{"XA", "XAB"}, c.prompts)
	assert.False(t, report.Aborted)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, []string{"a.md", "b.md"}, report.Steps)
}

func TestRunSkipsURLWithoutContent(t *testing.T) {
	f := &mockFetcher{pages: map[string]string{
		"https://ok.example.com/":    "fine",
		"https://empty.example.com/": "",
	}}
	c := &recordingChat{}
	p, stepsDir, outDir := newTestPipeline(t, f, c, false)
	writeStep(t, stepsDir, "s.md", "{{INPUT}}")

	urls := []string{"https://down.example.com/", "https://empty.example.com/", "https://ok.example.com/"}
	report, err := p.Run(context.Background(), testPrefix, urls, []string{"s.md"})
	require.NoError(t, err)

	assert.Equal(t, urls, f.calls)
	assert.Equal(t, 1, c.calls, "skipped URLs make no chat calls")
	assert.Equal(t, 2, report.Count(types.StatusSkipped))
	assert.Equal(t, 1, report.Count(types.StatusWritten))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, testPrefix+"_3_ok-example-com.md", entries[0].Name())
}

func TestRunValidatesBeforeNetwork(t *testing.T) {
	tests := []struct {
		name    string
		steps   map[string]string
		use     []string
		urls    []string
		wantErr string
	}{
		{
			name:    "missing placeholder",
			steps:   map[string]string{"a.md": "{{INPUT}}", "b.md": "no token here"},
			use:     []string{"a.md", "b.md"},
			urls:    []string{"https://example.com"},
			wantErr: "b.md",
		},
		{
			name:    "missing step file",
			steps:   map[string]string{"a.md": "{{INPUT}}"},
			use:     []string{"a.md", "gone.md"},
			urls:    []string{"https://example.com"},
			wantErr: "gone.md",
		},
		{
			name:    "relative url",
			steps:   map[string]string{"a.md": "{{INPUT}}"},
			use:     []string{"a.md"},
			urls:    []string{"https://example.com", "example.org/page"},
			wantErr: "example.org/page",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &mockFetcher{pages: map[string]string{"https://example.com": "x"}}
			c := &recordingChat{}
			p, stepsDir, outDir := newTestPipeline(t, f, c, false)
			for name, content := range tt.steps {
				writeStep(t, stepsDir, name, content)
			}

			report, err := p.Run(context.Background(), testPrefix, tt.urls, tt.use)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Nil(t, report)
			assert.Empty(t, f.calls)
			assert.Zero(t, c.calls)
			assert.NoDirExists(t, outDir)
		})
	}
}

func TestRunAbortsOnChatFailure(t *testing.T) {
	f := &mockFetcher{pages: map[string]string{
		"https://one.example.com": "1",
		"https://two.example.com": "2",
	}}
	c := &recordingChat{failOn: 1}
	p, stepsDir, outDir := newTestPipeline(t, f, c, false)
	writeStep(t, stepsDir, "s.md", "{{INPUT}}")

	report, err := p.Run(context.Background(), testPrefix, []string{"https://one.example.com", "https://two.example.com"}, []string{"s.md"})
	require.Error(t, err)

	var pe *chat.ProviderError
	assert.True(t, errors.As(err, &pe))
	require.NotNil(t, report)
	assert.True(t, report.Aborted)
	require.Len(t, report.Results, 1)
	assert.Equal(t, types.StatusFailed, report.Results[0].Status)
	assert.Equal(t, []string{"https://one.example.com"}, f.calls)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunKeepGoingContinuesAfterChatFailure(t *testing.T) {
	f := &mockFetcher{pages: map[string]string{
		"https://one.example.com": "1",
		"https://two.example.com": "2",
	}}
	c := &recordingChat{failOn: 1}
	p, stepsDir, _ := newTestPipeline(t, f, c, true)
	writeStep(t, stepsDir, "s.md", "{{INPUT}}")

	report, err := p.Run(context.Background(), testPrefix, []string{"https://one.example.com", "https://two.example.com"}, []string{"s.md"})
	require.NoError(t, err)
	assert.False(t, report.Aborted)
	assert.Equal(t, 1, report.Count(types.StatusFailed))
	assert.Equal(t, 1, report.Count(types.StatusWritten))
	assert.Equal(t, "2", readOutput(t, report.Results[1].OutputPath))
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	f := &mockFetcher{pages: map[string]string{"https://example.com": "x"}}
	c := &recordingChat{}
	p, stepsDir, _ := newTestPipeline(t, f, c, false)
	writeStep(t, stepsDir, "s.md", "{{INPUT}}")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := p.Run(ctx, testPrefix, []string{"https://example.com"}, []string{"s.md"})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.True(t, report.Aborted)
	assert.Empty(t, f.calls)
}

func TestRunEndToEndAnthropic(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<html><body><p>Hi</p></body></html>")
	}))
	defer page.Close()

	var got struct {
		Messages []chat.Message `json:"messages"`
	}
	var key string
	llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		key = r.Header.Get("x-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"content":[{"type":"text","text":"Hi there"}],"stop_reason":"end_turn"}`)
	}))
	defer llm.Close()

	cfg := types.Config{
		APIKeys:           map[types.ChatProvider]string{types.ProviderAnthropic: "sk-test"},
		MarkdownStrategy:  types.StrategyReverseMarkdown,
		ChatProvider:      types.ProviderAnthropic,
		MaxTokens:         4096,
		Temperature:       0.1,
		SystemInstruction: "You are an editor.",
		BaseURLs:          map[types.ChatProvider]string{types.ProviderAnthropic: llm.URL},
	}
	log := zerolog.Nop()
	svc, err := chat.New(cfg, httputil.NewClient(types.HTTPConfig{Timeout: 5 * time.Second}), log)
	require.NoError(t, err)

	stepsDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "Output")
	writeStep(t, stepsDir, "clean.md", "Clean: {{INPUT}}")

	p := New(fetch.New(types.HTTPConfig{}, log), convert.New(cfg.MarkdownStrategy, log), svc, Options{
		StepsDir:  stepsDir,
		OutputDir: outDir,
		Provider:  cfg.ChatProvider,
		Strategy:  cfg.MarkdownStrategy,
	}, log)

	report, err := p.Run(context.Background(), testPrefix, []string{page.URL + "/post"}, []string{"clean.md"})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	assert.Equal(t, "sk-test", key)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, chat.Message{Role: "user", Content: "You are an editor."}, got.Messages[0])
	assert.Equal(t, chat.Message{Role: "assistant", Content: chat.Acknowledgment}, got.Messages[1])
	assert.Equal(t, chat.Message{Role: "user", Content: "Clean: Hi"}, got.Messages[2])

	out := report.Results[0].OutputPath
	assert.True(t, strings.HasPrefix(filepath.Base(out), testPrefix+"_1_127-0-0-1-"))
	assert.Equal(t, "Hi there", readOutput(t, out))
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	report := &types.RunReport{
		ID:       "run-1",
		Prefix:   testPrefix,
		Provider: types.ProviderAnthropic,
		Steps:    []string{"a.md"},
		Results:  []types.URLResult{{Index: 1, URL: "https://example.com", Status: types.StatusSkipped}},
		Aborted:  true,
		Error:    "boom",
	}

	path, err := WriteManifest(dir, report)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, testPrefix+".run.yaml"), path)

	back, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, report.ID, back.ID)
	assert.Equal(t, report.Results, back.Results)
	assert.True(t, back.Aborted)
}
