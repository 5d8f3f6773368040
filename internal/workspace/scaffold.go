package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const sampleSettings = `OPENAI_API_KEY=
ANTHROPIC_API_KEY=
HTML2MARKDOWN_STRATEGY=ReverseMarkdown // ReverseMarkdown | Html2Markdown
CHAT_PROVIDER=anthropic // anthropic | openai
AI_MAX_TOKENS=4096 // 1000 or more
AI_TEMPERATURE=0.1 // 0.0 to 1.0, 0.0-0.4 works best
PROMPT_STEPS=clean_markdown.md // comma-separated files in PromptSteps/
`

const sampleSystemInstruction = `You are an editor who turns scraped web pages into clean, well-structured Markdown.
Reply with Markdown only.
`

const sampleStep = `Clean up the following Markdown converted from a web page. Remove navigation,
cookie banners, and footer text. Keep headings, lists, links, and code blocks.

{{INPUT}}
`

// Scaffold creates the workspace directories and sample files under l.Root.
// Existing files are left untouched. It returns the paths it created.
func Scaffold(l Layout) ([]string, error) {
	var created []string
	for _, dir := range []string{l.StepsDir(), l.OutputDir()} {
		if _, err := os.Stat(dir); err == nil {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return created, fmt.Errorf("creating %s: %w", dir, err)
		}
		created = append(created, dir)
	}

	files := []struct {
		path    string
		content string
	}{
		{l.Settings(), sampleSettings},
		{l.SystemInstruction(), sampleSystemInstruction},
		{l.InputURLs(), "# one absolute URL per line\n"},
		{filepath.Join(l.StepsDir(), "clean_markdown.md"), sampleStep},
	}
	for _, f := range files {
		if _, err := os.Stat(f.path); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return created, fmt.Errorf("checking %s: %w", f.path, err)
		}
		if err := os.WriteFile(f.path, []byte(f.content), 0o644); err != nil {
			return created, fmt.Errorf("writing %s: %w", f.path, err)
		}
		created = append(created, f.path)
	}
	return created, nil
}
