package types

import "time"

// ChatProvider identifies the LLM vendor used for every prompt step in a run.
type ChatProvider string

const (
	ProviderOpenAI    ChatProvider = "openai"
	ProviderAnthropic ChatProvider = "anthropic"
)

// MarkdownStrategy selects the HTML-to-Markdown library. Any value other
// than StrategyReverseMarkdown selects the Html2Markdown converter.
type MarkdownStrategy string

const (
	StrategyReverseMarkdown MarkdownStrategy = "ReverseMarkdown"
	StrategyHtml2Markdown   MarkdownStrategy = "Html2Markdown"
)

// Placeholder is the literal token in a prompt step replaced by the running text.
const Placeholder = "{{INPUT}}"

// Config is the immutable run configuration loaded from settings.txt.
// It is built once at startup and passed by value to every component.
type Config struct {
	// APIKeys maps each provider to its API key. Only the active provider's
	// key is required.
	APIKeys map[ChatProvider]string `json:"-" yaml:"-"`

	// MarkdownStrategy selects the HTML-to-Markdown converter.
	MarkdownStrategy MarkdownStrategy `json:"markdown_strategy" yaml:"markdown_strategy"`

	// ChatProvider selects the LLM backend.
	ChatProvider ChatProvider `json:"chat_provider" yaml:"chat_provider"`

	// PromptSteps lists prompt step file names in execution order.
	PromptSteps []string `json:"prompt_steps" yaml:"prompt_steps"`

	// MaxTokens is the completion budget per chat call (>= 1000).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Temperature is the sampling temperature per chat call (0.0-1.0).
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// SystemInstruction seeds every conversation. Read from
	// system_instructions.md, not from the settings file.
	SystemInstruction string `json:"-" yaml:"-"`

	// Models optionally overrides the default model per provider.
	Models map[ChatProvider]string `json:"models,omitempty" yaml:"models,omitempty"`

	// BaseURLs optionally overrides the API base URL per provider.
	BaseURLs map[ChatProvider]string `json:"base_urls,omitempty" yaml:"base_urls,omitempty"`
}

// APIKey returns the key for the active provider.
func (c Config) APIKey() string {
	return c.APIKeys[c.ChatProvider]
}

// Model returns the configured model for the active provider, or "".
func (c Config) Model() string {
	return c.Models[c.ChatProvider]
}

// BaseURL returns the configured API base URL for the active provider, or "".
func (c Config) BaseURL() string {
	return c.BaseURLs[c.ChatProvider]
}

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "pagerefine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}
