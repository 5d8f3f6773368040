// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package settings loads the run configuration from a settings.txt file of
// KEY=VALUE lines, falling back to environment variables and, for API keys,
// to the secrets directory.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/pdiddy/pagerefine/internal/secrets"
	"github.com/pdiddy/pagerefine/pkg/types"
)

// Settings keys.
const (
	KeyOpenAIAPIKey     = "OPENAI_API_KEY"
	KeyAnthropicAPIKey  = "ANTHROPIC_API_KEY"
	KeyStrategy         = "HTML2MARKDOWN_STRATEGY"
	KeyChatProvider     = "CHAT_PROVIDER"
	KeyMaxTokens        = "AI_MAX_TOKENS"
	KeyTemperature      = "AI_TEMPERATURE"
	KeyPromptSteps      = "PROMPT_STEPS"
	KeyOpenAIModel      = "OPENAI_MODEL"
	KeyAnthropicModel   = "ANTHROPIC_MODEL"
	KeyOpenAIBaseURL    = "OPENAI_BASE_URL"
	KeyAnthropicBaseURL = "ANTHROPIC_BASE_URL"
)

const (
	// MinMaxTokens is the smallest accepted AI_MAX_TOKENS.
	MinMaxTokens = 1000
	// MaxTemperature is the largest accepted AI_TEMPERATURE.
	MaxTemperature = 1.0
)

// keyOrder fixes which failure is reported first when several keys are invalid.
var keyOrder = []string{
	KeyChatProvider,
	KeyStrategy,
	KeyOpenAIAPIKey,
	KeyAnthropicAPIKey,
	KeyPromptSteps,
	KeyMaxTokens,
	KeyTemperature,
}

// ErrSettingsNotFound is wrapped when the settings file does not exist.
var ErrSettingsNotFound = errors.New("settings file not found")

// ConfigurationError reports a missing settings file or an absent or
// invalid setting. Key is empty when the error is not tied to one setting.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return "configuration: " + e.Err.Error()
	}
	return fmt.Sprintf("configuration: %s %v", e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Options controls where Load reads settings from.
type Options struct {
	// Path is the settings file (usually ./settings.txt).
	Path string

	// Secrets supplies API keys absent from both the file and the environment.
	Secrets secrets.Secrets
}

// Load reads and validates the settings file. The returned Config has no
// SystemInstruction; the caller reads that from its own file.
func Load(opts Options) (types.Config, error) {
	data, err := os.ReadFile(opts.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.Config{}, &ConfigurationError{Err: fmt.Errorf("%w: %s", ErrSettingsNotFound, opts.Path)}
		}
		return types.Config{}, &ConfigurationError{Err: fmt.Errorf("reading %s: %w", opts.Path, err)}
	}

	src, err := newSource(data, opts.Secrets)
	if err != nil {
		return types.Config{}, &ConfigurationError{Err: fmt.Errorf("parsing %s: %w", opts.Path, err)}
	}
	return build(src)
}

// source resolves a key from the settings file, then the environment, then
// (API keys only) the secrets directory.
type source struct {
	file    *viper.Viper
	env     *viper.Viper
	secrets secrets.Secrets
}

func newSource(data []byte, s secrets.Secrets) (*source, error) {
	file := viper.New()
	file.SetConfigType("env")
	if err := file.ReadConfig(bytes.NewReader(Normalize(data))); err != nil {
		return nil, err
	}

	env := viper.New()
	env.AutomaticEnv()

	return &source{file: file, env: env, secrets: s}, nil
}

func (s *source) get(key string) string {
	if v := strings.TrimSpace(s.file.GetString(key)); v != "" {
		return v
	}
	return strings.TrimSpace(s.env.GetString(key))
}

func (s *source) apiKey(key string) string {
	if v := s.get(key); v != "" {
		return v
	}
	v, _ := s.secrets.Lookup(key)
	return v
}

// record holds raw setting values; json tags name the settings keys so
// validation errors are keyed the same way users write them.
type record struct {
	ChatProvider string `json:"CHAT_PROVIDER"`
	Strategy     string `json:"HTML2MARKDOWN_STRATEGY"`
	OpenAIKey    string `json:"OPENAI_API_KEY"`
	AnthropicKey string `json:"ANTHROPIC_API_KEY"`
	PromptSteps  string `json:"PROMPT_STEPS"`
	MaxTokens    string `json:"AI_MAX_TOKENS"`
	Temperature  string `json:"AI_TEMPERATURE"`
}

func (r record) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ChatProvider, validation.Required,
			validation.In(string(types.ProviderOpenAI), string(types.ProviderAnthropic))),
		validation.Field(&r.Strategy, validation.Required),
		validation.Field(&r.OpenAIKey,
			validation.When(r.ChatProvider == string(types.ProviderOpenAI), validation.Required)),
		validation.Field(&r.AnthropicKey,
			validation.When(r.ChatProvider == string(types.ProviderAnthropic), validation.Required)),
		validation.Field(&r.PromptSteps, validation.Required, validation.By(hasSteps)),
		validation.Field(&r.MaxTokens, validation.Required, validation.By(maxTokensRule)),
		validation.Field(&r.Temperature, validation.Required, validation.By(temperatureRule)),
	)
}

func hasSteps(value any) error {
	s, _ := value.(string)
	if len(SplitSteps(s)) == 0 {
		return validation.NewError("validation_no_steps", "must list at least one prompt step, e.g. clean_markdown.md,extract_wisdom.md")
	}
	return nil
}

func maxTokensRule(value any) error {
	s, _ := value.(string)
	n, err := parseMaxTokens(s)
	if err != nil {
		return validation.NewError("validation_not_integer", "must be a decimal integer")
	}
	return validation.Validate(n, validation.Min(MinMaxTokens))
}

// parseMaxTokens accepts base-10 digits only; cast would read "01000" as
// octal and "0x3e8" as hex.
func parseMaxTokens(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func temperatureRule(value any) error {
	s, _ := value.(string)
	f, err := cast.ToFloat64E(s)
	if err != nil {
		return validation.NewError("validation_not_number", "must be a number")
	}
	return validation.Validate(f, validation.Min(0.0), validation.Max(MaxTemperature))
}

func build(src *source) (types.Config, error) {
	rec := record{
		ChatProvider: strings.ToLower(src.get(KeyChatProvider)),
		Strategy:     src.get(KeyStrategy),
		OpenAIKey:    src.apiKey(KeyOpenAIAPIKey),
		AnthropicKey: src.apiKey(KeyAnthropicAPIKey),
		PromptSteps:  src.get(KeyPromptSteps),
		MaxTokens:    src.get(KeyMaxTokens),
		Temperature:  src.get(KeyTemperature),
	}
	if err := rec.Validate(); err != nil {
		return types.Config{}, firstError(err)
	}

	// Validate has already proven both values parse.
	maxTokens, _ := parseMaxTokens(rec.MaxTokens)
	temperature := cast.ToFloat64(rec.Temperature)

	cfg := types.Config{
		APIKeys: map[types.ChatProvider]string{
			types.ProviderOpenAI:    rec.OpenAIKey,
			types.ProviderAnthropic: rec.AnthropicKey,
		},
		MarkdownStrategy: types.MarkdownStrategy(rec.Strategy),
		ChatProvider:     types.ChatProvider(rec.ChatProvider),
		PromptSteps:      SplitSteps(rec.PromptSteps),
		MaxTokens:        maxTokens,
		Temperature:      temperature,
		Models:           map[types.ChatProvider]string{},
		BaseURLs:         map[types.ChatProvider]string{},
	}
	optional := []struct {
		key      string
		dst      map[types.ChatProvider]string
		provider types.ChatProvider
	}{
		{KeyOpenAIModel, cfg.Models, types.ProviderOpenAI},
		{KeyAnthropicModel, cfg.Models, types.ProviderAnthropic},
		{KeyOpenAIBaseURL, cfg.BaseURLs, types.ProviderOpenAI},
		{KeyAnthropicBaseURL, cfg.BaseURLs, types.ProviderAnthropic},
	}
	for _, o := range optional {
		if v := src.get(o.key); v != "" {
			o.dst[o.provider] = v
		}
	}
	return cfg, nil
}

// firstError converts ozzo validation errors into a ConfigurationError for
// the first failing key in keyOrder.
func firstError(err error) error {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return &ConfigurationError{Err: err}
	}
	for _, key := range keyOrder {
		if e, ok := errs[key]; ok && e != nil {
			return &ConfigurationError{Key: key, Err: e}
		}
	}
	return &ConfigurationError{Err: err}
}

// SplitSteps splits a comma-separated PROMPT_STEPS value, trimming entries
// and dropping empty ones.
func SplitSteps(s string) []string {
	var steps []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			steps = append(steps, p)
		}
	}
	return steps
}
