// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package chat runs one prompt step against an LLM vendor: it substitutes
// the running text into the step template, seeds the conversation with the
// system instruction and an acknowledgment, and returns the reply text.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pagerefine/internal/httputil"
	"github.com/pdiddy/pagerefine/pkg/types"
)

// Acknowledgment is the assistant turn that follows the system instruction.
const Acknowledgment = "Understood."

// Service answers one prompt step. The implementation is selected once at
// startup from CHAT_PROVIDER.
type Service interface {
	Answer(ctx context.Context, template, input string) (string, error)
}

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ProviderError reports a transport, authentication, rate-limit, or decoding
// failure from the LLM vendor. StatusCode is 0 when no response was received.
type ProviderError struct {
	Provider   types.ChatProvider
	Model      string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s chat (%s): %v", e.Provider, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Settings holds what every backend needs for a call.
type Settings struct {
	APIKey            string
	Model             string
	BaseURL           string
	MaxTokens         int
	Temperature       float64
	SystemInstruction string
}

// SettingsFrom extracts the active provider's settings from cfg.
func SettingsFrom(cfg types.Config) Settings {
	return Settings{
		APIKey:            cfg.APIKey(),
		Model:             cfg.Model(),
		BaseURL:           cfg.BaseURL(),
		MaxTokens:         cfg.MaxTokens,
		Temperature:       cfg.Temperature,
		SystemInstruction: cfg.SystemInstruction,
	}
}

// New returns the backend for cfg.ChatProvider. A nil client means
// http.DefaultClient.
func New(cfg types.Config, client *http.Client, log zerolog.Logger) (Service, error) {
	s := SettingsFrom(cfg)
	if strings.TrimSpace(s.SystemInstruction) == "" {
		log.Warn().Msg("system instruction is empty; prompts are sent without the seeded system turn and acknowledgment")
	}
	switch cfg.ChatProvider {
	case types.ProviderAnthropic:
		return NewAnthropic(s, client, log), nil
	case types.ProviderOpenAI:
		return NewOpenAI(s, client, log), nil
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cfg.ChatProvider)
	}
}

// ModelFor returns the model cfg selects for its provider, or the
// provider's default when none is configured.
func ModelFor(cfg types.Config) string {
	if m := cfg.Model(); m != "" {
		return m
	}
	switch cfg.ChatProvider {
	case types.ProviderAnthropic:
		return DefaultAnthropicModel
	case types.ProviderOpenAI:
		return DefaultOpenAIModel
	}
	return ""
}

// Substitute replaces every placeholder in template with input.
func Substitute(template, input string) string {
	return strings.ReplaceAll(template, types.Placeholder, input)
}

// Conversation builds the seeded conversation: the system instruction under
// systemRole, the acknowledgment, then the user message. An empty system
// instruction yields just the user message: both vendors reject a message
// with empty content, and the acknowledgment would then answer nothing.
func Conversation(systemRole, systemInstruction, message string) []Message {
	if strings.TrimSpace(systemInstruction) == "" {
		return []Message{{Role: "user", Content: message}}
	}
	return []Message{
		{Role: systemRole, Content: systemInstruction},
		{Role: "assistant", Content: Acknowledgment},
		{Role: "user", Content: message},
	}
}

// postJSON sends payload to url and returns the response body. Non-2xx
// responses are returned as *httputil.StatusError.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any) ([]byte, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", url, err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return nil, err
	}
	return httputil.ReadBody(resp, 0)
}

// providerError wraps err, copying the HTTP status when there is one, and
// logs it with the call's context.
func providerError(log zerolog.Logger, provider types.ChatProvider, model string, err error) error {
	pe := &ProviderError{Provider: provider, Model: model, Err: err}
	var se *httputil.StatusError
	if errors.As(err, &se) {
		pe.StatusCode = se.StatusCode
	}
	log.Error().Err(err).
		Str("provider", string(provider)).
		Str("model", model).
		Int("status", pe.StatusCode).
		Msg("error fetching chat reply")
	return pe
}

func trimBaseURL(base, fallback string) string {
	if base == "" {
		base = fallback
	}
	return strings.TrimSuffix(base, "/")
}
