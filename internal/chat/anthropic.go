package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pagerefine/pkg/types"
)

const (
	anthropicBaseURL      = "https://api.anthropic.com"
	anthropicVersion      = "2023-06-01"
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"
)

// Anthropic calls the Anthropic Messages API. The system instruction is sent
// as the first user turn, followed by the acknowledgment.
type Anthropic struct {
	Settings
	Client *http.Client
	Log    zerolog.Logger
}

// NewAnthropic returns an Anthropic backend, defaulting the model.
func NewAnthropic(s Settings, client *http.Client, log zerolog.Logger) *Anthropic {
	if s.Model == "" {
		s.Model = DefaultAnthropicModel
	}
	return &Anthropic{Settings: s, Client: client, Log: log}
}

type anthropicRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Answer substitutes input into template and returns the model's text reply.
func (a *Anthropic) Answer(ctx context.Context, template, input string) (string, error) {
	req := anthropicRequest{
		Model:       a.Model,
		MaxTokens:   a.MaxTokens,
		Messages:    Conversation("user", a.SystemInstruction, Substitute(template, input)),
		Temperature: a.Temperature,
	}
	headers := map[string]string{
		"x-api-key":         a.APIKey,
		"anthropic-version": anthropicVersion,
	}

	url := trimBaseURL(a.BaseURL, anthropicBaseURL) + "/v1/messages"
	body, err := postJSON(ctx, a.Client, url, headers, req)
	if err != nil {
		return "", providerError(a.Log, types.ProviderAnthropic, a.Model, err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", providerError(a.Log, types.ProviderAnthropic, a.Model, fmt.Errorf("decoding response: %w", err))
	}

	var text string
	found := false
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
			found = true
		}
	}
	if !found {
		return "", providerError(a.Log, types.ProviderAnthropic, a.Model, fmt.Errorf("no text content in response"))
	}

	a.Log.Debug().Str("stop_reason", resp.StopReason).Int("chars", len(text)).Msg("anthropic reply")
	return text, nil
}
