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
	openAIBaseURL      = "https://api.openai.com/v1"
	DefaultOpenAIModel = "gpt-4o"
)

// OpenAI calls the OpenAI Chat Completions API. The system instruction is
// sent with the system role, followed by the acknowledgment.
type OpenAI struct {
	Settings
	Client *http.Client
	Log    zerolog.Logger
}

// NewOpenAI returns an OpenAI backend, defaulting the model.
func NewOpenAI(s Settings, client *http.Client, log zerolog.Logger) *OpenAI {
	if s.Model == "" {
		s.Model = DefaultOpenAIModel
	}
	return &OpenAI{Settings: s, Client: client, Log: log}
}

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type openAIResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// Answer substitutes input into template and returns the first choice's content.
func (o *OpenAI) Answer(ctx context.Context, template, input string) (string, error) {
	req := openAIRequest{
		Model:       o.Model,
		Messages:    Conversation("system", o.SystemInstruction, Substitute(template, input)),
		MaxTokens:   o.MaxTokens,
		Temperature: o.Temperature,
	}
	headers := map[string]string{"Authorization": "Bearer " + o.APIKey}

	url := trimBaseURL(o.BaseURL, openAIBaseURL) + "/chat/completions"
	body, err := postJSON(ctx, o.Client, url, headers, req)
	if err != nil {
		return "", providerError(o.Log, types.ProviderOpenAI, o.Model, err)
	}

	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", providerError(o.Log, types.ProviderOpenAI, o.Model, fmt.Errorf("decoding response: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", providerError(o.Log, types.ProviderOpenAI, o.Model, fmt.Errorf("no choices in response"))
	}

	choice := resp.Choices[0]
	o.Log.Debug().Str("finish_reason", choice.FinishReason).Int("chars", len(choice.Message.Content)).Msg("openai reply")
	return choice.Message.Content, nil
}
