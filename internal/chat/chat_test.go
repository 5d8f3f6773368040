// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pagerefine/pkg/types"
)

func testSettings(baseURL string) Settings {
	return Settings{
		APIKey:            "test-key",
		BaseURL:           baseURL,
		MaxTokens:         4096,
		Temperature:       0.2,
		SystemInstruction: "You are a careful editor.",
	}
}

// captureServer records the last request body and replies with reply.
func captureServer(t *testing.T, status int, reply string, got *map[string]any, hdr *http.Header) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if got != nil {
			require.NoError(t, json.Unmarshal(body, got))
		}
		if hdr != nil {
			*hdr = r.Header.Clone()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(reply))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestSubstitute(t *testing.T) {
	assert.Equal(t, "Clean: Hi", Substitute("Clean: {{INPUT}}", "Hi"))
	assert.Equal(t, "a X b X", Substitute("a {{INPUT}} b {{INPUT}}", "X"))
	assert.Equal(t, "no token", Substitute("no token", "X"))
	assert.Equal(t, "{{INPUT}} literal", Substitute("{{INPUT}}", "{{INPUT}} literal"), "input is not re-expanded")
}

func TestConversation(t *testing.T) {
	msgs := Conversation("system", "Be brief.", "Clean: Hi")
	require.Len(t, msgs, 3)
	assert.Equal(t, Message{Role: "system", Content: "Be brief."}, msgs[0])
	assert.Equal(t, Message{Role: "assistant", Content: Acknowledgment}, msgs[1])
	assert.Equal(t, Message{Role: "user", Content: "Clean: Hi"}, msgs[2])

	msgs = Conversation("user", "  \n", "only")
	assert.Equal(t, []Message{{Role: "user", Content: "only"}}, msgs)
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := types.Config{
		ChatProvider: types.ProviderAnthropic,
		APIKeys:      map[types.ChatProvider]string{types.ProviderAnthropic: "a", types.ProviderOpenAI: "o"},
	}
	svc, err := New(cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	a, ok := svc.(*Anthropic)
	require.True(t, ok)
	assert.Equal(t, "a", a.APIKey)
	assert.Equal(t, DefaultAnthropicModel, a.Model)

	cfg.ChatProvider = types.ProviderOpenAI
	svc, err = New(cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	o, ok := svc.(*OpenAI)
	require.True(t, ok)
	assert.Equal(t, "o", o.APIKey)

	cfg.ChatProvider = "mistral"
	_, err = New(cfg, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestAnthropicAnswer(t *testing.T) {
	var got map[string]any
	var hdr http.Header
	ts := captureServer(t, http.StatusOK,
		`{"content":[{"type":"text","text":"Hi "},{"type":"text","text":"there"}],"stop_reason":"end_turn"}`,
		&got, &hdr)

	a := NewAnthropic(testSettings(ts.URL), ts.Client(), zerolog.Nop())
	reply, err := a.Answer(context.Background(), "Clean: {{INPUT}}", "Hi")
	require.NoError(t, err)
	assert.Equal(t, "Hi there", reply)

	assert.Equal(t, "test-key", hdr.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, hdr.Get("anthropic-version"))
	assert.Equal(t, DefaultAnthropicModel, got["model"])
	assert.EqualValues(t, 4096, got["max_tokens"])
	assert.InDelta(t, 0.2, got["temperature"], 1e-9)

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 3)
	assert.Equal(t, map[string]any{"role": "user", "content": "You are a careful editor."}, msgs[0])
	assert.Equal(t, map[string]any{"role": "assistant", "content": "Understood."}, msgs[1])
	assert.Equal(t, map[string]any{"role": "user", "content": "Clean: Hi"}, msgs[2])
}

func TestOpenAIAnswer(t *testing.T) {
	var got map[string]any
	var hdr http.Header
	ts := captureServer(t, http.StatusOK,
		`{"choices":[{"message":{"role":"assistant","content":"Refined."},"finish_reason":"stop"}]}`,
		&got, &hdr)

	s := testSettings(ts.URL)
	s.Model = "gpt-test"
	o := NewOpenAI(s, ts.Client(), zerolog.Nop())
	reply, err := o.Answer(context.Background(), "Refine:\n{{INPUT}}", "draft")
	require.NoError(t, err)
	assert.Equal(t, "Refined.", reply)

	assert.Equal(t, "Bearer test-key", hdr.Get("Authorization"))
	assert.Equal(t, "gpt-test", got["model"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "Refine:\ndraft", msgs[2].(map[string]any)["content"])
}

func TestAnswerProviderErrors(t *testing.T) {
	tests := []struct {
		name       string
		provider   types.ChatProvider
		status     int
		reply      string
		wantStatus int
	}{
		{"anthropic unauthorized", types.ProviderAnthropic, http.StatusUnauthorized, `{"error":{"type":"authentication_error"}}`, 401},
		{"anthropic rate limited", types.ProviderAnthropic, http.StatusTooManyRequests, `{}`, 429},
		{"anthropic bad json", types.ProviderAnthropic, http.StatusOK, `not json`, 0},
		{"anthropic no text", types.ProviderAnthropic, http.StatusOK, `{"content":[]}`, 0},
		{"openai server error", types.ProviderOpenAI, http.StatusInternalServerError, `oops`, 500},
		{"openai no choices", types.ProviderOpenAI, http.StatusOK, `{"choices":[]}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := captureServer(t, tt.status, tt.reply, nil, nil)
			var svc Service
			if tt.provider == types.ProviderAnthropic {
				svc = NewAnthropic(testSettings(ts.URL), ts.Client(), zerolog.Nop())
			} else {
				svc = NewOpenAI(testSettings(ts.URL), ts.Client(), zerolog.Nop())
			}

			_, err := svc.Answer(context.Background(), "{{INPUT}}", "x")
			require.Error(t, err)
			var pe *ProviderError
			require.True(t, errors.As(err, &pe), "want *ProviderError, got %T", err)
			assert.Equal(t, tt.provider, pe.Provider)
			assert.Equal(t, tt.wantStatus, pe.StatusCode)
		})
	}
}

func TestAnswerTransportError(t *testing.T) {
	a := NewAnthropic(testSettings("http://127.0.0.1:1"), nil, zerolog.Nop())
	_, err := a.Answer(context.Background(), "{{INPUT}}", "x")
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Zero(t, pe.StatusCode)
}

func TestModelFor(t *testing.T) {
	cfg := types.Config{ChatProvider: types.ProviderOpenAI}
	assert.Equal(t, DefaultOpenAIModel, ModelFor(cfg))

	cfg.ChatProvider = types.ProviderAnthropic
	assert.Equal(t, DefaultAnthropicModel, ModelFor(cfg))

	cfg.Models = map[types.ChatProvider]string{types.ProviderAnthropic: "claude-custom"}
	assert.Equal(t, "claude-custom", ModelFor(cfg))
}

func TestNewWarnsOnEmptySystemInstruction(t *testing.T) {
	cfg := types.Config{
		ChatProvider: types.ProviderOpenAI,
		APIKeys:      map[types.ChatProvider]string{types.ProviderOpenAI: "o"},
	}

	var buf bytes.Buffer
	_, err := New(cfg, nil, zerolog.New(&buf))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "system instruction is empty")

	buf.Reset()
	cfg.SystemInstruction = "Be brief."
	_, err = New(cfg, nil, zerolog.New(&buf))
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}
