package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "sk-test-invalid-key-12345xyz"

// unauthorizedServer rejects every request the way the vendor APIs do for a bad key.
func unauthorizedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"invalid api key","type":"authentication_error","code":401,"status":"UNAUTHENTICATED"}}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestErrorsDoNotLeakAPIKey verifies failed calls never echo the credential.
func TestErrorsDoNotLeakAPIKey(t *testing.T) {
	srv := unauthorizedServer(t)

	for _, backend := range ProviderTypes {
		t.Run(backend.String(), func(t *testing.T) {
			provider, err := NewProviderBuilder(backend).BaseURL(srv.URL).MaxTokens(100).APIKey(testKey)
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_, err = provider.Chat(ctx, []ChatMessage{UserMessage("test")})
			require.Error(t, err)

			errStr := err.Error()
			assert.NotContains(t, errStr, testKey)
			assert.NotContains(t, errStr, "Authorization:")
			assert.NotContains(t, strings.ToLower(errStr), "x-api-key:")
			assert.NotContains(t, errStr, "x-goog-api-key:")
		})
	}
}

func TestBuilderRequiresCredential(t *testing.T) {
	_, err := ProviderGemini.APIKey("  ")
	assert.True(t, errors.Is(err, ErrMissingCredential))
}

func TestBuilderDefaults(t *testing.T) {
	p, err := ProviderGrok.APIKey("xai-key")
	require.NoError(t, err)
	assert.Equal(t, "grok", p.Name())
	assert.Equal(t, ModelGrok41Fast, p.Model())

	p, err = ProviderOpenAI.Model(ModelOpenAIGPT4o).APIKey("sk-key")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, ModelOpenAIGPT4o, p.Model())
}

func TestParseProviderType(t *testing.T) {
	cases := map[string]ProviderType{
		"gemini":    ProviderGemini,
		"Google":    ProviderGemini,
		"OPENAI":    ProviderOpenAI,
		"grok":      ProviderGrok,
		"xai":       ProviderGrok,
		"claude":    ProviderAnthropic,
		"anthropic": ProviderAnthropic,
	}
	for in, want := range cases {
		got, err := ParseProviderType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseProviderType("llama")
	assert.Error(t, err)
}

func TestProviderTypeMetadata(t *testing.T) {
	assert.Equal(t, "Grok", ProviderGrok.DisplayName())
	assert.Equal(t, "GROK_API_KEY", ProviderGrok.EnvVar())
	assert.Equal(t, float32(1.0), ProviderOpenAI.DefaultTemperature())
	assert.Equal(t, float32(0.8), ProviderGrok.DefaultTemperature())
	assert.Equal(t, float32(0.7), ProviderGemini.DefaultTemperature())
}

// TestOpenAIToolRoundTrip checks tool calls decode and tool results encode
// against an OpenAI-compatible endpoint.
func TestOpenAIToolRoundTrip(t *testing.T) {
	var captured struct {
		Messages []struct {
			Role       string `json:"role"`
			Content    string `json:"content"`
			ToolCallID string `json:"tool_call_id"`
			ToolCalls  []struct {
				ID string `json:"id"`
			} `json:"tool_calls"`
		} `json:"messages"`
		Tools []struct {
			Function struct {
				Name string `json:"name"`
			} `json:"function"`
		} `json:"tools"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_2",
						"type": "function",
						"function": {"name": "search_web", "arguments": "{\"query\":\"go generics\"}"}
					}]
				}
			}],
			"usage": {"prompt_tokens": 11, "completion_tokens": 7, "total_tokens": 18}
		}`)
	}))
	defer srv.Close()

	provider, err := ProviderGrok.Model("grok-test").BaseURL(srv.URL).APIKey("xai-key")
	require.NoError(t, err)

	transcript := []ChatMessage{
		SystemMessage("You are a researcher."),
		UserMessage("find things"),
		AssistantMessage("", ToolCall{ID: "call_1", Name: "search_web", Arguments: json.RawMessage(`{"query":"go"}`)}),
		ToolMessage("call_1", "search_web", "1. Go\n   URL: https://go.dev\n   The Go language\n"),
	}
	defs := []ToolDefinition{{
		Name:        "search_web",
		Description: "Search the web",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{"query": map[string]any{"type": "string"}}},
	}}

	resp, err := provider.ChatWithTools(context.Background(), transcript, defs)
	require.NoError(t, err)

	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_2", resp.ToolCalls[0].ID)
	assert.Equal(t, "search_web", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"query":"go generics"}`, string(resp.ToolCalls[0].Arguments))
	require.NotNil(t, resp.Usage)
	assert.Equal(t, uint32(18), resp.Usage.TotalTokens)

	require.Len(t, captured.Messages, 4)
	assert.Equal(t, "call_1", captured.Messages[2].ToolCalls[0].ID)
	assert.Equal(t, "tool", captured.Messages[3].Role)
	assert.Equal(t, "call_1", captured.Messages[3].ToolCallID)
	require.Len(t, captured.Tools, 1)
	assert.Equal(t, "search_web", captured.Tools[0].Function.Name)
}

func TestAnthropicFoldsConsecutiveToolResults(t *testing.T) {
	messages := []ChatMessage{
		SystemMessage("sys"),
		UserMessage("question"),
		AssistantMessage("",
			ToolCall{ID: "a", Name: "search_web", Arguments: json.RawMessage(`{"query":"x"}`)},
			ToolCall{ID: "b", Name: "scrape_webpage", Arguments: json.RawMessage(`{"url":"https://x.dev"}`)},
		),
		ToolMessage("a", "search_web", "results"),
		ToolMessage("b", "scrape_webpage", "page"),
		UserMessage("now answer"),
	}

	out, system := convertToAnthropicMessages(messages)
	assert.Equal(t, "sys", system)
	require.Len(t, out, 4)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, out[1].Role)
	assert.Len(t, out[1].Content, 2)
	assert.Equal(t, anthropic.MessageParamRoleUser, out[2].Role)
	assert.Len(t, out[2].Content, 2)
	assert.Equal(t, anthropic.MessageParamRoleUser, out[3].Role)
}

func TestGeminiSchemaConversion(t *testing.T) {
	schema := convertToGeminiSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query":       map[string]any{"type": "string", "description": "search text"},
			"max_results": map[string]any{"type": "integer"},
			"tags":        map[string]any{"type": "array"},
		},
		"required": []string{"query"},
	})

	assert.Equal(t, []string{"query"}, schema.Required)
	require.Contains(t, schema.Properties, "query")
	assert.Equal(t, "search text", schema.Properties["query"].Description)
	require.Contains(t, schema.Properties, "tags")
	assert.NotNil(t, schema.Properties["tags"].Items)
}

func TestGeminiToolMessagesKeyedByName(t *testing.T) {
	contents, system := convertToGeminiMessages([]ChatMessage{
		SystemMessage("sys"),
		UserMessage("q"),
		ToolMessage("search_web-0", "search_web", "output"),
	})
	assert.Equal(t, "sys", system)
	require.Len(t, contents, 2)
	fr := contents[1].Parts[0].FunctionResponse
	require.NotNil(t, fr)
	assert.Equal(t, "search_web", fr.Name)
	assert.Equal(t, "output", fr.Response["result"])
}
