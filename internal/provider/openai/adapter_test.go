package openai_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/voxrelay/internal/domain"
	"github.com/davidbz/voxrelay/internal/provider/openai"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *openai.Provider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := openai.NewProvider(openai.Config{
		APIKey:     "test-key",
		BaseURL:    server.URL + "/v1/",
		Timeout:    5,
		MaxRetries: 0,
	})
	require.NoError(t, err)

	return provider
}

func chatRequest() *domain.ChatRequest {
	return &domain.ChatRequest{
		Model: "openai/gpt-4o-mini",
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "be brief"},
			{Role: domain.RoleUser, Content: "hi"},
		},
		Options: domain.ChatOptions{"temperature": 0.7, "num_ctx": 4096},
	}
}

func TestNewProvider_Success(t *testing.T) {
	provider, err := openai.NewProvider(openai.Config{
		APIKey:     "test-api-key",
		BaseURL:    "https://openrouter.ai/api/v1",
		Timeout:    30,
		MaxRetries: 0,
	})

	require.NoError(t, err)
	require.NotNil(t, provider)
	require.Equal(t, "openai", provider.Name())
}

func TestNewProvider_MissingAPIKey(t *testing.T) {
	provider, err := openai.NewProvider(openai.Config{BaseURL: "https://openrouter.ai/api/v1"})

	require.Error(t, err)
	require.Nil(t, provider)
	require.Contains(t, err.Error(), "OpenAI API key is required")
}

func TestProvider_IsModelSupported(t *testing.T) {
	provider, err := openai.NewProvider(openai.Config{APIKey: "test-key"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		model     string
		supported bool
	}{
		{name: "hosted vendor model", model: "openai/gpt-4o-mini", supported: true},
		{name: "bare hosted model", model: "gpt-4", supported: true},
		{name: "tagged local model", model: "gemma3:4b", supported: false},
		{name: "llama family", model: "Llama3", supported: false},
		{name: "empty model", model: "", supported: false},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.supported, provider.IsModelSupported(ctx, tt.model))
		})
	}
}

func TestProvider_Complete(t *testing.T) {
	t.Run("should return upstream body verbatim", func(t *testing.T) {
		body := `{"id":"gen-1","object":"chat.completion","created":1,"model":"openai/gpt-4o-mini",` +
			`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Hi"}}],` +
			`"usage":{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4},"provider":"OpenAI"}`

		var got map[string]any
		provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/chat/completions", r.URL.Path)
			require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, body)
		})

		resp, err := provider.Complete(context.Background(), chatRequest())

		require.NoError(t, err)
		require.JSONEq(t, body, string(resp))
		require.Equal(t, "openai/gpt-4o-mini", got["model"])
		require.InDelta(t, 0.7, got["temperature"], 1e-9)
		require.NotContains(t, got, "num_ctx")
		require.Len(t, got["messages"], 2)
	})

	t.Run("should map status failures to upstream errors", func(t *testing.T) {
		provider := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":{"message":"bad key"}}`)
		})

		resp, err := provider.Complete(context.Background(), chatRequest())

		require.Nil(t, resp)
		var upstreamErr *domain.UpstreamError
		require.ErrorAs(t, err, &upstreamErr)
		require.Equal(t, http.StatusUnauthorized, upstreamErr.StatusCode)
	})

	t.Run("should reject nil request", func(t *testing.T) {
		provider, err := openai.NewProvider(openai.Config{APIKey: "test-key"})
		require.NoError(t, err)

		resp, err := provider.Complete(context.Background(), nil)

		require.Error(t, err)
		require.Nil(t, resp)
		require.Contains(t, err.Error(), "request cannot be nil")
	})
}

func TestProvider_Stream(t *testing.T) {
	t.Run("should stream deltas until finish", func(t *testing.T) {
		provider := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			for _, delta := range []string{"Hel", "lo"} {
				_, _ = fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"model\":\"m\","+
					"\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", delta)
			}
			_, _ = io.WriteString(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"model\":\"m\","+
				"\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
			_, _ = io.WriteString(w, "data: [DONE]\n\n")
		})

		chunks, err := provider.Stream(context.Background(), chatRequest())
		require.NoError(t, err)

		var builder strings.Builder
		var last domain.StreamChunk
		for chunk := range chunks {
			require.NoError(t, chunk.Error)
			builder.WriteString(chunk.Delta)
			last = chunk
		}

		require.Equal(t, "Hello", builder.String())
		require.True(t, last.Done)
	})

	t.Run("should deliver failures as an error chunk", func(t *testing.T) {
		provider := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, `{"error":{"message":"upstream down"}}`)
		})

		chunks, err := provider.Stream(context.Background(), chatRequest())
		require.NoError(t, err)

		var last domain.StreamChunk
		for chunk := range chunks {
			last = chunk
		}

		require.Error(t, last.Error)
		require.Contains(t, last.Error.Error(), "OpenAI stream error")
	})

	t.Run("should reject nil request", func(t *testing.T) {
		provider, err := openai.NewProvider(openai.Config{APIKey: "test-key"})
		require.NoError(t, err)

		chunks, err := provider.Stream(context.Background(), nil)

		require.Error(t, err)
		require.Nil(t, chunks)
	})
}

func TestProvider_Models(t *testing.T) {
	body := `{"data":[{"id":"openai/gpt-4o-mini","object":"model"}]}`
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	})

	resp, err := provider.Models(context.Background())

	require.NoError(t, err)
	require.JSONEq(t, body, string(resp))
}
