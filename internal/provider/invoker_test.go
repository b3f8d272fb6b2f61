package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAIForServer(ts *httptest.Server) *OpenAI {
	return &OpenAI{APIKey: "sk-test", BaseURL: ts.URL, ModelName: "gpt-4o-mini"}
}

func TestInvoker_Complete(t *testing.T) {
	var gotBody wireRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(wireResponse{
			ID:      "chatcmpl-abc",
			Object:  "chat.completion",
			Created: 1700000000,
			Model:   "gpt-4o-mini",
			Choices: []wireChoice{{
				Index:        0,
				Message:      wireMessage{Role: "assistant", Content: "Hello!"},
				FinishReason: "stop",
			}},
			Usage: &wireUsage{PromptTokens: 9, CompletionTokens: 2, TotalTokens: 11},
		})
	}))
	defer ts.Close()

	iv := NewInvoker(openAIForServer(ts), 5*time.Second, testLogger())

	result, err := iv.Complete(context.Background(), "rendered prompt", 0.3, 512)
	require.NoError(t, err)

	assert.Equal(t, "chatcmpl-abc", result.ID)
	assert.Equal(t, int64(1700000000), result.Created)
	assert.Equal(t, "Hello!", result.Content)
	assert.Equal(t, "stop", result.FinishReason)
	assert.Equal(t, Usage{PromptTokens: 9, CompletionTokens: 2, TotalTokens: 11}, result.Usage)

	// The rendered prompt travels as a single user message
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "user", gotBody.Messages[0].Role)
	assert.Equal(t, "rendered prompt", gotBody.Messages[0].Content)
	assert.Equal(t, "gpt-4o-mini", gotBody.Model)
	assert.InDelta(t, 0.3, gotBody.Temperature, 1e-9)
	assert.Equal(t, 512, gotBody.MaxTokens)
}

func TestInvoker_EmptyChoicesIsFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wireResponse{ID: "chatcmpl-empty", Model: "gpt-4o-mini"})
	}))
	defer ts.Close()

	iv := NewInvoker(openAIForServer(ts), 5*time.Second, testLogger())

	_, err := iv.Complete(context.Background(), "prompt", 0.3, 512)
	require.Error(t, err)

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Contains(t, upstream.Error(), "empty or invalid response")
}

func TestInvoker_UpstreamHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited, retry later"}}`))
	}))
	defer ts.Close()

	iv := NewInvoker(openAIForServer(ts), 5*time.Second, testLogger())

	_, err := iv.Complete(context.Background(), "prompt", 0.3, 512)
	require.Error(t, err)

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	assert.Contains(t, upstream.Message, "rate limited")
	assert.NotErrorIs(t, err, ErrNotConfigured, "upstream failures are distinct from the unconfigured state")
}

func TestInvoker_UndecodableBodyIsFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer ts.Close()

	iv := NewInvoker(openAIForServer(ts), 5*time.Second, testLogger())

	_, err := iv.Complete(context.Background(), "prompt", 0.3, 512)
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
}

func TestInvoker_NetworkFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // immediately unreachable

	iv := NewInvoker(openAIForServer(ts), time.Second, testLogger())

	_, err := iv.Complete(context.Background(), "prompt", 0.3, 512)
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.NotNil(t, upstream.Unwrap())
}

func TestInvoker_FillsMissingIdentifiers(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wireResponse{
			Choices: []wireChoice{{Message: wireMessage{Role: "assistant", Content: "ok"}, FinishReason: "stop"}},
		})
	}))
	defer ts.Close()

	iv := NewInvoker(openAIForServer(ts), 5*time.Second, testLogger())

	result, err := iv.Complete(context.Background(), "prompt", 0.3, 512)
	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.NotZero(t, result.Created)
	assert.Equal(t, "gpt-4o-mini", result.Model, "falls back to the provider's model name")
}

func TestInvoker_AzureWiring(t *testing.T) {
	var gotPath, gotQuery, gotKey string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("api-key")
		json.NewEncoder(w).Encode(wireResponse{
			ID:      "chatcmpl-az",
			Choices: []wireChoice{{Message: wireMessage{Role: "assistant", Content: "ok"}, FinishReason: "stop"}},
		})
	}))
	defer ts.Close()

	prov := &Azure{
		Endpoint:   ts.URL,
		APIKey:     "azure-secret",
		APIVersion: "2024-02-15-preview",
		Deployment: "gpt-4o-mini",
	}
	iv := NewInvoker(prov, 5*time.Second, testLogger())

	_, err := iv.Complete(context.Background(), "prompt", 0.3, 512)
	require.NoError(t, err)
	assert.Equal(t, "/openai/deployments/gpt-4o-mini/chat/completions", gotPath)
	assert.Equal(t, "api-version=2024-02-15-preview", gotQuery)
	assert.Equal(t, "azure-secret", gotKey)
}
