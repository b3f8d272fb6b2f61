package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/prodapt-cloud/Pioneer-Training/pkg/utils"
)

// UpstreamError is a failed call against the configured provider,
// after configuration succeeded. Distinguishable from ErrNotConfigured
// so the API layer can map the two to different status codes.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: upstream returned HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Result is a completion normalized away from provider specifics
type Result struct {
	ID           string
	Created      int64
	Model        string
	Content      string
	FinishReason string
	Usage        Usage
}

// Usage holds the provider-reported token counts
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Wire payloads for the OpenAI-compatible chat-completions protocol,
// kept separate from the domain types.

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type wireChoice struct {
	Index        int         `json:"index"`
	Message      wireMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type wireResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []wireChoice `json:"choices"`
	Usage   *wireUsage   `json:"usage"`
}

// Invoker executes exactly one completion call per request against its
// bound provider. No internal retry: retries are the caller's concern.
type Invoker struct {
	prov   Provider
	client *http.Client
	logger *utils.Logger
}

// NewInvoker binds an invoker to a resolved provider
func NewInvoker(prov Provider, timeout time.Duration, logger *utils.Logger) *Invoker {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Invoker{
		prov:   prov,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Complete sends the rendered prompt as a single user message and
// returns the normalized result. An empty or choice-less response body
// is a failure, never a success with null content.
func (iv *Invoker) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (*Result, error) {
	body, err := json.Marshal(wireRequest{
		Model:       iv.prov.Model(),
		Messages:    []wireMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, &UpstreamError{Provider: iv.prov.Name(), Message: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, iv.prov.CompletionURL(), bytes.NewReader(body))
	if err != nil {
		return nil, &UpstreamError{Provider: iv.prov.Name(), Message: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	iv.prov.Authenticate(req.Header)

	resp, err := iv.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Provider: iv.prov.Name(), Message: "completion call failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &UpstreamError{Provider: iv.prov.Name(), Message: "failed to read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{
			Provider:   iv.prov.Name(),
			StatusCode: resp.StatusCode,
			Message:    errorSnippet(raw),
		}
	}

	var wresp wireResponse
	if err := json.Unmarshal(raw, &wresp); err != nil {
		return nil, &UpstreamError{Provider: iv.prov.Name(), Message: "failed to decode response", Err: err}
	}

	if len(wresp.Choices) == 0 {
		return nil, &UpstreamError{Provider: iv.prov.Name(), Message: "received empty or invalid response from LLM provider"}
	}

	result := &Result{
		ID:           wresp.ID,
		Created:      wresp.Created,
		Model:        wresp.Model,
		Content:      wresp.Choices[0].Message.Content,
		FinishReason: wresp.Choices[0].FinishReason,
	}
	if result.ID == "" {
		result.ID = "chatcmpl-" + uuid.NewString()
	}
	if result.Created == 0 {
		result.Created = time.Now().Unix()
	}
	if result.Model == "" {
		result.Model = iv.prov.Model()
	}
	if wresp.Usage != nil {
		result.Usage = Usage{
			PromptTokens:     wresp.Usage.PromptTokens,
			CompletionTokens: wresp.Usage.CompletionTokens,
			TotalTokens:      wresp.Usage.TotalTokens,
		}
	}

	return result, nil
}

// errorSnippet extracts a short error description from an upstream
// error body, falling back to the raw body text.
func errorSnippet(raw []byte) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	const max = 200
	if len(raw) > max {
		raw = raw[:max]
	}
	return string(raw)
}
