// Package pipeline orchestrates one chat-completion request end to
// end: fingerprint, cache lookup, prompt render, provider check,
// completion call, cache store. Telemetry surrounds every stage and is
// finalized on every path; only the provider call is a correctness
// dependency.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/prodapt-cloud/Pioneer-Training/internal/cache"
	"github.com/prodapt-cloud/Pioneer-Training/internal/metrics"
	"github.com/prodapt-cloud/Pioneer-Training/internal/prompt"
	"github.com/prodapt-cloud/Pioneer-Training/internal/provider"
	"github.com/prodapt-cloud/Pioneer-Training/internal/telemetry"
	"github.com/prodapt-cloud/Pioneer-Training/pkg/types"
	"github.com/prodapt-cloud/Pioneer-Training/pkg/utils"
)

// ResponseCache is the cache capability the pipeline consumes
type ResponseCache interface {
	Lookup(ctx context.Context, key string) (*types.ChatCompletionResponse, bool)
	Store(ctx context.Context, key string, payload *types.ChatCompletionResponse)
}

// Renderer is the prompt-rendering capability the pipeline consumes
type Renderer interface {
	Render(vars prompt.Vars) (string, error)
	Source() string
}

// Completer executes one completion call against the resolved provider
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (*provider.Result, error)
}

// Pipeline holds the per-process collaborators. It keeps no mutable
// per-request state; all fields are safe for concurrent use.
type Pipeline struct {
	cache     ResponseCache
	renderer  Renderer
	prov      provider.Provider // nil when unconfigured
	configErr error             // resolution error kept for the 503 body
	completer Completer
	tel       *telemetry.Telemetry
	stats     *metrics.Collector
	logger    *utils.Logger
	maxTokens int
	now       func() time.Time
}

// New wires a pipeline. prov and completer are nil together when no
// provider could be resolved; configErr then explains why.
func New(
	responseCache ResponseCache,
	renderer Renderer,
	prov provider.Provider,
	configErr error,
	completer Completer,
	tel *telemetry.Telemetry,
	stats *metrics.Collector,
	logger *utils.Logger,
	maxTokens int,
) *Pipeline {
	return &Pipeline{
		cache:     responseCache,
		renderer:  renderer,
		prov:      prov,
		configErr: configErr,
		completer: completer,
		tel:       tel,
		stats:     stats,
		logger:    logger,
		maxTokens: maxTokens,
		now:       time.Now,
	}
}

// Provider exposes the resolved provider (nil when unconfigured)
func (p *Pipeline) Provider() provider.Provider {
	return p.prov
}

// Handle runs one request through the pipeline. Error returns are
// either the unconfigured sentinel (wrapping provider.ErrNotConfigured)
// or an upstream/render failure; cache and telemetry problems never
// surface here.
func (p *Pipeline) Handle(ctx context.Context, req *types.ChatCompletionRequest) (resp *types.ChatCompletionResponse, handleErr error) {
	start := p.now()
	dept := req.Department()

	rec := p.tel.StartRecord("chat-" + start.Format("20060102-150405"))
	defer func() { rec.Close(handleErr) }()

	if tid := telemetry.TraceID(ctx); tid != "" {
		rec.Param("trace_id", tid)
	}

	key := cache.DeriveKey(req.Messages, dept)

	var hit bool
	_ = p.tel.Span(ctx, "cache_lookup", func(ctx context.Context) error {
		resp, hit = p.cache.Lookup(ctx, key)
		trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("cache.hit", hit))
		return nil
	})
	if hit {
		p.logger.Info("Cache HIT", "department", dept)
		rec.Param("cache_hit", "true")
		rec.Param("department", dept)
		rec.Metric("response_time_ms", msSince(start, p.now))
		p.stats.RecordRequest(resp.Model, p.now().Sub(start), true, true, 0, 0)
		return resp, nil
	}

	var rendered string
	if err := p.tel.Span(ctx, "render_prompt", func(context.Context) error {
		var rerr error
		rendered, rerr = p.renderer.Render(prompt.Vars{
			CurrentDate:  p.now().Format("2006-01-02"),
			Department:   dept,
			UserQuestion: req.UserQuestion(),
		})
		return rerr
	}); err != nil {
		p.stats.RecordError("render")
		handleErr = fmt.Errorf("render prompt: %w", err)
		return nil, handleErr
	}

	if p.prov == nil {
		rec.Param("error", "LLM not configured")
		p.stats.RecordError("not_configured")
		handleErr = p.unconfigured()
		return nil, handleErr
	}

	rec.Param("provider", p.prov.Name())
	rec.Param("model", p.prov.Model())
	rec.Param("temperature", fmt.Sprintf("%g", req.Temperature))
	rec.Param("max_tokens", fmt.Sprintf("%d", p.maxTokens))
	rec.Param("department", dept)
	rec.Param("cache_hit", "false")
	rec.Tag("environment", "production")
	rec.Tag("department", dept)
	rec.Text("prompt_template.tmpl", p.renderer.Source())
	rec.Text("rendered_prompt.txt", rendered)
	rec.Text("user_message.txt", req.UserQuestion())

	// The completion call and everything after it survive a caller
	// disconnect so an opened experiment record cannot leak.
	callCtx := context.WithoutCancel(ctx)

	var result *provider.Result
	llmStart := p.now()
	if err := p.tel.Span(ctx, "llm_completion", func(ctx context.Context) error {
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.String("llm.provider", p.prov.Name()),
			attribute.String("llm.model", p.prov.Model()),
			attribute.Float64("llm.temperature", req.Temperature),
		)
		var cerr error
		result, cerr = p.completer.Complete(callCtx, rendered, req.Temperature, p.maxTokens)
		return cerr
	}); err != nil {
		p.logger.Error("LLM completion failed", "provider", p.prov.Name(), "department", dept, "error", err)
		p.stats.RecordError("upstream")
		p.stats.RecordRequest(p.prov.Model(), p.now().Sub(start), false, false, 0, 0)
		handleErr = err
		return nil, handleErr
	}

	rec.Metric("llm_latency_ms", msSince(llmStart, p.now))
	rec.Metric("total_response_time_ms", msSince(start, p.now))
	rec.Metric("prompt_tokens", float64(result.Usage.PromptTokens))
	rec.Metric("completion_tokens", float64(result.Usage.CompletionTokens))
	rec.Metric("total_tokens", float64(result.Usage.TotalTokens))
	rec.Text("response.txt", result.Content)

	resp = buildResponse(result)
	p.cache.Store(callCtx, key, resp)
	p.stats.RecordRequest(result.Model, p.now().Sub(start), false, true,
		result.Usage.PromptTokens, result.Usage.CompletionTokens)

	return resp, nil
}

// unconfigured wraps the retained resolution error so callers can test
// with errors.Is(err, provider.ErrNotConfigured).
func (p *Pipeline) unconfigured() error {
	if p.configErr != nil && errors.Is(p.configErr, provider.ErrNotConfigured) {
		return p.configErr
	}
	return provider.ErrNotConfigured
}

// buildResponse shapes a normalized result into the OpenAI-style body
func buildResponse(result *provider.Result) *types.ChatCompletionResponse {
	return &types.ChatCompletionResponse{
		ID:      result.ID,
		Object:  "chat.completion",
		Created: result.Created,
		Model:   result.Model,
		Choices: []types.ChatChoice{{
			Index:        0,
			Message:      types.ChatMessage{Role: "assistant", Content: result.Content},
			FinishReason: result.FinishReason,
		}},
		Usage: types.Usage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
			TotalTokens:      result.Usage.TotalTokens,
		},
	}
}

func msSince(since time.Time, now func() time.Time) float64 {
	return float64(now().Sub(since).Microseconds()) / 1000.0
}
