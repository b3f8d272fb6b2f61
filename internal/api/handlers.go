package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prodapt-cloud/Pioneer-Training/internal/cache"
	"github.com/prodapt-cloud/Pioneer-Training/internal/metrics"
	"github.com/prodapt-cloud/Pioneer-Training/internal/provider"
	"github.com/prodapt-cloud/Pioneer-Training/pkg/types"
	"github.com/prodapt-cloud/Pioneer-Training/pkg/utils"
)

// ChatService is the pipeline capability consumed by the chat handler
type ChatService interface {
	Handle(ctx context.Context, req *types.ChatCompletionRequest) (*types.ChatCompletionResponse, error)
}

// Handlers holds the endpoint implementations
type Handlers struct {
	service ChatService
	cache   *cache.ResponseCache
	prov    provider.Provider // nil when unconfigured
	stats   *metrics.Collector
	version string
	logger  *utils.Logger
}

// NewHandlers wires the endpoint handlers
func NewHandlers(
	service ChatService,
	responseCache *cache.ResponseCache,
	prov provider.Provider,
	stats *metrics.Collector,
	version string,
	logger *utils.Logger,
) *Handlers {
	return &Handlers{
		service: service,
		cache:   responseCache,
		prov:    prov,
		stats:   stats,
		version: version,
		logger:  logger,
	}
}

// Root handles GET /
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, types.RootResponse{
		Message: "LLMOps Production API",
		Version: h.version,
	})
}

// Health handles GET /health. Only a failing cache-backend ping makes
// the process unhealthy; an unconfigured provider is reported but does
// not flip the status.
func (h *Handlers) Health(c *gin.Context) {
	redisStatus := "disabled"
	if h.cache.Enabled() {
		if err := h.cache.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		redisStatus = "connected"
	}

	resp := types.HealthResponse{
		Status:      "healthy",
		Redis:       redisStatus,
		LLMProvider: "none",
	}
	if h.prov != nil {
		resp.LLMProvider = h.prov.Name()
		resp.LLMModel = h.prov.Model()
	}
	c.JSON(http.StatusOK, resp)
}

// Metrics handles GET /metrics
func (h *Handlers) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.Snapshot())
}

// ChatCompletions handles POST /v1/chat/completions. Malformed bodies
// are rejected here, before any cache or provider work.
func (h *Handlers) ChatCompletions(c *gin.Context) {
	var req types.ChatCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewError("invalid request", err.Error()))
		return
	}
	if req.Temperature == 0 {
		req.Temperature = 0.3
	}

	resp, err := h.service.Handle(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, provider.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, types.NewError("LLM not configured", err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, types.NewError("completion failed", err.Error()))
		return
	}

	c.JSON(http.StatusOK, resp)
}
