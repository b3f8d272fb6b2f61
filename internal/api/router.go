package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prodapt-cloud/Pioneer-Training/internal/middleware"
	"github.com/prodapt-cloud/Pioneer-Training/pkg/utils"
)

// Router manages all API routes
type Router struct {
	engine   *gin.Engine
	handlers *Handlers
	logger   *utils.Logger
}

// NewRouter creates the API router. limiter may be nil to run without
// rate limiting.
func NewRouter(handlers *Handlers, limiter *middleware.RateLimiter, logger *utils.Logger) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(CORSMiddleware())
	engine.Use(LoggerMiddleware(logger))

	router := &Router{
		engine:   engine,
		handlers: handlers,
		logger:   logger,
	}
	router.setupRoutes(limiter)

	return router
}

// setupRoutes configures all API routes
func (r *Router) setupRoutes(limiter *middleware.RateLimiter) {
	r.engine.GET("/health", r.handlers.Health)
	r.engine.GET("/", r.handlers.Root)
	r.engine.GET("/metrics", r.handlers.Metrics)

	v1 := r.engine.Group("/v1")
	if limiter != nil {
		v1.Use(limiter.Middleware())
	}
	v1.POST("/chat/completions", r.handlers.ChatCompletions)
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// CORSMiddleware handles CORS headers
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		logger.Info("HTTP Request",
			"method", c.Request.Method,
			"path", path,
			"status", statusCode,
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}
