package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/prodapt-cloud/Pioneer-Training/internal/api"
	"github.com/prodapt-cloud/Pioneer-Training/internal/cache"
	"github.com/prodapt-cloud/Pioneer-Training/internal/config"
	"github.com/prodapt-cloud/Pioneer-Training/internal/metrics"
	"github.com/prodapt-cloud/Pioneer-Training/internal/middleware"
	"github.com/prodapt-cloud/Pioneer-Training/internal/pipeline"
	"github.com/prodapt-cloud/Pioneer-Training/internal/prompt"
	"github.com/prodapt-cloud/Pioneer-Training/internal/provider"
	"github.com/prodapt-cloud/Pioneer-Training/internal/telemetry"
	"github.com/prodapt-cloud/Pioneer-Training/pkg/utils"
)

func main() {
	printBanner()

	cfg, err := config.Load()
	if err != nil {
		utils.Fatal("Failed to load configuration: %v", err)
	}
	utils.SetDefaultLevel(utils.ParseLevel(cfg.App.LogLevel))
	logger := utils.Default()

	utils.Info("Starting %s...", cfg.App.Name)

	// Prompt template: a load or smoke-render failure is fatal at
	// startup, never discovered at request time.
	renderer, err := prompt.Load(cfg.Prompt.Path)
	if err != nil {
		utils.Fatal("Failed to load prompt template: %v", err)
	}
	utils.Info("Prompt template loaded from %s", cfg.Prompt.Path)

	// Response cache: best-effort. An unreachable or disabled backend
	// leaves the capability absent and every lookup is a miss.
	var store cache.Store
	if cfg.Redis.Enabled {
		store, err = cache.NewRedisStore(cfg)
		if err != nil {
			utils.Warn("Redis connection failed, caching disabled: %v", err)
			store = nil
		}
	} else {
		utils.Info("Redis disabled (REDIS_ENABLED=false)")
	}
	responseCache := cache.NewResponseCache(store, cfg.Redis.TTL, logger)

	// Tracing: best-effort, downgraded to a no-op tracer on failure.
	tracer := telemetry.NoopTracer()
	var shutdownTracing func(context.Context) error
	if cfg.Telemetry.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		var terr error
		tracer, shutdownTracing, terr = telemetry.InitTracing(ctx, &cfg.Telemetry, logger)
		cancel()
		if terr != nil {
			utils.Warn("OpenTelemetry initialization failed, tracing disabled: %v", terr)
		}
	} else {
		utils.Info("OpenTelemetry tracing disabled (OTEL_ENABLED=false)")
	}

	// Experiment tracking: best-effort, disabled for the process
	// lifetime when the tracking server is unreachable at startup.
	var tracker *telemetry.MLflowClient
	if cfg.Tracking.Enabled {
		tracker, err = telemetry.NewMLflowClient(cfg.Tracking.URI, cfg.Tracking.Experiment, cfg.Tracking.Timeout)
		if err != nil {
			utils.Warn("MLflow tracking disabled: %v", err)
			tracker = nil
		} else {
			utils.Info("MLflow tracking enabled: %s (experiment %s)", cfg.Tracking.URI, tracker.ExperimentID())
		}
	} else {
		utils.Info("MLflow tracking disabled (MLFLOW_ENABLED=false)")
	}
	tel := telemetry.New(tracer, tracker, logger)

	// Provider: resolved once. Unconfigured is a degraded-but-running
	// state, not a startup failure.
	prov, provErr := provider.Resolve(&cfg.Provider, logger)
	var completer pipeline.Completer
	if prov != nil {
		completer = provider.NewInvoker(prov, cfg.Provider.Timeout, logger)
	}

	stats := metrics.NewCollector()

	pipe := pipeline.New(responseCache, renderer, prov, provErr, completer, tel, stats, logger, cfg.Provider.MaxTokens)
	handlers := api.NewHandlers(pipe, responseCache, prov, stats, cfg.App.Version, logger)

	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimitRPM > 0 {
		limiter = middleware.NewRateLimiter(cfg.Server.RateLimitRPM, logger)
	}

	router := api.NewRouter(handlers, limiter, logger)

	server := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      tracingHandler(tracer, router.GetEngine()),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		utils.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			utils.Error("Server shutdown error: %v", err)
		}
		if shutdownTracing != nil {
			if err := shutdownTracing(shutdownCtx); err != nil {
				utils.Warn("Tracer shutdown error: %v", err)
			}
		}
	}()

	utils.Info("Server starting on %s", cfg.GetServerAddr())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		utils.Fatal("Server failed to start: %v", err)
	}
	utils.Info("Server stopped")
}

// tracingHandler opens a server span per request so pipeline stage
// spans nest under it.
func tracingHandler(tracer trace.Tracer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func printBanner() {
	banner := `
  ╦  ╦  ╔╦╗╔═╗┌─┐┌─┐  ╔═╗╔═╗╦
  ║  ║  ║║║║ ║├─┘└─┐  ╠═╣╠═╝║
  ╩═╝╩═╝╩ ╩╚═╝┴  └─┘  ╩ ╩╩  ╩
  Chat-completion gateway with cache, tracing and tracking
  ========================================================
`
	fmt.Println(banner)
}
