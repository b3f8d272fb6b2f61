package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Provider  ProviderConfig
	Telemetry TelemetryConfig
	Tracking  TrackingConfig
	Prompt    PromptConfig
	App       AppConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	RateLimitRPM int
}

// RedisConfig holds response-cache backend configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// ProviderConfig holds LLM provider credentials and call parameters.
// Azure takes priority over the generic OpenAI provider when both are set.
type ProviderConfig struct {
	AzureKey        string
	AzureEndpoint   string
	AzureAPIVersion string
	AzureDeployment string

	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string

	MaxTokens int
	Timeout   time.Duration
}

// TelemetryConfig holds distributed-tracing configuration
type TelemetryConfig struct {
	Enabled  bool
	Endpoint string
	Project  string
}

// TrackingConfig holds experiment-tracking configuration
type TrackingConfig struct {
	Enabled    bool
	URI        string
	Experiment string
	Timeout    time.Duration
}

// PromptConfig holds prompt template configuration
type PromptConfig struct {
	Path string
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name        string
	Version     string
	Environment string
	LogLevel    string
}

// Load loads configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:  time.Duration(getEnvAsInt("SERVER_READ_TIMEOUT", 15)) * time.Second,
			WriteTimeout: time.Duration(getEnvAsInt("SERVER_WRITE_TIMEOUT", 120)) * time.Second,
			IdleTimeout:  time.Duration(getEnvAsInt("SERVER_IDLE_TIMEOUT", 60)) * time.Second,
			RateLimitRPM: getEnvAsInt("RATE_LIMIT_RPM", 0),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 3600)) * time.Second,
		},
		Provider: ProviderConfig{
			AzureKey:        getEnv("AZURE_OPENAI_KEY", ""),
			AzureEndpoint:   getEnv("AZURE_OPENAI_ENDPOINT", ""),
			AzureAPIVersion: getEnv("AZURE_OPENAI_API_VERSION", "2024-02-15-preview"),
			AzureDeployment: getEnv("AZURE_OPENAI_DEPLOYMENT_NAME", "gpt-4o-mini"),
			OpenAIKey:       getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
			OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			MaxTokens:       getEnvAsInt("LLM_MAX_TOKENS", 512),
			Timeout:         time.Duration(getEnvAsInt("LLM_TIMEOUT_SECONDS", 60)) * time.Second,
		},
		Telemetry: TelemetryConfig{
			Enabled:  getEnvAsBool("OTEL_ENABLED", true),
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://127.0.0.1:6006"),
			Project:  getEnv("OTEL_PROJECT_NAME", "llmops-api"),
		},
		Tracking: TrackingConfig{
			Enabled:    getEnvAsBool("MLFLOW_ENABLED", true),
			URI:        getEnv("MLFLOW_TRACKING_URI", "http://localhost:5000"),
			Experiment: getEnv("MLFLOW_EXPERIMENT", "llmops-production-api"),
			Timeout:    time.Duration(getEnvAsInt("MLFLOW_HTTP_REQUEST_TIMEOUT", 5)) * time.Second,
		},
		Prompt: PromptConfig{
			Path: getEnv("PROMPT_PATH", "prompts/assistant_v1.tmpl"),
		},
		App: AppConfig{
			Name:        "LLMOps Production API",
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "production"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
	}

	return config, nil
}

// GetRedisAddr returns the Redis connection address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Helper functions

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
