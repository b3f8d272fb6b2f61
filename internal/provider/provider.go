package provider

import (
	"errors"
	"net/http"
	"strings"

	"github.com/prodapt-cloud/Pioneer-Training/internal/config"
	"github.com/prodapt-cloud/Pioneer-Training/pkg/utils"
)

// ErrNotConfigured is returned by Resolve when no usable credentials
// exist. The condition is terminal for the process lifetime: missing
// credentials cannot become valid without a restart, so the pipeline
// answers every request with a 503 instead of retrying.
var ErrNotConfigured = errors.New("no LLM credentials configured: set OPENAI_API_KEY or AZURE_OPENAI_KEY + AZURE_OPENAI_ENDPOINT")

// Provider is one member of the closed set of completion backends.
// Each variant carries exactly the call parameters it needs; the
// invoker never assembles provider-specific fields itself.
type Provider interface {
	// Name identifies the variant ("azure", "openai")
	Name() string
	// Model is the target model or deployment name
	Model() string
	// CompletionURL is the absolute chat-completions endpoint
	CompletionURL() string
	// Authenticate attaches the variant's credential headers
	Authenticate(h http.Header)
}

// Azure is the first-class provider: endpoint + key + deployment
type Azure struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	Deployment string
}

func (a *Azure) Name() string  { return "azure" }
func (a *Azure) Model() string { return a.Deployment }

func (a *Azure) CompletionURL() string {
	return strings.TrimSuffix(a.Endpoint, "/") +
		"/openai/deployments/" + a.Deployment +
		"/chat/completions?api-version=" + a.APIVersion
}

func (a *Azure) Authenticate(h http.Header) {
	h.Set("api-key", a.APIKey)
}

// OpenAI is the generic key-only provider
type OpenAI struct {
	APIKey    string
	BaseURL   string
	ModelName string
}

func (o *OpenAI) Name() string  { return "openai" }
func (o *OpenAI) Model() string { return o.ModelName }

func (o *OpenAI) CompletionURL() string {
	base := o.BaseURL
	if base == "" {
		base = "https://api.openai.com"
	}
	return strings.TrimSuffix(base, "/") + "/v1/chat/completions"
}

func (o *OpenAI) Authenticate(h http.Header) {
	h.Set("Authorization", "Bearer "+o.APIKey)
}

// Resolve selects the completion backend from configuration, once at
// process start. Azure wins when both providers are configured. With
// no credentials it returns (nil, ErrNotConfigured) and the process
// keeps running in a degraded state.
func Resolve(cfg *config.ProviderConfig, logger *utils.Logger) (Provider, error) {
	azureKey := strings.TrimSpace(cfg.AzureKey)
	azureEndpoint := strings.TrimSpace(cfg.AzureEndpoint)

	if azureKey != "" && azureEndpoint != "" {
		p := &Azure{
			Endpoint:   azureEndpoint,
			APIKey:     azureKey,
			APIVersion: cfg.AzureAPIVersion,
			Deployment: cfg.AzureDeployment,
		}
		logger.Info("LLM provider resolved",
			"provider", p.Name(),
			"deployment", p.Deployment,
			"endpoint", p.Endpoint,
			"api_version", p.APIVersion,
		)
		return p, nil
	}

	if key := strings.TrimSpace(cfg.OpenAIKey); key != "" {
		p := &OpenAI{
			APIKey:    key,
			BaseURL:   strings.TrimSpace(cfg.OpenAIBaseURL),
			ModelName: cfg.OpenAIModel,
		}
		logger.Info("LLM provider resolved", "provider", p.Name(), "model", p.ModelName)
		return p, nil
	}

	logger.Warn("No LLM credentials found, completion requests will return 503")
	return nil, ErrNotConfigured
}
