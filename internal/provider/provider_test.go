package provider

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodapt-cloud/Pioneer-Training/internal/config"
	"github.com/prodapt-cloud/Pioneer-Training/pkg/utils"
)

func testLogger() *utils.Logger {
	return utils.NewLoggerWithConfig(&utils.LoggerConfig{Level: utils.FATAL})
}

func TestResolve_AzureWinsOverOpenAI(t *testing.T) {
	cfg := &config.ProviderConfig{
		AzureKey:        " azure-key ",
		AzureEndpoint:   "https://example.openai.azure.com/",
		AzureAPIVersion: "2024-02-15-preview",
		AzureDeployment: "gpt-4o-mini",
		OpenAIKey:       "sk-also-set",
		OpenAIModel:     "gpt-4o-mini",
	}

	prov, err := Resolve(cfg, testLogger())
	require.NoError(t, err)

	azure, ok := prov.(*Azure)
	require.True(t, ok, "Azure must take priority when both are configured")
	assert.Equal(t, "azure", prov.Name())
	assert.Equal(t, "gpt-4o-mini", prov.Model())
	assert.Equal(t, "azure-key", azure.APIKey, "credentials are trimmed")
}

func TestResolve_OpenAIFallback(t *testing.T) {
	cfg := &config.ProviderConfig{
		OpenAIKey:   "sk-test",
		OpenAIModel: "gpt-4o-mini",
	}

	prov, err := Resolve(cfg, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "openai", prov.Name())
	assert.Equal(t, "gpt-4o-mini", prov.Model())
}

func TestResolve_Unconfigured(t *testing.T) {
	prov, err := Resolve(&config.ProviderConfig{}, testLogger())

	assert.Nil(t, prov)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NotEmpty(t, err.Error())
}

func TestResolve_AzureNeedsBothKeyAndEndpoint(t *testing.T) {
	cfg := &config.ProviderConfig{AzureKey: "key-only"}

	prov, err := Resolve(cfg, testLogger())
	assert.Nil(t, prov)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAzure_CompletionURLAndAuth(t *testing.T) {
	p := &Azure{
		Endpoint:   "https://example.openai.azure.com/",
		APIKey:     "secret",
		APIVersion: "2024-02-15-preview",
		Deployment: "gpt-4o-mini",
	}

	assert.Equal(t,
		"https://example.openai.azure.com/openai/deployments/gpt-4o-mini/chat/completions?api-version=2024-02-15-preview",
		p.CompletionURL())

	h := make(http.Header)
	p.Authenticate(h)
	assert.Equal(t, "secret", h.Get("api-key"))
	assert.Empty(t, h.Get("Authorization"))
}

func TestOpenAI_CompletionURLAndAuth(t *testing.T) {
	p := &OpenAI{APIKey: "sk-test", ModelName: "gpt-4o-mini"}

	assert.Equal(t, "https://api.openai.com/v1/chat/completions", p.CompletionURL())

	h := make(http.Header)
	p.Authenticate(h)
	assert.Equal(t, "Bearer sk-test", h.Get("Authorization"))
}

func TestOpenAI_CustomBaseURL(t *testing.T) {
	p := &OpenAI{APIKey: "sk-test", BaseURL: "http://localhost:11434/", ModelName: "llama3.2"}

	assert.Equal(t, "http://localhost:11434/v1/chat/completions", p.CompletionURL())
}
