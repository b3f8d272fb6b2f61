package types

// ErrorResponse is the body returned for 4xx/5xx responses
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the body returned by GET /health
type HealthResponse struct {
	Status      string `json:"status"`
	Redis       string `json:"redis"`
	LLMProvider string `json:"llm_provider"`
	LLMModel    string `json:"llm_model,omitempty"`
}

// RootResponse is the body returned by GET /
type RootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// NewError builds an ErrorResponse
func NewError(kind, message string) ErrorResponse {
	return ErrorResponse{Error: kind, Message: message}
}
