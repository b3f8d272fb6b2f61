package types

// ChatMessage is a single role/content pair in a conversation
type ChatMessage struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the client-facing request body for
// POST /v1/chat/completions. The last message is treated as the
// user's current question.
type ChatCompletionRequest struct {
	Model       string            `json:"model"`
	Messages    []ChatMessage     `json:"messages" binding:"required,min=1,dive"`
	Temperature float64           `json:"temperature"`
	Metadata    map[string]string `json:"metadata"`
}

// Department returns the department tag from request metadata,
// defaulting to "general" when absent.
func (r *ChatCompletionRequest) Department() string {
	if dept, ok := r.Metadata["department"]; ok && dept != "" {
		return dept
	}
	return "general"
}

// UserQuestion returns the content of the last message.
// Callers must have validated that Messages is non-empty.
func (r *ChatCompletionRequest) UserQuestion() string {
	return r.Messages[len(r.Messages)-1].Content
}

// ChatChoice is one completion alternative in an OpenAI-style response
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// Usage holds token accounting for one completion
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionResponse is the OpenAI-style completion object returned
// to clients and stored verbatim in the response cache.
type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   Usage        `json:"usage"`
}
