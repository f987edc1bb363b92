package llm

// ChatResponse represents a non-streaming chat completion response.
type ChatResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []ChoiceResult `json:"choices"`
}

// NewChatResponse returns a single-choice assistant response with the given
// content.
func NewChatResponse(model, content string) ChatResponse {
	return ChatResponse{
		ID:      "chatcmpl-1",
		Object:  "chat.completion",
		Created: 1,
		Model:   model,
		Choices: []ChoiceResult{{
			Message:      ResultMessage{Role: RoleAssistant, Content: content},
			FinishReason: "stop",
		}},
	}
}

// ChoiceResult is one completed choice.
type ChoiceResult struct {
	Index        int           `json:"index"`
	Message      ResultMessage `json:"message"`
	FinishReason string        `json:"finish_reason,omitempty"`
}

// ResultMessage is the assistant message of a completed choice.
type ResultMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TextResponse is the body returned by the server action endpoints.
type TextResponse struct {
	Text string `json:"text"`
}
