package llm

// ChatRequest represents a chat completion request (OpenAI-compatible).
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// Prompt is a single user submission: the text and an optional image.
type Prompt struct {
	Text string `json:"prompt"`

	// ImageURL is a data URI or remote URL. Empty when no image is attached.
	ImageURL string `json:"image,omitempty"`
}

// HasImage reports whether the prompt carries an image.
func (p Prompt) HasImage() bool {
	return p.ImageURL != ""
}
