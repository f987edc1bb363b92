package llm

// DoneSentinel is the event data marking the end of a stream.
const DoneSentinel = "[DONE]"

// StreamChunk represents a single event payload in a streaming response.
type StreamChunk struct {
	ID      string         `json:"id,omitempty"`
	Model   string         `json:"model,omitempty"`
	Choices []StreamChoice `json:"choices"`
}

// StreamChoice is one choice inside a stream chunk.
type StreamChoice struct {
	Index        int    `json:"index"`
	Delta        Delta  `json:"delta"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// Delta carries the fragment of generated text. Content is nil when the
// event carries no text (role announcements, finish events).
type Delta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}

// Fragment returns the delta text, or "" when absent.
func (d Delta) Fragment() string {
	if d.Content == nil {
		return ""
	}
	return *d.Content
}
