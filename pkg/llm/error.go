// Package llm provides internal representations of OpenAI-compatible chat
// completion requests and responses as they travel to and from the inference
// endpoint.
package llm

// ErrorResponse represents an error returned to palaver clients.
type ErrorResponse struct {
	Error string `json:"error"`
}
