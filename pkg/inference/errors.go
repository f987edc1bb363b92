package inference

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoStream is returned when a streaming call yields no response body.
	ErrNoStream = errors.New("the response stream is undefined")

	// ErrMalformedResponse is returned when a blocking call yields no choices.
	ErrMalformedResponse = errors.New("malformed chat completion: no choices")

	// ErrEmptyResponse is returned when a blocking call yields no text.
	ErrEmptyResponse = errors.New("chat completion returned no text")
)

// StatusError is a non-success HTTP status from the endpoint.
type StatusError struct {
	Code int
	Body string
	Err  error
}

func (e *StatusError) Error() string {
	detail := strings.TrimSpace(e.Body)
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if detail == "" {
		return fmt.Sprintf("failed to get chat completions, http operation failed with %d code", e.Code)
	}
	return fmt.Sprintf("failed to get chat completions, http operation failed with %d code: %s", e.Code, detail)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}
