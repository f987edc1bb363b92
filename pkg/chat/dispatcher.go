// Package chat turns user submissions into inference calls and keeps the
// session transcript in step with their results.
package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/papercomputeco/palaver/pkg/llm"
	"github.com/papercomputeco/palaver/pkg/stream"
)

var (
	// ErrEmptyPrompt is returned for a blank prompt; nothing is dispatched.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrBusy is returned while another submission is in progress.
	ErrBusy = errors.New("a submission is already in progress")
)

// Client is a chat backend: the inference endpoint itself or a palaver server
// acting on its behalf.
type Client interface {
	// Complete returns the full response text of a blocking call.
	Complete(ctx context.Context, prompt llm.Prompt) (string, error)

	// Stream returns the full response text of a streaming call, calling
	// update with "" when the stream opens and with the accumulated text after
	// every fragment.
	Stream(ctx context.Context, prompt llm.Prompt, update stream.UpdateFunc) (string, error)
}

// Mode is the call variant chosen for a prompt.
type Mode string

const (
	ModeImage    Mode = "image"
	ModeStream   Mode = "stream"
	ModeComplete Mode = "complete"
)

// Dispatcher picks the call variant for each prompt.
type Dispatcher struct {
	client Client
	stream bool
}

// NewDispatcher returns a dispatcher that streams text-only prompts when
// streaming is true.
func NewDispatcher(client Client, streaming bool) *Dispatcher {
	return &Dispatcher{client: client, stream: streaming}
}

// ModeFor reports the variant Dispatch would use.
func (d *Dispatcher) ModeFor(prompt llm.Prompt) Mode {
	switch {
	case prompt.HasImage():
		return ModeImage
	case d.stream:
		return ModeStream
	default:
		return ModeComplete
	}
}

// Dispatch sends the prompt. Image prompts always use the blocking call;
// update is only invoked in ModeStream.
func (d *Dispatcher) Dispatch(ctx context.Context, prompt llm.Prompt, update stream.UpdateFunc) (string, error) {
	if strings.TrimSpace(prompt.Text) == "" {
		return "", ErrEmptyPrompt
	}

	switch d.ModeFor(prompt) {
	case ModeStream:
		return d.client.Stream(ctx, prompt, update)
	default:
		return d.client.Complete(ctx, prompt)
	}
}
