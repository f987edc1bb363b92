package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/papercomputeco/palaver/pkg/llm"
	"github.com/papercomputeco/palaver/pkg/logger"
)

// UpdateFunc receives the accumulated response text after each fragment.
type UpdateFunc func(text string)

// Result summarises a consumed stream.
type Result struct {
	Text string

	// Events counts data events read, including the sentinel.
	Events int

	// Fragments counts choices applied, i.e. update calls.
	Fragments int

	// Done is true when the stream ended with the sentinel rather than EOF.
	Done bool
}

// TransportError reports a read failure before the stream terminated.
type TransportError struct {
	Partial string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream read failed after %d chars: %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream read failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedEventError reports an event whose data is not a JSON chunk.
type MalformedEventError struct {
	Data string
	Err  error
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed stream event %q: %v", logger.Preview(e.Data, 80), e.Err)
}

func (e *MalformedEventError) Unwrap() error {
	return e.Err
}

// RemoteError is an "error" event sent by the stream's producer.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "stream error event: " + e.Message
}

// Accumulate reads chat completion events from r and returns the
// concatenation of every delta fragment in arrival order.
func Accumulate(ctx context.Context, r io.Reader, update UpdateFunc) (string, error) {
	res, err := AccumulateResult(ctx, r, update)
	return res.Text, err
}

// AccumulateResult is Accumulate with stream statistics.
//
// Every choice of every event is appended in order, a missing fragment counts
// as "", and update is called once per choice with the text so far. Reading
// stops at the sentinel even if more events follow. EOF without the sentinel
// is a normal end; an "error" event ends the stream with a RemoteError.
func AccumulateResult(ctx context.Context, r io.Reader, update UpdateFunc) (Result, error) {
	var (
		res Result
		acc strings.Builder
	)

	reader := NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			res.Text = acc.String()
			return res, err
		}

		ev, err := reader.Next()
		if err != nil {
			res.Text = acc.String()
			if errors.Is(err, io.EOF) {
				return res, nil
			}
			return res, &TransportError{Partial: res.Text, Err: err}
		}
		res.Events++

		if bytes.Equal(bytes.TrimSpace(ev.Data), []byte(llm.DoneSentinel)) {
			res.Done = true
			res.Text = acc.String()
			return res, nil
		}

		if ev.Type == "error" {
			res.Text = acc.String()
			var body llm.ErrorResponse
			if json.Unmarshal(ev.Data, &body) != nil || body.Error == "" {
				body.Error = string(ev.Data)
			}
			return res, &RemoteError{Message: body.Error}
		}

		var chunk llm.StreamChunk
		if err := json.Unmarshal(ev.Data, &chunk); err != nil {
			res.Text = acc.String()
			return res, &MalformedEventError{Data: string(ev.Data), Err: err}
		}

		for _, choice := range chunk.Choices {
			acc.WriteString(choice.Delta.Fragment())
			res.Fragments++
			if update != nil {
				update(acc.String())
			}
		}
	}
}
