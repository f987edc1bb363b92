package chat

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/palaver/pkg/attachment"
	"github.com/papercomputeco/palaver/pkg/llm"
	"github.com/papercomputeco/palaver/pkg/logger"
	"github.com/papercomputeco/palaver/pkg/transcript"
)

// Submission is one user turn.
type Submission struct {
	Prompt string
	Image  *attachment.Image
}

// Observer receives a transcript snapshot after every change.
type Observer func([]transcript.Message)

// Session is the submission handler of one chat view. It owns the
// transcript and allows one submission at a time.
type Session struct {
	dispatcher *Dispatcher
	transcript *transcript.Transcript
	logger     *zap.Logger
	observer   Observer
	submitting atomic.Bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithObserver registers the transcript observer.
func WithObserver(o Observer) SessionOption {
	return func(s *Session) {
		s.observer = o
	}
}

// WithSessionLogger sets the logger.
func WithSessionLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a session with an empty transcript.
func NewSession(dispatcher *Dispatcher, opts ...SessionOption) *Session {
	s := &Session{
		dispatcher: dispatcher,
		transcript: transcript.New(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submitting reports whether a submission is in progress.
func (s *Session) Submitting() bool {
	return s.submitting.Load()
}

// Transcript returns a snapshot of the conversation.
func (s *Session) Transcript() []transcript.Message {
	return s.transcript.Messages()
}

// Submit appends the prompt, dispatches it and records the response.
//
// Only precondition violations are returned: ErrEmptyPrompt and ErrBusy.
// Dispatch failures are logged and swallowed, leaving no response entry
// unless a stream had already produced text.
func (s *Session) Submit(ctx context.Context, sub Submission) error {
	if strings.TrimSpace(sub.Prompt) == "" {
		return ErrEmptyPrompt
	}
	if !s.submitting.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.submitting.Store(false)

	startTime := time.Now()
	prompt := llm.Prompt{Text: sub.Prompt}
	if sub.Image != nil {
		prompt.ImageURL = sub.Image.DataURI
	}
	mode := s.dispatcher.ModeFor(prompt)

	s.transcript.AppendPrompt(sub.Prompt, sub.Image.Ref())
	s.notify()

	s.logger.Debug("dispatching prompt",
		zap.String("mode", string(mode)),
		zap.String("prompt_preview", logger.Preview(sub.Prompt, 50)),
	)

	// The response entry appears when the stream opens and is then replaced
	// once per fragment.
	opened := false
	update := func(text string) {
		if !opened {
			if _, err := s.transcript.BeginResponse(nil); err != nil {
				s.logger.Error("could not begin response", zap.Error(err))
				return
			}
			opened = true
		}
		if err := s.transcript.UpdateResponse(text); err != nil {
			s.logger.Error("could not update response", zap.Error(err))
			return
		}
		s.notify()
	}

	text, err := s.dispatcher.Dispatch(ctx, prompt, update)
	if opened {
		s.transcript.FinishResponse()
	}
	if err != nil {
		s.logger.Error("submission failed",
			zap.String("mode", string(mode)),
			zap.Bool("partial", opened && text != ""),
			zap.Error(err),
		)
		s.notify()
		return nil
	}

	if !opened {
		if _, err := s.transcript.AppendResponse(text, nil); err != nil {
			s.logger.Error("could not append response", zap.Error(err))
			return nil
		}
	}
	s.notify()

	s.logger.Info("submission complete",
		zap.String("mode", string(mode)),
		zap.Int("length", len(text)),
		zap.Duration("duration", time.Since(startTime)),
	)

	return nil
}

func (s *Session) notify() {
	if s.observer != nil {
		s.observer(s.transcript.Messages())
	}
}
