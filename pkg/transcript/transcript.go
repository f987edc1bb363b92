// Package transcript holds the ordered prompt/response turns of one chat
// session.
package transcript

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Role identifies who produced a message.
type Role string

const (
	RolePrompt   Role = "prompt"
	RoleResponse Role = "response"
)

var (
	// ErrResponseInFlight is returned when a response is begun while another
	// one is still streaming.
	ErrResponseInFlight = errors.New("a response is already in flight")

	// ErrNoResponseInFlight is returned when updating without a begun response.
	ErrNoResponseInFlight = errors.New("no response in flight")
)

// Image is a reference to an attached image.
type Image struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Message is a single turn in the transcript.
type Message struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Text  string `json:"text"`
	Image *Image `json:"image,omitempty"`
}

// Transcript is an append-only list of messages. Only the last element may
// change, and only while it is the in-flight response.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
	inFlight bool
}

// New returns an empty transcript.
func New() *Transcript {
	return &Transcript{}
}

// AppendPrompt appends a prompt entry.
func (t *Transcript) AppendPrompt(text string, image *Image) Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := newMessage(RolePrompt, text, image)
	t.messages = append(t.messages, m)
	return m
}

// BeginResponse appends an empty response entry and marks it in flight.
func (t *Transcript) BeginResponse(image *Image) (Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.inFlight {
		return Message{}, ErrResponseInFlight
	}

	m := newMessage(RoleResponse, "", image)
	t.messages = append(t.messages, m)
	t.inFlight = true
	return m, nil
}

// UpdateResponse replaces the text of the in-flight response. The entry keeps
// its ID.
func (t *Transcript) UpdateResponse(text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.inFlight {
		return ErrNoResponseInFlight
	}
	t.messages[len(t.messages)-1].Text = text
	return nil
}

// FinishResponse seals the in-flight response, if any.
func (t *Transcript) FinishResponse() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.inFlight = false
}

// AppendResponse appends a complete response entry.
func (t *Transcript) AppendResponse(text string, image *Image) (Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.inFlight {
		return Message{}, ErrResponseInFlight
	}

	m := newMessage(RoleResponse, text, image)
	t.messages = append(t.messages, m)
	return m, nil
}

// InFlight reports whether a response is still streaming.
func (t *Transcript) InFlight() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.inFlight
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.messages)
}

// Messages returns a snapshot of the transcript in insertion order.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func newMessage(role Role, text string, image *Image) Message {
	m := Message{
		ID:   uuid.NewString(),
		Role: role,
		Text: text,
	}
	if image != nil {
		img := *image
		m.Image = &img
	}
	return m
}
