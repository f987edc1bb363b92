// Package tui is the interactive chat view: a scrolling transcript above a
// single-line prompt input.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"

	"github.com/papercomputeco/palaver/pkg/attachment"
	"github.com/papercomputeco/palaver/pkg/chat"
	"github.com/papercomputeco/palaver/pkg/transcript"
)

// submittedMsg reports the end of a submission.
type submittedMsg struct {
	err error
}

// Model is the bubbletea model of the chat view.
type Model struct {
	ctx     context.Context
	session *chat.Session
	feed    *feed
	logger  *zap.Logger

	title     string
	loadImage func(path string) (*attachment.Image, error)
	renderer  *Renderer

	messages []transcript.Message
	attached *attachment.Image
	status   string

	submitting bool
	width      int
	height     int

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger. The terminal belongs to the view, so this
// should write to a file or discard.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Model) {
		m.logger = logger
	}
}

// WithTitle sets the header line.
func WithTitle(title string) Option {
	return func(m *Model) {
		m.title = title
	}
}

// WithGlamourStyle sets the markdown style of responses.
func WithGlamourStyle(style string) Option {
	return func(m *Model) {
		m.renderer = NewRenderer(style)
	}
}

// WithImageLoader replaces attachment.Load for /attach.
func WithImageLoader(load func(path string) (*attachment.Image, error)) Option {
	return func(m *Model) {
		m.loadImage = load
	}
}

// New creates the chat view. It owns a fresh Session on dispatcher.
func New(ctx context.Context, dispatcher *chat.Dispatcher, opts ...Option) *Model {
	in := textinput.New()
	in.Placeholder = "Ask anything. /attach <path> adds an image, /quit exits."
	in.Prompt = "> "
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		ctx:       ctx,
		feed:      newFeed(),
		logger:    zap.NewNop(),
		title:     "palaver",
		loadImage: attachment.Load,
		renderer:  NewRenderer("dark"),
		width:     80,
		height:    24,
		viewport:  viewport.New(80, 20),
		input:     in,
		spinner:   sp,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.session = chat.NewSession(dispatcher,
		chat.WithObserver(m.feed.push),
		chat.WithSessionLogger(m.logger),
	)

	return m
}

// Init starts the cursor blink and the snapshot feed.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.feed.wait())
}

// Update handles one event.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case snapshotMsg:
		m.messages = msg
		m.refresh()
		return m, m.feed.wait()

	case submittedMsg:
		m.submitting = false
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		return m, m.input.Focus()

	case spinner.TickMsg:
		if !m.submitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyEnter:
		if m.submitting {
			return m, nil
		}
		return m.handleEnter()
	}

	// Input is disabled while submitting.
	if m.submitting {
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleEnter() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	m.status = ""

	switch {
	case value == "":
		return m, nil

	case value == "/quit":
		return m, tea.Quit

	case value == "/detach":
		m.attached = nil
		m.input.Reset()
		return m, nil

	case value == "/attach" || strings.HasPrefix(value, "/attach "):
		path := strings.TrimSpace(strings.TrimPrefix(value, "/attach"))
		if path == "" {
			m.status = "usage: /attach <path>"
			return m, nil
		}
		img, err := m.loadImage(path)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.attached = img
		m.input.Reset()
		return m, nil
	}

	sub := chat.Submission{Prompt: value, Image: m.attached}
	m.attached = nil
	m.input.Reset()
	m.input.Blur()
	m.submitting = true

	return m, tea.Batch(m.submit(sub), m.spinner.Tick)
}

// submit runs the submission off the event loop; snapshots arrive through
// the feed while it runs.
func (m *Model) submit(sub chat.Submission) tea.Cmd {
	return func() tea.Msg {
		return submittedMsg{err: m.session.Submit(m.ctx, sub)}
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 4

	// title + blank line above, status + input below
	m.viewport.Width = width
	m.viewport.Height = max(height-4, 1)
	m.refresh()
}

// refresh re-renders the transcript and scrolls to the newest entry.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderer.Render(m.messages, m.width))
	m.viewport.GotoBottom()
}

// View renders the screen.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.input.View())

	return b.String()
}

func (m *Model) statusLine() string {
	var line string
	switch {
	case m.submitting:
		line = m.spinner.View() + " waiting for response"
	case m.status != "":
		line = statusStyle.Render(m.status)
	case m.attached != nil:
		line = imageStyle.Render(fmt.Sprintf("[image: %s] attached to the next prompt", m.attached.Name))
	}
	return ansi.Truncate(line, m.width, "…")
}

// Transcript returns the messages currently shown.
func (m *Model) Transcript() []transcript.Message {
	return m.messages
}
