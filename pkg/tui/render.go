package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/papercomputeco/palaver/pkg/transcript"
)

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	imageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Italic(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("13"))
)

// Renderer turns transcript snapshots into viewport content. Responses are
// rendered as markdown; the glamour renderer is rebuilt only when the width
// changes.
type Renderer struct {
	style    string
	width    int
	markdown *glamour.TermRenderer
}

// NewRenderer creates a renderer using the named glamour style
// (e.g. "dark", "light", "notty").
func NewRenderer(style string) *Renderer {
	return &Renderer{style: style}
}

// Render lays out every non-empty message in order. Prompts are right
// aligned; an attached image is shown as a labelled line.
func (r *Renderer) Render(messages []transcript.Message, width int) string {
	if width <= 0 {
		width = 80
	}

	var blocks []string
	for _, m := range messages {
		if m.Text == "" {
			continue
		}

		switch m.Role {
		case transcript.RolePrompt:
			blocks = append(blocks, r.renderPrompt(m, width))
		default:
			blocks = append(blocks, r.renderResponse(m.Text, width))
		}
	}

	return strings.Join(blocks, "\n\n")
}

func (r *Renderer) renderPrompt(m transcript.Message, width int) string {
	align := lipgloss.NewStyle().Width(width).Align(lipgloss.Right)

	lines := []string{align.Render(promptStyle.Render(m.Text))}
	if m.Image != nil {
		label := ansi.Truncate("[image: "+m.Image.Name+"]", width, "…")
		lines = append(lines, align.Render(imageStyle.Render(label)))
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) renderResponse(text string, width int) string {
	if r.markdown == nil || r.width != width {
		md, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return text
		}
		r.markdown = md
		r.width = width
	}

	rendered, err := r.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(rendered)
}
