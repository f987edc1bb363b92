package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/papercomputeco/palaver/pkg/transcript"
)

// snapshotMsg carries a transcript snapshot into the event loop.
type snapshotMsg []transcript.Message

// feed hands session snapshots to the event loop. Each snapshot is the whole
// transcript, so only the latest one matters: a pending snapshot is replaced
// rather than queued behind.
type feed struct {
	ch chan []transcript.Message
}

func newFeed() *feed {
	return &feed{ch: make(chan []transcript.Message, 1)}
}

// push is the session observer. The session calls it from one goroutine at a
// time.
func (f *feed) push(messages []transcript.Message) {
	for {
		select {
		case f.ch <- messages:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

// wait returns a command that delivers the next snapshot.
func (f *feed) wait() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(<-f.ch)
	}
}
