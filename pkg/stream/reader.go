// Package stream consumes server-sent-event chat completion streams and
// accumulates their text fragments.
package stream

import (
	"bufio"
	"bytes"
	"io"
)

// MaxEventSize bounds a single SSE line.
const MaxEventSize = 1 << 20

// Event is one server-sent event.
type Event struct {
	Type string
	Data []byte
}

// Reader splits an SSE byte stream into events.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxEventSize)
	return &Reader{scanner: scanner}
}

// Next returns the next event that carries data. It returns io.EOF once the
// stream ends; a partial event at EOF is still delivered.
func (r *Reader) Next() (Event, error) {
	var (
		ev      Event
		data    [][]byte
		hasData bool
	)

	for r.scanner.Scan() {
		line := bytes.TrimSuffix(r.scanner.Bytes(), []byte("\r"))

		// Blank line dispatches the event
		if len(line) == 0 {
			if hasData {
				ev.Data = bytes.Join(data, []byte("\n"))
				return ev, nil
			}
			ev = Event{}
			continue
		}

		// Comment
		if line[0] == ':' {
			continue
		}

		field, value, _ := bytes.Cut(line, []byte(":"))
		value = bytes.TrimPrefix(value, []byte(" "))

		switch string(field) {
		case "data":
			data = append(data, bytes.Clone(value))
			hasData = true
		case "event":
			ev.Type = string(value)
		}
		// id and retry carry nothing we use
	}

	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}

	if hasData {
		ev.Data = bytes.Join(data, []byte("\n"))
		return ev, nil
	}
	return Event{}, io.EOF
}
