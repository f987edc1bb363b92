package stream_test

import (
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/palaver/pkg/stream"
)

var _ = Describe("Reader", func() {
	readAll := func(body string) []stream.Event {
		r := stream.NewReader(strings.NewReader(body))
		var events []stream.Event
		for {
			ev, err := r.Next()
			if err == io.EOF {
				return events
			}
			Expect(err).NotTo(HaveOccurred())
			events = append(events, ev)
		}
	}

	It("splits events on blank lines", func() {
		events := readAll("data: one\n\ndata: two\n\n")

		Expect(events).To(HaveLen(2))
		Expect(string(events[0].Data)).To(Equal("one"))
		Expect(string(events[1].Data)).To(Equal("two"))
	})

	It("joins multi-line data with newlines", func() {
		events := readAll("data: first\ndata: second\n\n")

		Expect(events).To(HaveLen(1))
		Expect(string(events[0].Data)).To(Equal("first\nsecond"))
	})

	It("ignores comments, ids and retry fields", func() {
		events := readAll(": keep-alive\nid: 7\nretry: 100\nevent: message\ndata: x\n\n")

		Expect(events).To(HaveLen(1))
		Expect(events[0].Type).To(Equal("message"))
		Expect(string(events[0].Data)).To(Equal("x"))
	})

	It("tolerates CRLF line endings and missing space after the colon", func() {
		events := readAll("data:a\r\n\r\ndata: b\r\n\r\n")

		Expect(events).To(HaveLen(2))
		Expect(string(events[0].Data)).To(Equal("a"))
		Expect(string(events[1].Data)).To(Equal("b"))
	})

	It("delivers a trailing event without a blank line", func() {
		events := readAll("data: last")

		Expect(events).To(HaveLen(1))
		Expect(string(events[0].Data)).To(Equal("last"))
	})

	It("skips empty events", func() {
		events := readAll("\n\nevent: ping\n\ndata: x\n\n")

		Expect(events).To(HaveLen(1))
		Expect(events[0].Type).To(BeEmpty())
	})
})
