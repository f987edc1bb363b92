package tui

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/palaver/pkg/transcript"
)

var _ = Describe("Renderer", func() {
	var r *Renderer

	BeforeEach(func() {
		r = NewRenderer("notty")
	})

	It("renders messages in order", func() {
		out := r.Render([]transcript.Message{
			{Role: transcript.RolePrompt, Text: "first question"},
			{Role: transcript.RoleResponse, Text: "first answer"},
			{Role: transcript.RolePrompt, Text: "second question"},
		}, 60)

		first := strings.Index(out, "first question")
		answer := strings.Index(out, "first answer")
		second := strings.Index(out, "second question")
		Expect(first).To(BeNumerically(">=", 0))
		Expect(answer).To(BeNumerically(">", first))
		Expect(second).To(BeNumerically(">", answer))
	})

	It("skips entries with empty text", func() {
		out := r.Render([]transcript.Message{
			{Role: transcript.RolePrompt, Text: "hi"},
			{Role: transcript.RoleResponse, Text: ""},
		}, 60)
		Expect(strings.TrimSpace(out)).To(HaveSuffix("hi"))
	})

	It("labels an attached image", func() {
		out := r.Render([]transcript.Message{
			{Role: transcript.RolePrompt, Text: "what is this", Image: &transcript.Image{Name: "cat.png", URL: "data:image/png;base64,AAAA"}},
		}, 60)
		Expect(out).To(ContainSubstring("[image: cat.png]"))
		Expect(out).NotTo(ContainSubstring("base64"))
	})

	It("right aligns prompts", func() {
		out := r.Render([]transcript.Message{{Role: transcript.RolePrompt, Text: "hi"}}, 20)
		Expect(out).To(HavePrefix("    "))
		Expect(strings.TrimSpace(out)).To(Equal("hi"))
	})

	It("renders responses as markdown", func() {
		out := r.Render([]transcript.Message{{Role: transcript.RoleResponse, Text: "# Title\n\n- one\n- two"}}, 60)
		Expect(out).To(ContainSubstring("Title"))
		Expect(out).To(ContainSubstring("one"))
		Expect(out).NotTo(ContainSubstring("- one"))
	})

	It("returns nothing for an empty transcript", func() {
		Expect(r.Render(nil, 60)).To(BeEmpty())
	})
})
