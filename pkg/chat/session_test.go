package chat_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/palaver/pkg/attachment"
	"github.com/papercomputeco/palaver/pkg/chat"
	"github.com/papercomputeco/palaver/pkg/inference"
	"github.com/papercomputeco/palaver/pkg/transcript"
)

var _ = Describe("Session", func() {
	var (
		ctx       context.Context
		client    *fakeClient
		snapshots [][]transcript.Message
		newSess   func(streaming bool) *chat.Session
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = &fakeClient{fragments: []string{"Hel", "lo"}, text: "Hello"}
		snapshots = nil
		newSess = func(streaming bool) *chat.Session {
			return chat.NewSession(chat.NewDispatcher(client, streaming),
				chat.WithObserver(func(m []transcript.Message) { snapshots = append(snapshots, m) }),
			)
		}
	})

	Context("with an empty prompt", func() {
		It("creates no entries and does not dispatch", func() {
			s := newSess(true)

			Expect(s.Submit(ctx, chat.Submission{Prompt: ""})).To(MatchError(chat.ErrEmptyPrompt))
			Expect(s.Submit(ctx, chat.Submission{Prompt: " \n"})).To(MatchError(chat.ErrEmptyPrompt))

			Expect(s.Transcript()).To(BeEmpty())
			Expect(client.streamCalls).To(BeEmpty())
			Expect(client.completeCalls).To(BeEmpty())
			Expect(snapshots).To(BeEmpty())
		})
	})

	Context("when streaming", func() {
		It("adds one prompt and one response entry", func() {
			s := newSess(true)

			Expect(s.Submit(ctx, chat.Submission{Prompt: "greet me"})).To(Succeed())

			msgs := s.Transcript()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Role).To(Equal(transcript.RolePrompt))
			Expect(msgs[0].Text).To(Equal("greet me"))
			Expect(msgs[1].Role).To(Equal(transcript.RoleResponse))
			Expect(msgs[1].Text).To(Equal("Hello"))
		})

		It("replaces the last entry once per fragment", func() {
			s := newSess(true)
			Expect(s.Submit(ctx, chat.Submission{Prompt: "greet me"})).To(Succeed())

			var lastTexts []string
			for _, snap := range snapshots {
				if last := snap[len(snap)-1]; last.Role == transcript.RoleResponse {
					lastTexts = append(lastTexts, last.Text)
				}
			}
			Expect(lastTexts).To(HaveLen(4))
			Expect(lastTexts[:3]).To(Equal([]string{"", "Hel", "Hello"}))
			for _, snap := range snapshots {
				Expect(len(snap)).To(BeNumerically("<=", 2))
			}
		})

		It("grows by one response per submission", func() {
			s := newSess(true)
			for i := 0; i < 3; i++ {
				Expect(s.Submit(ctx, chat.Submission{Prompt: "again"})).To(Succeed())
			}

			responses := 0
			for _, m := range s.Transcript() {
				if m.Role == transcript.RoleResponse {
					responses++
				}
			}
			Expect(responses).To(Equal(3))
			Expect(s.Transcript()).To(HaveLen(6))
		})

		It("never sets partial content on a non-success status", func() {
			client.openErr = &inference.StatusError{Code: 500, Body: "boom"}
			s := newSess(true)

			Expect(s.Submit(ctx, chat.Submission{Prompt: "hi"})).To(Succeed())

			msgs := s.Transcript()
			Expect(msgs).To(HaveLen(1))
			Expect(msgs[0].Role).To(Equal(transcript.RolePrompt))
			Expect(s.Submitting()).To(BeFalse())
		})

		It("keeps the partial entry when the transport fails mid-stream", func() {
			client.failErr = errors.New("connection reset")
			s := newSess(true)

			Expect(s.Submit(ctx, chat.Submission{Prompt: "hi"})).To(Succeed())

			msgs := s.Transcript()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[1].Text).To(Equal("Hello"))
			Expect(s.Submitting()).To(BeFalse())
		})
	})

	Context("when blocking", func() {
		It("appends the full response once", func() {
			s := newSess(false)

			Expect(s.Submit(ctx, chat.Submission{Prompt: "hi"})).To(Succeed())

			msgs := s.Transcript()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[1].Text).To(Equal("Hello"))
			Expect(client.completeCalls).To(HaveLen(1))
		})

		It("appends nothing when the call fails", func() {
			client.openErr = inference.ErrEmptyResponse
			s := newSess(false)

			Expect(s.Submit(ctx, chat.Submission{Prompt: "hi"})).To(Succeed())
			Expect(s.Transcript()).To(HaveLen(1))
		})
	})

	Context("with an image", func() {
		It("sends text and image together and keeps the reference on the prompt", func() {
			img := &attachment.Image{Name: "cat.png", MediaType: attachment.MediaPNG, DataURI: "data:image/png;base64,AAAA"}
			s := newSess(true)

			Expect(s.Submit(ctx, chat.Submission{Prompt: "Describe this", Image: img})).To(Succeed())

			Expect(client.streamCalls).To(BeEmpty())
			Expect(client.completeCalls).To(HaveLen(1))
			Expect(client.completeCalls[0].Text).To(Equal("Describe this"))
			Expect(client.completeCalls[0].ImageURL).To(Equal(img.DataURI))

			msgs := s.Transcript()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Image).NotTo(BeNil())
			Expect(msgs[0].Image.Name).To(Equal("cat.png"))
			Expect(msgs[1].Text).To(Equal("Hello"))
		})
	})

	It("rejects a second submission while one is in progress", func() {
		var s *chat.Session
		var nested error
		client.during = func() {
			Expect(s.Submitting()).To(BeTrue())
			nested = s.Submit(ctx, chat.Submission{Prompt: "second"})
		}
		s = newSess(true)

		Expect(s.Submit(ctx, chat.Submission{Prompt: "first"})).To(Succeed())
		Expect(nested).To(MatchError(chat.ErrBusy))
		Expect(client.streamCalls).To(HaveLen(1))
		Expect(s.Submitting()).To(BeFalse())
	})
})
