package chatstream_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/fleet/pkg/chatstream"
)

var _ = Describe("ParseLine", func() {
	It("parses a typed event with an opaque payload", func() {
		ev, res, err := chatstream.ParseLine(`data: {"type":"delta","data":{"content":"hi"}}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(chatstream.ParseEvent))
		Expect(ev.Type).To(Equal(chatstream.EventDelta))
		Expect(ev.Data).To(MatchJSON(`{"content":"hi"}`))
	})

	It("parses an error event", func() {
		ev, res, err := chatstream.ParseLine(`data: {"type":"error","error":"rate limited"}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(chatstream.ParseEvent))
		Expect(ev).To(Equal(chatstream.ErrorEvent("rate limited")))
	})

	It("recognizes the sentinel", func() {
		_, res, err := chatstream.ParseLine("data: [DONE]")
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(chatstream.ParseSentinel))
	})

	It("recognizes the sentinel on a CRLF framed line", func() {
		_, res, _ := chatstream.ParseLine("data: [DONE]\r")
		Expect(res).To(Equal(chatstream.ParseSentinel))
	})

	It("passes unknown event types through", func() {
		ev, res, err := chatstream.ParseLine(`data: {"type":"usage","data":{"tokens":12}}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(chatstream.ParseEvent))
		Expect(ev.Type).To(Equal(chatstream.EventType("usage")))
		Expect(ev.Type.Known()).To(BeFalse())
	})

	It("drops malformed JSON", func() {
		_, res, err := chatstream.ParseLine(`data: {"type":"delta",`)
		Expect(res).To(Equal(chatstream.ParseDropped))
		Expect(err).To(HaveOccurred())
	})

	It("drops an event without a type", func() {
		_, res, err := chatstream.ParseLine(`data: {"data":{"content":"x"}}`)
		Expect(res).To(Equal(chatstream.ParseDropped))
		Expect(err).To(HaveOccurred())
	})

	DescribeTable("drops well-formed JSON that has no type",
		func(line string) {
			_, res, err := chatstream.ParseLine(line)
			Expect(res).To(Equal(chatstream.ParseDropped))
			Expect(err).To(HaveOccurred())
		},
		Entry("null payload", `data: null`),
		Entry("empty object", `data: {}`),
		Entry("empty type", `data: {"type":""}`),
	)

	DescribeTable("ignores lines that are not data frames",
		func(line string) {
			_, res, err := chatstream.ParseLine(line)
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal(chatstream.ParseIgnored))
		},
		Entry("blank line", ""),
		Entry("comment", ": keep-alive"),
		Entry("event field", "event: message"),
		Entry("id field", "id: 7"),
		Entry("retry field", "retry: 1000"),
		Entry("data without space", `data:{"type":"delta"}`),
	)
})

var _ = Describe("EventType", func() {
	It("knows every protocol event type", func() {
		for _, t := range []chatstream.EventType{
			chatstream.EventStart, chatstream.EventDelta, chatstream.EventToolCall,
			chatstream.EventToolResult, chatstream.EventDone, chatstream.EventError,
			chatstream.EventConversation, chatstream.EventFinish,
		} {
			Expect(t.Known()).To(BeTrue(), string(t))
		}
	})
})

var _ = Describe("State", func() {
	It("round trips through its text form", func() {
		for _, s := range []chatstream.State{
			chatstream.StateActive, chatstream.StateDone,
			chatstream.StateError, chatstream.StateAborted,
		} {
			text, err := s.MarshalText()
			Expect(err).NotTo(HaveOccurred())

			var parsed chatstream.State
			Expect(parsed.UnmarshalText(text)).To(Succeed())
			Expect(parsed).To(Equal(s))
		}
	})

	It("reports terminal states", func() {
		Expect(chatstream.StateActive.Terminal()).To(BeFalse())
		Expect(chatstream.StateDone.Terminal()).To(BeTrue())
		Expect(chatstream.StateError.Terminal()).To(BeTrue())
		Expect(chatstream.StateAborted.Terminal()).To(BeTrue())
	})

	It("rejects unknown names", func() {
		_, err := chatstream.ParseState("paused")
		Expect(err).To(HaveOccurred())
	})
})
