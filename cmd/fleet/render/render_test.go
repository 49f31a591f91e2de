package render_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/fleet/cmd/fleet/render"
	"github.com/papercomputeco/fleet/pkg/chatstream"
)

func event(t chatstream.EventType, data string) chatstream.Event {
	ev := chatstream.Event{Type: t}
	if data != "" {
		ev.Data = json.RawMessage(data)
	}
	return ev
}

var _ = Describe("render", func() {
	Describe("DeltaText", func() {
		It("reads the content field", func() {
			Expect(render.DeltaText(event(chatstream.EventDelta, `{"content":"x"}`))).To(Equal("x"))
		})

		It("reads a bare string payload", func() {
			Expect(render.DeltaText(event(chatstream.EventDelta, `"hello"`))).To(Equal("hello"))
		})

		It("falls back to the text field", func() {
			Expect(render.DeltaText(event(chatstream.EventDelta, `{"text":"y"}`))).To(Equal("y"))
		})

		It("ignores other event types", func() {
			Expect(render.DeltaText(event(chatstream.EventDone, `{"content":"x"}`))).To(BeEmpty())
		})

		It("ignores deltas without a payload", func() {
			Expect(render.DeltaText(event(chatstream.EventDelta, ""))).To(BeEmpty())
		})
	})

	Describe("ConversationID", func() {
		It("reads conversation_id then id", func() {
			Expect(render.ConversationID(event(chatstream.EventConversation, `{"conversation_id":"c1"}`))).To(Equal("c1"))
			Expect(render.ConversationID(event(chatstream.EventConversation, `{"id":"c2"}`))).To(Equal("c2"))
		})

		It("ignores other event types", func() {
			Expect(render.ConversationID(event(chatstream.EventStart, `{"id":"c2"}`))).To(BeEmpty())
		})
	})

	Describe("MessageID", func() {
		It("reads the id from finish and done events", func() {
			Expect(render.MessageID(event(chatstream.EventFinish, `{"message_id":"m1"}`))).To(Equal("m1"))
			Expect(render.MessageID(event(chatstream.EventDone, `{"id":"m2"}`))).To(Equal("m2"))
			Expect(render.MessageID(event(chatstream.EventStart, `{"message":{"id":"m3"}}`))).To(Equal("m3"))
		})

		It("ignores deltas", func() {
			Expect(render.MessageID(event(chatstream.EventDelta, `{"id":"m1"}`))).To(BeEmpty())
		})
	})

	Describe("Assemble", func() {
		It("joins delta text in order", func() {
			events := []chatstream.Event{
				event(chatstream.EventStart, ""),
				event(chatstream.EventDelta, `{"content":"Hel"}`),
				event(chatstream.EventToolCall, `{"name":"search"}`),
				event(chatstream.EventDelta, `{"content":"lo"}`),
			}
			Expect(render.Assemble(events)).To(Equal("Hello"))
		})
	})

	Describe("EventLine", func() {
		It("describes each event kind", func() {
			Expect(render.EventLine(event(chatstream.EventDelta, `{"content":"hi"}`), 0)).To(Equal(`delta  "hi"`))
			Expect(render.EventLine(chatstream.ErrorEvent("boom"), 0)).To(Equal("error  boom"))
			Expect(render.EventLine(event(chatstream.EventToolCall, `{"name":"search"}`), 0)).To(Equal("tool_call  search"))
			Expect(render.EventLine(event(chatstream.EventStart, ""), 0)).To(Equal("start"))
		})

		It("shows the raw payload of unknown events", func() {
			Expect(render.EventLine(event("progress", `{"pct":50}`), 0)).To(Equal(`progress  {"pct":50}`))
		})

		It("truncates to width", func() {
			line := render.EventLine(event(chatstream.EventDelta, `{"content":"a long piece of text"}`), 12)
			Expect(line).To(Equal(`delta  "a lo...`))
			Expect(line).To(HaveSuffix("..."))
		})
	})
})
