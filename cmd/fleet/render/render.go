// Package render extracts the human readable parts of chat stream events for
// terminal output. Event payloads are opaque to the stream client; the paths
// read here follow what the chat backend sends.
package render

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/papercomputeco/fleet/pkg/chatstream"
	"github.com/papercomputeco/fleet/pkg/utils"
)

// DeltaText returns the text carried by a delta event. The payload is either
// an object with a "content" or "text" field or a bare JSON string.
func DeltaText(ev chatstream.Event) string {
	if ev.Type != chatstream.EventDelta || len(ev.Data) == 0 {
		return ""
	}

	root := gjson.ParseBytes(ev.Data)
	if root.Type == gjson.String {
		return root.String()
	}

	return first(root, "content", "text", "delta.content")
}

// ConversationID returns the conversation id announced by a conversation
// event.
func ConversationID(ev chatstream.Event) string {
	if ev.Type != chatstream.EventConversation || len(ev.Data) == 0 {
		return ""
	}
	return first(gjson.ParseBytes(ev.Data), "conversation_id", "id")
}

// MessageID returns the id of the assistant message a start, finish or done
// event refers to.
func MessageID(ev chatstream.Event) string {
	switch ev.Type {
	case chatstream.EventStart, chatstream.EventFinish, chatstream.EventDone:
	default:
		return ""
	}

	if len(ev.Data) == 0 {
		return ""
	}
	return first(gjson.ParseBytes(ev.Data), "message_id", "id", "message.id")
}

// ToolName returns the name of the tool a tool_call or tool_result event
// refers to.
func ToolName(ev chatstream.Event) string {
	if len(ev.Data) == 0 {
		return ""
	}
	return first(gjson.ParseBytes(ev.Data), "name", "tool", "function.name")
}

// Assemble concatenates the delta text of events.
func Assemble(events []chatstream.Event) string {
	var b strings.Builder
	for _, ev := range events {
		b.WriteString(DeltaText(ev))
	}
	return b.String()
}

// EventLine is a one line description of ev.
func EventLine(ev chatstream.Event, width int) string {
	var detail string

	switch ev.Type {
	case chatstream.EventDelta:
		detail = fmt.Sprintf("%q", DeltaText(ev))
	case chatstream.EventError:
		detail = ev.Error
	case chatstream.EventToolCall, chatstream.EventToolResult:
		detail = ToolName(ev)
	case chatstream.EventConversation:
		detail = ConversationID(ev)
	default:
		detail = MessageID(ev)
	}

	if detail == "" && len(ev.Data) > 0 {
		detail = string(ev.Data)
	}

	line := string(ev.Type)
	if detail != "" {
		line += "  " + detail
	}

	if width > 0 {
		line = utils.Truncate(line, width)
	}
	return line
}

// first returns the first non-empty string found at paths.
func first(root gjson.Result, paths ...string) string {
	for _, p := range paths {
		if r := root.Get(p); r.Exists() && r.String() != "" {
			return r.String()
		}
	}
	return ""
}
