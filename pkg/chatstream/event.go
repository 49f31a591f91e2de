// Package chatstream is the incremental chat response client. It opens a
// long-lived response body, decodes it into typed events and dispatches them
// to a caller supplied Handler, with caller initiated cancellation.
//
// ┌───────────┐   ┌─────────────┐   ┌───────────┐   ┌─────────┐
// │ Transport │──▶│ sse.Decoder │──▶│ ParseLine │──▶│ Handler │
// └───────────┘   └─────────────┘   └───────────┘   └─────────┘
//       ▲
//       └── Session.Cancel aborts the body and halts dispatch
//
// A Session moves monotonically from StateActive to exactly one of
// StateDone, StateError or StateAborted. The Handler is never invoked once
// the session is terminal, with the single exception of the synthetic error
// event that is the exit action of entering StateError.
package chatstream

import (
	"encoding/json"
)

// EventType is the discriminator of an Event.
type EventType string

const (
	EventStart        EventType = "start"
	EventDelta        EventType = "delta"
	EventToolCall     EventType = "tool_call"
	EventToolResult   EventType = "tool_result"
	EventDone         EventType = "done"
	EventError        EventType = "error"
	EventConversation EventType = "conversation"
	EventFinish       EventType = "finish"
)

// Known reports whether t is one of the event types of the chat protocol.
// Events of unknown types are still delivered to handlers untouched.
func (t EventType) Known() bool {
	switch t {
	case EventStart, EventDelta, EventToolCall, EventToolResult,
		EventDone, EventError, EventConversation, EventFinish:
		return true
	default:
		return false
	}
}

// Event is one decoded frame of a chat stream.
type Event struct {
	Type EventType `json:"type"`

	// Data is the opaque payload of the event, kept as raw JSON.
	Data json.RawMessage `json:"data,omitempty"`

	// Error is the failure description carried by error events.
	Error string `json:"error,omitempty"`
}

// ErrorEvent builds the synthetic error event dispatched on transport failure.
func ErrorEvent(message string) Event {
	return Event{
		Type:  EventError,
		Error: message,
	}
}

// Handler receives events in arrival order. Handlers are invoked sequentially
// from the session goroutine and should return promptly; a slow handler
// delays reading of the next chunk.
type Handler func(Event)
