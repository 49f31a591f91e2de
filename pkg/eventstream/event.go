package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/fleet/pkg/chatstream"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeSessionEnded is emitted after a chat stream session finished.
	EventTypeSessionEnded = "fleet.chat.session.ended"
)

// SessionEndedEvent is a transport-neutral event payload for a finished
// stream session.
type SessionEndedEvent struct {
	SchemaVersion  int       `json:"schema_version"`
	EventType      string    `json:"event_type"`
	EventID        string    `json:"event_id"`
	EmittedAt      time.Time `json:"emitted_at"`
	SessionID      string    `json:"session_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Kind           string    `json:"kind"`
	State          string    `json:"state"`
	Error          string    `json:"error,omitempty"`
	EventCount     int       `json:"event_count"`
	DroppedFrames  int64     `json:"dropped_frames"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
	DurationMs     int64     `json:"duration_ms"`
}

// NewSessionEndedEvent describes the session summarized by t.
func NewSessionEndedEvent(t *chatstream.Transcript) *SessionEndedEvent {
	return &SessionEndedEvent{
		SchemaVersion:  SchemaVersionV1,
		EventType:      EventTypeSessionEnded,
		EventID:        uuid.NewString(),
		EmittedAt:      time.Now().UTC(),
		SessionID:      t.SessionID,
		ConversationID: t.ConversationID,
		Kind:           string(t.Kind),
		State:          t.State.String(),
		Error:          t.Error,
		EventCount:     len(t.Events),
		DroppedFrames:  t.Dropped,
		StartedAt:      t.StartedAt,
		EndedAt:        t.EndedAt,
		DurationMs:     t.Duration().Milliseconds(),
	}
}
