package chatstream

import "time"

// Transcript is the record of a finished session.
type Transcript struct {
	SessionID      string    `json:"session_id"`
	ConversationID string    `json:"conversation_id"`
	Kind           Kind      `json:"kind"`
	State          State     `json:"state"`
	Error          string    `json:"error,omitempty"`
	Events         []Event   `json:"events"`
	Dropped        int64     `json:"dropped"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
}

// Duration returns how long the session ran.
func (t *Transcript) Duration() time.Duration {
	return t.EndedAt.Sub(t.StartedAt)
}

// Recorder receives transcripts of finished sessions. Record is called on the
// session goroutine and must not block; it reports whether the transcript was
// accepted.
type Recorder interface {
	Record(t *Transcript) bool
}

// NewTranscript summarizes a finished session with the events its handler
// received.
func NewTranscript(s *Session, events []Event) *Transcript {
	t := &Transcript{
		SessionID:      s.ID(),
		ConversationID: s.ConversationID(),
		Kind:           s.Kind(),
		State:          s.State(),
		Events:         events,
		Dropped:        s.Dropped(),
		StartedAt:      s.StartedAt(),
		EndedAt:        s.EndedAt(),
	}

	if err := s.Err(); err != nil {
		t.Error = err.Error()
	}

	return t
}
