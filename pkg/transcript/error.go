package transcript

import "errors"

// ErrNilTranscript is returned when a nil transcript is stored.
var ErrNilTranscript = errors.New("cannot store nil transcript")

// NotFoundError is returned when a transcript doesn't exist in the store.
type NotFoundError struct {
	SessionID      string
	ConversationID string
}

func (e NotFoundError) Error() string {
	switch {
	case e.SessionID != "":
		return "transcript not found: " + e.SessionID
	case e.ConversationID != "":
		return "no transcript for conversation: " + e.ConversationID
	default:
		return "transcript not found"
	}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
