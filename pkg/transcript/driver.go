// Package transcript persists the transcripts of finished chat stream
// sessions.
package transcript

import (
	"context"

	"github.com/papercomputeco/fleet/pkg/chatstream"
)

// Driver defines the interface for persisting and retrieving session
// transcripts in a storage backend.
type Driver interface {
	// Put stores a transcript keyed by its session id. Storing a transcript
	// for a known session id replaces the stored one.
	Put(ctx context.Context, t *chatstream.Transcript) error

	// Get retrieves a transcript by session id.
	Get(ctx context.Context, sessionID string) (*chatstream.Transcript, error)

	// ListByConversation returns the transcripts of a conversation, oldest
	// first.
	ListByConversation(ctx context.Context, conversationID string) ([]*chatstream.Transcript, error)

	// List returns all transcripts, oldest first.
	List(ctx context.Context) ([]*chatstream.Transcript, error)

	// Close closes the store and releases any resources.
	Close() error
}

// Latest returns the most recent transcript of a conversation that ended
// without a transport failure. An empty conversationID searches every
// conversation.
func Latest(ctx context.Context, d Driver, conversationID string) (*chatstream.Transcript, error) {
	var (
		ts  []*chatstream.Transcript
		err error
	)
	if conversationID == "" {
		ts, err = d.List(ctx)
	} else {
		ts, err = d.ListByConversation(ctx, conversationID)
	}
	if err != nil {
		return nil, err
	}

	for i := len(ts) - 1; i >= 0; i-- {
		if ts[i].State != chatstream.StateError {
			return ts[i], nil
		}
	}

	return nil, NotFoundError{ConversationID: conversationID}
}
