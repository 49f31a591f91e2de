// Package inmemory provides a map backed transcript driver.
package inmemory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/papercomputeco/fleet/pkg/chatstream"
	"github.com/papercomputeco/fleet/pkg/transcript"
)

// Driver implements transcript.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the mapping of transcripts
	mu sync.RWMutex

	// transcripts is keyed by session id
	transcripts map[string]*chatstream.Transcript
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		transcripts: make(map[string]*chatstream.Transcript),
	}
}

// Put implements transcript.Driver.
func (d *Driver) Put(_ context.Context, t *chatstream.Transcript) error {
	if t == nil {
		return transcript.ErrNilTranscript
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.transcripts[t.SessionID] = t
	return nil
}

// Get implements transcript.Driver.
func (d *Driver) Get(_ context.Context, sessionID string) (*chatstream.Transcript, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	t, ok := d.transcripts[sessionID]
	if !ok {
		return nil, transcript.NotFoundError{SessionID: sessionID}
	}

	return t, nil
}

// ListByConversation implements transcript.Driver.
func (d *Driver) ListByConversation(_ context.Context, conversationID string) ([]*chatstream.Transcript, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*chatstream.Transcript
	for _, t := range d.transcripts {
		if t.ConversationID == conversationID {
			result = append(result, t)
		}
	}

	sortByStart(result)
	return result, nil
}

// List implements transcript.Driver.
func (d *Driver) List(_ context.Context) ([]*chatstream.Transcript, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*chatstream.Transcript, 0, len(d.transcripts))
	for _, t := range d.transcripts {
		result = append(result, t)
	}

	sortByStart(result)
	return result, nil
}

// Close implements transcript.Driver.
func (d *Driver) Close() error {
	return nil
}

func sortByStart(ts []*chatstream.Transcript) {
	slices.SortStableFunc(ts, func(a, b *chatstream.Transcript) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(a.SessionID, b.SessionID)
	})
}
