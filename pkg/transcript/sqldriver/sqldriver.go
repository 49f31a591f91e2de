// Package sqldriver implements transcript.Driver over database/sql. Statements
// are built with ent's dialect aware SQL builder so the same driver serves
// SQLite and PostgreSQL.
package sqldriver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/fleet/pkg/chatstream"
	"github.com/papercomputeco/fleet/pkg/transcript"
)

const (
	table = "transcripts"

	colSessionID      = "session_id"
	colConversationID = "conversation_id"
	colKind           = "kind"
	colState          = "state"
	colError          = "error_message"
	colEvents         = "events"
	colDropped        = "dropped"
	colStartedAt      = "started_at"
	colEndedAt        = "ended_at"
)

var columns = []string{
	colSessionID,
	colConversationID,
	colKind,
	colState,
	colError,
	colEvents,
	colDropped,
	colStartedAt,
	colEndedAt,
}

// schema is valid for both SQLite and PostgreSQL. Times are stored as unix
// nanoseconds.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS transcripts (
		session_id      TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		kind            TEXT NOT NULL,
		state           TEXT NOT NULL,
		error_message   TEXT NOT NULL DEFAULT '',
		events          TEXT NOT NULL,
		dropped         BIGINT NOT NULL DEFAULT 0,
		started_at      BIGINT NOT NULL,
		ended_at        BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transcripts_conversation_started
		ON transcripts (conversation_id, started_at)`,
}

// Driver implements transcript.Driver on an ent SQL driver.
type Driver struct {
	drv *entsql.Driver
}

// record is the row layout of the transcripts table.
type record struct {
	SessionID      string `sql:"session_id"`
	ConversationID string `sql:"conversation_id"`
	Kind           string `sql:"kind"`
	State          string `sql:"state"`
	Error          string `sql:"error_message"`
	Events         string `sql:"events"`
	Dropped        int64  `sql:"dropped"`
	StartedAt      int64  `sql:"started_at"`
	EndedAt        int64  `sql:"ended_at"`
}

// New wraps drv and creates the transcripts schema when missing.
func New(ctx context.Context, drv *entsql.Driver) (*Driver, error) {
	d := &Driver{drv: drv}
	if err := d.migrate(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Driver) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if err := d.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Put implements transcript.Driver.
func (d *Driver) Put(ctx context.Context, t *chatstream.Transcript) error {
	if t == nil {
		return transcript.ErrNilTranscript
	}

	events, err := json.Marshal(t.Events)
	if err != nil {
		return fmt.Errorf("marshaling events: %w", err)
	}

	query, args := entsql.Dialect(d.drv.Dialect()).
		Insert(table).
		Columns(columns...).
		Values(
			t.SessionID,
			t.ConversationID,
			string(t.Kind),
			t.State.String(),
			t.Error,
			string(events),
			t.Dropped,
			t.StartedAt.UnixNano(),
			t.EndedAt.UnixNano(),
		).
		OnConflict(
			entsql.ConflictColumns(colSessionID),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if err := d.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("storing transcript %s: %w", t.SessionID, err)
	}

	return nil
}

// Get implements transcript.Driver.
func (d *Driver) Get(ctx context.Context, sessionID string) (*chatstream.Transcript, error) {
	ts, err := d.query(ctx, func(s *entsql.Selector) {
		s.Where(entsql.EQ(colSessionID, sessionID))
	})
	if err != nil {
		return nil, err
	}

	if len(ts) == 0 {
		return nil, transcript.NotFoundError{SessionID: sessionID}
	}

	return ts[0], nil
}

// ListByConversation implements transcript.Driver.
func (d *Driver) ListByConversation(ctx context.Context, conversationID string) ([]*chatstream.Transcript, error) {
	return d.query(ctx, func(s *entsql.Selector) {
		s.Where(entsql.EQ(colConversationID, conversationID))
	})
}

// List implements transcript.Driver.
func (d *Driver) List(ctx context.Context) ([]*chatstream.Transcript, error) {
	return d.query(ctx, nil)
}

// Close implements transcript.Driver.
func (d *Driver) Close() error {
	return d.drv.Close()
}

// query selects transcripts oldest first, narrowed by where when set.
func (d *Driver) query(ctx context.Context, where func(*entsql.Selector)) ([]*chatstream.Transcript, error) {
	b := entsql.Dialect(d.drv.Dialect())
	selector := b.Select(columns...).
		From(b.Table(table)).
		OrderBy(colStartedAt, colSessionID)
	if where != nil {
		where(selector)
	}

	query, args := selector.Query()

	var rows entsql.Rows
	if err := d.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("querying transcripts: %w", err)
	}
	defer rows.Close()

	var records []record
	if err := entsql.ScanSlice(&rows, &records); err != nil {
		return nil, fmt.Errorf("scanning transcripts: %w", err)
	}

	result := make([]*chatstream.Transcript, 0, len(records))
	for _, r := range records {
		t, err := r.transcript()
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}

	return result, nil
}

func (r record) transcript() (*chatstream.Transcript, error) {
	state, err := chatstream.ParseState(r.State)
	if err != nil {
		return nil, fmt.Errorf("transcript %s: %w", r.SessionID, err)
	}

	var events []chatstream.Event
	if err := json.Unmarshal([]byte(r.Events), &events); err != nil {
		return nil, fmt.Errorf("transcript %s: parsing events: %w", r.SessionID, err)
	}

	return &chatstream.Transcript{
		SessionID:      r.SessionID,
		ConversationID: r.ConversationID,
		Kind:           chatstream.Kind(r.Kind),
		State:          state,
		Error:          r.Error,
		Events:         events,
		Dropped:        r.Dropped,
		StartedAt:      time.Unix(0, r.StartedAt).UTC(),
		EndedAt:        time.Unix(0, r.EndedAt).UTC(),
	}, nil
}
