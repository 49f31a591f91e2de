// Package redis provides a Redis-backed transcript driver.
//
// Each transcript is stored as a JSON string under <prefix>:session:<id>.
// Sorted sets scored by start time index all sessions and the sessions of
// each conversation.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/papercomputeco/fleet/pkg/chatstream"
	"github.com/papercomputeco/fleet/pkg/transcript"
)

// DefaultPrefix is the key prefix used when none is configured.
const DefaultPrefix = "fleet:transcripts"

// Driver implements transcript.Driver using Redis.
type Driver struct {
	rdb    *goredis.Client
	prefix string
}

// NewDriver creates a new Redis-backed transcript store. The url is a Redis
// URL such as "redis://localhost:6379/0". An empty prefix uses
// DefaultPrefix.
func NewDriver(ctx context.Context, url, prefix string) (*Driver, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Driver{rdb: rdb, prefix: prefix}, nil
}

// Put implements transcript.Driver.
func (d *Driver) Put(ctx context.Context, t *chatstream.Transcript) error {
	if t == nil {
		return transcript.ErrNilTranscript
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}

	prev, err := d.Get(ctx, t.SessionID)
	if err != nil && !transcript.IsNotFound(err) {
		return err
	}

	score := float64(t.StartedAt.UnixMicro())
	_, err = d.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, d.sessionKey(t.SessionID), data, 0)
		pipe.ZAdd(ctx, d.allKey(), goredis.Z{Score: score, Member: t.SessionID})
		if prev != nil && prev.ConversationID != t.ConversationID {
			pipe.ZRem(ctx, d.conversationKey(prev.ConversationID), t.SessionID)
		}
		pipe.ZAdd(ctx, d.conversationKey(t.ConversationID), goredis.Z{Score: score, Member: t.SessionID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store transcript: %w", err)
	}

	return nil
}

// Get implements transcript.Driver.
func (d *Driver) Get(ctx context.Context, sessionID string) (*chatstream.Transcript, error) {
	data, err := d.rdb.Get(ctx, d.sessionKey(sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, transcript.NotFoundError{SessionID: sessionID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}

	var t chatstream.Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode transcript %s: %w", sessionID, err)
	}

	return &t, nil
}

// ListByConversation implements transcript.Driver.
func (d *Driver) ListByConversation(ctx context.Context, conversationID string) ([]*chatstream.Transcript, error) {
	return d.list(ctx, d.conversationKey(conversationID))
}

// List implements transcript.Driver.
func (d *Driver) List(ctx context.Context) ([]*chatstream.Transcript, error) {
	return d.list(ctx, d.allKey())
}

// Close implements transcript.Driver.
func (d *Driver) Close() error {
	return d.rdb.Close()
}

// list loads the transcripts indexed by the sorted set at key, oldest first.
func (d *Driver) list(ctx context.Context, key string) ([]*chatstream.Transcript, error) {
	ids, err := d.rdb.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = d.sessionKey(id)
	}

	values, err := d.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load transcripts: %w", err)
	}

	result := make([]*chatstream.Transcript, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// Indexed but deleted out of band.
			continue
		}

		var t chatstream.Transcript
		if err := json.Unmarshal([]byte(s), &t); err != nil {
			return nil, fmt.Errorf("failed to decode transcript %s: %w", ids[i], err)
		}
		result = append(result, &t)
	}

	return result, nil
}

func (d *Driver) sessionKey(id string) string {
	return d.prefix + ":session:" + id
}

func (d *Driver) allKey() string {
	return d.prefix + ":all"
}

func (d *Driver) conversationKey(id string) string {
	return d.prefix + ":conversation:" + id
}

var _ transcript.Driver = (*Driver)(nil)
