package chatstream

import (
	"log/slog"

	"github.com/papercomputeco/fleet/pkg/logger"
)

const (
	defaultChunkSize = 32 * 1024
)

// Option configures a Session.
type Option func(*options)

type options struct {
	id             string
	conversationID string
	kind           Kind
	logger         *slog.Logger
	chunkSize      int
	maxDropped     int64
	onFinish       []func(*Session)
}

func defaultOptions() *options {
	return &options{
		kind:      KindSend,
		logger:    logger.Nop(),
		chunkSize: defaultChunkSize,
	}
}

// WithID sets the session id. A random id is generated otherwise.
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithConversation tags the session with the conversation it streams into.
func WithConversation(id string) Option {
	return func(o *options) {
		o.conversationID = id
	}
}

// WithKind tags the session with the call site that started it.
func WithKind(kind Kind) Option {
	return func(o *options) {
		o.kind = kind
	}
}

// WithLogger sets the logger used for session diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithChunkSize sets the read buffer size used for each transport read.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithMaxDroppedFrames logs a single warning once more than n malformed
// frames were dropped by the session. Zero disables the warning. Dropped
// frames never terminate the session.
func WithMaxDroppedFrames(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDropped = int64(n)
		}
	}
}

// OnFinish registers fn to run on the session goroutine after the session
// reached its terminal state and released the transport, before Done is
// closed. fn must not call Wait on the same session.
func OnFinish(fn func(*Session)) Option {
	return func(o *options) {
		if fn != nil {
			o.onFinish = append(o.onFinish, fn)
		}
	}
}
