// Package nop discards session events. It stands in for a broker when
// eventstream.provider is unset.
package nop

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/papercomputeco/fleet/pkg/eventstream"
	"github.com/papercomputeco/fleet/pkg/logger"
)

// Publisher logs every session event at debug level and drops it.
type Publisher struct {
	logger    *slog.Logger
	discarded atomic.Int64
}

// NewPublisher returns a Publisher logging to l. A nil logger discards logs.
func NewPublisher(l *slog.Logger) *Publisher {
	if l == nil {
		l = logger.Nop()
	}
	return &Publisher{logger: l}
}

// PublishSessionEnded rejects nil events and drops everything else.
func (p *Publisher) PublishSessionEnded(_ context.Context, event *eventstream.SessionEndedEvent) error {
	if event == nil {
		return eventstream.ErrNilSessionEvent
	}

	p.discarded.Add(1)
	p.logger.Debug("session event discarded",
		"session_id", event.SessionID,
		"state", event.State,
		"events", event.EventCount,
	)
	return nil
}

// Discarded returns how many events were dropped.
func (p *Publisher) Discarded() int64 {
	return p.discarded.Load()
}

func (p *Publisher) Close() error {
	return nil
}
