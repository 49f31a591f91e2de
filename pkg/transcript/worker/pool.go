// Package worker provides an asynchronous worker pool for persisting the
// transcripts of finished chat stream sessions using the provided
// transcript.Driver and announcing them on an eventstream.Publisher.
//
// The pool decouples storage and publishing from the session read loop so a
// slow store never delays the next session.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/fleet/pkg/chatstream"
	"github.com/papercomputeco/fleet/pkg/eventstream"
	"github.com/papercomputeco/fleet/pkg/logger"
	"github.com/papercomputeco/fleet/pkg/transcript"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the storage backend for persisting transcripts.
	Driver transcript.Driver

	// Publisher optionally announces every stored transcript.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered transcript channel (defaults to 256).
	QueueSize uint

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Pool processes transcripts asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan *chatstream.Transcript
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

var _ chatstream.Recorder = (*Pool)(nil)

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Driver == nil {
		return nil, fmt.Errorf("worker pool requires a transcript driver")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan *chatstream.Transcript, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Record submits a transcript for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the transcript being dropped.
func (p *Pool) Record(t *chatstream.Transcript) bool {
	if t == nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Error("transcript not queued, pool closed",
			"session_id", t.SessionID,
		)
		return false
	}

	select {
	case p.queue <- t:
		p.logger.Debug("transcript queued",
			"session_id", t.SessionID,
			"conversation_id", t.ConversationID,
		)
		return true
	default:
		p.logger.Error("transcript not queued, queue full, transcript dropped",
			"session_id", t.SessionID,
			"conversation_id", t.ConversationID,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight transcripts to drain.
// Call this during shutdown after every session has finished.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls transcripts off the queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for t := range p.queue {
		p.process(t)
	}

	p.logger.Debug("transcript worker stopped", "worker_id", id)
}

// process stores a transcript and then publishes its session ended event.
// A transcript that failed to store is not published.
func (p *Pool) process(t *chatstream.Transcript) {
	ctx := context.Background()

	if err := p.config.Driver.Put(ctx, t); err != nil {
		p.logger.Error("async transcript storage failed",
			"session_id", t.SessionID,
			"error", err,
		)
		return
	}

	p.logger.Info("transcript stored",
		"session_id", t.SessionID,
		"conversation_id", t.ConversationID,
		"state", t.State.String(),
		"events", len(t.Events),
	)

	if p.config.Publisher == nil {
		return
	}

	event := eventstream.NewSessionEndedEvent(t)
	if err := p.config.Publisher.PublishSessionEnded(ctx, event); err != nil {
		p.logger.Warn("failed to publish session event",
			"session_id", t.SessionID,
			"event_id", event.EventID,
			"error", err,
		)
		return
	}

	p.logger.Debug("published session event",
		"session_id", t.SessionID,
		"event_id", event.EventID,
	)
}
