package chatstream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/fleet/pkg/sse"
	"github.com/papercomputeco/fleet/pkg/utils"
)

// Session owns one in-flight streaming request. It is the handle returned to
// the caller: the only capability it exposes over the stream is Cancel.
type Session struct {
	id             string
	conversationID string
	kind           Kind

	transport Transport
	request   *Request
	deliver   func(Event) bool
	logger    *slog.Logger

	chunkSize  int
	maxDropped int64
	onFinish   []func(*Session)

	ctx    context.Context
	cancel context.CancelFunc

	state      atomic.Int32
	dropped    atomic.Int64
	dispatched atomic.Int64
	warned     bool

	release sync.Once
	done    chan struct{}

	// mu guards the fields written when the session ends.
	mu        sync.Mutex
	err       error
	startedAt time.Time
	endedAt   time.Time
}

// Start issues req over t and returns immediately. Reading, decoding and
// dispatching to h run on a dedicated goroutine until the stream ends, the
// transport fails, or the session is cancelled. Cancelling ctx is equivalent
// to calling Cancel.
func Start(ctx context.Context, t Transport, req *Request, h Handler, opts ...Option) *Session {
	s := newSession(ctx, t, req, handlerSink(h), opts...)
	go s.run()
	return s
}

// handlerSink adapts h to a sink that always reports delivery.
func handlerSink(h Handler) func(Event) bool {
	if h == nil {
		return func(Event) bool { return true }
	}
	return func(ev Event) bool {
		h(ev)
		return true
	}
}

// newSession prepares a session without starting its goroutine. deliver
// reports whether the event reached the consumer; only delivered events are
// counted.
func newSession(ctx context.Context, t Transport, req *Request, deliver func(Event) bool, opts ...Option) *Session {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if o.id == "" {
		o.id = uuid.NewString()
	}
	if deliver == nil {
		deliver = handlerSink(nil)
	}

	sctx, cancel := context.WithCancel(ctx)

	s := &Session{
		id:             o.id,
		conversationID: o.conversationID,
		kind:           o.kind,
		transport:      t,
		request:        req,
		deliver:        deliver,
		chunkSize:      o.chunkSize,
		maxDropped:     o.maxDropped,
		onFinish:       o.onFinish,
		ctx:            sctx,
		cancel:         cancel,
		done:           make(chan struct{}),
		startedAt:      time.Now(),
	}
	s.logger = o.logger.With(
		"session_id", s.id,
		"conversation_id", s.conversationID,
		"kind", string(s.kind),
	)
	s.state.Store(int32(StateActive))

	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// ConversationID returns the conversation the session streams into.
func (s *Session) ConversationID() string { return s.conversationID }

// Kind returns the call site that started the session.
func (s *Session) Kind() Kind { return s.kind }

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Dropped returns the number of malformed frames dropped so far.
func (s *Session) Dropped() int64 {
	return s.dropped.Load()
}

// Dispatched returns the number of events delivered so far, including a
// synthetic error event. An event a channel consumer never received because
// the session was cancelled is not counted.
func (s *Session) Dispatched() int64 {
	return s.dispatched.Load()
}

// Err returns the transport failure for sessions that ended in StateError.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// StartedAt returns when the session was created.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// EndedAt returns when the session finished, or the zero time while active.
func (s *Session) EndedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endedAt
}

// Done is closed once the session goroutine has exited and the transport has
// been released.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until Done is closed.
func (s *Session) Wait() {
	<-s.done
}

// Cancel stops the session. The transport is aborted and the state becomes
// StateAborted. Every dispatch that checks the state after Cancel returns
// is suppressed. An invocation already running runs to completion, and one
// the session goroutine decided on just before Cancel took effect may start
// after Cancel returns, so a handler can observe at most one event racing
// with Cancel. No error or done event is dispatched for a cancelled session.
//
// Cancel may be called from any goroutine, including from within the
// handler, and is a no-op on a session that already terminated.
func (s *Session) Cancel() {
	if s.transition(StateAborted) {
		s.logger.Debug("stream session cancelled")
	}
	s.cancel()
}

// transition moves the session out of StateActive. It reports false when the
// session was already terminal, leaving the state untouched.
func (s *Session) transition(to State) bool {
	return s.state.CompareAndSwap(int32(StateActive), int32(to))
}

func (s *Session) active() bool {
	return s.State() == StateActive
}

// run is the read, decode and dispatch loop.
func (s *Session) run() {
	defer s.finish()

	s.logger.Debug("stream session started", "path", s.request.Path)

	body, err := s.transport.Open(s.ctx, s.request)
	if err != nil {
		s.fail(err)
		return
	}

	// Closing the body unblocks a pending Read once the session is
	// cancelled, whatever the transport.
	context.AfterFunc(s.ctx, func() { s.closeBody(body) })
	defer s.closeBody(body)

	dec := sse.NewDecoder()
	defer func() {
		if n := dec.Close(); n > 0 {
			s.logger.Debug("discarded unterminated stream tail", "bytes", n)
		}
	}()

	buf := make([]byte, s.chunkSize)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if stop := s.consume(dec.Write(buf[:n])); stop {
				return
			}
		}

		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				s.transition(StateDone)
				return
			}
			s.fail(rerr)
			return
		}
	}
}

// consume parses and dispatches complete lines. It reports true when the loop
// must stop reading.
func (s *Session) consume(lines []string) bool {
	for _, line := range lines {
		if s.ctx.Err() != nil {
			s.transition(StateAborted)
			return true
		}
		if !s.active() {
			return true
		}

		ev, res, err := ParseLine(line)
		switch res {
		case ParseSentinel:
			s.transition(StateDone)
			return true

		case ParseDropped:
			s.drop(line, err)

		case ParseEvent:
			s.dispatch(ev)

		case ParseIgnored:
		}
	}

	return !s.active()
}

// dispatch hands ev to the handler unless the session became terminal.
func (s *Session) dispatch(ev Event) {
	if !s.active() {
		return
	}

	if s.deliver(ev) {
		s.dispatched.Add(1)
	}
}

// drop records a malformed frame. Dropped frames are never surfaced to the
// handler.
func (s *Session) drop(line string, err error) {
	n := s.dropped.Add(1)

	s.logger.Debug("dropped malformed frame",
		"line", utils.Truncate(line, 120),
		"error", err,
	)

	if s.maxDropped > 0 && n > s.maxDropped && !s.warned {
		s.warned = true
		s.logger.Warn("malformed frame threshold exceeded",
			"dropped", n,
			"threshold", s.maxDropped,
		)
	}
}

// fail ends the session after a transport failure. Failures caused by
// cancellation end the session silently in StateAborted.
func (s *Session) fail(err error) {
	if s.ctx.Err() != nil {
		s.transition(StateAborted)
		return
	}

	if !s.transition(StateError) {
		return
	}

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()

	s.logger.Debug("stream transport failed", "error", err)

	if s.deliver(ErrorEvent(err.Error())) {
		s.dispatched.Add(1)
	}
}

func (s *Session) closeBody(body io.Closer) {
	s.release.Do(func() {
		if err := body.Close(); err != nil {
			s.logger.Debug("closing stream body", "error", err)
		}
	})
}

// finish runs the exit actions shared by every terminal state.
func (s *Session) finish() {
	if s.active() {
		s.transition(StateDone)
	}
	s.cancel()

	s.mu.Lock()
	s.endedAt = time.Now()
	elapsed := s.endedAt.Sub(s.startedAt)
	s.mu.Unlock()

	s.logger.Debug("stream session ended",
		"state", s.State().String(),
		"events", s.Dispatched(),
		"dropped", s.Dropped(),
		"duration", elapsed,
	)

	for _, fn := range s.onFinish {
		fn(s)
	}

	close(s.done)
}
