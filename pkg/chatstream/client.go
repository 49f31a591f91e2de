package chatstream

import (
	"context"
	"log/slog"
	"slices"

	"github.com/papercomputeco/fleet/pkg/logger"
)

// Client starts chat sessions against one Transport. Send and Regenerate only
// differ in the request they build; both keep at most one live session per
// conversation and record a transcript of every finished session when a
// Recorder is configured.
type Client struct {
	transport Transport
	registry  *Registry
	recorder  Recorder
	logger    *slog.Logger
	opts      []Option
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRecorder records a transcript of every finished session.
func WithRecorder(r Recorder) ClientOption {
	return func(c *Client) {
		c.recorder = r
	}
}

// WithRegistry shares a registry between clients.
func WithRegistry(r *Registry) ClientOption {
	return func(c *Client) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithClientLogger sets the logger handed to every session.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSessionOptions applies opts to every session the client starts.
func WithSessionOptions(opts ...Option) ClientOption {
	return func(c *Client) {
		c.opts = append(c.opts, opts...)
	}
}

// NewClient returns a Client streaming over t.
func NewClient(t Transport, opts ...ClientOption) *Client {
	c := &Client{
		transport: t,
		registry:  NewRegistry(),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send streams the reply to a new message into h.
func (c *Client) Send(ctx context.Context, req SendRequest, h Handler) (*Session, error) {
	return c.Start(ctx, req, h)
}

// Regenerate streams a replacement reply for an existing message into h.
func (c *Client) Regenerate(ctx context.Context, req RegenerateRequest, h Handler) (*Session, error) {
	return c.Start(ctx, req, h)
}

// Start builds the request from b and starts a session dispatching to h. Any
// session live in the same conversation is cancelled. An error is only
// returned for a request that fails validation; stream failures are reported
// to h as an error event.
func (c *Client) Start(ctx context.Context, b RequestBuilder, h Handler) (*Session, error) {
	req, err := b.Build()
	if err != nil {
		return nil, err
	}

	deliver, opts := c.wire(b, handlerSink(h))
	s := newSession(ctx, c.transport, req, deliver, opts...)
	c.launch(s)

	return s, nil
}

// Events is the channel form of Start. The channel is closed when the
// session ends.
func (c *Client) Events(ctx context.Context, b RequestBuilder, size int) (*Session, <-chan Event, error) {
	req, err := b.Build()
	if err != nil {
		return nil, nil, err
	}

	sink := newChannelSink(size)
	deliver, opts := c.wire(b, sink.handle, sink.close)
	s := newSession(ctx, c.transport, req, deliver, opts...)
	sink.session = s
	c.launch(s)

	return s, sink.ch, nil
}

// Cancel cancels the live session of conversationID.
func (c *Client) Cancel(conversationID string) bool {
	return c.registry.Cancel(conversationID)
}

// Active returns the live session of conversationID.
func (c *Client) Active(conversationID string) (*Session, bool) {
	return c.registry.Get(conversationID)
}

// Close cancels every live session and waits for them to release their
// transports.
func (c *Client) Close() {
	for _, s := range c.registry.CancelAll() {
		s.Wait()
	}
}

// wire returns the sink and options for a session built from b. The finish
// hooks run in order: the recorder, then closers, then removal from the
// registry, so a session stays visible to Active and Close until its
// transcript is recorded.
func (c *Client) wire(b RequestBuilder, deliver func(Event) bool, closers ...func(*Session)) (func(Event) bool, []Option) {
	convID := b.Conversation()

	opts := slices.Clone(c.opts)
	opts = append(opts,
		WithConversation(convID),
		WithKind(b.Kind()),
		WithLogger(c.logger),
	)

	if c.recorder != nil {
		var events []Event
		inner := deliver
		deliver = func(ev Event) bool {
			if !inner(ev) {
				return false
			}
			events = append(events, ev)
			return true
		}

		opts = append(opts, OnFinish(func(s *Session) {
			if !c.recorder.Record(NewTranscript(s, events)) {
				c.logger.Warn("session transcript not recorded", "session_id", s.ID())
			}
		}))
	}

	for _, fn := range closers {
		opts = append(opts, OnFinish(fn))
	}

	opts = append(opts, OnFinish(func(s *Session) { c.registry.Remove(convID, s) }))
	return deliver, opts
}

// launch registers s before its goroutine starts so a session finishing
// immediately is still removed from the registry.
func (c *Client) launch(s *Session) {
	c.registry.Replace(s.ConversationID(), s)
	go s.run()
}
