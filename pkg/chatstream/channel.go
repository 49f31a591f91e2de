package chatstream

import (
	"context"
	"slices"
)

// Channel starts a session like Start but delivers events over a channel of
// the given buffer size instead of a callback. The channel is closed when the
// session ends. A consumer that stops reading must Cancel the session; a full
// channel applies backpressure to the read loop.
func Channel(ctx context.Context, t Transport, req *Request, size int, opts ...Option) (*Session, <-chan Event) {
	sink := newChannelSink(size)
	s := newSession(ctx, t, req, sink.handle, append(slices.Clone(opts), OnFinish(sink.close))...)
	sink.session = s

	go s.run()
	return s, sink.ch
}

// channelSink delivers session events over a channel.
type channelSink struct {
	ch      chan Event
	session *Session
}

func newChannelSink(size int) *channelSink {
	return &channelSink{
		ch: make(chan Event, max(size, 0)),
	}
}

// handle blocks until the consumer takes ev or the session is cancelled. It
// reports whether the consumer received ev.
func (k *channelSink) handle(ev Event) bool {
	select {
	case k.ch <- ev:
		return true
	case <-k.session.ctx.Done():
		return false
	}
}

func (k *channelSink) close(*Session) {
	close(k.ch)
}
