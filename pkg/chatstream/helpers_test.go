package chatstream_test

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/papercomputeco/fleet/pkg/chatstream"
)

// chunkBody returns one chunk per Read, then err (io.EOF when nil).
type chunkBody struct {
	mu     sync.Mutex
	chunks [][]byte
	err    error
	closed atomic.Bool
}

func newChunkBody(chunks ...string) *chunkBody {
	b := &chunkBody{}
	for _, c := range chunks {
		b.chunks = append(b.chunks, []byte(c))
	}
	return b
}

func (b *chunkBody) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed.Load() {
		return 0, io.ErrClosedPipe
	}
	if len(b.chunks) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}

	n := copy(p, b.chunks[0])
	b.chunks[0] = b.chunks[0][n:]
	if len(b.chunks[0]) == 0 {
		b.chunks = b.chunks[1:]
	}
	return n, nil
}

func (b *chunkBody) Close() error {
	b.closed.Store(true)
	return nil
}

// fakeTransport hands out a prepared body and records the requests it saw.
type fakeTransport struct {
	mu       sync.Mutex
	requests []*chatstream.Request
	bodies   []io.ReadCloser
	err      error
}

func (t *fakeTransport) Open(_ context.Context, req *chatstream.Request) (io.ReadCloser, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.requests = append(t.requests, req)
	if t.err != nil {
		return nil, t.err
	}
	if len(t.bodies) == 0 {
		return io.NopCloser(eofReader{}), nil
	}

	body := t.bodies[0]
	t.bodies = t.bodies[1:]
	return body, nil
}

func (t *fakeTransport) Requests() []*chatstream.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*chatstream.Request(nil), t.requests...)
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }

// pipeTransport streams whatever the test writes to W. Each Write arrives
// as exactly one Read on the session side.
type pipeTransport struct {
	R *io.PipeReader
	W *io.PipeWriter
}

func newPipeTransport() *pipeTransport {
	r, w := io.Pipe()
	return &pipeTransport{R: r, W: w}
}

func (t *pipeTransport) Open(context.Context, *chatstream.Request) (io.ReadCloser, error) {
	return t.R, nil
}

// collector records handled events.
type collector struct {
	mu     sync.Mutex
	events []chatstream.Event
}

func (c *collector) Handle(ev chatstream.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) Events() []chatstream.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chatstream.Event(nil), c.events...)
}

func (c *collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *collector) Types() []chatstream.EventType {
	var types []chatstream.EventType
	for _, ev := range c.Events() {
		types = append(types, ev.Type)
	}
	return types
}

func frame(payload string) string {
	return "data: " + payload + "\n"
}

// chunked splits s into pieces of at most n bytes.
func chunked(s string, n int) []string {
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

var sendReq = &chatstream.Request{Path: chatstream.SendPath}
