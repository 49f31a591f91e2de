package chatstream_test

import (
	"context"
	"io"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/fleet/pkg/chatstream"
)

type memoryRecorder struct {
	mu          sync.Mutex
	transcripts []*chatstream.Transcript
	reject      bool
}

func (r *memoryRecorder) Record(t *chatstream.Transcript) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reject {
		return false
	}
	r.transcripts = append(r.transcripts, t)
	return true
}

func (r *memoryRecorder) Transcripts() []*chatstream.Transcript {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*chatstream.Transcript(nil), r.transcripts...)
}

// heldRecorder blocks Record until release is closed.
type heldRecorder struct {
	memoryRecorder
	entered chan struct{}
	release chan struct{}
}

func newHeldRecorder() *heldRecorder {
	return &heldRecorder{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (r *heldRecorder) Record(t *chatstream.Transcript) bool {
	close(r.entered)
	<-r.release
	return r.memoryRecorder.Record(t)
}

var _ = Describe("Channel", func() {
	It("delivers events over a channel closed at the end of the stream", func() {
		t := &fakeTransport{bodies: []io.ReadCloser{newChunkBody(streamBody)}}
		s, events := chatstream.Channel(context.Background(), t, sendReq, 0)

		var types []chatstream.EventType
		for ev := range events {
			types = append(types, ev.Type)
		}

		Expect(types).To(Equal([]chatstream.EventType{
			chatstream.EventStart, chatstream.EventDelta,
			chatstream.EventDelta, chatstream.EventDone,
		}))
		Eventually(s.Done()).Should(BeClosed())
		Expect(s.State()).To(Equal(chatstream.StateDone))
	})

	It("releases a blocked send when the consumer cancels", func() {
		t := &fakeTransport{bodies: []io.ReadCloser{newChunkBody(streamBody)}}
		s, events := chatstream.Channel(context.Background(), t, sendReq, 0)

		Expect((<-events).Type).To(Equal(chatstream.EventStart))
		s.Cancel()

		Eventually(s.Done()).Should(BeClosed())
		Eventually(events).Should(BeClosed())
		Expect(s.State()).To(Equal(chatstream.StateAborted))
	})

	It("carries the synthetic error event", func() {
		t := &fakeTransport{err: io.ErrUnexpectedEOF}
		_, events := chatstream.Channel(context.Background(), t, sendReq, 1)

		Eventually(events).Should(Receive(Equal(chatstream.ErrorEvent(io.ErrUnexpectedEOF.Error()))))
		Eventually(events).Should(BeClosed())
	})
})

var _ = Describe("Client", func() {
	var (
		transport *fakeTransport
		recorder  *memoryRecorder
		client    *chatstream.Client
	)

	BeforeEach(func() {
		transport = &fakeTransport{}
		recorder = &memoryRecorder{}
		client = chatstream.NewClient(transport, chatstream.WithRecorder(recorder))
	})

	It("sends through the send endpoint and records a transcript", func() {
		transport.bodies = []io.ReadCloser{newChunkBody(streamBody)}

		c := &collector{}
		s, err := client.Send(context.Background(), chatstream.SendRequest{ConversationID: "c1", Content: "hi"}, c.Handle)
		Expect(err).NotTo(HaveOccurred())
		s.Wait()

		Expect(transport.Requests()[0].Path).To(Equal(chatstream.SendPath))
		Expect(c.Len()).To(Equal(4))

		Expect(recorder.Transcripts()).To(HaveLen(1))
		tr := recorder.Transcripts()[0]
		Expect(tr.SessionID).To(Equal(s.ID()))
		Expect(tr.ConversationID).To(Equal("c1"))
		Expect(tr.Kind).To(Equal(chatstream.KindSend))
		Expect(tr.State).To(Equal(chatstream.StateDone))
		Expect(tr.Events).To(Equal(c.Events()))
		Expect(tr.Duration()).To(BeNumerically(">=", 0))
	})

	It("regenerates through the same state machine", func() {
		transport.bodies = []io.ReadCloser{newChunkBody(streamBody)}

		c := &collector{}
		s, err := client.Regenerate(context.Background(), chatstream.RegenerateRequest{ConversationID: "c1", MessageID: "m1"}, c.Handle)
		Expect(err).NotTo(HaveOccurred())
		s.Wait()

		Expect(transport.Requests()[0].Path).To(Equal(chatstream.RegeneratePath))
		Expect(s.Kind()).To(Equal(chatstream.KindRegenerate))
		Expect(c.Len()).To(Equal(4))
		Expect(recorder.Transcripts()[0].Kind).To(Equal(chatstream.KindRegenerate))
	})

	It("rejects an invalid request without starting a session", func() {
		_, err := client.Send(context.Background(), chatstream.SendRequest{}, nil)
		Expect(err).To(MatchError(chatstream.ErrEmptyContent))
		Expect(transport.Requests()).To(BeEmpty())
	})

	It("records the error of a failed session", func() {
		transport.err = io.ErrUnexpectedEOF

		s, err := client.Send(context.Background(), chatstream.SendRequest{Content: "hi"}, nil)
		Expect(err).NotTo(HaveOccurred())
		s.Wait()

		tr := recorder.Transcripts()[0]
		Expect(tr.State).To(Equal(chatstream.StateError))
		Expect(tr.Error).To(Equal(io.ErrUnexpectedEOF.Error()))
		Expect(tr.Events).To(HaveLen(1))
	})

	It("replaces the live session of a conversation", func() {
		first := newPipeTransport()
		defer first.W.Close()
		second := newPipeTransport()
		defer second.W.Close()

		transport.bodies = []io.ReadCloser{first.R, second.R}

		a, err := client.Send(context.Background(), chatstream.SendRequest{ConversationID: "c1", Content: "one"}, nil)
		Expect(err).NotTo(HaveOccurred())
		b, err := client.Send(context.Background(), chatstream.SendRequest{ConversationID: "c1", Content: "two"}, nil)
		Expect(err).NotTo(HaveOccurred())

		Eventually(a.Done()).Should(BeClosed())
		Expect(a.State()).To(Equal(chatstream.StateAborted))

		live, ok := client.Active("c1")
		Expect(ok).To(BeTrue())
		Expect(live).To(Equal(b))

		Expect(client.Cancel("c1")).To(BeTrue())
		Eventually(b.Done()).Should(BeClosed())

		_, ok = client.Active("c1")
		Expect(ok).To(BeFalse())
		Expect(recorder.Transcripts()).To(HaveLen(2))
	})

	It("forgets sessions once they finish", func() {
		transport.bodies = []io.ReadCloser{newChunkBody(streamBody)}

		s, err := client.Send(context.Background(), chatstream.SendRequest{ConversationID: "c1", Content: "hi"}, nil)
		Expect(err).NotTo(HaveOccurred())
		s.Wait()

		_, ok := client.Active("c1")
		Expect(ok).To(BeFalse())
	})

	It("streams events over a channel", func() {
		transport.bodies = []io.ReadCloser{newChunkBody(streamBody)}

		s, events, err := client.Events(context.Background(), chatstream.SendRequest{Content: "hi"}, 4)
		Expect(err).NotTo(HaveOccurred())

		var n int
		for range events {
			n++
		}
		Expect(n).To(Equal(4))

		s.Wait()
		Expect(recorder.Transcripts()[0].Events).To(HaveLen(4))
	})

	It("counts and records only the events the channel consumer received", func() {
		p := newPipeTransport()
		defer p.W.Close()
		transport.bodies = []io.ReadCloser{p.R}

		s, events, err := client.Events(context.Background(), chatstream.SendRequest{Content: "hi"}, 0)
		Expect(err).NotTo(HaveOccurred())

		_, err = p.W.Write([]byte(frame(startFrame)))
		Expect(err).NotTo(HaveOccurred())
		Eventually(events).Should(Receive())

		// The consumer stops reading; this event blocks on the channel.
		_, err = p.W.Write([]byte(frame(helloFrame)))
		Expect(err).NotTo(HaveOccurred())

		s.Cancel()
		Eventually(events).Should(BeClosed())
		s.Wait()

		Expect(s.Dispatched()).To(Equal(int64(1)))
		Expect(recorder.Transcripts()).To(HaveLen(1))
		Expect(recorder.Transcripts()[0].Events).To(HaveLen(1))
		Expect(recorder.Transcripts()[0].State).To(Equal(chatstream.StateAborted))
	})

	It("keeps a finishing session live until its transcript is recorded", func() {
		held := newHeldRecorder()
		client = chatstream.NewClient(transport, chatstream.WithRecorder(held))
		transport.bodies = []io.ReadCloser{newChunkBody(streamBody)}

		s, err := client.Send(context.Background(), chatstream.SendRequest{ConversationID: "c1", Content: "hi"}, nil)
		Expect(err).NotTo(HaveOccurred())
		Eventually(held.entered).Should(BeClosed())

		live, ok := client.Active("c1")
		Expect(ok).To(BeTrue())
		Expect(live).To(Equal(s))

		closed := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			client.Close()
			close(closed)
		}()
		Consistently(closed, 50*time.Millisecond).ShouldNot(BeClosed())

		close(held.release)
		Eventually(closed).Should(BeClosed())
		Expect(held.Transcripts()).To(HaveLen(1))
		Expect(held.Transcripts()[0].State).To(Equal(chatstream.StateDone))
	})

	It("still finishes sessions the recorder rejects", func() {
		recorder.reject = true
		transport.bodies = []io.ReadCloser{newChunkBody(streamBody)}

		s, err := client.Send(context.Background(), chatstream.SendRequest{Content: "hi"}, nil)
		Expect(err).NotTo(HaveOccurred())
		s.Wait()
		Expect(s.State()).To(Equal(chatstream.StateDone))
	})

	It("cancels everything on Close", func() {
		p := newPipeTransport()
		defer p.W.Close()
		transport.bodies = []io.ReadCloser{p.R}

		s, err := client.Send(context.Background(), chatstream.SendRequest{Content: "hi"}, nil)
		Expect(err).NotTo(HaveOccurred())

		client.Close()
		Expect(s.Done()).To(BeClosed())
		Expect(s.State()).To(Equal(chatstream.StateAborted))
	})

	It("applies session options to every session", func() {
		client = chatstream.NewClient(transport, chatstream.WithSessionOptions(chatstream.WithID("fixed")))

		s, err := client.Send(context.Background(), chatstream.SendRequest{Content: "hi"}, nil)
		Expect(err).NotTo(HaveOccurred())
		s.Wait()
		Expect(s.ID()).To(Equal("fixed"))
	})
})
