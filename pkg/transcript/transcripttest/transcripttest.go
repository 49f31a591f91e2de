// Package transcripttest holds the behavior every transcript.Driver must
// show, shared by the driver test suites.
package transcripttest

import (
	"context"
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/fleet/pkg/chatstream"
	"github.com/papercomputeco/fleet/pkg/transcript"
)

// base is a fixed start time with nanosecond precision.
var base = time.Date(2026, 3, 4, 5, 6, 7, 890123456, time.UTC)

// New builds a transcript that started offset after a fixed time.
func New(sessionID, conversationID string, offset time.Duration) *chatstream.Transcript {
	return &chatstream.Transcript{
		SessionID:      sessionID,
		ConversationID: conversationID,
		Kind:           chatstream.KindSend,
		State:          chatstream.StateDone,
		Events: []chatstream.Event{
			{Type: chatstream.EventStart},
			{Type: chatstream.EventDelta, Data: json.RawMessage(`{"content":"hello"}`)},
			{Type: chatstream.EventDone},
		},
		Dropped:   1,
		StartedAt: base.Add(offset),
		EndedAt:   base.Add(offset + 1500*time.Millisecond),
	}
}

// DriverBehaves registers the driver specs. newDriver is called before
// every spec and must return an empty store.
func DriverBehaves(newDriver func() transcript.Driver) {
	var (
		ctx    context.Context
		driver transcript.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = nil
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	It("stores and retrieves a transcript", func() {
		t := New("s1", "c1", 0)
		Expect(driver.Put(ctx, t)).To(Succeed())

		got, err := driver.Get(ctx, "s1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.SessionID).To(Equal("s1"))
		Expect(got.ConversationID).To(Equal("c1"))
		Expect(got.Kind).To(Equal(chatstream.KindSend))
		Expect(got.State).To(Equal(chatstream.StateDone))
		Expect(got.Dropped).To(BeEquivalentTo(1))
		Expect(got.StartedAt).To(BeTemporally("==", t.StartedAt))
		Expect(got.EndedAt).To(BeTemporally("==", t.EndedAt))
		Expect(got.Duration()).To(Equal(1500 * time.Millisecond))

		Expect(got.Events).To(HaveLen(3))
		Expect(got.Events[1].Type).To(Equal(chatstream.EventDelta))
		Expect(got.Events[1].Data).To(MatchJSON(`{"content":"hello"}`))
	})

	It("keeps the error of a failed session", func() {
		t := New("s1", "c1", 0)
		t.State = chatstream.StateError
		t.Error = "stream request failed: 502 Bad Gateway"
		t.Events = []chatstream.Event{chatstream.ErrorEvent(t.Error)}
		Expect(driver.Put(ctx, t)).To(Succeed())

		got, err := driver.Get(ctx, "s1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.State).To(Equal(chatstream.StateError))
		Expect(got.Error).To(Equal(t.Error))
		Expect(got.Events[0].Error).To(Equal(t.Error))
	})

	It("replaces a transcript stored under the same session id", func() {
		Expect(driver.Put(ctx, New("s1", "c1", 0))).To(Succeed())

		t := New("s1", "c1", 0)
		t.State = chatstream.StateAborted
		Expect(driver.Put(ctx, t)).To(Succeed())

		all, err := driver.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(1))
		Expect(all[0].State).To(Equal(chatstream.StateAborted))
	})

	It("moves a transcript re-stored under another conversation", func() {
		Expect(driver.Put(ctx, New("s1", "c1", 0))).To(Succeed())
		Expect(driver.Put(ctx, New("s1", "c2", 0))).To(Succeed())

		old, err := driver.ListByConversation(ctx, "c1")
		Expect(err).NotTo(HaveOccurred())
		Expect(old).To(BeEmpty())

		moved, err := driver.ListByConversation(ctx, "c2")
		Expect(err).NotTo(HaveOccurred())
		Expect(moved).To(HaveLen(1))
		Expect(moved[0].SessionID).To(Equal("s1"))
	})

	It("returns NotFoundError for an unknown session", func() {
		_, err := driver.Get(ctx, "missing")
		Expect(err).To(HaveOccurred())
		Expect(transcript.IsNotFound(err)).To(BeTrue())
	})

	It("rejects a nil transcript", func() {
		Expect(driver.Put(ctx, nil)).To(MatchError(transcript.ErrNilTranscript))
	})

	It("lists the transcripts of a conversation oldest first", func() {
		Expect(driver.Put(ctx, New("s3", "c1", 2*time.Minute))).To(Succeed())
		Expect(driver.Put(ctx, New("s1", "c1", 0))).To(Succeed())
		Expect(driver.Put(ctx, New("s2", "c2", time.Minute))).To(Succeed())

		ts, err := driver.ListByConversation(ctx, "c1")
		Expect(err).NotTo(HaveOccurred())
		Expect(ts).To(HaveLen(2))
		Expect(ts[0].SessionID).To(Equal("s1"))
		Expect(ts[1].SessionID).To(Equal("s3"))

		all, err := driver.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(3))
		Expect(all[1].SessionID).To(Equal("s2"))
	})

	It("returns an empty list for an unknown conversation", func() {
		ts, err := driver.ListByConversation(ctx, "nope")
		Expect(err).NotTo(HaveOccurred())
		Expect(ts).To(BeEmpty())
	})

	It("finds the latest successful transcript of a conversation", func() {
		failed := New("s3", "c1", 2*time.Minute)
		failed.State = chatstream.StateError
		Expect(driver.Put(ctx, New("s1", "c1", 0))).To(Succeed())
		Expect(driver.Put(ctx, New("s2", "c1", time.Minute))).To(Succeed())
		Expect(driver.Put(ctx, failed)).To(Succeed())

		t, err := transcript.Latest(ctx, driver, "c1")
		Expect(err).NotTo(HaveOccurred())
		Expect(t.SessionID).To(Equal("s2"))

		_, err = transcript.Latest(ctx, driver, "c9")
		Expect(transcript.IsNotFound(err)).To(BeTrue())
	})

	It("finds the latest transcript of any conversation for an empty id", func() {
		Expect(driver.Put(ctx, New("s1", "c1", 0))).To(Succeed())
		Expect(driver.Put(ctx, New("s2", "c2", time.Minute))).To(Succeed())

		t, err := transcript.Latest(ctx, driver, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(t.SessionID).To(Equal("s2"))
	})
}
