package chatstream_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/fleet/pkg/chatstream"
)

var _ = Describe("Registry", func() {
	var (
		registry *chatstream.Registry
		pipes    []*pipeTransport
	)

	start := func() *chatstream.Session {
		p := newPipeTransport()
		pipes = append(pipes, p)
		return chatstream.Start(context.Background(), p, sendReq, nil)
	}

	BeforeEach(func() {
		registry = chatstream.NewRegistry()
		pipes = nil
	})

	AfterEach(func() {
		for _, p := range pipes {
			p.W.Close()
		}
	})

	It("cancels the session it replaces", func() {
		first := start()
		second := start()

		Expect(registry.Replace("c1", first)).To(BeNil())
		Expect(registry.Replace("c1", second)).To(Equal(first))

		Eventually(first.Done()).Should(BeClosed())
		Expect(first.State()).To(Equal(chatstream.StateAborted))
		Expect(second.State()).To(Equal(chatstream.StateActive))

		live, ok := registry.Get("c1")
		Expect(ok).To(BeTrue())
		Expect(live).To(Equal(second))
	})

	It("keeps conversations independent", func() {
		a := start()
		b := start()
		registry.Replace("a", a)
		registry.Replace("b", b)

		Expect(registry.Len()).To(Equal(2))
		Expect(a.State()).To(Equal(chatstream.StateActive))
		Expect(b.State()).To(Equal(chatstream.StateActive))
	})

	It("treats replacing a session with itself as a no-op", func() {
		s := start()
		registry.Replace("c1", s)
		Expect(registry.Replace("c1", s)).To(BeNil())
		Expect(s.State()).To(Equal(chatstream.StateActive))
	})

	It("only removes the session that is still live", func() {
		first := start()
		second := start()
		registry.Replace("c1", first)
		registry.Replace("c1", second)

		Expect(registry.Remove("c1", first)).To(BeFalse())
		Expect(registry.Remove("c1", second)).To(BeTrue())
		Expect(registry.Len()).To(BeZero())
	})

	It("cancels a conversation by id", func() {
		s := start()
		registry.Replace("c1", s)

		Expect(registry.Cancel("c1")).To(BeTrue())
		Expect(registry.Cancel("c1")).To(BeFalse())
		Eventually(s.Done()).Should(BeClosed())
		Expect(s.State()).To(Equal(chatstream.StateAborted))
	})

	It("cancels every session", func() {
		registry.Replace("a", start())
		registry.Replace("", start())

		sessions := registry.CancelAll()
		Expect(sessions).To(HaveLen(2))
		for _, s := range sessions {
			s.Wait()
			Expect(s.State()).To(Equal(chatstream.StateAborted))
		}
		Expect(registry.Len()).To(BeZero())
	})
})
