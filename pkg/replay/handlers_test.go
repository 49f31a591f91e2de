package replay

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/fleet/pkg/chatstream"
	"github.com/papercomputeco/fleet/pkg/logger"
	"github.com/papercomputeco/fleet/pkg/transcript/inmemory"
	"github.com/papercomputeco/fleet/pkg/transcript/transcripttest"
)

const replayedBody = "data: {\"type\":\"start\"}\n\n" +
	"data: {\"type\":\"delta\",\"data\":{\"content\":\"hello\"}}\n\n" +
	"data: {\"type\":\"done\"}\n\n" +
	"data: [DONE]\n\n"

var _ = Describe("Replay Server", func() {
	var (
		server *Server
		driver *inmemory.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		server = NewServer(Config{ListenAddr: ":0"}, driver, logger.New(logger.WithWriter(GinkgoWriter)))

		Expect(driver.Put(ctx, transcripttest.New("s1", "c1", 0))).To(Succeed())
	})

	postJSON := func(path, body string) (int, string) {
		req := httptest.NewRequest("POST", path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := server.app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp.StatusCode, string(data)
	}

	Describe("GET /ping", func() {
		It("returns pong", func() {
			resp, err := server.app.Test(httptest.NewRequest("GET", "/ping", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(200))
		})
	})

	Describe("POST /api/chat/stream", func() {
		It("replays the latest transcript of the conversation as frames", func() {
			req := httptest.NewRequest("POST", chatstream.SendPath,
				strings.NewReader(`{"conversation_id":"c1","content":"hi"}`))
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(200))
			Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))

			data, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal(replayedBody))
		})

		It("accepts form encoded bodies", func() {
			form := url.Values{"conversation_id": {"c1"}, "content": {"hi"}}
			req := httptest.NewRequest("POST", chatstream.SendPath, strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(200))
		})

		It("replays the latest transcript of any conversation for a new conversation", func() {
			Expect(driver.Put(ctx, transcripttest.New("s2", "c2", time.Minute))).To(Succeed())

			status, body := postJSON(chatstream.SendPath, `{"content":"hi"}`)
			Expect(status).To(Equal(200))
			Expect(body).To(HaveSuffix("data: [DONE]\n\n"))
		})

		It("returns 404 for a conversation without transcripts", func() {
			status, body := postJSON(chatstream.SendPath, `{"conversation_id":"c9","content":"hi"}`)
			Expect(status).To(Equal(404))
			Expect(body).To(ContainSubstring("no transcript for conversation: c9"))
		})

		It("returns 400 for empty content", func() {
			status, _ := postJSON(chatstream.SendPath, `{"conversation_id":"c1"}`)
			Expect(status).To(Equal(400))
		})

		It("returns 400 for a malformed body", func() {
			status, _ := postJSON(chatstream.SendPath, `{"conversation_id":`)
			Expect(status).To(Equal(400))
		})
	})

	Describe("POST /api/chat/regenerate", func() {
		It("replays the latest transcript of the conversation", func() {
			status, body := postJSON(chatstream.RegeneratePath, `{"conversation_id":"c1","message_id":"m1"}`)
			Expect(status).To(Equal(200))
			Expect(body).To(Equal(replayedBody))
		})

		It("requires a message id", func() {
			status, body := postJSON(chatstream.RegeneratePath, `{"conversation_id":"c1"}`)
			Expect(status).To(Equal(400))
			Expect(body).To(ContainSubstring(chatstream.ErrMissingMessageID.Error()))
		})

		It("requires a conversation id", func() {
			status, _ := postJSON(chatstream.RegeneratePath, `{"message_id":"m1"}`)
			Expect(status).To(Equal(400))
		})
	})

	Describe("GET /transcripts", func() {
		It("lists transcript summaries", func() {
			Expect(driver.Put(ctx, transcripttest.New("s2", "c2", time.Minute))).To(Succeed())

			resp, err := server.app.Test(httptest.NewRequest("GET", "/transcripts", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(200))

			var summaries []TranscriptSummary
			Expect(json.NewDecoder(resp.Body).Decode(&summaries)).To(Succeed())
			Expect(summaries).To(HaveLen(2))
			Expect(summaries[0].SessionID).To(Equal("s1"))
			Expect(summaries[0].Events).To(Equal(3))
			Expect(summaries[0].DurationMs).To(Equal(int64(1500)))
		})

		It("filters by conversation", func() {
			Expect(driver.Put(ctx, transcripttest.New("s2", "c2", time.Minute))).To(Succeed())

			resp, err := server.app.Test(httptest.NewRequest("GET", "/transcripts?conversation_id=c2", nil))
			Expect(err).NotTo(HaveOccurred())

			var summaries []TranscriptSummary
			Expect(json.NewDecoder(resp.Body).Decode(&summaries)).To(Succeed())
			Expect(summaries).To(HaveLen(1))
			Expect(summaries[0].SessionID).To(Equal("s2"))
		})
	})

	Describe("GET /transcripts/:id", func() {
		It("returns the transcript", func() {
			resp, err := server.app.Test(httptest.NewRequest("GET", "/transcripts/s1", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(200))

			var t chatstream.Transcript
			Expect(json.NewDecoder(resp.Body).Decode(&t)).To(Succeed())
			Expect(t.ConversationID).To(Equal("c1"))
			Expect(t.State).To(Equal(chatstream.StateDone))
		})

		It("returns 404 for an unknown session", func() {
			resp, err := server.app.Test(httptest.NewRequest("GET", "/transcripts/nope", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(404))
		})
	})

	Describe("Handler", func() {
		It("serves the stream endpoints to net/http servers", func() {
			srv := httptest.NewServer(server.Handler())
			defer srv.Close()

			var events []chatstream.Event
			req, err := chatstream.SendRequest{ConversationID: "c1", Content: "hi"}.Build()
			Expect(err).NotTo(HaveOccurred())

			s := chatstream.Start(ctx, chatstream.NewHTTPTransport(srv.URL, nil), req, func(ev chatstream.Event) {
				events = append(events, ev)
			})
			s.Wait()

			Expect(s.State()).To(Equal(chatstream.StateDone))
			Expect(events).To(Equal(transcripttest.New("s1", "c1", 0).Events))
		})

		It("keeps the status of failed requests", func() {
			srv := httptest.NewServer(server.Handler())
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/transcripts/nope")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("with the streaming client", func() {
		var (
			ln         net.Listener
			httpClient *http.Client
		)

		BeforeEach(func() {
			var err error
			ln, err = net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())

			httpClient = &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}

			go func() {
				defer GinkgoRecover()
				_ = server.Serve(ln)
			}()
		})

		AfterEach(func() {
			Expect(server.Shutdown()).To(Succeed())
		})

		It("streams the recorded events to a session", func() {
			transport := chatstream.NewHTTPTransport("http://"+ln.Addr().String(), httpClient)
			client := chatstream.NewClient(transport)

			var (
				mu     sync.Mutex
				events []chatstream.Event
			)
			s, err := client.Send(ctx, chatstream.SendRequest{ConversationID: "c1", Content: "hi"}, func(ev chatstream.Event) {
				mu.Lock()
				defer mu.Unlock()
				events = append(events, ev)
			})
			Expect(err).NotTo(HaveOccurred())

			Eventually(s.Done()).Should(BeClosed())
			Expect(s.State()).To(Equal(chatstream.StateDone))

			mu.Lock()
			defer mu.Unlock()
			Expect(events).To(Equal(transcripttest.New("s1", "c1", 0).Events))
		})

		It("reports a missing conversation as a single error event", func() {
			transport := chatstream.NewHTTPTransport("http://"+ln.Addr().String(), httpClient)

			var events []chatstream.Event
			req, err := chatstream.SendRequest{ConversationID: "c9", Content: "hi"}.Build()
			Expect(err).NotTo(HaveOccurred())

			s := chatstream.Start(ctx, transport, req, func(ev chatstream.Event) {
				events = append(events, ev)
			})
			s.Wait()

			Expect(s.State()).To(Equal(chatstream.StateError))
			Expect(events).To(HaveLen(1))
			Expect(events[0].Type).To(Equal(chatstream.EventError))
			Expect(events[0].Error).To(ContainSubstring("404"))
		})
	})
})
