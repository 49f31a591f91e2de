package replay

import (
	"bufio"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/fleet/pkg/chatstream"
	"github.com/papercomputeco/fleet/pkg/sse"
	"github.com/papercomputeco/fleet/pkg/transcript"
)

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// streamRequest accepts both the send and the regenerate body, JSON or form
// encoded.
type streamRequest struct {
	ConversationID string `json:"conversation_id" form:"conversation_id"`
	Content        string `json:"content" form:"content"`
	MessageID      string `json:"message_id" form:"message_id"`
	Model          string `json:"model" form:"model"`
}

// TranscriptSummary is a transcript without its events.
type TranscriptSummary struct {
	SessionID      string           `json:"session_id"`
	ConversationID string           `json:"conversation_id,omitempty"`
	Kind           chatstream.Kind  `json:"kind"`
	State          chatstream.State `json:"state"`
	Events         int              `json:"events"`
	Dropped        int64            `json:"dropped"`
	StartedAt      time.Time        `json:"started_at"`
	DurationMs     int64            `json:"duration_ms"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleSend replays the latest transcript of the requested conversation. A
// request without a conversation replays the latest transcript recorded.
func (s *Server) handleSend(c *fiber.Ctx) error {
	var req streamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: chatstream.ErrEmptyContent.Error()})
	}

	return s.replayLatest(c, req.ConversationID)
}

// handleRegenerate replays the latest transcript of the conversation the
// regenerated message belongs to.
func (s *Server) handleRegenerate(c *fiber.Ctx) error {
	var req streamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if req.ConversationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: chatstream.ErrMissingConversationID.Error()})
	}
	if req.MessageID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: chatstream.ErrMissingMessageID.Error()})
	}

	return s.replayLatest(c, req.ConversationID)
}

// handleListTranscripts returns a summary of every recorded transcript.
func (s *Server) handleListTranscripts(c *fiber.Ctx) error {
	var (
		ts  []*chatstream.Transcript
		err error
	)

	if conv := c.Query("conversation_id"); conv != "" {
		ts, err = s.driver.ListByConversation(c.Context(), conv)
	} else {
		ts, err = s.driver.List(c.Context())
	}
	if err != nil {
		s.logger.Error("failed to list transcripts", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list transcripts"})
	}

	summaries := make([]TranscriptSummary, 0, len(ts))
	for _, t := range ts {
		summaries = append(summaries, summarize(t))
	}

	return c.JSON(summaries)
}

// handleGetTranscript returns a single transcript by its session id.
func (s *Server) handleGetTranscript(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id parameter required"})
	}

	t, err := s.driver.Get(c.Context(), id)
	if err != nil {
		if transcript.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "transcript not found"})
		}
		s.logger.Error("failed to get transcript", "session_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to get transcript"})
	}

	return c.JSON(t)
}

func (s *Server) replayLatest(c *fiber.Ctx, conversationID string) error {
	t, err := transcript.Latest(c.Context(), s.driver, conversationID)
	if err != nil {
		if transcript.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: err.Error()})
		}
		s.logger.Error("failed to load transcript",
			"conversation_id", conversationID,
			"error", err,
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load transcript"})
	}

	frames, err := encodeFrames(t.Events)
	if err != nil {
		s.logger.Error("failed to encode transcript",
			"session_id", t.SessionID,
			"error", err,
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to encode transcript"})
	}

	s.logger.Debug("replaying transcript",
		"session_id", t.SessionID,
		"conversation_id", t.ConversationID,
		"frames", len(frames),
	)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	delay := s.config.FrameDelay
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		for _, frame := range frames {
			if err := sse.WriteData(w, frame); err != nil {
				return
			}
			// A failed flush means the client went away.
			if err := w.Flush(); err != nil {
				s.logger.Debug("replay client disconnected", "session_id", t.SessionID)
				return
			}
			if delay > 0 {
				time.Sleep(delay)
			}
		}

		if err := sse.WriteDone(w); err != nil {
			return
		}
		_ = w.Flush()
	})

	return nil
}

// encodeFrames marshals events into frame payloads.
func encodeFrames(events []chatstream.Event) ([][]byte, error) {
	frames := make([][]byte, 0, len(events))
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return nil, err
		}
		frames = append(frames, data)
	}
	return frames, nil
}

func summarize(t *chatstream.Transcript) TranscriptSummary {
	return TranscriptSummary{
		SessionID:      t.SessionID,
		ConversationID: t.ConversationID,
		Kind:           t.Kind,
		State:          t.State,
		Events:         len(t.Events),
		Dropped:        t.Dropped,
		StartedAt:      t.StartedAt,
		DurationMs:     t.Duration().Milliseconds(),
	}
}
