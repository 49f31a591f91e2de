package chatstream

import (
	"errors"
	"strings"
)

const (
	// SendPath is the endpoint streaming the reply to a new message.
	SendPath = "/api/chat/stream"

	// RegeneratePath is the endpoint streaming a new reply for an existing
	// message.
	RegeneratePath = "/api/chat/regenerate"
)

var (
	// ErrEmptyContent is returned when a message has no content.
	ErrEmptyContent = errors.New("message content is empty")

	// ErrMissingMessageID is returned when a regenerate request does not name
	// the message to regenerate.
	ErrMissingMessageID = errors.New("message id is required")

	// ErrMissingConversationID is returned when a regenerate request does not
	// name its conversation.
	ErrMissingConversationID = errors.New("conversation id is required")
)

// Kind names the call site that started a session.
type Kind string

const (
	KindSend       Kind = "send"
	KindRegenerate Kind = "regenerate"
)

// RequestBuilder constructs the request for one call site. Sessions started
// from any builder share the same decode, dispatch and cancellation contract.
type RequestBuilder interface {
	// Build validates the builder and returns the request to issue.
	Build() (*Request, error)

	// Conversation returns the conversation the session belongs to. An empty
	// id denotes a conversation not created yet.
	Conversation() string

	// Kind returns the call site kind.
	Kind() Kind
}

// SendRequest streams the reply to a fresh user message.
type SendRequest struct {
	ConversationID string
	Content        string
	AttachmentIDs  []string
	Model          string
}

type sendBody struct {
	ConversationID string   `json:"conversation_id,omitempty"`
	Content        string   `json:"content"`
	AttachmentIDs  []string `json:"attachment_ids,omitempty"`
	Model          string   `json:"model,omitempty"`
}

// Build implements RequestBuilder.
func (r SendRequest) Build() (*Request, error) {
	if strings.TrimSpace(r.Content) == "" {
		return nil, ErrEmptyContent
	}

	return &Request{
		Path: SendPath,
		Body: sendBody{
			ConversationID: r.ConversationID,
			Content:        r.Content,
			AttachmentIDs:  r.AttachmentIDs,
			Model:          r.Model,
		},
	}, nil
}

// Conversation implements RequestBuilder.
func (r SendRequest) Conversation() string { return r.ConversationID }

// Kind implements RequestBuilder.
func (r SendRequest) Kind() Kind { return KindSend }

// RegenerateRequest streams a replacement reply for an existing message. It
// carries no new content.
type RegenerateRequest struct {
	ConversationID string
	MessageID      string
	Model          string
}

type regenerateBody struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	Model          string `json:"model,omitempty"`
}

// Build implements RequestBuilder.
func (r RegenerateRequest) Build() (*Request, error) {
	if r.ConversationID == "" {
		return nil, ErrMissingConversationID
	}
	if r.MessageID == "" {
		return nil, ErrMissingMessageID
	}

	return &Request{
		Path: RegeneratePath,
		Body: regenerateBody{
			ConversationID: r.ConversationID,
			MessageID:      r.MessageID,
			Model:          r.Model,
		},
	}, nil
}

// Conversation implements RequestBuilder.
func (r RegenerateRequest) Conversation() string { return r.ConversationID }

// Kind implements RequestBuilder.
func (r RegenerateRequest) Kind() Kind { return KindRegenerate }
