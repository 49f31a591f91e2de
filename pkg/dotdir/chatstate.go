package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	chatStateFile = "chat.json"
)

// ChatState is where an interactive chat left off.
type ChatState struct {
	// ConversationID is the conversation announced by the backend.
	ConversationID string `json:"conversation_id"`

	// MessageID is the id of the last assistant reply, the target of a
	// regenerate.
	MessageID string `json:"message_id,omitempty"`

	// Model is the model the conversation was started with.
	Model string `json:"model,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// LoadChatState loads the chat state from a target .fleet/chat.json.
// Returns nil, nil if no chat state exists (a new conversation).
// If overrideDir is non-empty, it is used instead of the default .fleet/ location.
func (m *Manager) LoadChatState(overrideDir string) (*ChatState, error) {
	path, err := m.File(overrideDir, chatStateFile)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading chat state: %w", err)
	}

	state := &ChatState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing chat state: %w", err)
	}

	return state, nil
}

// SaveChatState persists the chat state to a target .fleet/chat.json.
func (m *Manager) SaveChatState(state *ChatState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil chat state")
	}

	path, err := m.File(overrideDir, chatStateFile)
	if err != nil {
		return err
	}

	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling chat state: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing chat state: %w", err)
	}

	return nil
}

// ClearChatState removes the chat state file so the next chat starts a new
// conversation. Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearChatState(overrideDir string) error {
	path, err := m.File(overrideDir, chatStateFile)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing chat state: %w", err)
	}

	return nil
}
