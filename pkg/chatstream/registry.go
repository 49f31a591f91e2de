package chatstream

import "sync"

// Registry holds at most one live session per conversation. Starting a new
// send or regenerate in a conversation replaces and cancels the session
// running there. Sessions for a conversation not created yet share the empty
// id.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Replace makes s the live session of conversationID and cancels the session
// it replaces, which is returned. Replacing a session with itself is a no-op.
func (r *Registry) Replace(conversationID string, s *Session) *Session {
	r.mu.Lock()
	prev := r.sessions[conversationID]
	r.sessions[conversationID] = s
	r.mu.Unlock()

	if prev == nil || prev == s {
		return nil
	}

	prev.Cancel()
	return prev
}

// Get returns the live session of conversationID.
func (r *Registry) Get(conversationID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[conversationID]
	return s, ok
}

// Remove forgets s if it is still the live session of conversationID.
func (r *Registry) Remove(conversationID string, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[conversationID] != s {
		return false
	}

	delete(r.sessions, conversationID)
	return true
}

// Cancel cancels and forgets the live session of conversationID. It reports
// whether a session was found.
func (r *Registry) Cancel(conversationID string) bool {
	r.mu.Lock()
	s, ok := r.sessions[conversationID]
	delete(r.sessions, conversationID)
	r.mu.Unlock()

	if ok {
		s.Cancel()
	}
	return ok
}

// CancelAll cancels and forgets every live session and returns them so the
// caller can wait for them.
func (r *Registry) CancelAll() []*Session {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		sessions = append(sessions, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Cancel()
	}
	return sessions
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
