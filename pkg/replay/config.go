// Package replay provides a chat backend that answers the streaming endpoints
// by replaying recorded session transcripts in the chat wire format.
package replay

import "time"

// Config is the replay server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000")
	ListenAddr string

	// FrameDelay paces replayed frames. Zero writes them back to back.
	FrameDelay time.Duration
}
