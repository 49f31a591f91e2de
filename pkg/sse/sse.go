// Package sse provides the framing layer of the chat streaming protocol: a
// chunk-tolerant line decoder for response bodies and helpers for the
// "data: <payload>" frames the chat backend emits.
//
// The framing is a deliberate subset of Server-Sent Events. Only the "data"
// field is meaningful, a frame is a single line, and the literal payload
// "[DONE]" terminates the stream. Every other SSE field is ignored.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import (
	"io"
	"strings"
)

const (
	// DataPrefix is the literal prefix of a relevant frame line, including
	// the single space after the colon.
	DataPrefix = "data: "

	// Sentinel is the payload signaling a clean end of the stream.
	Sentinel = "[DONE]"
)

// DataPayload returns the payload of a "data: " line. The second return value
// is false for any other line (blank lines, comments, other SSE fields).
// A single trailing carriage return is ignored so CRLF framed streams behave
// the same as LF framed ones.
func DataPayload(line string) (string, bool) {
	line = strings.TrimSuffix(line, "\r")
	return strings.CutPrefix(line, DataPrefix)
}

// IsSentinel reports whether payload is the stream terminator.
func IsSentinel(payload string) bool {
	return payload == Sentinel
}

// WriteData writes payload as a single data frame followed by the blank line
// that ends an SSE event.
func WriteData(w io.Writer, payload []byte) error {
	buf := make([]byte, 0, len(DataPrefix)+len(payload)+2)
	buf = append(buf, DataPrefix...)
	buf = append(buf, payload...)
	buf = append(buf, '\n', '\n')

	_, err := w.Write(buf)
	return err
}

// WriteDone writes the terminating sentinel frame.
func WriteDone(w io.Writer) error {
	return WriteData(w, []byte(Sentinel))
}
