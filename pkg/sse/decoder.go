package sse

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder converts an arbitrary sequence of byte chunks into complete text
// lines. Multi-byte UTF-8 sequences and lines may straddle chunk boundaries.
//
// ┌──────────────┐   ┌────────────────┐   ┌────────────┐
// │ byte chunks  │──▶│ UTF-8 decoding │──▶│ "\n" split │──▶ lines
// └──────────────┘   └────────────────┘   └────────────┘
//
// Bytes of an incomplete multi-byte sequence at the end of a chunk are held
// back until the next chunk arrives. Malformed sequences are replaced with
// U+FFFD rather than failing. A Decoder is not safe for concurrent use; it is
// owned by a single stream.
type Decoder struct {
	utf8 transform.Transformer

	// pending holds undecoded bytes of a multi-byte sequence cut by a chunk
	// boundary.
	pending []byte

	// tail holds decoded text after the last observed newline.
	tail []byte
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{
		utf8: unicode.UTF8.NewDecoder(),
	}
}

// Write feeds the next chunk and returns the lines completed by it, in order,
// without their trailing newline. The returned slice is empty when the chunk
// did not complete any line.
func (d *Decoder) Write(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}

	src := chunk
	if len(d.pending) > 0 {
		src = append(d.pending, chunk...)
		d.pending = nil
	}

	rest := src[d.decode(src, false):]

	// A truncated sequence followed by a newline can never complete. Decode
	// through the newline as if at EOF so the line is not held back.
	if i := bytes.LastIndexByte(rest, '\n'); i >= 0 {
		d.decode(rest[:i+1], true)
		rest = rest[i+1:]
		rest = rest[d.decode(rest, false):]
	}

	if len(rest) > 0 {
		d.pending = bytes.Clone(rest)
	}

	return d.lines()
}

// Close signals the end of the stream. Any unterminated tail is discarded and
// never emitted as a line. Close returns the number of bytes discarded and
// leaves the Decoder empty and reusable.
func (d *Decoder) Close() int {
	discarded := len(d.tail) + len(d.pending)
	d.Reset()
	return discarded
}

// Buffered returns the number of bytes held that do not yet form a line.
func (d *Decoder) Buffered() int {
	return len(d.tail) + len(d.pending)
}

// Reset drops all buffered state.
func (d *Decoder) Reset() {
	d.utf8.Reset()
	d.pending = nil
	d.tail = nil
}

// decode appends the decoded form of src to the tail and returns the number of
// source bytes consumed. Unconsumed bytes are a truncated multi-byte sequence.
func (d *Decoder) decode(src []byte, atEOF bool) int {
	// A replaced byte grows to the three byte encoding of U+FFFD.
	dst := make([]byte, 3*len(src)+utf8.UTFMax)

	// The only possible error is transform.ErrShortSrc, reported for the
	// truncated sequence we keep as pending.
	nDst, nSrc, _ := d.utf8.Transform(dst, src, atEOF)
	d.tail = append(d.tail, dst[:nDst]...)

	return nSrc
}

// lines splits complete lines off the front of the tail.
func (d *Decoder) lines() []string {
	var out []string

	start := 0
	for {
		i := bytes.IndexByte(d.tail[start:], '\n')
		if i < 0 {
			break
		}
		out = append(out, string(d.tail[start:start+i]))
		start += i + 1
	}

	if start > 0 {
		d.tail = append(d.tail[:0], d.tail[start:]...)
	}

	return out
}
