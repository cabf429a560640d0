// Package display defines the surface streamed text is rendered on.
package display

import (
	"io"
	"strings"
	"sync"
)

// Sink receives text as it becomes available. Append must not block for long
// and has no way to report failure; the caller assumes it always succeeds.
type Sink interface {
	Append(text string)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(text string)

// Append calls f(text).
func (f SinkFunc) Append(text string) { f(text) }

// Discard is a Sink that drops everything.
var Discard Sink = SinkFunc(func(string) {})

// Writer renders appended text to an io.Writer, e.g. a terminal. Write errors
// are dropped.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter creates a sink writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Append writes text to the underlying writer.
func (s *Writer) Append(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, text)
}

// Buffer keeps every appended piece in memory. It is safe for concurrent use.
type Buffer struct {
	mu     sync.Mutex
	pieces []string
}

// NewBuffer creates an empty buffer sink.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append records text.
func (b *Buffer) Append(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pieces = append(b.pieces, text)
}

// Pieces returns a copy of the appended pieces in order.
func (b *Buffer) Pieces() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.pieces))
	copy(out, b.pieces)
	return out
}

// String returns everything appended so far, concatenated.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.pieces, "")
}
