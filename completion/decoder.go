package completion

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	dataPrefix  = "data: "
	doneMarker  = "[DONE]"
	deltaPath   = "choices.0.delta.content"
	maxLogBytes = 256
)

var errInvalidJSON = errors.New("invalid JSON payload")

// EventKind tells content deltas from the done marker.
type EventKind int

const (
	EventContent EventKind = iota
	EventDone
)

// Event is one decoded stream line.
type Event struct {
	Kind    EventKind
	Content string
}

// Decoder turns arbitrarily chunked stream bytes into events. Bytes after the
// last newline of a chunk are held back until a later chunk completes the line
// or Flush is called, so lines and multi-byte characters may span chunks.
//
// A done marker ends decoding of the lines completed by the current Feed only;
// later chunks are still decoded. Termination is driven by the end of the body.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	pending   []byte
	malformed int
	logger    *slog.Logger
}

// NewDecoder creates a decoder that logs malformed lines to logger.
func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{logger: logger}
}

// Feed consumes one chunk and calls emit for every event on the lines it
// completes.
func (d *Decoder) Feed(chunk []byte, emit func(Event)) {
	d.pending = append(d.pending, chunk...)
	idx := bytes.LastIndexByte(d.pending, '\n')
	if idx < 0 {
		return
	}
	block := string(d.pending[:idx])
	d.pending = append(d.pending[:0], d.pending[idx+1:]...)
	d.decodeLines(block, emit)
}

// Flush decodes whatever is held back as a final line. It is called once the
// body is exhausted.
func (d *Decoder) Flush(emit func(Event)) {
	if len(d.pending) == 0 {
		return
	}
	block := string(d.pending)
	d.pending = d.pending[:0]
	d.decodeLines(block, emit)
}

// Pending reports how many bytes are held back waiting for a newline.
func (d *Decoder) Pending() int { return len(d.pending) }

// Malformed reports how many lines failed to parse so far.
func (d *Decoder) Malformed() int { return d.malformed }

func (d *Decoder) decodeLines(block string, emit func(Event)) {
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		payload := strings.TrimPrefix(line, dataPrefix)
		if payload == doneMarker {
			emit(Event{Kind: EventDone})
			return
		}
		content, err := ExtractDelta(payload)
		if err != nil {
			d.malformed++
			pe := lineParseError(err)
			d.logger.Warn(pe.Message, "kind", pe.Kind.String(), "line", truncate(line, maxLogBytes))
			continue
		}
		if content != "" {
			emit(Event{Kind: EventContent, Content: content})
		}
	}
}

// ExtractDelta returns choices[0].delta.content of a chunk payload. Payloads
// that are valid JSON without a string delta yield "".
func ExtractDelta(payload string) (string, error) {
	if !gjson.Valid(payload) {
		return "", errInvalidJSON
	}
	r := gjson.Get(payload, deltaPath)
	if r.Type != gjson.String {
		return "", nil
	}
	return r.Str, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
