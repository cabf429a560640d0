package completion

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetpotato0/ai-summary/pkg/logging"
)

// deltaLine renders one stream event carrying content.
func deltaLine(content string) string {
	payload := map[string]any{
		"object": "chat.completion.chunk",
		"choices": []any{
			map[string]any{"index": 0, "delta": map[string]any{"content": content}},
		},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return "data: " + string(b) + "\n"
}

type recorder struct {
	events []Event
}

func (r *recorder) emit(ev Event) { r.events = append(r.events, ev) }

func (r *recorder) contents() []string {
	var out []string
	for _, ev := range r.events {
		if ev.Kind == EventContent {
			out = append(out, ev.Content)
		}
	}
	return out
}

func feedAll(d *Decoder, r *recorder, chunks ...string) {
	for _, c := range chunks {
		d.Feed([]byte(c), r.emit)
	}
	d.Flush(r.emit)
}

func TestDecoderSplitsOnLines(t *testing.T) {
	d := NewDecoder(logging.Discard())
	r := &recorder{}

	feedAll(d, r, deltaLine("a")+deltaLine("b")+"\n\n"+deltaLine("c"))

	assert.Equal(t, []string{"a", "b", "c"}, r.contents())
	assert.Zero(t, d.Malformed())
}

func TestDecoderCarriesPartialLine(t *testing.T) {
	line := deltaLine("Hello")
	cut := len(line) / 2

	d := NewDecoder(logging.Discard())
	r := &recorder{}

	d.Feed([]byte(line[:cut]), r.emit)
	assert.Empty(t, r.events)
	assert.Equal(t, cut, d.Pending())

	d.Feed([]byte(line[cut:]), r.emit)
	assert.Equal(t, []string{"Hello"}, r.contents())
	assert.Zero(t, d.Pending())
	assert.Zero(t, d.Malformed())
}

func TestDecoderReassemblesSplitRune(t *testing.T) {
	line := deltaLine("héllo")
	// split inside the two-byte encoding of é
	idx := len(`data: {"choices":[{"delta":{"content":"h`) + 1
	require.Equal(t, byte(0xc3), line[idx-1])

	d := NewDecoder(logging.Discard())
	r := &recorder{}
	feedAll(d, r, line[:idx], line[idx:])

	assert.Equal(t, []string{"héllo"}, r.contents())
}

func TestDecoderFlushesTrailingLine(t *testing.T) {
	line := deltaLine("tail")
	d := NewDecoder(logging.Discard())
	r := &recorder{}

	d.Feed([]byte(line[:len(line)-1]), r.emit)
	assert.Empty(t, r.events)

	d.Flush(r.emit)
	assert.Equal(t, []string{"tail"}, r.contents())

	// a second flush has nothing left
	d.Flush(r.emit)
	assert.Len(t, r.events, 1)
}

func TestDecoderHandlesCRLF(t *testing.T) {
	d := NewDecoder(logging.Discard())
	r := &recorder{}

	feedAll(d, r, "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\r\n\r\ndata: [DONE]\r\n")

	require.Len(t, r.events, 2)
	assert.Equal(t, Event{Kind: EventContent, Content: "x"}, r.events[0])
	assert.Equal(t, EventDone, r.events[1].Kind)
	assert.Zero(t, d.Malformed())
}

func TestDecoderPrefixIsOptional(t *testing.T) {
	d := NewDecoder(logging.Discard())
	r := &recorder{}

	feedAll(d, r, `{"choices":[{"delta":{"content":"bare"}}]}`+"\n")

	assert.Equal(t, []string{"bare"}, r.contents())
}

func TestDecoderSkipsMalformedLines(t *testing.T) {
	d := NewDecoder(logging.Discard())
	r := &recorder{}

	feedAll(d, r,
		deltaLine("one")+`data: {"choices":[{"delta":{"content":"tru`+"\n"+deltaLine("two"),
		": keep-alive\n"+deltaLine("three"),
	)

	assert.Equal(t, []string{"one", "two", "three"}, r.contents())
	assert.Equal(t, 2, d.Malformed())
}

func TestDecoderDoneEndsCurrentFeedOnly(t *testing.T) {
	d := NewDecoder(logging.Discard())
	r := &recorder{}

	feedAll(d, r,
		deltaLine("A")+"data: [DONE]\n"+deltaLine("dropped"),
		deltaLine("C"),
	)

	assert.Equal(t, []string{"A", "C"}, r.contents())
}

func TestExtractDelta(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
		wantErr bool
	}{
		{name: "content", payload: `{"choices":[{"delta":{"content":"hi"}}]}`, want: "hi"},
		{name: "role only", payload: `{"choices":[{"delta":{"role":"assistant"}}]}`, want: ""},
		{name: "null content", payload: `{"choices":[{"delta":{"content":null}}]}`, want: ""},
		{name: "numeric content", payload: `{"choices":[{"delta":{"content":42}}]}`, want: ""},
		{name: "empty choices", payload: `{"choices":[],"usage":{"total_tokens":3}}`, want: ""},
		{name: "scalar json", payload: `123`, want: ""},
		{name: "escaped", payload: `{"choices":[{"delta":{"content":"a\nb é"}}]}`, want: "a\nb é"},
		{name: "truncated", payload: `{"choices":[{"delta":`, wantErr: true},
		{name: "done with space", payload: `[DONE] `, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractDelta(tt.payload)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
