package display

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferKeepsOrder(t *testing.T) {
	b := NewBuffer()
	b.Append("Hel")
	b.Append("lo")

	assert.Equal(t, []string{"Hel", "lo"}, b.Pieces())
	assert.Equal(t, "Hello", b.String())
}

func TestBufferConcurrentAppend(t *testing.T) {
	b := NewBuffer()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Append("x")
		}()
	}
	wg.Wait()
	assert.Len(t, b.Pieces(), 50)
}

func TestWriterAndFunc(t *testing.T) {
	var out bytes.Buffer
	var s Sink = NewWriter(&out)
	s.Append("a")
	s.Append("b")
	assert.Equal(t, "ab", out.String())

	var got []string
	s = SinkFunc(func(text string) { got = append(got, text) })
	s.Append("c")
	assert.Equal(t, []string{"c"}, got)

	Discard.Append("ignored")
}
