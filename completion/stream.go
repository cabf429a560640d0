package completion

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// StreamStats counts what ReadStream saw.
type StreamStats struct {
	Fragments int
	Malformed int
}

// ReadStream reads body in chunks of readSize and hands every content delta to
// onDelta in arrival order. Data returned together with a read error is
// decoded before the error is reported. A missing body is reported as an
// unavailable stream; readSize <= 0 selects the default.
func ReadStream(body io.Reader, readSize int, logger *slog.Logger, onDelta func(string)) (StreamStats, *Error) {
	var stats StreamStats
	if body == nil || body == http.NoBody {
		return stats, streamUnavailableError()
	}
	if readSize <= 0 {
		readSize = defaultReadSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	dec := NewDecoder(logger)
	emit := func(ev Event) {
		switch ev.Kind {
		case EventContent:
			stats.Fragments++
			onDelta(ev.Content)
		case EventDone:
			logger.Debug("done marker received", "fragments", stats.Fragments)
		}
	}

	buf := make([]byte, readSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n], emit)
		}
		if errors.Is(err, io.EOF) {
			dec.Flush(emit)
			stats.Malformed = dec.Malformed()
			return stats, nil
		}
		if err != nil {
			stats.Malformed = dec.Malformed()
			return stats, NewStreamReadError(err)
		}
	}
}
