package completion

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sweetpotato0/ai-summary/display"
	"github.com/sweetpotato0/ai-summary/pkg/logging"
	"github.com/sweetpotato0/ai-summary/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultReadSize = 4096
	maxErrorBody    = 64 << 10
)

// Streamer streams one prompt into a sink and returns the accumulated text.
// On failure the text is "" and the error is an *Error whose message has
// already been appended to the sink.
type Streamer interface {
	Stream(ctx context.Context, cfg RequestConfig, sink display.Sink) (string, error)
}

// Client streams chat completions from an OpenAI-compatible endpoint over
// plain HTTP. It holds no per-call state and may be shared.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	readSize   int
}

var _ Streamer = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. Timeouts, proxies and TLS belong there;
// the default client has no timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracer sets the tracer; the global provider is used otherwise.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithReadSize sets the size of each body read.
func WithReadSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.readSize = n
		}
	}
}

// New creates a client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		readSize:   defaultReadSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.WithComponent("completion")
	}
	if c.tracer == nil {
		c.tracer = telemetry.Tracer()
	}
	return c
}

// session is the state of one call. It is never shared between calls.
type session struct {
	id        string
	text      strings.Builder
	fragments int
	malformed int
	body      io.ReadCloser
}

func newSession() *session {
	return &session{id: uuid.NewString()}
}

// Stream sends cfg and forwards every content delta to sink as it is decoded.
// It returns the concatenated deltas, or "" and an *Error on any failure, in
// which case exactly one error message has been appended to sink after
// whatever deltas were already forwarded.
func (c *Client) Stream(ctx context.Context, cfg RequestConfig, sink display.Sink) (_ string, err error) {
	if sink == nil {
		sink = display.Discard
	}
	s := newSession()
	logger := c.logger.With("session", s.id)

	ctx, span := c.tracer.Start(ctx, "completion.Stream", trace.WithAttributes(
		attribute.String("session.id", s.id),
		attribute.String("llm.model", cfg.Model),
		attribute.String("llm.base_url", cfg.BaseURL),
		attribute.Int("llm.max_tokens", cfg.MaxTokens),
	))
	defer func() {
		span.SetAttributes(
			attribute.Int("stream.fragments", s.fragments),
			attribute.Int("stream.malformed_lines", s.malformed),
		)
		telemetry.End(span, err)
	}()

	if e := c.run(ctx, cfg, s, sink, logger); e != nil {
		ReportFailure(sink, logger, e)
		return "", e
	}
	logger.Debug("prompt call completed", "fragments", s.fragments, "chars", s.text.Len())
	return s.text.String(), nil
}

// PromptChat streams one prompt and always returns a string: the full text on
// success, "" on failure.
func (c *Client) PromptChat(ctx context.Context, systemPrompt, userContent, apiKey, baseURL, model string, maxTokens int, sink display.Sink) string {
	text, _ := c.Stream(ctx, RequestConfig{
		SystemPrompt: systemPrompt,
		UserContent:  userContent,
		APIKey:       apiKey,
		BaseURL:      baseURL,
		Model:        model,
		MaxTokens:    maxTokens,
	}, sink)
	return text
}

var defaultClient = sync.OnceValue(func() *Client { return New() })

// PromptChat streams one prompt with the default client.
func PromptChat(ctx context.Context, systemPrompt, userContent, apiKey, baseURL, model string, maxTokens int, sink display.Sink) string {
	return defaultClient().PromptChat(ctx, systemPrompt, userContent, apiKey, baseURL, model, maxTokens, sink)
}

func (c *Client) run(ctx context.Context, cfg RequestConfig, s *session, sink display.Sink, logger *slog.Logger) *Error {
	req, err := BuildRequest(ctx, cfg)
	if err != nil {
		return asError(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return NewTransportError(err)
	}
	if resp.Body != nil {
		defer resp.Body.Close()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return NewStatusError(resp.StatusCode, statusText(resp), readErrorBody(resp.Body))
	}

	s.body = resp.Body
	stats, e := ReadStream(s.body, c.readSize, logger, func(fragment string) {
		sink.Append(fragment)
		s.text.WriteString(fragment)
	})
	s.fragments, s.malformed = stats.Fragments, stats.Malformed
	return e
}

// readErrorBody returns at most maxErrorBody bytes of a failed response. When
// the read itself fails, the read error's text stands in for the partial body.
func readErrorBody(body io.Reader) []byte {
	if body == nil {
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return []byte(err.Error())
	}
	return data
}

func asError(err error) *Error {
	if e, ok := AsError(err); ok {
		return e
	}
	return configurationError(err)
}

// statusText returns the reason phrase of resp, e.g. "Internal Server Error".
func statusText(resp *http.Response) string {
	if t := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))); t != "" {
		return t
	}
	return http.StatusText(resp.StatusCode)
}
