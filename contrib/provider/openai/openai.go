package openai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sweetpotato0/ai-summary/completion"
	"github.com/sweetpotato0/ai-summary/display"
	"github.com/sweetpotato0/ai-summary/pkg/logging"
	"github.com/sweetpotato0/ai-summary/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const maxErrorBody = 64 << 10

// Config holds SDK provider configuration
type Config struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Provider sends prompts through the official OpenAI SDK and decodes the
// streamed body exactly like completion.Client, reporting failures with the
// same messages.
type Provider struct {
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
}

var _ completion.Streamer = (*Provider)(nil)

// New creates a new SDK-backed provider
func New(config *Config) *Provider {
	p := &Provider{tracer: telemetry.Tracer()}
	if config != nil {
		p.httpClient = config.HTTPClient
		p.logger = config.Logger
	}
	if p.logger == nil {
		p.logger = logging.WithComponent("provider.openai")
	}
	return p
}

func (p *Provider) client(cfg completion.RequestConfig) openai.Client {
	options := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/") + "/"),
		option.WithMaxRetries(0),
	}
	if p.httpClient != nil {
		options = append(options, option.WithHTTPClient(p.httpClient))
	}
	return openai.NewClient(options...)
}

func params(cfg completion.RequestConfig) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(cfg.SystemPrompt),
			openai.UserMessage(cfg.UserContent),
		},
		Model:            openai.ChatModel(cfg.Model),
		Temperature:      openai.Float(completion.Temperature),
		MaxTokens:        openai.Int(int64(cfg.MaxTokens)),
		TopP:             openai.Float(completion.TopP),
		FrequencyPenalty: openai.Float(completion.FrequencyPenalty),
		PresencePenalty:  openai.Float(completion.PresencePenalty),
	}
}

// Stream implements completion.Streamer
func (p *Provider) Stream(ctx context.Context, cfg completion.RequestConfig, sink display.Sink) (_ string, err error) {
	if sink == nil {
		sink = display.Discard
	}
	sessionID := uuid.NewString()
	logger := p.logger.With("session", sessionID)

	ctx, span := p.tracer.Start(ctx, "provider.openai.Stream", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("llm.model", cfg.Model),
		attribute.String("llm.base_url", cfg.BaseURL),
	))
	defer func() { telemetry.End(span, err) }()

	if verr := completion.ValidateRequestConfig(cfg); verr != nil {
		e, _ := completion.AsError(verr)
		completion.ReportFailure(sink, logger, e)
		return "", e
	}

	// The SDK sends the request; the body goes through the same decoder as
	// completion.Client so malformed events are skipped, not fatal.
	var resp *http.Response
	client := p.client(cfg)
	perr := client.Post(ctx, "chat/completions", params(cfg), &resp,
		option.WithJSONSet("stream", true),
		option.WithHeader("Accept", "text/event-stream"),
		option.WithResponseInto(&resp),
	)
	if perr != nil {
		e := classify(perr)
		completion.ReportFailure(sink, logger, e)
		return "", e
	}
	var body io.Reader
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
		body = resp.Body
	}

	var text strings.Builder
	stats, e := completion.ReadStream(body, 0, logger, func(fragment string) {
		sink.Append(fragment)
		text.WriteString(fragment)
	})
	span.SetAttributes(
		attribute.Int("stream.fragments", stats.Fragments),
		attribute.Int("stream.malformed_lines", stats.Malformed),
	)
	if e != nil {
		completion.ReportFailure(sink, logger, e)
		return "", e
	}
	return text.String(), nil
}

// classify maps a failed SDK request onto the completion taxonomy: API errors
// carry a status, everything else never produced a response.
func classify(err error) *completion.Error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return completion.NewStatusError(apiErr.StatusCode, http.StatusText(apiErr.StatusCode), errorBody(apiErr))
	}
	return completion.NewTransportError(err)
}

// errorBody returns the raw response body the SDK kept on the error, falling
// back to the JSON it decoded.
func errorBody(apiErr *openai.Error) []byte {
	if apiErr.Response != nil && apiErr.Response.Body != nil {
		if body, err := io.ReadAll(io.LimitReader(apiErr.Response.Body, maxErrorBody)); err == nil && len(body) > 0 {
			return body
		}
	}
	return []byte(apiErr.RawJSON())
}
