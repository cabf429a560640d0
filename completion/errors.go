package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/ai-summary/display"
	aierrors "github.com/sweetpotato0/ai-summary/errors"
	"github.com/tidwall/gjson"
)

// MessagePrefix tags every message this package writes to a sink or log so
// operators can correlate them.
const MessagePrefix = "[AI-SUMMARY] "

const errorPrefix = MessagePrefix + "Error: "

const (
	msgMissingAPIKey     = errorPrefix + "OpenAI API Key not set. Please configure API Key in settings."
	msgNetwork           = errorPrefix + "Network connection failed, please check network connection or Base URL settings"
	msgUnauthorized      = errorPrefix + "API Key is invalid or expired. Please check your API Key configuration."
	msgRateLimited       = errorPrefix + "API request rate limit exceeded, please try again later."
	msgInvalidRequest    = errorPrefix + "Invalid request parameters. Please check model name and other settings."
	msgStreamUnavailable = errorPrefix + "Unable to read response data stream."
	msgStreamFailed      = errorPrefix + "Stream data processing failed - "
)

// Kind classifies a failure of a prompt call.
type Kind int

const (
	// KindConfiguration is detected before any network activity.
	KindConfiguration Kind = iota + 1
	// KindTransport is a connection or DNS level failure.
	KindTransport
	// KindHTTPStatus is a non-2xx response.
	KindHTTPStatus
	// KindStreamRead is a missing body or a failure while consuming it after
	// a 2xx status.
	KindStreamRead
	// KindLineParse is a malformed stream event; it is logged and never
	// returned from a call.
	KindLineParse
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransport:
		return "transport"
	case KindHTTPStatus:
		return "http_status"
	case KindStreamRead:
		return "stream_read"
	case KindLineParse:
		return "line_parse"
	default:
		return "unknown"
	}
}

// Error is the failure of a prompt call. Message is the user-facing text that
// was appended to the sink.
type Error struct {
	Kind Kind

	// StatusCode is set for KindHTTPStatus.
	StatusCode int

	// Body is the (capped) response body of a failed HTTP call.
	Body string

	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches the sentinel errors of the errors package for the kind and, for
// HTTP failures, the categorised status codes. More specific sentinels such as
// ErrMissingAPIKey are reached through Cause.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case aierrors.ErrConfiguration:
		return e.Kind == KindConfiguration
	case aierrors.ErrTransport:
		return e.Kind == KindTransport
	case aierrors.ErrHTTPStatus:
		return e.Kind == KindHTTPStatus
	case aierrors.ErrStreamRead:
		return e.Kind == KindStreamRead
	case aierrors.ErrLineParse:
		return e.Kind == KindLineParse
	case aierrors.ErrUnauthorized:
		return e.Kind == KindHTTPStatus && e.StatusCode == 401
	case aierrors.ErrRateLimited:
		return e.Kind == KindHTTPStatus && e.StatusCode == 429
	case aierrors.ErrInvalidRequest:
		return e.Kind == KindHTTPStatus && e.StatusCode == 400
	}
	return false
}

// AsError extracts *Error.
func AsError(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

func missingAPIKeyError(cause error) *Error {
	return &Error{
		Kind:    KindConfiguration,
		Message: msgMissingAPIKey,
		Cause:   fmt.Errorf("%w: %w", aierrors.ErrMissingAPIKey, cause),
	}
}

func configurationError(cause error) *Error {
	return &Error{
		Kind:    KindConfiguration,
		Message: errorPrefix + cause.Error(),
		Cause:   cause,
	}
}

// NewTransportError classifies a failure to obtain a response. Cancellation
// and deadlines keep their own text; everything else is reported as a
// connection problem.
func NewTransportError(cause error) *Error {
	msg := msgNetwork
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		msg = errorPrefix + cause.Error()
	}
	return &Error{Kind: KindTransport, Message: msg, Cause: cause}
}

// NewStatusError classifies a non-2xx response. The status code decides the
// message for 401, 429 and 400 regardless of the body; other codes use the
// body's error.message, then the raw body, then the status line.
func NewStatusError(status int, statusText string, body []byte) *Error {
	e := &Error{Kind: KindHTTPStatus, StatusCode: status, Body: string(body)}
	switch {
	case status == 401:
		e.Message = msgUnauthorized
	case status == 429:
		e.Message = msgRateLimited
	case status == 400:
		e.Message = msgInvalidRequest
	case strings.TrimSpace(e.Body) != "":
		e.Message = errorPrefix + embeddedMessage(e.Body)
	default:
		e.Message = fmt.Sprintf("%sRequest failed (%d): %s", errorPrefix, status, statusText)
	}
	e.Cause = fmt.Errorf("http %d %s", status, statusText)
	return e
}

// embeddedMessage returns error.message of a JSON error envelope, or the body
// itself when it is not JSON or carries no message.
func embeddedMessage(body string) string {
	if gjson.Valid(body) {
		if m := gjson.Get(body, "error.message"); m.Type == gjson.String && m.Str != "" {
			return m.Str
		}
	}
	return body
}

func streamUnavailableError() *Error {
	return &Error{
		Kind:    KindStreamRead,
		Message: msgStreamUnavailable,
		Cause:   aierrors.ErrStreamUnavailable,
	}
}

// NewStreamReadError reports a failure while consuming a successful response.
func NewStreamReadError(cause error) *Error {
	return &Error{
		Kind:    KindStreamRead,
		Message: msgStreamFailed + cause.Error(),
		Cause:   cause,
	}
}

func lineParseError(cause error) *Error {
	return &Error{
		Kind:    KindLineParse,
		Message: MessagePrefix + "Stream response parsing warning: " + cause.Error(),
		Cause:   cause,
	}
}

// ReportFailure appends the single user-facing message of a terminal error to
// the sink and logs it.
func ReportFailure(sink display.Sink, logger *slog.Logger, e *Error) {
	if e == nil {
		return
	}
	sink.Append(e.Message)
	logger.Error(MessagePrefix+"prompt call failed",
		"kind", e.Kind.String(),
		"status", e.StatusCode,
		"error", e.Cause,
	)
}
