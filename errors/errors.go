package errors

import "errors"

// Sentinel errors for the terminal failure categories of a prompt call
var (
	// ErrConfiguration indicates the call was rejected before any network activity
	ErrConfiguration = errors.New("configuration error")

	// ErrMissingAPIKey indicates that no usable API key was supplied
	ErrMissingAPIKey = errors.New("api key not set")

	// ErrTransport indicates a connection or DNS level failure
	ErrTransport = errors.New("transport error")

	// ErrHTTPStatus indicates a non-2xx response from the endpoint
	ErrHTTPStatus = errors.New("http status error")

	// ErrUnauthorized indicates the API key was rejected (401)
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates the endpoint throttled the request (429)
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidRequest indicates the endpoint rejected the request parameters (400)
	ErrInvalidRequest = errors.New("invalid request")

	// ErrStreamUnavailable indicates a successful response without a readable body
	ErrStreamUnavailable = errors.New("response stream unavailable")

	// ErrStreamRead indicates a failure while consuming the response body
	ErrStreamRead = errors.New("stream read error")

	// ErrLineParse indicates a malformed stream event
	ErrLineParse = errors.New("stream line parse error")
)
