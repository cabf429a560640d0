package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sweetpotato0/ai-summary/config"
	"github.com/sweetpotato0/ai-summary/message"
)

// Sampling parameters sent with every request.
const (
	Temperature      = 0.7
	TopP             = 1.0
	FrequencyPenalty = 0.0
	PresencePenalty  = 0.0
)

const chatCompletionsPath = "/chat/completions"

// RequestConfig holds everything one prompt call needs. It is passed by value
// and never modified.
type RequestConfig struct {
	SystemPrompt string
	UserContent  string
	APIKey       string
	BaseURL      string
	Model        string
	MaxTokens    int
}

// Endpoint returns {BaseURL}/chat/completions. A trailing slash on BaseURL is
// dropped.
func (cfg RequestConfig) Endpoint() string {
	return strings.TrimRight(cfg.BaseURL, "/") + chatCompletionsPath
}

// Messages returns the system and user messages, in that order.
func (cfg RequestConfig) Messages() []message.Message {
	return message.Conversation(cfg.SystemPrompt, cfg.UserContent)
}

// ChatRequest is the JSON body of a streaming chat completion request.
type ChatRequest struct {
	Messages         []message.Message `json:"messages"`
	Model            string            `json:"model"`
	Temperature      float64           `json:"temperature"`
	MaxTokens        int               `json:"max_tokens"`
	TopP             float64           `json:"top_p"`
	FrequencyPenalty float64           `json:"frequency_penalty"`
	PresencePenalty  float64           `json:"presence_penalty"`
	Stream           bool              `json:"stream"`
}

// NewChatRequest builds the request body for cfg. Streaming is always on.
func NewChatRequest(cfg RequestConfig) ChatRequest {
	return ChatRequest{
		Messages:         cfg.Messages(),
		Model:            cfg.Model,
		Temperature:      Temperature,
		MaxTokens:        cfg.MaxTokens,
		TopP:             TopP,
		FrequencyPenalty: FrequencyPenalty,
		PresencePenalty:  PresencePenalty,
		Stream:           true,
	}
}

// ValidateRequestConfig reports a missing or blank API key as a
// KindConfiguration *Error.
func ValidateRequestConfig(cfg RequestConfig) error {
	if err := config.ValidateAPIKey(cfg.APIKey); err != nil {
		return missingAPIKeyError(err)
	}
	return nil
}

// BuildRequest validates cfg and assembles the outbound HTTP request. Errors
// are *Error of KindConfiguration.
func BuildRequest(ctx context.Context, cfg RequestConfig) (*http.Request, error) {
	if err := ValidateRequestConfig(cfg); err != nil {
		return nil, err
	}

	body, err := json.Marshal(NewChatRequest(cfg))
	if err != nil {
		return nil, configurationError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, configurationError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	return req, nil
}
