package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for field %q: %s", e.Field, e.Message)
}

// Validator provides configuration validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{
		errors: []ValidationError{},
	}
}

// RequireNonEmpty validates that a string field is not empty
func (v *Validator) RequireNonEmpty(field, value string) *Validator {
	if value == "" {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: "value cannot be empty",
		})
	}
	return v
}

// RequireNonBlank validates that a string field holds something other than whitespace
func (v *Validator) RequireNonBlank(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: "value cannot be blank",
		})
	}
	return v
}

// RequirePositive validates that an integer field is greater than 0
func (v *Validator) RequirePositive(field string, value int) *Validator {
	if value <= 0 {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be positive, got %d", value),
		})
	}
	return v
}

// RequireNonNegative validates that an integer field is not below 0
func (v *Validator) RequireNonNegative(field string, value int) *Validator {
	if value < 0 {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must not be negative, got %d", value),
		})
	}
	return v
}

// ValidateOneOf validates that a string value is one of the allowed options
func (v *Validator) ValidateOneOf(field string, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if a == value {
			return v
		}
	}
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be one of %v, got %q", allowed, value),
	})
	return v
}

// ValidateHTTPURL validates that a string is an absolute http(s) URL
func (v *Validator) ValidateHTTPURL(field, value string) *Validator {
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be an absolute http(s) URL, got %q", value),
		})
	}
	return v
}

// HasErrors returns true if there are any validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Error returns a combined error message or nil if no errors
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	if len(v.errors) == 1 {
		return v.errors[0]
	}

	var b strings.Builder
	b.WriteString("configuration validation failed:\n")
	for _, e := range v.errors {
		fmt.Fprintf(&b, "  - %s: %s\n", e.Field, e.Message)
	}
	return fmt.Errorf("%s", b.String())
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ValidateAPIKey rejects missing or whitespace-only API keys.
func ValidateAPIKey(apiKey string) error {
	return NewValidator().RequireNonBlank("apiKey", apiKey).Error()
}

// ValidateSettings validates the settings a CLI run needs before any call is
// made. The API key is deliberately absent: a missing key is reported by the
// completion core through the display sink.
func ValidateSettings(s Settings) error {
	v := NewValidator()

	v.ValidateHTTPURL("base_url", s.BaseURL)
	v.RequireNonBlank("model", s.Model)
	v.RequirePositive("max_tokens", s.MaxTokens)
	v.ValidateOneOf("backend", s.Backend, BackendHTTP, BackendSDK)
	v.RequirePositive("concurrency", s.Concurrency)
	v.RequireNonNegative("timeout_seconds", s.TimeoutSeconds)

	return v.Error()
}
