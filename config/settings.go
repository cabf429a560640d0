package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. AISUMMARY_MODEL.
const EnvPrefix = "AISUMMARY"

// Streaming backends selectable from settings.
const (
	BackendHTTP = "http"
	BackendSDK  = "sdk"
)

// Settings is the user-facing configuration of a prompt run.
type Settings struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	MaxTokens      int    `mapstructure:"max_tokens"`
	SystemPrompt   string `mapstructure:"system_prompt"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Backend        string `mapstructure:"backend"`
	Concurrency    int    `mapstructure:"concurrency"`
}

// Timeout returns the transport timeout; zero means none.
func (s Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		BaseURL:      "https://api.openai.com/v1",
		Model:        "gpt-4o-mini",
		MaxTokens:    2000,
		SystemPrompt: "You are a helpful assistant. Summarize the user's note concisely, keeping its key points.",
		Backend:      BackendHTTP,
		Concurrency:  4,
	}
}

// LoadSettings reads settings from a YAML file on top of the defaults and then
// applies environment overrides. An empty path skips the file. Unknown keys in
// the file are rejected.
//
// Every key can be overridden as AISUMMARY_<KEY>; the API key also falls back
// to OPENAI_API_KEY. Empty variables count as unset.
func LoadSettings(path string) (Settings, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return DefaultSettings(), fmt.Errorf("read settings %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.UnmarshalExact(&s); err != nil {
		return DefaultSettings(), fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	d := DefaultSettings()
	for key, value := range map[string]any{
		"api_key":         d.APIKey,
		"base_url":        d.BaseURL,
		"model":           d.Model,
		"max_tokens":      d.MaxTokens,
		"system_prompt":   d.SystemPrompt,
		"timeout_seconds": d.TimeoutSeconds,
		"backend":         d.Backend,
		"concurrency":     d.Concurrency,
	} {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("api_key", EnvPrefix+"_API_KEY", "OPENAI_API_KEY")
	return v
}
