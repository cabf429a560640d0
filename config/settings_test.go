package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var settingsEnv = []string{
	"AISUMMARY_API_KEY", "OPENAI_API_KEY", "AISUMMARY_BASE_URL", "AISUMMARY_MODEL",
	"AISUMMARY_MAX_TOKENS", "AISUMMARY_SYSTEM_PROMPT", "AISUMMARY_TIMEOUT_SECONDS",
	"AISUMMARY_BACKEND", "AISUMMARY_CONCURRENCY",
}

// clearEnv unsets keys for the duration of the test; t.Setenv restores them.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadSettingsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	content := `
api_key: sk-file
base_url: http://localhost:8080/v1
model: qwen-plus
max_tokens: 512
timeout_seconds: 30
backend: sdk
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	clearEnv(t, settingsEnv...)

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-file", s.APIKey)
	assert.Equal(t, "http://localhost:8080/v1", s.BaseURL)
	assert.Equal(t, "qwen-plus", s.Model)
	assert.Equal(t, 512, s.MaxTokens)
	assert.Equal(t, 30*time.Second, s.Timeout())
	assert.Equal(t, BackendSDK, s.Backend)
	// untouched fields keep their defaults
	assert.Equal(t, DefaultSettings().SystemPrompt, s.SystemPrompt)
	assert.Equal(t, DefaultSettings().Concurrency, s.Concurrency)
}

func TestLoadSettingsRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("temperature: 0.2\n"), 0o600))
	clearEnv(t, settingsEnv...)

	_, err := LoadSettings(path)
	require.Error(t, err)
}

func TestLoadSettingsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	clearEnv(t, settingsEnv...)

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings().Model, s.Model)
}

func TestLoadSettingsMissingFile(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadSettingsDefaults(t *testing.T) {
	clearEnv(t, settingsEnv...)

	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoadSettingsEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    func(t *testing.T, s Settings)
		wantErr bool
	}{
		{
			name: "openai key fallback",
			env:  map[string]string{"OPENAI_API_KEY": "sk-openai"},
			want: func(t *testing.T, s Settings) { assert.Equal(t, "sk-openai", s.APIKey) },
		},
		{
			name: "own key wins",
			env:  map[string]string{"OPENAI_API_KEY": "sk-openai", "AISUMMARY_API_KEY": "sk-own"},
			want: func(t *testing.T, s Settings) { assert.Equal(t, "sk-own", s.APIKey) },
		},
		{
			name: "empty variable is unset",
			env:  map[string]string{"AISUMMARY_MODEL": ""},
			want: func(t *testing.T, s Settings) { assert.Equal(t, DefaultSettings().Model, s.Model) },
		},
		{
			name: "endpoint overrides",
			env: map[string]string{
				"AISUMMARY_BASE_URL":        "https://example.test/v1",
				"AISUMMARY_MODEL":           "deepseek-chat",
				"AISUMMARY_MAX_TOKENS":      "64",
				"AISUMMARY_TIMEOUT_SECONDS": "15",
				"AISUMMARY_BACKEND":         "sdk",
			},
			want: func(t *testing.T, s Settings) {
				assert.Equal(t, "https://example.test/v1", s.BaseURL)
				assert.Equal(t, "deepseek-chat", s.Model)
				assert.Equal(t, 64, s.MaxTokens)
				assert.Equal(t, 15*time.Second, s.Timeout())
				assert.Equal(t, BackendSDK, s.Backend)
			},
		},
		{
			name:    "bad max tokens",
			env:     map[string]string{"AISUMMARY_MAX_TOKENS": "lots"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t, settingsEnv...)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			s, err := LoadSettings("")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.want(t, s)
		})
	}
}

func TestLoadSettingsEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: from-file\nmax_tokens: 10\n"), 0o600))
	clearEnv(t, settingsEnv...)
	t.Setenv("AISUMMARY_MODEL", "from-env")

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", s.Model)
	assert.Equal(t, 10, s.MaxTokens)
}
