package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("ELEVENLABS_API_KEY", "eleven-key")
	t.Setenv("ELEVENLABS_VOICE_ID", "voice-123")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_DefaultsFromEnvOnly(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "gemini-key", cfg.LLM.APIKey)
	assert.Equal(t, "groq-key", cfg.STT.APIKey)
	assert.Equal(t, "eleven-key", cfg.TTS.APIKey)
	assert.Equal(t, "voice-123", cfg.TTS.VoiceID)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 0.0001)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, ":8000", cfg.Server.Addr())
}

func TestLoad_YAMLFile(t *testing.T) {
	setRequiredEnv(t)
	path := writeConfig(t, `
server:
  port: 9100
  allowed_origins:
    - https://interview.example.com
llm:
  model: gemini-2.5-pro
  temperature: 0.2
  timeout: 45s
log:
  level: DEBUG
  format: console
rate_limit:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, []string{"https://interview.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 0.0001)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "9300")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "42")
	t.Setenv("TTS_OUTPUT_FORMAT", "pcm_16000")
	path := writeConfig(t, "server:\n  port: 9100\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9300, cfg.Server.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 42, cfg.RateLimit.DefaultLimit)
	assert.Equal(t, "pcm_16000", cfg.TTS.OutputFormat)
}

func TestLoad_PortAlias(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "7000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoad_MissingAPIKeys(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("ELEVENLABS_API_KEY", "")
	t.Setenv("ELEVENLABS_VOICE_ID", "")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("STT_API_KEY", "")
	t.Setenv("TTS_API_KEY", "")
	t.Setenv("TTS_VOICE_ID", "")

	cfg, err := Load("")
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "LLM.APIKey")
	assert.Contains(t, err.Error(), "TTS.VoiceID")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{name: "port out of range", yaml: "server:\n  port: 70000\n", wantErr: "Server.Port"},
		{name: "bad log level", yaml: "log:\n  level: verbose\n", wantErr: "Log.Level"},
		{name: "bad temperature", yaml: "llm:\n  temperature: 3\n", wantErr: "LLM.Temperature"},
		{name: "bad base url", yaml: "stt:\n  base_url: not a url\n", wantErr: "STT.BaseURL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			cfg, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_FileErrors(t *testing.T) {
	setRequiredEnv(t)

	_, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open config file")

	_, err = Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")

	big := writeConfig(t, "# "+strings.Repeat("x", maxConfigFileSize+1))
	_, err = Load(big)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")

	_, err = Load(writeConfig(t, "server: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config file")
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		name    string
		wantKey string
	}{
		{name: "RATE_LIMIT_DEFAULT_WINDOW", wantKey: "rate_limit.default_window"},
		{name: "SERVER_SHUTDOWN_TIMEOUT", wantKey: "server.shutdown_timeout"},
		{name: "LOG_LEVEL", wantKey: "log.level"},
		{name: "GROQ_API_KEY", wantKey: "stt.api_key"},
		{name: "HOME", wantKey: ""},
		{name: "LOGNAME", wantKey: ""},
		{name: "SERVER_", wantKey: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, _ := envKey(tt.name, "v")
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestLLMSettings(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.Model = "gemini-2.5-pro"
	cfg.LLM.Temperature = 0.3
	cfg.LLM.Timeout = 12 * time.Second

	settings := cfg.LLMSettings()
	assert.Equal(t, "gemini-2.5-pro", settings.GetModel(settings.Tier))
	assert.InDelta(t, 0.3, settings.Temperature, 0.0001)
	assert.Equal(t, 12*time.Second, settings.Timeout)
}
