// Package config loads the interview agent configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/jonathan/mock-interviewer/internal/llm"
	"github.com/jonathan/mock-interviewer/internal/logging"
	"github.com/jonathan/mock-interviewer/internal/server/ratelimit"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig     `koanf:"server"`
	LLM       LLMConfig        `koanf:"llm"`
	STT       STTConfig        `koanf:"stt"`
	TTS       TTSConfig        `koanf:"tts"`
	Log       logging.Config   `koanf:"log"`
	RateLimit ratelimit.Config `koanf:"rate_limit"`
}

// ServerConfig configures the HTTP and WebSocket listener.
type ServerConfig struct {
	Port              int           `koanf:"port" validate:"gte=1,lte=65535"`
	AllowedOrigins    []string      `koanf:"allowed_origins"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" validate:"gte=0"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
	MaxUploadBytes    int64         `koanf:"max_upload_bytes" validate:"gte=0"`
}

// LLMConfig configures the conversational model.
type LLMConfig struct {
	APIKey      string        `koanf:"api_key" validate:"required"`
	Model       string        `koanf:"model"`
	Temperature float32       `koanf:"temperature" validate:"gte=0,lte=2"`
	Timeout     time.Duration `koanf:"timeout" validate:"gte=0"`
}

// STTConfig configures speech-to-text.
type STTConfig struct {
	APIKey   string        `koanf:"api_key" validate:"required"`
	BaseURL  string        `koanf:"base_url" validate:"omitempty,url"`
	Model    string        `koanf:"model"`
	Language string        `koanf:"language"`
	Timeout  time.Duration `koanf:"timeout" validate:"gte=0"`
}

// TTSConfig configures text-to-speech.
type TTSConfig struct {
	APIKey       string        `koanf:"api_key" validate:"required"`
	BaseURL      string        `koanf:"base_url" validate:"omitempty,url"`
	VoiceID      string        `koanf:"voice_id" validate:"required"`
	ModelID      string        `koanf:"model_id"`
	OutputFormat string        `koanf:"output_format"`
	Timeout      time.Duration `koanf:"timeout" validate:"gte=0"`
}

// sections lists the top-level keys, longest first so that RATE_LIMIT_*
// is matched before any shorter section sharing its prefix.
var sections = []string{"rate_limit", "server", "llm", "stt", "tts", "log"}

// envAliases maps conventional provider variables onto config keys.
var envAliases = map[string]string{
	"GEMINI_API_KEY":      "llm.api_key",
	"GROQ_API_KEY":        "stt.api_key",
	"ELEVENLABS_API_KEY":  "tts.api_key",
	"ELEVENLABS_VOICE_ID": "tts.voice_id",
	"PORT":                "server.port",
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:              8000,
			AllowedOrigins:    []string{"http://localhost:5173", "http://localhost:3000"},
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			MaxUploadBytes:    10 << 20,
		},
		LLM: LLMConfig{
			Model:       "gemini-2.5-flash",
			Temperature: 0.7,
			Timeout:     30 * time.Second,
		},
		STT: STTConfig{
			Model:   "whisper-large-v3",
			Timeout: 30 * time.Second,
		},
		TTS: TTSConfig{
			ModelID:      "eleven_multilingual_v2",
			OutputFormat: "mp3_44100_128",
			Timeout:      30 * time.Second,
		},
		Log:       logging.DefaultConfig(),
		RateLimit: ratelimit.DefaultConfig(),
	}
}

// Load reads configuration from an optional YAML file, then applies
// environment overrides.
//
// Precedence (highest first):
//  1. Environment variables (SERVER_PORT, LLM_MODEL, GEMINI_API_KEY, ...)
//  2. YAML file at path, when path is non-empty
//  3. Defaults
//
// Environment keys split on the section name: RATE_LIMIT_DEFAULT_LIMIT
// becomes rate_limit.default_limit.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// envKey maps an environment variable to a config key. Variables outside
// the known sections are ignored.
func envKey(name, value string) (string, interface{}) {
	if key, ok := envAliases[name]; ok {
		return key, value
	}

	lower := strings.ToLower(name)
	for _, section := range sections {
		if !strings.HasPrefix(lower, section+"_") {
			continue
		}
		field := strings.TrimPrefix(lower, section+"_")
		if field == "" {
			return "", nil
		}
		key := section + "." + field
		if key == "server.allowed_origins" || key == "rate_limit.whitelist" || key == "rate_limit.blacklist" {
			return key, splitList(value)
		}
		return key, value
	}
	return "", nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// applyDefaults fills zero values left behind by explicit empty overrides.
func applyDefaults(cfg *Config) {
	d := Defaults()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = d.Server.Port
	}
	if cfg.Server.ReadHeaderTimeout == 0 {
		cfg.Server.ReadHeaderTimeout = d.Server.ReadHeaderTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = d.Server.MaxUploadBytes
	}

	if cfg.LLM.Model == "" {
		cfg.LLM.Model = d.LLM.Model
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = d.LLM.Timeout
	}

	if cfg.STT.Model == "" {
		cfg.STT.Model = d.STT.Model
	}
	if cfg.STT.Timeout == 0 {
		cfg.STT.Timeout = d.STT.Timeout
	}

	if cfg.TTS.ModelID == "" {
		cfg.TTS.ModelID = d.TTS.ModelID
	}
	if cfg.TTS.OutputFormat == "" {
		cfg.TTS.OutputFormat = d.TTS.OutputFormat
	}
	if cfg.TTS.Timeout == 0 {
		cfg.TTS.Timeout = d.TTS.Timeout
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = d.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = d.Log.Format
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
}

// Validate checks the configuration, reporting every failing field.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// LLMSettings converts the llm section into generator configuration.
func (c *Config) LLMSettings() *llm.Config {
	out := llm.DefaultConfig()
	out.Temperature = c.LLM.Temperature
	if c.LLM.Timeout > 0 {
		out.Timeout = c.LLM.Timeout
	}
	if c.LLM.Model != "" {
		out = out.WithModel(out.Tier, c.LLM.Model)
	}
	return out
}

// Addr returns the listen address for the configured port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
