// Package llm provides the conversational generation backend for the interviewer.
// The Gemini implementation is the default; other providers plug in behind Generator.
package llm

import (
	"context"
	"time"
)

// ModelTier represents the capability level of a model
type ModelTier string

const (
	// TierLite is for short, latency-sensitive replies
	TierLite ModelTier = "lite"
	// TierStandard is for regular interview turns
	TierStandard ModelTier = "standard"
	// TierAdvanced is for long-form output such as final feedback
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

// Config holds the model configuration for the generator
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Tier        ModelTier     // Tier used for interview turns
	Temperature float32       // Sampling temperature for conversational replies
	Timeout     time.Duration // Upper bound for a single generation call
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Tier:        TierStandard,
		Temperature: 0.7,
		Timeout:     30 * time.Second,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := *c
	newConfig.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return &newConfig
}

// callContext bounds a single generation call by Timeout when it is set.
func (c *Config) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}
