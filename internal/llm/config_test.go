package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, TierStandard, config.Tier)
	assert.Equal(t, "gemini-2.5-flash", config.GetModel(config.Tier))
	assert.InDelta(t, 0.7, config.Temperature, 0.0001)
	assert.Equal(t, 30*time.Second, config.Timeout)
}

func TestGetModel_Fallback(t *testing.T) {
	config := &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite: "fallback-model",
		},
	}

	// Unknown tier falls back to standard, then lite
	assert.Equal(t, "fallback-model", config.GetModel("unknown"))
}

func TestGetModel_EmptyConfig(t *testing.T) {
	config := &Config{Provider: ProviderGemini, Models: map[ModelTier]string{}}

	assert.Equal(t, "", config.GetModel(TierAdvanced))
}

func TestWithModel(t *testing.T) {
	config := DefaultConfig()
	newConfig := config.WithModel(TierStandard, "custom-model")

	assert.Equal(t, "gemini-2.5-flash", config.GetModel(TierStandard))
	assert.Equal(t, "custom-model", newConfig.GetModel(TierStandard))
	assert.Equal(t, "gemini-2.5-flash-lite", newConfig.GetModel(TierLite))
	assert.Equal(t, config.Temperature, newConfig.Temperature)
}

func TestCallContext_AppliesTimeout(t *testing.T) {
	config := DefaultConfig()
	config.Timeout = 2 * time.Second

	ctx, cancel := config.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(2*time.Second), deadline, time.Second)
}

func TestCallContext_NoTimeout(t *testing.T) {
	config := DefaultConfig()
	config.Timeout = 0

	ctx, cancel := config.callContext(context.Background())
	_, ok := ctx.Deadline()
	assert.False(t, ok)

	cancel()
	assert.Error(t, ctx.Err())
}
