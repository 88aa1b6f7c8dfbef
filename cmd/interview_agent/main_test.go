package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/mock-interviewer/internal/config"
	"github.com/jonathan/mock-interviewer/internal/logging"
)

// TestMain runs before all tests and loads .env if available
func TestMain(m *testing.M) {
	// Try to load .env file - ignore error if it doesn't exist (CI environment)
	_ = godotenv.Load()

	os.Exit(m.Run())
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "interview_agent dev\n", out.String())
}

func TestServeCommand_Flags(t *testing.T) {
	port := serveCmd.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "8000", port.DefValue)

	configFlag := serveCmd.Flags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Empty(t, configFlag.DefValue)
}

func TestServeCommand_MissingKeys(t *testing.T) {
	for _, name := range []string{
		"GEMINI_API_KEY", "GROQ_API_KEY", "ELEVENLABS_API_KEY", "ELEVENLABS_VOICE_ID",
		"LLM_API_KEY", "STT_API_KEY", "TTS_API_KEY", "TTS_VOICE_ID",
	} {
		t.Setenv(name, "")
	}
	rootCmd.SetArgs([]string{"serve"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestBuildServer(t *testing.T) {
	cfg := config.Defaults()
	cfg.LLM.APIKey = "gemini-key"
	cfg.STT.APIKey = "groq-key"
	cfg.TTS.APIKey = "eleven-key"
	cfg.TTS.VoiceID = "voice-123"

	srv, cleanup, err := buildServer(t.Context(), &cfg, logging.Nop())
	require.NoError(t, err)
	require.NotNil(t, srv)
	require.NotNil(t, srv.Handler())
	cleanup()
	srv.Close()
}
