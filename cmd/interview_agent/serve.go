package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/mock-interviewer/internal/config"
	"github.com/jonathan/mock-interviewer/internal/interview"
	"github.com/jonathan/mock-interviewer/internal/llm"
	"github.com/jonathan/mock-interviewer/internal/logging"
	"github.com/jonathan/mock-interviewer/internal/metrics"
	"github.com/jonathan/mock-interviewer/internal/server"
	"github.com/jonathan/mock-interviewer/internal/voice/stt"
	"github.com/jonathan/mock-interviewer/internal/voice/tts"
)

var (
	servePort       int
	serveConfigPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the interview server",
	Long:  `Start the HTTP and WebSocket server that runs voice interviews.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8000, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to a YAML config file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, cleanup, err := buildServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("interview agent starting",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("model", cfg.LLM.Model),
	)
	return srv.Start(ctx)
}

// buildServer wires the generator, voice providers and orchestrator into a server.
func buildServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*server.Server, func(), error) {
	generator, err := llm.NewGenerator(ctx, cfg.LLMSettings(), cfg.LLM.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create generator: %w", err)
	}

	m := metrics.New()
	orchestrator := interview.NewOrchestrator(interview.NewMemoryStore(), generator, interview.Options{
		GenerationTimeout: cfg.LLM.Timeout,
		Logger:            logger,
		Metrics:           m,
	})

	transcriber := stt.NewGroq(cfg.STT.APIKey).
		WithBaseURL(cfg.STT.BaseURL).
		WithModel(cfg.STT.Model)
	speaker := tts.NewElevenLabs(cfg.TTS.APIKey).
		WithBaseURL(cfg.TTS.BaseURL).
		WithDefaults(tts.SynthesizeOptions{
			Voice:        cfg.TTS.VoiceID,
			Model:        cfg.TTS.ModelID,
			OutputFormat: cfg.TTS.OutputFormat,
		})

	rateLimit := cfg.RateLimit
	srv := server.New(orchestrator, transcriber, speaker, server.Options{
		Config:    cfg.Server,
		RateLimit: &rateLimit,
		Conn: server.ConnOptions{
			STTTimeout: cfg.STT.Timeout,
			TTSTimeout: cfg.TTS.Timeout,
			Transcribe: stt.TranscribeOptions{Language: cfg.STT.Language},
		},
		Logger:  logger,
		Metrics: m,
	})

	cleanup := func() {
		if err := generator.Close(); err != nil {
			logger.Warn("failed to close generator", zap.Error(err))
		}
	}
	return srv, cleanup, nil
}
