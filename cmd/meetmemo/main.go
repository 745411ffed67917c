// Command meetmemo is the meeting transcription and summarization server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meetmemo/meetmemo/internal/app"
	"github.com/meetmemo/meetmemo/internal/config"
	"github.com/meetmemo/meetmemo/internal/observe"
	"github.com/meetmemo/meetmemo/pkg/audio"
	"github.com/meetmemo/meetmemo/pkg/provider/asr/whisper"
	"github.com/meetmemo/meetmemo/pkg/provider/diarize/pyannote"
	llmopenai "github.com/meetmemo/meetmemo/pkg/provider/llm/openai"
)

// version is stamped at build time via -ldflags.
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	envFile := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "meetmemo: %v\n", err)
		return 1
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	slog.Info("meetmemo starting",
		"version", version,
		"listen_addr", cfg.ListenAddr,
		"log_level", cfg.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "error", err)
		return 1
	}

	providers, err := buildProviders(cfg)
	if err != nil {
		slog.Error("failed to build providers", "error", err)
		return 1
	}

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "error", err)
		return 1
	}

	runErr := application.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		return 1
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "error", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run error", "error", runErr)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildProviders constructs the external collaborators from the config: the
// whisper ASR client, the pyannote diarization client, the OpenAI-compatible
// LLM client, and the ffmpeg transcoder.
func buildProviders(cfg *config.Config) (*app.Providers, error) {
	var asrOpts []whisper.Option
	if cfg.ASRModelName != "" {
		asrOpts = append(asrOpts, whisper.WithModel(cfg.ASRModelName))
	}
	asrProvider, err := whisper.New(cfg.WhisperServerURL, asrOpts...)
	if err != nil {
		return nil, fmt.Errorf("whisper provider: %w", err)
	}

	diarizeOpts := []pyannote.Option{}
	if cfg.DiarizationModelName != "" {
		diarizeOpts = append(diarizeOpts, pyannote.WithModel(cfg.DiarizationModelName))
	}
	if cfg.MLCredentialsToken != "" {
		diarizeOpts = append(diarizeOpts, pyannote.WithToken(cfg.MLCredentialsToken))
	}
	diarizer, err := pyannote.New(cfg.DiarizationURL, diarizeOpts...)
	if err != nil {
		return nil, fmt.Errorf("pyannote provider: %w", err)
	}

	llmOpts := []llmopenai.Option{llmopenai.WithTimeout(cfg.LLMTimeout)}
	if cfg.LLMAPIURL != "" {
		llmOpts = append(llmOpts, llmopenai.WithBaseURL(cfg.LLMAPIURL))
	}
	if cfg.LLMAPIKey != "" {
		llmOpts = append(llmOpts, llmopenai.WithAPIKey(cfg.LLMAPIKey))
	}
	llmProvider, err := llmopenai.New(cfg.LLMModelName, llmOpts...)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}

	converter, err := audio.NewFFmpegConverter()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}

	return &app.Providers{
		ASR:       asrProvider,
		Diarizer:  diarizer,
		LLM:       llmProvider,
		Converter: converter,
	}, nil
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
