// Command gateway runs the voice session gateway: it accepts websocket
// connections from ESP32 voice devices, detects utterance boundaries in the
// inbound Opus stream, and answers with synthesized speech from a
// transcribe/complete/synthesize pipeline.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/txurtxil/Esc32S3-Groq/internal/config"
	"github.com/txurtxil/Esc32S3-Groq/internal/health"
	"github.com/txurtxil/Esc32S3-Groq/internal/logbuf"
	"github.com/txurtxil/Esc32S3-Groq/internal/observe"
	"github.com/txurtxil/Esc32S3-Groq/internal/pipeline"
	"github.com/txurtxil/Esc32S3-Groq/internal/server"
	"github.com/txurtxil/Esc32S3-Groq/pkg/audio/opus"
	"github.com/txurtxil/Esc32S3-Groq/pkg/provider/llm"
	"github.com/txurtxil/Esc32S3-Groq/pkg/provider/llm/anyllm"
	"github.com/txurtxil/Esc32S3-Groq/pkg/provider/stt"
	sttgroq "github.com/txurtxil/Esc32S3-Groq/pkg/provider/stt/groq"
	"github.com/txurtxil/Esc32S3-Groq/pkg/provider/tts"
	"github.com/txurtxil/Esc32S3-Groq/pkg/provider/tts/edge"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "config.yaml", "path to the YAML configuration file")
		showVer    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Println("gateway", version)
		return 0
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	logs := logbuf.NewBuffer(logbuf.DefaultCapacity)
	setupLogging(cfg.Server.LogLevel, logs)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOtel, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "voice-gateway",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("telemetry init failed", "error", err)
		return 1
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}()

	sttP, err := buildSTT(cfg.Providers.STT)
	if err != nil {
		slog.Error("stt provider init failed", "error", err)
		return 1
	}
	llmP, err := buildLLM(cfg.Providers.LLM, cfg.Assistant.Model)
	if err != nil {
		slog.Error("llm provider init failed", "error", err)
		return 1
	}
	ttsP, checkers, err := buildTTS(cfg.Providers.TTS)
	if err != nil {
		slog.Error("tts provider init failed", "error", err)
		return 1
	}

	// One throwaway codec up front so a broken Opus install is reported at
	// startup, not on the first device connection.
	if _, err := opus.New(); err != nil {
		slog.Warn("opus unavailable, sessions will run in pcm passthrough mode", "error", err)
	}

	metrics := observe.DefaultMetrics()
	store := config.NewStore(*configPath, cfg)
	pl := pipeline.New(sttP, llmP, ttsP, pipeline.WithMetrics(metrics))

	srv := server.New(cfg.Server.ListenAddr, store, pl,
		func() (opus.Codec, error) { return opus.New() },
		server.WithMetrics(metrics),
		server.WithLogBuffer(logs),
		server.WithHealth(health.New(checkers...)),
	)

	slog.Info("gateway starting", "version", version, "addr", cfg.Server.ListenAddr)
	if err := srv.Run(ctx); err != nil {
		slog.Error("gateway stopped", "error", err)
		return 1
	}
	slog.Info("gateway stopped")
	return 0
}

// loadConfig reads the file at path, falling back to defaults when it does
// not exist yet.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "config file %s not found, using defaults\n", path)
		return config.Default(), nil
	}
	return cfg, err
}

// setupLogging installs the default slog logger: text on stderr, teed into
// the in-memory ring served at /api/logs.
func setupLogging(level config.LogLevel, logs *logbuf.Buffer) {
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
	inner := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(logbuf.NewHandler(inner, logs)))
}

func buildSTT(entry config.ProviderEntry) (stt.Provider, error) {
	switch strings.ToLower(entry.Name) {
	case "groq":
		key := entry.APIKey
		if key == "" {
			key = os.Getenv("GROQ_API_KEY")
		}
		var opts []sttgroq.Option
		if entry.Model != "" {
			opts = append(opts, sttgroq.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, sttgroq.WithBaseURL(entry.BaseURL))
		}
		return sttgroq.New(key, opts...)
	default:
		return nil, fmt.Errorf("unsupported stt provider %q", entry.Name)
	}
}

func buildLLM(entry config.ProviderEntry, defaultModel string) (llm.Provider, error) {
	model := entry.Model
	if model == "" {
		model = defaultModel
	}
	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return anyllm.New(entry.Name, model, opts...)
}

func buildTTS(entry config.ProviderEntry) (tts.Provider, []health.Checker, error) {
	switch strings.ToLower(entry.Name) {
	case "edge":
		p := edge.New()
		if err := p.Probe(); err != nil {
			slog.Warn("speech synthesis degraded", "error", err)
		}
		checker := health.Checker{
			Name:  "ffmpeg",
			Check: func(context.Context) error { return p.Probe() },
		}
		return p, []health.Checker{checker}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported tts provider %q", entry.Name)
	}
}
