// Package pipeline runs one voice interaction end to end: gain correction,
// a minimum-length gate, transcription, completion, synthesis, and paced
// reply delivery. Any stage failure abandons the interaction; the device
// simply hears nothing and the session returns to idle.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/txurtxil/Esc32S3-Groq/internal/observe"
	"github.com/txurtxil/Esc32S3-Groq/internal/protocol"
	"github.com/txurtxil/Esc32S3-Groq/internal/session"
	"github.com/txurtxil/Esc32S3-Groq/pkg/audio"
	"github.com/txurtxil/Esc32S3-Groq/pkg/provider/llm"
	"github.com/txurtxil/Esc32S3-Groq/pkg/provider/stt"
	"github.com/txurtxil/Esc32S3-Groq/pkg/provider/tts"
)

// minUtteranceBytes gates out recordings too short to transcribe usefully:
// anything under 125 ms of audio is endpointing noise, not speech.
const minUtteranceBytes = 4000

// previewRunes is how much of the reply text is sent to the device as an
// advisory progress update before synthesis starts.
const previewRunes = 20

// Notifier delivers advisory progress updates to the device. Failures are
// logged and swallowed; progress text is best-effort.
type Notifier interface {
	SendControl(ctx context.Context, msg protocol.Message) error
}

// ReplyStreamer delivers the synthesized reply waveform to the device.
type ReplyStreamer interface {
	Stream(ctx context.Context, pcm []byte) error
}

// Option is a functional option for configuring a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithMetrics sets the metrics instance. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// Pipeline holds the shared providers. One instance serves all sessions;
// per-interaction state lives in the arguments to [Pipeline.Run].
type Pipeline struct {
	stt     stt.Provider
	llm     llm.Provider
	tts     tts.Provider
	log     *slog.Logger
	metrics *observe.Metrics
}

// New creates a Pipeline over the given providers.
func New(sttP stt.Provider, llmP llm.Provider, ttsP tts.Provider, opts ...Option) *Pipeline {
	p := &Pipeline{
		stt: sttP,
		llm: llmP,
		tts: ttsP,
		log: slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p
}

// Run executes one interaction for the given utterance. It never returns an
// error: every failure mode ends in a logged abandonment, because there is
// nobody upstream who could do anything else with it.
func (p *Pipeline) Run(ctx context.Context, u session.Utterance, notify Notifier, replies ReplyStreamer) {
	start := time.Now()
	cfg := u.Settings

	ctx, span := observe.StartSpan(ctx, "interaction")
	defer span.End()

	pcm := audio.ApplyGain(u.PCM, cfg.MicGain)
	if len(pcm) < minUtteranceBytes {
		p.log.Debug("utterance too short, skipping", "bytes", len(pcm))
		p.metrics.RecordInteraction(ctx, "dropped")
		return
	}

	transcript, err := p.transcribe(ctx, pcm, cfg.Language)
	if err != nil {
		p.log.Error("transcription failed", "error", err)
		p.metrics.RecordInteraction(ctx, "abandoned")
		return
	}
	if strings.TrimSpace(transcript) == "" {
		p.log.Debug("empty transcript, skipping")
		p.metrics.RecordInteraction(ctx, "dropped")
		return
	}
	p.log.Info("utterance transcribed", "text", transcript)
	p.notify(ctx, notify, protocol.Processing(transcript))

	reply, err := p.complete(ctx, transcript, cfg.SystemPrompt, cfg.Model, cfg.Temperature)
	if err != nil {
		p.log.Error("completion failed", "error", err)
		p.metrics.RecordInteraction(ctx, "abandoned")
		return
	}
	p.log.Info("reply generated", "model", cfg.Model, "chars", len(reply))
	p.notify(ctx, notify, protocol.Processing(preview(reply)))

	wave, err := p.synthesize(ctx, reply, tts.VoiceProfile{ID: cfg.Voice, Rate: cfg.TTSRate})
	if err != nil {
		p.log.Error("synthesis failed", "error", err)
		p.metrics.RecordInteraction(ctx, "abandoned")
		return
	}

	if err := replies.Stream(ctx, wave); err != nil {
		p.log.Warn("reply delivery aborted", "error", err)
		p.metrics.RecordInteraction(ctx, "abandoned")
		return
	}

	p.metrics.RecordInteraction(ctx, "completed")
	p.metrics.InteractionDuration.Record(ctx, time.Since(start).Seconds())
}

func (p *Pipeline) transcribe(ctx context.Context, pcm []byte, language string) (string, error) {
	start := time.Now()
	text, err := p.stt.Transcribe(ctx, stt.Request{
		PCM:        pcm,
		SampleRate: audio.SampleRate,
		Language:   language,
	})
	p.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
	return text, err
}

func (p *Pipeline) complete(ctx context.Context, userText, systemPrompt, model string, temperature float64) (string, error) {
	start := time.Now()
	resp, err := p.llm.Complete(ctx, llm.CompletionRequest{
		Model:        model,
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: userText}},
		Temperature:  temperature,
	})
	p.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (p *Pipeline) synthesize(ctx context.Context, text string, voice tts.VoiceProfile) ([]byte, error) {
	start := time.Now()
	wave, err := p.tts.Synthesize(ctx, text, voice)
	p.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	return wave, err
}

// notify sends an advisory update, logging and swallowing failures.
func (p *Pipeline) notify(ctx context.Context, n Notifier, msg protocol.Message) {
	if err := n.SendControl(ctx, msg); err != nil {
		p.log.Debug("progress notification failed", "error", err)
	}
}

// preview truncates reply text for the device's small display.
func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + ".."
}

// Runner binds the shared Pipeline to one session's delivery surfaces,
// satisfying session.UtteranceHandler.
type Runner struct {
	pipeline *Pipeline
	notify   Notifier
	replies  ReplyStreamer
}

var _ session.UtteranceHandler = (*Runner)(nil)

// NewRunner creates a Runner for one connection.
func NewRunner(p *Pipeline, notify Notifier, replies ReplyStreamer) *Runner {
	return &Runner{pipeline: p, notify: notify, replies: replies}
}

// HandleUtterance implements session.UtteranceHandler.
func (r *Runner) HandleUtterance(ctx context.Context, u session.Utterance) {
	r.pipeline.metrics.Utterances.Add(ctx, 1)
	r.pipeline.Run(ctx, u, r.notify, r.replies)
}
