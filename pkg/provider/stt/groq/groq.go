// Package groq provides a Groq-backed STT provider.
//
// Groq serves Whisper models through an OpenAI-compatible REST API, so the
// implementation rides on the official openai-go client pointed at the Groq
// endpoint. Utterance PCM is wrapped in a RIFF/WAV container before upload;
// Groq rejects headerless PCM.
package groq

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/txurtxil/Esc32S3-Groq/pkg/audio"
	"github.com/txurtxil/Esc32S3-Groq/pkg/provider/stt"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultModel   = "whisper-large-v3-turbo"
	defaultTimeout = 30 * time.Second
)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the Whisper model identifier (e.g., "whisper-large-v3").
// Defaults to "whisper-large-v3-turbo".
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithBaseURL overrides the Groq API endpoint. Useful for tests and for
// pointing at any other OpenAI-compatible transcription server.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// Provider implements stt.Provider backed by Groq's Whisper endpoint.
// Safe for concurrent use.
type Provider struct {
	client  oai.Client
	model   string
	baseURL string
	timeout time.Duration
}

var _ stt.Provider = (*Provider)(nil)

// New creates a Groq STT Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("groq: apiKey must not be empty")
	}
	p := &Provider{
		model:   defaultModel,
		baseURL: defaultBaseURL,
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	// The client resolves request paths against the base URL, so the final
	// path segment is lost without a trailing slash.
	if !strings.HasSuffix(p.baseURL, "/") {
		p.baseURL += "/"
	}
	p.client = oai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(p.baseURL),
		option.WithHTTPClient(&http.Client{Timeout: p.timeout}),
	)
	return p, nil
}

// Transcribe wraps the utterance as WAV and submits it to the transcription
// endpoint. Returns the recognised text, which may be empty for silence.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (string, error) {
	if len(req.PCM) == 0 {
		return "", errors.New("groq: empty utterance")
	}
	sr := req.SampleRate
	if sr <= 0 {
		sr = audio.SampleRate
	}
	wav := audio.EncodeWAV(req.PCM, sr, audio.Channels)

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(wav), "utterance.wav", "audio/wav"),
		Model: oai.AudioModel(p.model),
	}
	if req.Language != "" {
		params.Language = oai.String(req.Language)
	}
	if req.Prompt != "" {
		params.Prompt = oai.String(req.Prompt)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("groq: transcription request: %w", err)
	}
	return resp.Text, nil
}
