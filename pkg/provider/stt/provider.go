// Package stt defines the Provider interface for batch speech-to-text
// backends.
//
// The gateway records complete utterances before transcribing, so unlike a
// live-captioning system the interface is a single blocking call: submit one
// finished PCM waveform, receive text. Implementations must be safe for
// concurrent use; multiple sessions may transcribe at once.
package stt

import "context"

// Request carries one finished utterance and its recognition hints.
type Request struct {
	// PCM is the complete s16le mono waveform of the utterance.
	PCM []byte

	// SampleRate is the waveform sample rate in Hz.
	SampleRate int

	// Language is the recognition language hint (e.g., "es", "en").
	// Empty lets the provider auto-detect, if supported.
	Language string

	// Prompt is an optional free-text hint forwarded to the recogniser.
	Prompt string
}

// Provider is the abstraction over any batch transcription backend.
type Provider interface {
	// Transcribe submits the utterance and blocks until text is available or
	// the request fails. There is no cancellation beyond ctx and no retry;
	// callers abandon the interaction on error.
	Transcribe(ctx context.Context, req Request) (string, error)
}
