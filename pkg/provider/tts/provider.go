// Package tts defines the Provider interface for text-to-speech backends.
//
// A TTS provider takes reply text and returns a complete linear PCM waveform
// at the fixed session sample rate, ready to be framed and paced back to the
// device. Any compressed intermediate the vendor emits (MP3, OGG) is the
// provider's own business to decode; callers only ever see PCM.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// VoiceProfile selects the synthesis voice and delivery style.
type VoiceProfile struct {
	// ID is the provider-specific voice identifier
	// (e.g., "es-ES-AlvaroNeural").
	ID string

	// Rate is the speaking-rate modifier in the provider's own syntax
	// (e.g., "+0%", "-20%"). Empty means the provider default.
	Rate string
}

// Provider is the abstraction over any speech synthesis backend.
type Provider interface {
	// Synthesize converts text into s16le mono PCM at the session sample
	// rate. It blocks until the whole waveform is available or the request
	// fails; callers abandon the interaction on error.
	Synthesize(ctx context.Context, text string, voice VoiceProfile) ([]byte, error)
}
