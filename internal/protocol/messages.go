// Package protocol defines the control messages exchanged with the device
// over the shared websocket channel.
//
// The channel carries two kinds of traffic: JSON control messages (text
// frames) and opaque compressed audio (binary frames). This package owns the
// control side: message schema, the capability announcement answered to the
// hello handshake, and the small constructors the rest of the gateway uses so
// wire strings live in exactly one place.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Message types.
const (
	TypeHello  = "hello"
	TypeListen = "listen"
	TypeState  = "state"
	TypeTTS    = "tts"
)

// Message states.
const (
	StateStart      = "start"
	StateStop       = "stop"
	StateProcessing = "processing"
)

// Message is one control message in either direction. Fields not relevant to
// a given type are omitted from the wire form.
type Message struct {
	Type        string       `json:"type"`
	State       string       `json:"state,omitempty"`
	Text        string       `json:"text,omitempty"`
	Transport   string       `json:"transport,omitempty"`
	AudioParams *AudioParams `json:"audio_params,omitempty"`
}

// AudioParams is the capability announcement carried by the hello reply. The
// peer configures its own encoder and decoder from these values, so they must
// describe the gateway's fixed profile exactly.
type AudioParams struct {
	// Format is the codec name ("opus", or "pcm" in degraded passthrough mode).
	Format string `json:"format"`

	// SampleRate in Hz.
	SampleRate int `json:"sample_rate"`

	// Channels is the channel count.
	Channels int `json:"channels"`

	// FrameDuration is the frame length in milliseconds.
	FrameDuration int `json:"frame_duration"`
}

// Parse decodes one inbound control message.
func Parse(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("protocol: parse control message: %w", err)
	}
	return msg, nil
}

// IsListenStart reports whether msg asks the gateway to begin recording.
func (m Message) IsListenStart() bool {
	return m.Type == TypeListen && m.State == StateStart
}

// HelloReply builds the handshake response announcing the session's fixed
// audio profile for the given codec name.
func HelloReply(codecName string, sampleRate, channels, frameDurationMs int) Message {
	return Message{
		Type:      TypeHello,
		Transport: "websocket",
		AudioParams: &AudioParams{
			Format:        codecName,
			SampleRate:    sampleRate,
			Channels:      channels,
			FrameDuration: frameDurationMs,
		},
	}
}

// Processing builds an advisory progress update carrying text for the
// connected client (transcript, reply preview).
func Processing(text string) Message {
	return Message{Type: TypeState, State: StateProcessing, Text: text}
}

// TTSStart brackets the beginning of a reply's frame sequence.
func TTSStart() Message {
	return Message{Type: TypeTTS, State: StateStart}
}

// TTSStop brackets the end of a reply's frame sequence. It is also emitted
// defensively at endpoint time in case a prior reply stream is still
// conceptually open on the peer.
func TTSStop() Message {
	return Message{Type: TypeTTS, State: StateStop}
}
