//go:build cgo

package opus

import (
	"fmt"
	"log/slog"

	"layeh.com/gopus"

	"github.com/txurtxil/Esc32S3-Groq/pkg/audio"
)

// codec is the Opus implementation of Codec.
type codec struct {
	dec *gopus.Decoder
	enc *gopus.Encoder
}

// New creates an Opus codec for the fixed session profile. It returns an
// error when the Opus library cannot be initialised; callers should degrade
// to [Passthrough] in that case rather than refuse the session.
func New() (Codec, error) {
	dec, err := gopus.NewDecoder(audio.SampleRate, audio.Channels)
	if err != nil {
		return nil, fmt.Errorf("opus: create decoder: %w", err)
	}
	enc, err := gopus.NewEncoder(audio.SampleRate, audio.Channels, gopus.Voip)
	if err != nil {
		return nil, fmt.Errorf("opus: create encoder: %w", err)
	}
	return &codec{dec: dec, enc: enc}, nil
}

func (c *codec) Decode(packet []byte) []byte {
	pcm, err := c.dec.Decode(packet, audio.FrameSamples, false)
	if err != nil {
		slog.Debug("opus decode error, substituting silence", "err", err, "packet_bytes", len(packet))
		return audio.Silence(audio.FrameSamples)
	}
	return audio.Int16sToBytes(pcm)
}

func (c *codec) Encode(pcm []byte) ([]byte, error) {
	packet, err := c.enc.Encode(audio.BytesToInt16s(pcm), audio.FrameSamples, len(pcm))
	if err != nil {
		return nil, fmt.Errorf("opus: encode: %w", err)
	}
	return packet, nil
}

// Reset replaces the decoder instance. gopus does not expose a state reset,
// and a fresh decoder is equivalent for packet-boundary-aligned streams.
func (c *codec) Reset() {
	dec, err := gopus.NewDecoder(audio.SampleRate, audio.Channels)
	if err != nil {
		// Keep the old decoder; worst case is a brief artifact at the start
		// of the recording.
		slog.Warn("opus decoder reset failed, keeping previous state", "err", err)
		return
	}
	c.dec = dec
}

func (c *codec) Name() string { return "opus" }
