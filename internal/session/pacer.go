package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/txurtxil/Esc32S3-Groq/internal/protocol"
	"github.com/txurtxil/Esc32S3-Groq/pkg/audio"
	"github.com/txurtxil/Esc32S3-Groq/pkg/audio/opus"
)

// frameInterval is the delay between consecutive reply frames. Slightly
// under the 60 ms of audio each frame carries, so the device's jitter buffer
// stays ahead without overflowing.
const frameInterval = 58 * time.Millisecond

// PacerOption is a functional option for configuring a Pacer.
type PacerOption func(*Pacer)

// WithPacerLogger sets the pacer logger. Defaults to slog.Default().
func WithPacerLogger(log *slog.Logger) PacerOption {
	return func(p *Pacer) { p.log = log }
}

// WithInterval overrides the inter-frame delay. Used by tests.
func WithInterval(d time.Duration) PacerOption {
	return func(p *Pacer) { p.interval = d }
}

// WithSleep overrides the wait primitive. Used by tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) PacerOption {
	return func(p *Pacer) { p.sleep = sleep }
}

// Pacer turns a complete PCM reply into a bracketed sequence of encoded
// frames delivered at near real-time rate. It shares the session's codec,
// so Stream must not run concurrently with itself.
type Pacer struct {
	codec    opus.Codec
	sender   Sender
	interval time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	log      *slog.Logger
}

// NewPacer creates a Pacer over the session codec and sender.
func NewPacer(codec opus.Codec, sender Sender, opts ...PacerOption) *Pacer {
	p := &Pacer{
		codec:    codec,
		sender:   sender,
		interval: frameInterval,
		sleep:    sleepCtx,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Stream sends pcm to the device as paced frames, bracketed by tts start and
// stop markers. The final partial frame is zero-padded to a full frame. A
// failed send aborts the remainder; the closing bracket is still attempted.
func (p *Pacer) Stream(ctx context.Context, pcm []byte) error {
	if err := p.sender.SendControl(ctx, protocol.TTSStart()); err != nil {
		return fmt.Errorf("session: send tts start: %w", err)
	}
	defer func() {
		if err := p.sender.SendControl(ctx, protocol.TTSStop()); err != nil {
			p.log.Debug("send tts stop failed", "error", err)
		}
	}()

	frames := 0
	for off := 0; off < len(pcm); off += audio.FrameBytes {
		end := min(off+audio.FrameBytes, len(pcm))
		chunk := audio.PadToFrame(pcm[off:end], audio.FrameBytes)

		frame, err := p.codec.Encode(chunk)
		if err != nil {
			return fmt.Errorf("session: encode reply frame %d: %w", frames, err)
		}
		if err := p.sender.SendAudio(ctx, frame); err != nil {
			return fmt.Errorf("session: send reply frame %d: %w", frames, err)
		}
		frames++

		if err := p.sleep(ctx, p.interval); err != nil {
			return fmt.Errorf("session: pacing interrupted: %w", err)
		}
	}

	p.log.Info("reply streamed", "frames", frames, "pcm_bytes", len(pcm))
	return nil
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
