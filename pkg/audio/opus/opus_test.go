package opus

import (
	"bytes"
	"math"
	"testing"

	"github.com/txurtxil/Esc32S3-Groq/pkg/audio"
)

// newCodec skips the test when the Opus library cannot be initialised, which
// mirrors the gateway's own passthrough degradation on such platforms.
func newCodec(t *testing.T) Codec {
	t.Helper()
	c, err := New()
	if err != nil {
		t.Skipf("opus unavailable: %v", err)
	}
	return c
}

// sine fills one frame with a 440 Hz tone so the encoder has real signal to
// work with; all-zero input can tempt codecs into degenerate packets.
func sine(samples int) []byte {
	pcm := make([]int16, samples)
	for i := range pcm {
		pcm[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(audio.SampleRate)))
	}
	return audio.Int16sToBytes(pcm)
}

func TestRoundTripPreservesFrameDuration(t *testing.T) {
	c := newCodec(t)

	packet, err := c.Encode(sine(audio.FrameSamples))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(packet) == 0 {
		t.Fatal("Encode returned an empty packet")
	}

	pcm := c.Decode(packet)
	if len(pcm) != audio.FrameBytes {
		t.Errorf("decoded frame = %d bytes, want %d", len(pcm), audio.FrameBytes)
	}
}

func TestMalformedPacketYieldsSilentFrame(t *testing.T) {
	c := newCodec(t)

	pcm := c.Decode([]byte{0xff, 0xfe, 0x01})
	if len(pcm) != audio.FrameBytes {
		t.Fatalf("substituted frame = %d bytes, want %d", len(pcm), audio.FrameBytes)
	}
	if !bytes.Equal(pcm, audio.Silence(audio.FrameSamples)) {
		t.Error("substituted frame is not all-zero PCM")
	}
}

func TestResetKeepsCodecUsable(t *testing.T) {
	c := newCodec(t)

	packet, err := c.Encode(sine(audio.FrameSamples))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	c.Decode(packet)
	c.Reset()

	if got := c.Decode(packet); len(got) != audio.FrameBytes {
		t.Errorf("decoded frame after reset = %d bytes, want %d", len(got), audio.FrameBytes)
	}
}

func TestOpusName(t *testing.T) {
	c := newCodec(t)
	if c.Name() != "opus" {
		t.Errorf("Name = %q, want %q", c.Name(), "opus")
	}
}

func TestPassthroughIdentity(t *testing.T) {
	var c Passthrough

	frame := bytes.Repeat([]byte{0x12, 0x34}, audio.FrameSamples)
	if got := c.Decode(frame); !bytes.Equal(got, frame) {
		t.Error("Decode should return the packet unchanged")
	}

	got, err := c.Encode(frame)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(got, frame) {
		t.Error("Encode should return the PCM unchanged")
	}
}

func TestPassthroughName(t *testing.T) {
	var c Codec = Passthrough{}
	if c.Name() != "pcm" {
		t.Errorf("Name = %q, want %q", c.Name(), "pcm")
	}
}

func TestPassthroughResetIsNoop(t *testing.T) {
	var c Passthrough
	c.Reset()

	frame := []byte{1, 2, 3, 4}
	if got := c.Decode(frame); !bytes.Equal(got, frame) {
		t.Error("Decode changed after Reset")
	}
}
