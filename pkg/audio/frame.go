// Package audio provides the PCM primitives shared by every stage of the
// voice pipeline: the fixed frame profile, sample conversion, gain and
// energy helpers.
//
// All PCM in this package is signed 16-bit little-endian. The gateway runs a
// single fixed profile (16 kHz mono, 60 ms frames); the constants below are
// the one place that profile is defined.
package audio

import "time"

// Fixed session audio profile. The capability announcement in the hello
// handshake and every codec instance are derived from these values.
const (
	// SampleRate is the session sample rate in Hz.
	SampleRate = 16000

	// Channels is the channel count. The gateway is mono only.
	Channels = 1

	// FrameDuration is the wall-clock duration of one frame.
	FrameDuration = 60 * time.Millisecond

	// FrameSamples is the number of samples in one frame (960 at 16 kHz / 60 ms).
	FrameSamples = SampleRate * 60 / 1000

	// FrameBytes is the PCM byte size of one frame (2 bytes per sample).
	FrameBytes = FrameSamples * 2
)

// Silence returns a PCM frame of n all-zero samples.
func Silence(n int) []byte {
	return make([]byte, n*2)
}

// BytesToInt16s converts little-endian bytes to int16 PCM samples.
// A trailing odd byte is ignored.
func BytesToInt16s(b []byte) []int16 {
	pcm := make([]int16, len(b)/2)
	for i := range pcm {
		pcm[i] = int16(b[i*2]) | int16(b[i*2+1])<<8
	}
	return pcm
}

// Int16sToBytes converts int16 PCM samples to little-endian bytes.
func Int16sToBytes(pcm []int16) []byte {
	b := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}

// ApplyGain multiplies every sample of an s16le PCM buffer by factor,
// saturating at the int16 range. A factor of 1.0 returns pcm unchanged
// without copying. The input buffer is never modified.
func ApplyGain(pcm []byte, factor float64) []byte {
	if factor == 1.0 {
		return pcm
	}
	out := make([]byte, len(pcm)&^1)
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(pcm[i]) | int16(pcm[i+1])<<8
		v := float64(s) * factor
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		amplified := int16(v)
		out[i] = byte(amplified)
		out[i+1] = byte(amplified >> 8)
	}
	return out
}

// PadToFrame zero-pads pcm up to size bytes. If pcm already has at least
// size bytes it is returned unchanged.
func PadToFrame(pcm []byte, size int) []byte {
	if len(pcm) >= size {
		return pcm
	}
	padded := make([]byte, size)
	copy(padded, pcm)
	return padded
}
