package audio

import "math"

// RMS returns the root-mean-square loudness of an s16le PCM buffer, truncated
// to an integer. This is the voice-activity signal used for endpointing: an
// all-zero or empty buffer yields 0, and scaling samples up never decreases
// the result. RMS is stateless; it never averages across frames.
func RMS(pcm []byte) int {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(pcm[i*2]) | int16(pcm[i*2+1])<<8)
		sum += s * s
	}
	return int(math.Sqrt(sum / float64(n)))
}
