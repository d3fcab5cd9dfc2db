package audio

import "testing"

// constant returns a PCM buffer of n samples all at amplitude v.
func constant(n int, v int16) []byte {
	pcm := make([]int16, n)
	for i := range pcm {
		pcm[i] = v
	}
	return Int16sToBytes(pcm)
}

func TestRMS(t *testing.T) {
	tests := []struct {
		name string
		pcm  []byte
		want int
	}{
		{"empty", nil, 0},
		{"all zero", Silence(FrameSamples), 0},
		{"constant 1000", constant(FrameSamples, 1000), 1000},
		{"constant negative", constant(FrameSamples, -1000), 1000},
		{"single sample", Int16sToBytes([]int16{300}), 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RMS(tt.pcm); got != tt.want {
				t.Errorf("RMS = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRMSMonotonicInAmplitude(t *testing.T) {
	quiet := RMS(constant(FrameSamples, 200))
	loud := RMS(constant(FrameSamples, 2000))
	if loud <= quiet {
		t.Errorf("RMS(loud) = %d should exceed RMS(quiet) = %d", loud, quiet)
	}
}

func TestRMSMixedSignal(t *testing.T) {
	// Alternating +-3000 has RMS exactly 3000.
	pcm := make([]int16, 100)
	for i := range pcm {
		if i%2 == 0 {
			pcm[i] = 3000
		} else {
			pcm[i] = -3000
		}
	}
	if got := RMS(Int16sToBytes(pcm)); got != 3000 {
		t.Errorf("RMS = %d, want 3000", got)
	}
}
