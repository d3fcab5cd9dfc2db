// Package mock provides a tts.Provider test double.
package mock

import (
	"context"
	"sync"

	"github.com/txurtxil/Esc32S3-Groq/pkg/provider/tts"
)

// Call records one Synthesize invocation.
type Call struct {
	Text  string
	Voice tts.VoiceProfile
}

// Provider implements tts.Provider for tests.
type Provider struct {
	// PCM is returned by every Synthesize call when Err is nil.
	PCM []byte

	// Err, when non-nil, is returned by every Synthesize call.
	Err error

	mu    sync.Mutex
	calls []Call
}

var _ tts.Provider = (*Provider)(nil)

// Synthesize records the call and returns the scripted result.
func (p *Provider) Synthesize(_ context.Context, text string, voice tts.VoiceProfile) ([]byte, error) {
	p.mu.Lock()
	p.calls = append(p.calls, Call{Text: text, Voice: voice})
	p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	return p.PCM, nil
}

// Calls returns a copy of all recorded invocations.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}
