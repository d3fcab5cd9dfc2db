// Package mock provides an stt.Provider test double that records requests and
// returns scripted results.
package mock

import (
	"context"
	"sync"

	"github.com/txurtxil/Esc32S3-Groq/pkg/provider/stt"
)

// Provider implements stt.Provider for tests.
type Provider struct {
	// Text is returned by every Transcribe call when Err is nil.
	Text string

	// Err, when non-nil, is returned by every Transcribe call.
	Err error

	mu    sync.Mutex
	calls []stt.Request
}

var _ stt.Provider = (*Provider)(nil)

// Transcribe records req and returns the scripted result.
func (p *Provider) Transcribe(_ context.Context, req stt.Request) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()
	if p.Err != nil {
		return "", p.Err
	}
	return p.Text, nil
}

// Calls returns a copy of all recorded requests.
func (p *Provider) Calls() []stt.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]stt.Request, len(p.calls))
	copy(out, p.calls)
	return out
}
