// Package mock provides an llm.Provider test double.
package mock

import (
	"context"
	"sync"

	"github.com/txurtxil/Esc32S3-Groq/pkg/provider/llm"
)

// Provider implements llm.Provider for tests.
type Provider struct {
	// Reply is returned by every Complete call when Err is nil.
	Reply string

	// Err, when non-nil, is returned by every Complete call.
	Err error

	mu    sync.Mutex
	calls []llm.CompletionRequest
}

var _ llm.Provider = (*Provider)(nil)

// Complete records req and returns the scripted result.
func (p *Provider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	return &llm.CompletionResponse{Content: p.Reply}, nil
}

// Calls returns a copy of all recorded requests.
func (p *Provider) Calls() []llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.CompletionRequest, len(p.calls))
	copy(out, p.calls)
	return out
}
