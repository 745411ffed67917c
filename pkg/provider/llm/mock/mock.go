// Package mock provides a configurable llm.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/meetmemo/meetmemo/pkg/provider/llm"
)

// Compile-time assertion that Provider implements llm.Provider.
var _ llm.Provider = (*Provider)(nil)

// Provider is a test double for llm.Provider. When CompleteFunc is unset,
// Complete returns Response.
type Provider struct {
	CompleteFunc func(ctx context.Context, req llm.Request) (string, error)
	Response     string

	mu       sync.Mutex
	requests []llm.Request
}

func (p *Provider) Complete(ctx context.Context, req llm.Request) (string, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.CompleteFunc != nil {
		return p.CompleteFunc(ctx, req)
	}
	return p.Response, nil
}

// Requests returns all requests seen so far.
func (p *Provider) Requests() []llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.Request(nil), p.requests...)
}
