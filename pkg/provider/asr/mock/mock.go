// Package mock provides a configurable asr.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/meetmemo/meetmemo/pkg/provider/asr"
)

// Compile-time assertion that Provider implements asr.Provider.
var _ asr.Provider = (*Provider)(nil)

// Provider is a test double for asr.Provider. Unset funcs return zero values.
type Provider struct {
	TranscribeFunc      func(ctx context.Context, audioPath string) (*asr.Result, error)
	TranscribeChunkFunc func(ctx context.Context, wav []byte) (string, error)

	mu    sync.Mutex
	calls []string
}

func (p *Provider) Transcribe(ctx context.Context, audioPath string) (*asr.Result, error) {
	p.record(audioPath)
	if p.TranscribeFunc != nil {
		return p.TranscribeFunc(ctx, audioPath)
	}
	return &asr.Result{}, nil
}

func (p *Provider) TranscribeChunk(ctx context.Context, wav []byte) (string, error) {
	p.record("chunk")
	if p.TranscribeChunkFunc != nil {
		return p.TranscribeChunkFunc(ctx, wav)
	}
	return "", nil
}

// Calls returns the audio paths passed to Transcribe so far ("chunk" for
// TranscribeChunk calls).
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *Provider) record(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, path)
}
